package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"videotube/internal/model"
)

const (
	// StatsCachePrefix is the key prefix for channel stats hashes
	StatsCachePrefix = "stats:channel:"

	// StatsCacheTTL bounds how stale a channel dashboard can get without an invalidation
	StatsCacheTTL = 60 * time.Second
)

// StatsCache holds computed ChannelStats per owner.
type StatsCache interface {
	// Get returns found=false on a miss.
	Get(ctx context.Context, ownerID uuid.UUID) (stats *model.ChannelStats, found bool, err error)
	Set(ctx context.Context, ownerID uuid.UUID, stats *model.ChannelStats) error
	Invalidate(ctx context.Context, ownerID uuid.UUID) error
}

// RedisStatsCache stores each owner's stats as one hash with a TTL.
type RedisStatsCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewStatsCache(client *redis.Client) *RedisStatsCache {
	return &RedisStatsCache{client: client, ttl: StatsCacheTTL}
}

func statsKey(ownerID uuid.UUID) string {
	return StatsCachePrefix + ownerID.String()
}

var statsFields = []string{"video_count", "subscriber_count", "tweet_count", "total_views", "total_video_likes"}

func (c *RedisStatsCache) Get(ctx context.Context, ownerID uuid.UUID) (*model.ChannelStats, bool, error) {
	values, err := c.client.HGetAll(ctx, statsKey(ownerID)).Result()
	if err != nil {
		return nil, false, fmt.Errorf("get channel stats: %w", err)
	}
	if len(values) < len(statsFields) {
		return nil, false, nil
	}

	nums := make([]int64, len(statsFields))
	for i, field := range statsFields {
		n, err := strconv.ParseInt(values[field], 10, 64)
		if err != nil {
			// Corrupt entry, treat as a miss.
			return nil, false, nil
		}
		nums[i] = n
	}

	return &model.ChannelStats{
		VideoCount:      nums[0],
		SubscriberCount: nums[1],
		TweetCount:      nums[2],
		TotalViews:      nums[3],
		TotalVideoLikes: nums[4],
	}, true, nil
}

// Set writes the hash and its TTL in one pipeline.
func (c *RedisStatsCache) Set(ctx context.Context, ownerID uuid.UUID, s *model.ChannelStats) error {
	key := statsKey(ownerID)

	pipe := c.client.TxPipeline()
	pipe.HSet(ctx, key,
		"video_count", s.VideoCount,
		"subscriber_count", s.SubscriberCount,
		"tweet_count", s.TweetCount,
		"total_views", s.TotalViews,
		"total_video_likes", s.TotalVideoLikes,
	)
	pipe.Expire(ctx, key, c.ttl)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("set channel stats: %w", err)
	}
	return nil
}

func (c *RedisStatsCache) Invalidate(ctx context.Context, ownerID uuid.UUID) error {
	if err := c.client.Del(ctx, statsKey(ownerID)).Err(); err != nil {
		return fmt.Errorf("invalidate channel stats: %w", err)
	}
	return nil
}
