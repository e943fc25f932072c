package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"videotube/internal/logging"
	"videotube/internal/metrics"
)

// Publisher adds events to a stream and returns the assigned message id.
type Publisher interface {
	Publish(ctx context.Context, stream string, event RelationEvent) (messageID string, err error)
}

// RedisPublisher implements Publisher using Redis Streams.
type RedisPublisher struct {
	client *redis.Client
	maxLen int64
}

// NewPublisher creates a Publisher backed by Redis Streams. The stream is
// trimmed approximately to maxLen entries; zero disables trimming.
func NewPublisher(client *redis.Client, maxLen int64) *RedisPublisher {
	return &RedisPublisher{client: client, maxLen: maxLen}
}

func (p *RedisPublisher) Publish(ctx context.Context, stream string, event RelationEvent) (string, error) {
	start := time.Now()
	log := logging.Ctx(ctx).With().Str("component", "publisher").Str("stream", stream).Str("type", event.Type).Logger()

	values, err := event.ToMap()
	if err != nil {
		return "", fmt.Errorf("serialize event: %w", err)
	}

	args := &redis.XAddArgs{
		Stream: stream,
		Values: values,
	}
	if p.maxLen > 0 {
		args.MaxLen = p.maxLen
		args.Approx = true
	}

	messageID, err := p.client.XAdd(ctx, args).Result()
	if err != nil {
		metrics.QueueEventsTotal.WithLabelValues("publish_failed").Inc()
		log.Warn().Err(err).Msg("publish failed")
		return "", fmt.Errorf("xadd to stream: %w", err)
	}

	metrics.QueueEventsTotal.WithLabelValues("published").Inc()
	log.Debug().
		Str("msg_id", messageID).
		Str("kind", string(event.Kind)).
		Str("target_id", event.TargetID.String()).
		Dur("duration", time.Since(start)).
		Msg("published")

	return messageID, nil
}
