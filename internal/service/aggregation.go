package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/graph-gophers/dataloader"
	"golang.org/x/sync/errgroup"

	"videotube/internal/cache"
	"videotube/internal/config"
	"videotube/internal/logging"
	"videotube/internal/metrics"
	"videotube/internal/model"
	"videotube/internal/repository"
)

// fanOutLimit bounds concurrent per-row lookups inside one aggregation.
const fanOutLimit = 8

// AggregationService builds the read-side views: comment threads, channel
// profiles and stats, liked videos, watch history and subscription lists.
// Every view is computed for a viewer; uuid.Nil means an anonymous viewer.
type AggregationService struct {
	accounts      repository.AccountRepository
	videos        repository.VideoRepository
	tweets        repository.TweetRepository
	comments      repository.CommentRepository
	likes         repository.LikeRepository
	subscriptions repository.SubscriptionRepository
	stats         cache.StatsCache // optional

	exposeEmail bool
}

func NewAggregationService(
	accounts repository.AccountRepository,
	videos repository.VideoRepository,
	tweets repository.TweetRepository,
	comments repository.CommentRepository,
	likes repository.LikeRepository,
	subscriptions repository.SubscriptionRepository,
	stats cache.StatsCache,
	cfg *config.Config,
) *AggregationService {
	return &AggregationService{
		accounts:      accounts,
		videos:        videos,
		tweets:        tweets,
		comments:      comments,
		likes:         likes,
		subscriptions: subscriptions,
		stats:         stats,
		exposeEmail:   cfg.ExposeChannelEmail,
	}
}

// ownerLoader batches owner profile lookups for the duration of one call.
// Missing accounts resolve to a nil summary, never an error.
func (s *AggregationService) ownerLoader() *dataloader.Loader {
	batch := func(ctx context.Context, keys dataloader.Keys) []*dataloader.Result {
		ids := make([]uuid.UUID, len(keys))
		for i, key := range keys {
			ids[i] = key.Raw().(uuid.UUID)
		}

		found, err := s.accounts.SummariesByIDs(ctx, ids)

		results := make([]*dataloader.Result, len(keys))
		for i, id := range ids {
			if err != nil {
				results[i] = &dataloader.Result{Error: err}
				continue
			}
			var owner *model.AccountSummary
			if sum, ok := found[id]; ok {
				owner = &sum
			}
			results[i] = &dataloader.Result{Data: owner}
		}
		return results
	}
	return dataloader.NewBatchedLoader(batch, dataloader.WithWait(time.Millisecond))
}

type idKey uuid.UUID

func (k idKey) String() string   { return uuid.UUID(k).String() }
func (k idKey) Raw() interface{} { return uuid.UUID(k) }

// ownerSet queues owner lookups on a loader and resolves them together.
type ownerSet struct {
	loader *dataloader.Loader
	thunks map[uuid.UUID]dataloader.Thunk
}

func newOwnerSet(loader *dataloader.Loader) *ownerSet {
	return &ownerSet{loader: loader, thunks: make(map[uuid.UUID]dataloader.Thunk)}
}

func (o *ownerSet) want(ctx context.Context, ids ...uuid.UUID) {
	for _, id := range ids {
		if _, ok := o.thunks[id]; !ok {
			o.thunks[id] = o.loader.Load(ctx, idKey(id))
		}
	}
}

func (o *ownerSet) resolve() (map[uuid.UUID]*model.AccountSummary, error) {
	out := make(map[uuid.UUID]*model.AccountSummary, len(o.thunks))
	for id, thunk := range o.thunks {
		data, err := thunk()
		if err != nil {
			return nil, fmt.Errorf("load owners: %w", err)
		}
		out[id], _ = data.(*model.AccountSummary)
	}
	return out, nil
}

// likeRollup is the like count and the viewer's flag for a set of targets.
type likeRollup struct {
	counts map[uuid.UUID]int64
	liked  map[uuid.UUID]bool
}

func (s *AggregationService) rollLikes(ctx context.Context, g *errgroup.Group, kind model.TargetKind, ids []uuid.UUID, viewerID uuid.UUID) *likeRollup {
	r := &likeRollup{liked: map[uuid.UUID]bool{}}
	if len(ids) == 0 {
		r.counts = map[uuid.UUID]int64{}
		return r
	}
	g.Go(func() error {
		counts, err := s.likes.CountByTargets(ctx, kind, ids)
		if err != nil {
			return fmt.Errorf("count likes: %w", err)
		}
		r.counts = counts
		return nil
	})
	if viewerID != uuid.Nil {
		g.Go(func() error {
			liked, err := s.likes.LikedBy(ctx, viewerID, kind, ids)
			if err != nil {
				return fmt.Errorf("viewer likes: %w", err)
			}
			r.liked = liked
			return nil
		})
	}
	return r
}

// ListComments returns one page of a video's top-level comments. Each entry
// carries its owner, like count, the viewer's like flag, its reply count and
// a preview of its most recent replies.
func (s *AggregationService) ListComments(ctx context.Context, rawVideoID string, viewerID uuid.UUID, page model.PageRequest, order model.SortOrder) (model.Page[model.AnnotatedComment], error) {
	defer metrics.ObserveAggregation("comments", time.Now())

	var empty model.Page[model.AnnotatedComment]

	videoID, err := model.ParseID(rawVideoID)
	if err != nil {
		return empty, err
	}
	if _, err := s.videos.GetByID(ctx, videoID); err != nil {
		return empty, err
	}

	comments, total, err := s.comments.ListTopLevel(ctx, videoID, order, page)
	if err != nil {
		return empty, fmt.Errorf("list comments: %w", err)
	}
	if len(comments) == 0 {
		return model.NewPage[model.AnnotatedComment](nil, page, total), nil
	}

	ids := make([]uuid.UUID, len(comments))
	owners := newOwnerSet(s.ownerLoader())
	for i, c := range comments {
		ids[i] = c.ID
		owners.want(ctx, c.OwnerID)
	}

	var (
		replyCounts map[uuid.UUID]int64
		previews    map[uuid.UUID][]model.Comment
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		replyCounts, err = s.comments.CountReplies(gctx, ids)
		return err
	})
	g.Go(func() error {
		var err error
		previews, err = s.comments.LatestReplies(gctx, ids, model.ReplyPreviewSize)
		return err
	})
	if err := g.Wait(); err != nil {
		return empty, fmt.Errorf("load replies: %w", err)
	}

	// Replies are liked as comments, so one rollup covers both levels.
	likeIDs := append([]uuid.UUID(nil), ids...)
	for _, replies := range previews {
		for _, r := range replies {
			likeIDs = append(likeIDs, r.ID)
			owners.want(ctx, r.OwnerID)
		}
	}

	g, gctx = errgroup.WithContext(ctx)
	likes := s.rollLikes(gctx, g, model.TargetComment, likeIDs, viewerID)
	var ownerMap map[uuid.UUID]*model.AccountSummary
	g.Go(func() error {
		var err error
		ownerMap, err = owners.resolve()
		return err
	})
	if err := g.Wait(); err != nil {
		return empty, err
	}

	items := make([]model.AnnotatedComment, len(comments))
	for i, c := range comments {
		items[i] = model.AnnotatedComment{
			ID:         c.ID,
			VideoID:    c.VideoID,
			Content:    c.Content,
			Owner:      ownerMap[c.OwnerID],
			LikeCount:  likes.counts[c.ID],
			IsLiked:    likes.liked[c.ID],
			ReplyCount: replyCounts[c.ID],
			Replies:    annotateReplies(previews[c.ID], ownerMap, likes),
			CreatedAt:  c.CreatedAt,
			UpdatedAt:  c.UpdatedAt,
		}
	}
	return model.NewPage(items, page, total), nil
}

func annotateReplies(replies []model.Comment, owners map[uuid.UUID]*model.AccountSummary, likes *likeRollup) []model.AnnotatedReply {
	out := make([]model.AnnotatedReply, 0, len(replies))
	for _, r := range replies {
		var parentID uuid.UUID
		if r.ParentID != nil {
			parentID = *r.ParentID
		}
		out = append(out, model.AnnotatedReply{
			ID:        r.ID,
			ParentID:  parentID,
			Content:   r.Content,
			Owner:     owners[r.OwnerID],
			LikeCount: likes.counts[r.ID],
			IsLiked:   likes.liked[r.ID],
			CreatedAt: r.CreatedAt,
			UpdatedAt: r.UpdatedAt,
		})
	}
	return out
}

// ListReplies pages through a thread's replies, most recent first.
func (s *AggregationService) ListReplies(ctx context.Context, rawParentID string, viewerID uuid.UUID, page model.PageRequest) (model.Page[model.AnnotatedReply], error) {
	defer metrics.ObserveAggregation("replies", time.Now())

	var empty model.Page[model.AnnotatedReply]

	parentID, err := model.ParseID(rawParentID)
	if err != nil {
		return empty, err
	}
	parent, err := s.comments.GetByID(ctx, parentID)
	if err != nil {
		return empty, err
	}
	if !parent.IsTopLevel() {
		return empty, model.ErrCommentNotFound
	}

	replies, total, err := s.comments.ListReplies(ctx, parentID, page)
	if err != nil {
		return empty, fmt.Errorf("list replies: %w", err)
	}
	if len(replies) == 0 {
		return model.NewPage[model.AnnotatedReply](nil, page, total), nil
	}

	ids := make([]uuid.UUID, len(replies))
	owners := newOwnerSet(s.ownerLoader())
	for i, r := range replies {
		ids[i] = r.ID
		owners.want(ctx, r.OwnerID)
	}

	g, gctx := errgroup.WithContext(ctx)
	likes := s.rollLikes(gctx, g, model.TargetComment, ids, viewerID)
	var ownerMap map[uuid.UUID]*model.AccountSummary
	g.Go(func() error {
		var err error
		ownerMap, err = owners.resolve()
		return err
	})
	if err := g.Wait(); err != nil {
		return empty, err
	}

	return model.NewPage(annotateReplies(replies, ownerMap, likes), page, total), nil
}

// GetChannelProfile resolves a channel by username, ignoring case.
func (s *AggregationService) GetChannelProfile(ctx context.Context, username string, viewerID uuid.UUID) (*model.ChannelProfile, error) {
	defer metrics.ObserveAggregation("channel_profile", time.Now())

	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" {
		return nil, model.Validationf("username is required")
	}

	account, err := s.accounts.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}

	profile := &model.ChannelProfile{
		ID:        account.ID,
		FullName:  account.FullName,
		Username:  account.Username,
		AvatarURL: account.AvatarURL,
		CoverURL:  account.CoverURL,
	}
	if s.exposeEmail {
		profile.Email = account.Email
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := s.subscriptions.CountSubscribers(gctx, account.ID)
		profile.SubscribersCount = n
		return err
	})
	g.Go(func() error {
		n, err := s.subscriptions.CountSubscribedTo(gctx, account.ID)
		profile.ChannelsSubscribedToCount = n
		return err
	})
	if viewerID != uuid.Nil && viewerID != account.ID {
		g.Go(func() error {
			subscribed, err := s.subscriptions.SubscribedTo(gctx, viewerID, []uuid.UUID{account.ID})
			profile.IsSubscribed = subscribed[account.ID]
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("channel rollups: %w", err)
	}
	return profile, nil
}

// GetChannelStats returns the owner dashboard totals. Results are served from
// the stats cache when present; cache failures fall through to the store.
func (s *AggregationService) GetChannelStats(ctx context.Context, rawAccountID string) (*model.ChannelStats, error) {
	defer metrics.ObserveAggregation("channel_stats", time.Now())

	accountID, err := model.ParseID(rawAccountID)
	if err != nil {
		return nil, err
	}
	if _, err := s.accounts.GetByID(ctx, accountID); err != nil {
		return nil, err
	}

	log := logging.Ctx(ctx)

	if s.stats != nil {
		cached, found, err := s.stats.Get(ctx, accountID)
		switch {
		case err != nil:
			metrics.StatsCacheLookups.WithLabelValues("error").Inc()
			log.Warn().Err(err).Msg("stats cache read failed")
		case found:
			metrics.StatsCacheLookups.WithLabelValues("hit").Inc()
			return cached, nil
		default:
			metrics.StatsCacheLookups.WithLabelValues("miss").Inc()
		}
	}

	stats := &model.ChannelStats{}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		totals, err := s.videos.TotalsByOwner(gctx, accountID)
		stats.VideoCount, stats.TotalViews = totals.VideoCount, totals.TotalViews
		return err
	})
	g.Go(func() error {
		n, err := s.subscriptions.CountSubscribers(gctx, accountID)
		stats.SubscriberCount = n
		return err
	})
	g.Go(func() error {
		n, err := s.tweets.CountByOwner(gctx, accountID)
		stats.TweetCount = n
		return err
	})
	g.Go(func() error {
		n, err := s.likes.CountOnVideosOwnedBy(gctx, accountID)
		stats.TotalVideoLikes = n
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("channel stats: %w", err)
	}

	if s.stats != nil {
		if err := s.stats.Set(ctx, accountID, stats); err != nil {
			log.Warn().Err(err).Msg("stats cache write failed")
		}
	}
	return stats, nil
}

// ListLikedVideos returns the viewer's liked videos, most recently liked first.
// Likes of deleted videos are skipped and unpublished videos are only shown to their owner.
func (s *AggregationService) ListLikedVideos(ctx context.Context, viewerID uuid.UUID) ([]model.LikedVideo, error) {
	defer metrics.ObserveAggregation("liked_videos", time.Now())

	refs, err := s.likes.TargetsLikedBy(ctx, viewerID, model.TargetVideo)
	if err != nil {
		return nil, fmt.Errorf("liked videos: %w", err)
	}

	ids := make([]uuid.UUID, len(refs))
	for i, ref := range refs {
		ids[i] = ref.TargetID
	}
	summaries, err := s.videoSummaries(ctx, ids, viewerID)
	if err != nil {
		return nil, err
	}

	out := make([]model.LikedVideo, 0, len(refs))
	for _, ref := range refs {
		if sum, ok := summaries[ref.TargetID]; ok {
			out = append(out, model.LikedVideo{VideoSummary: sum, LikedAt: ref.LikedAt})
		}
	}
	return out, nil
}

// WatchHistory returns the account's watched videos, most recent first.
func (s *AggregationService) WatchHistory(ctx context.Context, accountID uuid.UUID) ([]model.VideoSummary, error) {
	defer metrics.ObserveAggregation("watch_history", time.Now())

	ids, err := s.accounts.WatchHistory(ctx, accountID)
	if err != nil {
		return nil, err
	}
	summaries, err := s.videoSummaries(ctx, ids, accountID)
	if err != nil {
		return nil, err
	}

	out := make([]model.VideoSummary, 0, len(ids))
	for _, id := range ids {
		if sum, ok := summaries[id]; ok {
			out = append(out, sum)
		}
	}
	return out, nil
}

// videoSummaries loads the visible videos among ids with their owners.
func (s *AggregationService) videoSummaries(ctx context.Context, ids []uuid.UUID, viewerID uuid.UUID) (map[uuid.UUID]model.VideoSummary, error) {
	out := make(map[uuid.UUID]model.VideoSummary, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	videos, err := s.videos.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load videos: %w", err)
	}

	owners := newOwnerSet(s.ownerLoader())
	for _, v := range videos {
		owners.want(ctx, v.OwnerID)
	}
	ownerMap, err := owners.resolve()
	if err != nil {
		return nil, err
	}

	for id, v := range videos {
		if !v.VisibleTo(viewerID) {
			continue
		}
		out[id] = model.NewVideoSummary(&v, ownerMap[v.OwnerID])
	}
	return out, nil
}

// ListSubscribers pages through the accounts subscribed to a channel.
func (s *AggregationService) ListSubscribers(ctx context.Context, rawChannelID string, viewerID uuid.UUID, page model.PageRequest) (model.Page[model.ChannelSummary], error) {
	defer metrics.ObserveAggregation("subscribers", time.Now())
	return s.listChannels(ctx, rawChannelID, viewerID, page, s.subscriptions.ListSubscribers)
}

// ListSubscriptions pages through the channels an account subscribes to.
func (s *AggregationService) ListSubscriptions(ctx context.Context, rawAccountID string, viewerID uuid.UUID, page model.PageRequest) (model.Page[model.ChannelSummary], error) {
	defer metrics.ObserveAggregation("subscriptions", time.Now())
	return s.listChannels(ctx, rawAccountID, viewerID, page, s.subscriptions.ListSubscriptions)
}

type channelLister func(ctx context.Context, id uuid.UUID, page model.PageRequest) ([]uuid.UUID, int64, error)

func (s *AggregationService) listChannels(ctx context.Context, rawID string, viewerID uuid.UUID, page model.PageRequest, list channelLister) (model.Page[model.ChannelSummary], error) {
	var empty model.Page[model.ChannelSummary]

	rootID, err := model.ParseID(rawID)
	if err != nil {
		return empty, err
	}
	if _, err := s.accounts.GetByID(ctx, rootID); err != nil {
		return empty, err
	}

	ids, total, err := list(ctx, rootID, page)
	if err != nil {
		return empty, fmt.Errorf("list channels: %w", err)
	}
	if len(ids) == 0 {
		return model.NewPage[model.ChannelSummary](nil, page, total), nil
	}

	owners := newOwnerSet(s.ownerLoader())
	owners.want(ctx, ids...)

	counts := make([]int64, len(ids))
	subscribed := map[uuid.UUID]bool{}
	var ownerMap map[uuid.UUID]*model.AccountSummary

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fanOutLimit)
	g.Go(func() error {
		var err error
		ownerMap, err = owners.resolve()
		return err
	})
	if viewerID != uuid.Nil {
		g.Go(func() error {
			var err error
			subscribed, err = s.subscriptions.SubscribedTo(gctx, viewerID, ids)
			return err
		})
	}
	for i, id := range ids {
		g.Go(func() error {
			n, err := s.subscriptions.CountSubscribers(gctx, id)
			counts[i] = n
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return empty, fmt.Errorf("channel rollups: %w", err)
	}

	items := make([]model.ChannelSummary, len(ids))
	for i, id := range ids {
		summary := model.AccountSummary{ID: id}
		if owner := ownerMap[id]; owner != nil {
			summary = *owner
		}
		items[i] = model.ChannelSummary{
			AccountSummary:   summary,
			SubscribersCount: counts[i],
			IsSubscribed:     subscribed[id],
		}
	}
	return model.NewPage(items, page, total), nil
}
