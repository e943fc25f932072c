package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"videotube/internal/assets"
	"videotube/internal/cache"
	"videotube/internal/logging"
	"videotube/internal/model"
	"videotube/internal/repository"
	"videotube/internal/validation"
)

type VideoService struct {
	videos   repository.VideoRepository
	accounts repository.AccountRepository
	assets   assets.Host      // nil disables Publish
	stats    cache.StatsCache // optional
}

func NewVideoService(videos repository.VideoRepository, accounts repository.AccountRepository, host assets.Host, stats cache.StatsCache) *VideoService {
	return &VideoService{videos: videos, accounts: accounts, assets: host, stats: stats}
}

// Publish uploads the video file and its thumbnail and stores the record.
// Uploaded objects are removed again if a later step fails.
func (s *VideoService) Publish(ctx context.Context, ownerID uuid.UUID, in model.PublishVideoInput) (*model.Video, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	if err := validation.ValidateStruct(in); err != nil {
		return nil, err
	}
	if s.assets == nil {
		return nil, errUploadsDisabled
	}

	videoURL, err := s.assets.Upload(ctx, in.VideoPath, assets.KindVideo)
	if err != nil {
		return nil, fmt.Errorf("upload video: %w", err)
	}
	thumbnailURL, err := s.assets.Upload(ctx, in.ThumbnailPath, assets.KindThumbnail)
	if err != nil {
		s.discard(ctx, videoURL)
		return nil, fmt.Errorf("upload thumbnail: %w", err)
	}

	video := &model.Video{
		OwnerID:      ownerID,
		Title:        in.Title,
		Description:  in.Description,
		VideoURL:     videoURL,
		ThumbnailURL: thumbnailURL,
		Duration:     in.Duration,
		IsPublished:  true,
	}
	if err := s.videos.Create(ctx, video); err != nil {
		s.discard(ctx, videoURL, thumbnailURL)
		return nil, fmt.Errorf("create video: %w", err)
	}
	if s.stats != nil {
		if err := s.stats.Invalidate(ctx, ownerID); err != nil {
			logging.Ctx(ctx).Warn().Err(err).Str("owner_id", ownerID.String()).Msg("stats cache invalidation failed")
		}
	}
	return video, nil
}

func (s *VideoService) discard(ctx context.Context, urls ...string) {
	for _, url := range urls {
		if err := s.assets.Delete(context.WithoutCancel(ctx), url); err != nil {
			logging.Ctx(ctx).Warn().Err(err).Str("url", url).Msg("failed to remove orphaned upload")
		}
	}
}

// Get returns a video the viewer may see.
func (s *VideoService) Get(ctx context.Context, rawVideoID string, viewerID uuid.UUID) (*model.Video, error) {
	videoID, err := model.ParseID(rawVideoID)
	if err != nil {
		return nil, err
	}
	video, err := s.videos.GetByID(ctx, videoID)
	if err != nil {
		return nil, err
	}
	if !video.VisibleTo(viewerID) {
		return nil, model.ErrVideoNotFound
	}
	return video, nil
}

// RecordView counts a view and moves the video to the front of the viewer's
// watch history. Anonymous views only count.
func (s *VideoService) RecordView(ctx context.Context, rawVideoID string, viewerID uuid.UUID) error {
	video, err := s.Get(ctx, rawVideoID, viewerID)
	if err != nil {
		return err
	}
	if err := s.videos.IncrementViews(ctx, video.ID); err != nil {
		return fmt.Errorf("increment views: %w", err)
	}
	if viewerID == uuid.Nil {
		return nil
	}
	if err := s.accounts.PushWatchHistory(ctx, viewerID, video.ID, model.MaxWatchHistory); err != nil {
		return fmt.Errorf("push watch history: %w", err)
	}
	return nil
}
