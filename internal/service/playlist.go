package service

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"videotube/internal/model"
	"videotube/internal/repository"
	"videotube/internal/validation"
)

type PlaylistService struct {
	playlists repository.PlaylistRepository
	videos    repository.VideoRepository
}

func NewPlaylistService(playlists repository.PlaylistRepository, videos repository.VideoRepository) *PlaylistService {
	return &PlaylistService{playlists: playlists, videos: videos}
}

func (s *PlaylistService) Create(ctx context.Context, ownerID uuid.UUID, req model.CreatePlaylistRequest) (*model.Playlist, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Description = strings.TrimSpace(req.Description)
	if err := validation.ValidateStruct(req); err != nil {
		return nil, err
	}

	p := &model.Playlist{
		OwnerID:     ownerID,
		Name:        req.Name,
		Description: req.Description,
		VideoIDs:    []uuid.UUID{},
	}
	if err := s.playlists.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *PlaylistService) Get(ctx context.Context, rawPlaylistID string) (*model.Playlist, error) {
	id, err := model.ParseID(rawPlaylistID)
	if err != nil {
		return nil, err
	}
	return s.playlists.GetByID(ctx, id)
}

// ListByOwner returns an account's playlists.
func (s *PlaylistService) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]model.Playlist, error) {
	lists, err := s.playlists.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if lists == nil {
		lists = []model.Playlist{}
	}
	return lists, nil
}

// AddVideo appends a video; adding one that is already present changes nothing.
func (s *PlaylistService) AddVideo(ctx context.Context, rawPlaylistID, rawVideoID string, ownerID uuid.UUID) (*model.Playlist, error) {
	playlist, videoID, err := s.owned(ctx, rawPlaylistID, rawVideoID, ownerID)
	if err != nil {
		return nil, err
	}
	if _, err := s.videos.GetByID(ctx, videoID); err != nil {
		return nil, err
	}
	if _, err := s.playlists.AddVideo(ctx, playlist.ID, videoID); err != nil {
		return nil, err
	}
	return s.playlists.GetByID(ctx, playlist.ID)
}

func (s *PlaylistService) RemoveVideo(ctx context.Context, rawPlaylistID, rawVideoID string, ownerID uuid.UUID) (*model.Playlist, error) {
	playlist, videoID, err := s.owned(ctx, rawPlaylistID, rawVideoID, ownerID)
	if err != nil {
		return nil, err
	}
	if _, err := s.playlists.RemoveVideo(ctx, playlist.ID, videoID); err != nil {
		return nil, err
	}
	return s.playlists.GetByID(ctx, playlist.ID)
}

func (s *PlaylistService) owned(ctx context.Context, rawPlaylistID, rawVideoID string, ownerID uuid.UUID) (*model.Playlist, uuid.UUID, error) {
	playlistID, err := model.ParseID(rawPlaylistID)
	if err != nil {
		return nil, uuid.Nil, err
	}
	videoID, err := model.ParseID(rawVideoID)
	if err != nil {
		return nil, uuid.Nil, err
	}
	playlist, err := s.playlists.GetByID(ctx, playlistID)
	if err != nil {
		return nil, uuid.Nil, err
	}
	if playlist.OwnerID != ownerID {
		return nil, uuid.Nil, model.ErrNotPlaylistOwner
	}
	return playlist, videoID, nil
}
