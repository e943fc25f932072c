package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"videotube/internal/model"
)

type playlistRepository struct {
	db *sqlx.DB
}

func NewPlaylistRepository(db *sqlx.DB) PlaylistRepository {
	return &playlistRepository{db: db}
}

func (r *playlistRepository) Create(ctx context.Context, p *model.Playlist) error {
	query := `
		INSERT INTO playlists (owner_id, name, description)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRowxContext(ctx, query, p.OwnerID, p.Name, p.Description).
		Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert playlist: %w", err)
	}
	if p.VideoIDs == nil {
		p.VideoIDs = []uuid.UUID{}
	}
	return nil
}

func (r *playlistRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Playlist, error) {
	query := `SELECT id, owner_id, name, description, created_at, updated_at FROM playlists WHERE id = $1`
	var p model.Playlist
	if err := r.db.GetContext(ctx, &p, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrPlaylistNotFound
		}
		return nil, fmt.Errorf("failed to get playlist: %w", err)
	}

	ids, err := r.videoIDs(ctx, id)
	if err != nil {
		return nil, err
	}
	p.VideoIDs = ids
	return &p, nil
}

func (r *playlistRepository) videoIDs(ctx context.Context, playlistID uuid.UUID) ([]uuid.UUID, error) {
	ids := []uuid.UUID{}
	query := `SELECT video_id FROM playlist_videos WHERE playlist_id = $1 ORDER BY position`
	if err := r.db.SelectContext(ctx, &ids, query, playlistID); err != nil {
		return nil, fmt.Errorf("failed to get playlist videos: %w", err)
	}
	return ids, nil
}

func (r *playlistRepository) AddVideo(ctx context.Context, playlistID, videoID uuid.UUID) (bool, error) {
	query := `
		INSERT INTO playlist_videos (playlist_id, video_id)
		VALUES ($1, $2)
		ON CONFLICT (playlist_id, video_id) DO NOTHING
	`
	res, err := r.db.ExecContext(ctx, query, playlistID, videoID)
	if err != nil {
		return false, fmt.Errorf("failed to add playlist video: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n > 0, nil
}

func (r *playlistRepository) RemoveVideo(ctx context.Context, playlistID, videoID uuid.UUID) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM playlist_videos WHERE playlist_id = $1 AND video_id = $2`, playlistID, videoID)
	if err != nil {
		return false, fmt.Errorf("failed to remove playlist video: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n > 0, nil
}

func (r *playlistRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]model.Playlist, error) {
	query := `
		SELECT id, owner_id, name, description, created_at, updated_at
		FROM playlists
		WHERE owner_id = $1
		ORDER BY created_at DESC
	`
	var lists []model.Playlist
	if err := r.db.SelectContext(ctx, &lists, query, ownerID); err != nil {
		return nil, fmt.Errorf("failed to list playlists: %w", err)
	}
	for i := range lists {
		ids, err := r.videoIDs(ctx, lists[i].ID)
		if err != nil {
			return nil, err
		}
		lists[i].VideoIDs = ids
	}
	return lists, nil
}
