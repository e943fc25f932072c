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

type videoRepository struct {
	db *sqlx.DB
}

func NewVideoRepository(db *sqlx.DB) VideoRepository {
	return &videoRepository{db: db}
}

const videoColumns = `id, owner_id, title, description, video_url, thumbnail_url, duration, views,
	is_published, like_count, created_at, updated_at`

func (r *videoRepository) Create(ctx context.Context, v *model.Video) error {
	query := `
		INSERT INTO videos (owner_id, title, description, video_url, thumbnail_url, duration, is_published)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, views, like_count, created_at, updated_at
	`
	err := r.db.QueryRowxContext(ctx, query,
		v.OwnerID, v.Title, v.Description, v.VideoURL, v.ThumbnailURL, v.Duration, v.IsPublished,
	).Scan(&v.ID, &v.Views, &v.LikeCount, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert video: %w", err)
	}
	return nil
}

func (r *videoRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Video, error) {
	var v model.Video
	err := r.db.GetContext(ctx, &v, `SELECT `+videoColumns+` FROM videos WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrVideoNotFound
		}
		return nil, fmt.Errorf("failed to get video: %w", err)
	}
	return &v, nil
}

func (r *videoRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]model.Video, error) {
	out := make(map[uuid.UUID]model.Video, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	var rows []model.Video
	query := `SELECT ` + videoColumns + ` FROM videos WHERE id = ANY($1::uuid[])`
	if err := r.db.SelectContext(ctx, &rows, query, uuidArray(ids)); err != nil {
		return nil, fmt.Errorf("failed to get videos: %w", err)
	}
	for _, v := range rows {
		out[v.ID] = v
	}
	return out, nil
}

func (r *videoRepository) TotalsByOwner(ctx context.Context, ownerID uuid.UUID) (model.VideoTotals, error) {
	query := `SELECT COUNT(*) AS video_count, COALESCE(SUM(views), 0) AS total_views FROM videos WHERE owner_id = $1`
	var t model.VideoTotals
	if err := r.db.GetContext(ctx, &t, query, ownerID); err != nil {
		return model.VideoTotals{}, fmt.Errorf("failed to get video totals: %w", err)
	}
	return t, nil
}

func (r *videoRepository) IncrementViews(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `UPDATE videos SET views = views + 1 WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to increment views: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.ErrVideoNotFound
	}
	return nil
}
