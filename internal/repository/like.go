package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"videotube/internal/model"
)

type likeRepository struct {
	db *sqlx.DB
}

func NewLikeRepository(db *sqlx.DB) LikeRepository {
	return &likeRepository{db: db}
}

func (r *likeRepository) CountByTargets(ctx context.Context, kind model.TargetKind, ids []uuid.UUID) (map[uuid.UUID]int64, error) {
	out := make(map[uuid.UUID]int64, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	query := `
		SELECT target_id, COUNT(*) AS n
		FROM likes
		WHERE target_kind = $1 AND target_id = ANY($2::uuid[])
		GROUP BY target_id
	`
	var rows []struct {
		TargetID uuid.UUID `db:"target_id"`
		N        int64     `db:"n"`
	}
	if err := r.db.SelectContext(ctx, &rows, query, string(kind), uuidArray(ids)); err != nil {
		return nil, fmt.Errorf("count likes: %w", err)
	}
	for _, row := range rows {
		out[row.TargetID] = row.N
	}
	return out, nil
}

// LikedBy checks which targets the actor has liked.
func (r *likeRepository) LikedBy(ctx context.Context, actorID uuid.UUID, kind model.TargetKind, ids []uuid.UUID) (map[uuid.UUID]bool, error) {
	out := make(map[uuid.UUID]bool, len(ids))
	if len(ids) == 0 || actorID == uuid.Nil {
		return out, nil
	}

	query := `SELECT target_id FROM likes WHERE actor_id = $1 AND target_kind = $2 AND target_id = ANY($3::uuid[])`
	var liked []uuid.UUID
	if err := r.db.SelectContext(ctx, &liked, query, actorID, string(kind), uuidArray(ids)); err != nil {
		return nil, fmt.Errorf("check likes: %w", err)
	}
	for _, id := range liked {
		out[id] = true
	}
	return out, nil
}

func (r *likeRepository) TargetsLikedBy(ctx context.Context, actorID uuid.UUID, kind model.TargetKind) ([]model.LikedRef, error) {
	query := `
		SELECT target_id, created_at
		FROM likes
		WHERE actor_id = $1 AND target_kind = $2
		ORDER BY created_at DESC, id DESC
	`
	var refs []model.LikedRef
	if err := r.db.SelectContext(ctx, &refs, query, actorID, string(kind)); err != nil {
		return nil, fmt.Errorf("list liked targets: %w", err)
	}
	return refs, nil
}

func (r *likeRepository) CountOnVideosOwnedBy(ctx context.Context, ownerID uuid.UUID) (int64, error) {
	query := `
		SELECT COUNT(*)
		FROM likes l
		JOIN videos v ON v.id = l.target_id
		WHERE l.target_kind = 'video' AND v.owner_id = $1
	`
	var n int64
	if err := r.db.GetContext(ctx, &n, query, ownerID); err != nil {
		return 0, fmt.Errorf("count video likes: %w", err)
	}
	return n, nil
}
