package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"videotube/internal/model"
)

type subscriptionRepository struct {
	db *sqlx.DB
}

func NewSubscriptionRepository(db *sqlx.DB) SubscriptionRepository {
	return &subscriptionRepository{db: db}
}

func (r *subscriptionRepository) CountSubscribers(ctx context.Context, channelID uuid.UUID) (int64, error) {
	var n int64
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM subscriptions WHERE channel_id = $1`, channelID); err != nil {
		return 0, fmt.Errorf("failed to count subscribers: %w", err)
	}
	return n, nil
}

func (r *subscriptionRepository) CountSubscribedTo(ctx context.Context, subscriberID uuid.UUID) (int64, error) {
	var n int64
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM subscriptions WHERE subscriber_id = $1`, subscriberID); err != nil {
		return 0, fmt.Errorf("failed to count subscriptions: %w", err)
	}
	return n, nil
}

func (r *subscriptionRepository) SubscribedTo(ctx context.Context, subscriberID uuid.UUID, channelIDs []uuid.UUID) (map[uuid.UUID]bool, error) {
	out := make(map[uuid.UUID]bool, len(channelIDs))
	if len(channelIDs) == 0 || subscriberID == uuid.Nil {
		return out, nil
	}

	query := `SELECT channel_id FROM subscriptions WHERE subscriber_id = $1 AND channel_id = ANY($2::uuid[])`
	var ids []uuid.UUID
	if err := r.db.SelectContext(ctx, &ids, query, subscriberID, uuidArray(channelIDs)); err != nil {
		return nil, fmt.Errorf("failed to check subscriptions: %w", err)
	}
	for _, id := range ids {
		out[id] = true
	}
	return out, nil
}

func (r *subscriptionRepository) ListSubscribers(ctx context.Context, channelID uuid.UUID, page model.PageRequest) ([]uuid.UUID, int64, error) {
	return r.list(ctx, "subscriber_id", "channel_id", channelID, page)
}

func (r *subscriptionRepository) ListSubscriptions(ctx context.Context, subscriberID uuid.UUID, page model.PageRequest) ([]uuid.UUID, int64, error) {
	return r.list(ctx, "channel_id", "subscriber_id", subscriberID, page)
}

// list selects column for rows where filter = id. Both names are fixed by the callers.
func (r *subscriptionRepository) list(ctx context.Context, column, filter string, id uuid.UUID, page model.PageRequest) ([]uuid.UUID, int64, error) {
	var total int64
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM subscriptions WHERE `+filter+` = $1`, id); err != nil {
		return nil, 0, fmt.Errorf("failed to count subscriptions: %w", err)
	}

	query := `
		SELECT ` + column + `
		FROM subscriptions
		WHERE ` + filter + ` = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`
	var ids []uuid.UUID
	if err := r.db.SelectContext(ctx, &ids, query, id, page.Size(), page.Offset()); err != nil {
		return nil, 0, fmt.Errorf("failed to list subscriptions: %w", err)
	}
	return ids, total, nil
}
