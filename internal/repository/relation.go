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

// counterColumn names the cached counter a like kind maps onto.
// Values are constants; they are spliced into SQL.
type counterColumn struct {
	table  string
	column string
}

var likeCounters = map[model.TargetKind]counterColumn{
	model.TargetVideo:   {table: "videos", column: "like_count"},
	model.TargetComment: {table: "comments", column: "like_count"},
	model.TargetTweet:   {table: "tweets", column: "like_count"},
}

var (
	subscriberCounter = counterColumn{table: "accounts", column: "subscriber_count"}
	subscribedCounter = counterColumn{table: "accounts", column: "subscribed_count"}
)

type relationRepository struct {
	db *sqlx.DB
}

func NewRelationRepository(db *sqlx.DB) RelationRepository {
	return &relationRepository{db: db}
}

func (r *relationRepository) Flip(ctx context.Context, e model.Edge) (model.ToggleResult, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return model.ToggleResult{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var res model.ToggleResult
	if e.Kind == model.TargetChannel {
		res, err = flipSubscription(ctx, tx, e)
	} else {
		res, err = flipLike(ctx, tx, e)
	}
	if err != nil {
		return model.ToggleResult{}, err
	}

	if err := tx.Commit(); err != nil {
		return model.ToggleResult{}, fmt.Errorf("commit toggle: %w", err)
	}
	return res, nil
}

func flipLike(ctx context.Context, tx *sqlx.Tx, e model.Edge) (model.ToggleResult, error) {
	counter, ok := likeCounters[e.Kind]
	if !ok {
		return model.ToggleResult{}, model.ErrUnknownTargetKind
	}

	deleted, err := execCount(ctx, tx,
		`DELETE FROM likes WHERE actor_id = $1 AND target_kind = $2 AND target_id = $3`,
		e.ActorID, string(e.Kind), e.TargetID)
	if err != nil {
		return model.ToggleResult{}, fmt.Errorf("delete like: %w", err)
	}
	if deleted > 0 {
		count, err := bump(ctx, tx, counter, e.TargetID, -1)
		if err != nil {
			return model.ToggleResult{}, notFoundFor(e.Kind, err)
		}
		return model.ToggleResult{Active: false, Count: &count}, nil
	}

	inserted, err := execCount(ctx, tx, `
		INSERT INTO likes (actor_id, target_kind, target_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (actor_id, target_kind, target_id) DO NOTHING
	`, e.ActorID, string(e.Kind), e.TargetID)
	if err != nil {
		return model.ToggleResult{}, fmt.Errorf("insert like: %w", err)
	}

	// A concurrent toggle won the insert: already liked, counter untouched.
	delta := int64(1)
	if inserted == 0 {
		delta = 0
	}
	count, err := bump(ctx, tx, counter, e.TargetID, delta)
	if err != nil {
		return model.ToggleResult{}, notFoundFor(e.Kind, err)
	}
	return model.ToggleResult{Active: true, Count: &count}, nil
}

func flipSubscription(ctx context.Context, tx *sqlx.Tx, e model.Edge) (model.ToggleResult, error) {
	if e.ActorID == e.TargetID {
		return model.ToggleResult{}, model.ErrSelfSubscription
	}

	deleted, err := execCount(ctx, tx,
		`DELETE FROM subscriptions WHERE subscriber_id = $1 AND channel_id = $2`,
		e.ActorID, e.TargetID)
	if err != nil {
		return model.ToggleResult{}, fmt.Errorf("delete subscription: %w", err)
	}

	delta := int64(-1)
	active := false
	if deleted == 0 {
		inserted, err := execCount(ctx, tx, `
			INSERT INTO subscriptions (subscriber_id, channel_id)
			VALUES ($1, $2)
			ON CONFLICT (subscriber_id, channel_id) DO NOTHING
		`, e.ActorID, e.TargetID)
		if err != nil {
			return model.ToggleResult{}, fmt.Errorf("insert subscription: %w", err)
		}
		active = true
		delta = inserted
	}

	count, err := bump(ctx, tx, subscriberCounter, e.TargetID, delta)
	if err != nil {
		return model.ToggleResult{}, notFoundFor(model.TargetChannel, err)
	}
	if delta != 0 {
		if _, err := bump(ctx, tx, subscribedCounter, e.ActorID, delta); err != nil {
			return model.ToggleResult{}, notFoundFor(model.TargetChannel, err)
		}
	}
	return model.ToggleResult{Active: active, Count: &count}, nil
}

// bump moves a cached counter by delta, floored at zero, and returns the new value.
func bump(ctx context.Context, tx *sqlx.Tx, c counterColumn, id uuid.UUID, delta int64) (int64, error) {
	query := fmt.Sprintf(
		`UPDATE %s SET %s = GREATEST(%s + $1, 0) WHERE id = $2 RETURNING %s`,
		c.table, c.column, c.column, c.column)
	var n int64
	if err := tx.GetContext(ctx, &n, query, delta, id); err != nil {
		return 0, err
	}
	return n, nil
}

func execCount(ctx context.Context, tx *sqlx.Tx, query string, args ...interface{}) (int64, error) {
	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// notFoundFor maps a missing counter row to the kind's not-found error.
func notFoundFor(kind model.TargetKind, err error) error {
	if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("update counter: %w", err)
	}
	switch kind {
	case model.TargetVideo:
		return model.ErrVideoNotFound
	case model.TargetComment:
		return model.ErrCommentNotFound
	case model.TargetTweet:
		return model.ErrTweetNotFound
	default:
		return model.ErrAccountNotFound
	}
}

func (r *relationRepository) Recount(ctx context.Context, kind model.TargetKind, targetID uuid.UUID) (int64, error) {
	var (
		query string
		args  []interface{}
	)
	if kind == model.TargetChannel {
		query = `
			UPDATE accounts
			SET subscriber_count = (SELECT COUNT(*) FROM subscriptions WHERE channel_id = $1),
			    subscribed_count = (SELECT COUNT(*) FROM subscriptions WHERE subscriber_id = $1)
			WHERE id = $1
			RETURNING subscriber_count
		`
		args = []interface{}{targetID}
	} else {
		c, ok := likeCounters[kind]
		if !ok {
			return 0, model.ErrUnknownTargetKind
		}
		query = fmt.Sprintf(`
			UPDATE %s
			SET %s = (SELECT COUNT(*) FROM likes WHERE target_kind = $1 AND target_id = $2)
			WHERE id = $2
			RETURNING %s
		`, c.table, c.column, c.column)
		args = []interface{}{string(kind), targetID}
	}

	var n int64
	if err := r.db.GetContext(ctx, &n, query, args...); err != nil {
		return 0, notFoundFor(kind, err)
	}
	return n, nil
}

func (r *relationRepository) RecountAll(ctx context.Context, kind model.TargetKind) (int64, error) {
	var (
		query string
		args  []interface{}
	)
	if kind == model.TargetChannel {
		query = `
			UPDATE accounts t
			SET subscriber_count = c.subs, subscribed_count = c.subd
			FROM (
				SELECT a.id,
				       (SELECT COUNT(*) FROM subscriptions s WHERE s.channel_id = a.id) AS subs,
				       (SELECT COUNT(*) FROM subscriptions s WHERE s.subscriber_id = a.id) AS subd
				FROM accounts a
			) c
			WHERE t.id = c.id AND (t.subscriber_count <> c.subs OR t.subscribed_count <> c.subd)
		`
	} else {
		c, ok := likeCounters[kind]
		if !ok {
			return 0, model.ErrUnknownTargetKind
		}
		query = fmt.Sprintf(`
			UPDATE %[1]s t
			SET %[2]s = c.n
			FROM (
				SELECT x.id, COUNT(l.id) AS n
				FROM %[1]s x
				LEFT JOIN likes l ON l.target_kind = $1 AND l.target_id = x.id
				GROUP BY x.id
			) c
			WHERE t.id = c.id AND t.%[2]s <> c.n
		`, c.table, c.column)
		args = []interface{}{string(kind)}
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("recount %s: %w", kind, err)
	}
	return res.RowsAffected()
}
