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

// accountRepository implements AccountRepository using sqlx
type accountRepository struct {
	db *sqlx.DB
}

func NewAccountRepository(db *sqlx.DB) AccountRepository {
	return &accountRepository{db: db}
}

const accountColumns = `id, username, email, full_name, password_hashed, avatar_url, cover_url,
	subscriber_count, subscribed_count, created_at, updated_at`

func (r *accountRepository) Create(ctx context.Context, a *model.Account) error {
	query := `
		INSERT INTO accounts (username, email, full_name, password_hashed, avatar_url, cover_url)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, subscriber_count, subscribed_count, created_at, updated_at
	`
	err := r.db.QueryRowxContext(ctx, query,
		a.Username,
		a.Email,
		a.FullName,
		a.PasswordHashed,
		a.AvatarURL,
		a.CoverURL,
	).Scan(&a.ID, &a.SubscriberCount, &a.SubscribedCount, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return model.ErrAccountExists
		}
		return fmt.Errorf("failed to insert account: %w", err)
	}
	return nil
}

func (r *accountRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Account, error) {
	return r.getOne(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id)
}

func (r *accountRepository) GetByUsername(ctx context.Context, username string) (*model.Account, error) {
	return r.getOne(ctx, `SELECT `+accountColumns+` FROM accounts WHERE username = LOWER($1)`, username)
}

func (r *accountRepository) GetByIdentifier(ctx context.Context, identifier string) (*model.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE username = LOWER($1) OR email = LOWER($1) LIMIT 1`
	return r.getOne(ctx, query, identifier)
}

func (r *accountRepository) getOne(ctx context.Context, query string, arg interface{}) (*model.Account, error) {
	var a model.Account
	if err := r.db.GetContext(ctx, &a, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return &a, nil
}

func (r *accountRepository) ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM accounts WHERE username = LOWER($1) OR email = LOWER($2))`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, username, email); err != nil {
		return false, fmt.Errorf("failed to check account existence: %w", err)
	}
	return exists, nil
}

func (r *accountRepository) UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error {
	query := `UPDATE accounts SET password_hashed = $1, updated_at = NOW() WHERE id = $2`
	res, err := r.db.ExecContext(ctx, query, hash, id)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.ErrAccountNotFound
	}
	return nil
}

func (r *accountRepository) SummariesByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]model.AccountSummary, error) {
	out := make(map[uuid.UUID]model.AccountSummary, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	query := `SELECT id, username, full_name, avatar_url FROM accounts WHERE id = ANY($1::uuid[])`
	var rows []model.AccountSummary
	if err := r.db.SelectContext(ctx, &rows, query, uuidArray(ids)); err != nil {
		return nil, fmt.Errorf("failed to load account summaries: %w", err)
	}
	for _, s := range rows {
		out[s.ID] = s
	}
	return out, nil
}

func (r *accountRepository) PushWatchHistory(ctx context.Context, id, videoID uuid.UUID, limit int) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	upsert := `
		INSERT INTO watch_history (account_id, video_id, watched_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (account_id, video_id) DO UPDATE SET watched_at = EXCLUDED.watched_at
	`
	if _, err := tx.ExecContext(ctx, upsert, id, videoID); err != nil {
		return fmt.Errorf("failed to push watch history: %w", err)
	}

	trim := `
		DELETE FROM watch_history
		WHERE account_id = $1 AND video_id NOT IN (
			SELECT video_id FROM watch_history WHERE account_id = $1
			ORDER BY watched_at DESC LIMIT $2
		)
	`
	if _, err := tx.ExecContext(ctx, trim, id, limit); err != nil {
		return fmt.Errorf("failed to trim watch history: %w", err)
	}

	return tx.Commit()
}

func (r *accountRepository) WatchHistory(ctx context.Context, id uuid.UUID) ([]uuid.UUID, error) {
	query := `SELECT video_id FROM watch_history WHERE account_id = $1 ORDER BY watched_at DESC`
	var ids []uuid.UUID
	if err := r.db.SelectContext(ctx, &ids, query, id); err != nil {
		return nil, fmt.Errorf("failed to get watch history: %w", err)
	}
	return ids, nil
}
