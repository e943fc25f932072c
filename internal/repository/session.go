package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"videotube/internal/model"
)

type sessionRepository struct {
	db *sqlx.DB
}

func NewSessionRepository(db *sqlx.DB) SessionRepository {
	return &sessionRepository{db: db}
}

func (r *sessionRepository) Create(ctx context.Context, s *model.Session) error {
	query := `
		INSERT INTO sessions (id, account_id, token_hash, expires_at, device_info, ip_address)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, rotated_at
	`
	err := r.db.QueryRowxContext(ctx, query,
		s.ID,
		s.AccountID,
		s.TokenHash,
		s.ExpiresAt,
		s.DeviceInfo,
		s.IPAddress,
	).Scan(&s.CreatedAt, &s.RotatedAt)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

func (r *sessionRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Session, error) {
	query := `
		SELECT id, account_id, token_hash, expires_at, created_at, rotated_at, device_info, ip_address
		FROM sessions
		WHERE id = $1
	`
	var s model.Session
	if err := r.db.GetContext(ctx, &s, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return &s, nil
}

func (r *sessionRepository) Rotate(ctx context.Context, id uuid.UUID, expectedHash, newHash string, expiresAt time.Time) (bool, error) {
	query := `
		UPDATE sessions
		SET token_hash = $3, expires_at = $4, rotated_at = NOW()
		WHERE id = $1 AND token_hash = $2
	`
	res, err := r.db.ExecContext(ctx, query, id, expectedHash, newHash, expiresAt)
	if err != nil {
		return false, fmt.Errorf("failed to rotate session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n == 1, nil
}

func (r *sessionRepository) Trim(ctx context.Context, accountID uuid.UUID, keep int) (int64, error) {
	query := `
		DELETE FROM sessions
		WHERE account_id = $1 AND id NOT IN (
			SELECT id FROM sessions WHERE account_id = $1
			ORDER BY rotated_at DESC, created_at DESC LIMIT $2
		)
	`
	res, err := r.db.ExecContext(ctx, query, accountID, keep)
	if err != nil {
		return 0, fmt.Errorf("failed to trim sessions: %w", err)
	}
	return res.RowsAffected()
}

func (r *sessionRepository) DeleteAllForAccount(ctx context.Context, accountID uuid.UUID) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE account_id = $1`, accountID); err != nil {
		return fmt.Errorf("failed to delete sessions: %w", err)
	}
	return nil
}

func (r *sessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at < $1`, now)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}
	return res.RowsAffected()
}
