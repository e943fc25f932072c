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

type commentRepository struct {
	db *sqlx.DB
}

func NewCommentRepository(db *sqlx.DB) CommentRepository {
	return &commentRepository{db: db}
}

const commentColumns = `id, video_id, owner_id, content, parent_id, like_count, seq, created_at, updated_at`

func (r *commentRepository) Create(ctx context.Context, c *model.Comment) error {
	var createdAt interface{}
	if !c.CreatedAt.IsZero() {
		createdAt = c.CreatedAt
	}

	query := `
		INSERT INTO comments (video_id, owner_id, content, parent_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, COALESCE($5, NOW()), COALESCE($5, NOW()))
		RETURNING id, like_count, seq, created_at, updated_at
	`
	err := r.db.QueryRowxContext(ctx, query, c.VideoID, c.OwnerID, c.Content, c.ParentID, createdAt).
		Scan(&c.ID, &c.LikeCount, &c.Seq, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert comment: %w", err)
	}
	return nil
}

func (r *commentRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Comment, error) {
	var c model.Comment
	err := r.db.GetContext(ctx, &c, `SELECT `+commentColumns+` FROM comments WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrCommentNotFound
		}
		return nil, fmt.Errorf("get comment: %w", err)
	}
	return &c, nil
}

// UpdateContent updates a comment's content. Only the owner can update.
func (r *commentRepository) UpdateContent(ctx context.Context, id, ownerID uuid.UUID, content string) (*model.Comment, error) {
	query := `
		UPDATE comments
		SET content = $1, updated_at = NOW()
		WHERE id = $2 AND owner_id = $3
		RETURNING ` + commentColumns
	var c model.Comment
	err := r.db.GetContext(ctx, &c, query, content, id, ownerID)
	if errors.Is(err, sql.ErrNoRows) {
		var exists bool
		if err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM comments WHERE id = $1)`, id); err != nil {
			return nil, fmt.Errorf("check comment: %w", err)
		}
		if exists {
			return nil, model.ErrNotCommentOwner
		}
		return nil, model.ErrCommentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update comment: %w", err)
	}
	return &c, nil
}

// Delete removes a comment; replies go with it via ON DELETE CASCADE.
// Like rows pointing at removed comments are cleared in the same transaction.
func (r *commentRepository) Delete(ctx context.Context, id, ownerID uuid.UUID) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var owner uuid.UUID
	err = tx.GetContext(ctx, &owner, `SELECT owner_id FROM comments WHERE id = $1 FOR UPDATE`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return model.ErrCommentNotFound
	}
	if err != nil {
		return fmt.Errorf("get comment: %w", err)
	}
	if owner != ownerID {
		return model.ErrNotCommentOwner
	}

	_, err = tx.ExecContext(ctx, `
		DELETE FROM likes
		WHERE target_kind = 'comment'
		  AND target_id IN (SELECT id FROM comments WHERE id = $1 OR parent_id = $1)
	`, id)
	if err != nil {
		return fmt.Errorf("delete comment likes: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM comments WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete comment: %w", err)
	}

	return tx.Commit()
}

func (r *commentRepository) ListTopLevel(ctx context.Context, videoID uuid.UUID, order model.SortOrder, page model.PageRequest) ([]model.Comment, int64, error) {
	var total int64
	err := r.db.GetContext(ctx, &total,
		`SELECT COUNT(*) FROM comments WHERE video_id = $1 AND parent_id IS NULL`, videoID)
	if err != nil {
		return nil, 0, fmt.Errorf("count comments: %w", err)
	}

	// order is one of two constants, never raw input.
	direction := "DESC"
	if order == model.SortAsc {
		direction = "ASC"
	}
	query := `
		SELECT ` + commentColumns + `
		FROM comments
		WHERE video_id = $1 AND parent_id IS NULL
		ORDER BY created_at ` + direction + `, seq ` + direction + `
		LIMIT $2 OFFSET $3
	`
	var comments []model.Comment
	if err := r.db.SelectContext(ctx, &comments, query, videoID, page.Size(), page.Offset()); err != nil {
		return nil, 0, fmt.Errorf("list comments: %w", err)
	}
	return comments, total, nil
}

func (r *commentRepository) ListReplies(ctx context.Context, parentID uuid.UUID, page model.PageRequest) ([]model.Comment, int64, error) {
	var total int64
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM comments WHERE parent_id = $1`, parentID); err != nil {
		return nil, 0, fmt.Errorf("count replies: %w", err)
	}

	query := `
		SELECT ` + commentColumns + `
		FROM comments
		WHERE parent_id = $1
		ORDER BY created_at DESC, seq DESC
		LIMIT $2 OFFSET $3
	`
	var replies []model.Comment
	if err := r.db.SelectContext(ctx, &replies, query, parentID, page.Size(), page.Offset()); err != nil {
		return nil, 0, fmt.Errorf("list replies: %w", err)
	}
	return replies, total, nil
}

func (r *commentRepository) CountReplies(ctx context.Context, parentIDs []uuid.UUID) (map[uuid.UUID]int64, error) {
	out := make(map[uuid.UUID]int64, len(parentIDs))
	if len(parentIDs) == 0 {
		return out, nil
	}

	query := `
		SELECT parent_id, COUNT(*) AS n
		FROM comments
		WHERE parent_id = ANY($1::uuid[])
		GROUP BY parent_id
	`
	var rows []struct {
		ParentID uuid.UUID `db:"parent_id"`
		N        int64     `db:"n"`
	}
	if err := r.db.SelectContext(ctx, &rows, query, uuidArray(parentIDs)); err != nil {
		return nil, fmt.Errorf("count replies: %w", err)
	}
	for _, row := range rows {
		out[row.ParentID] = row.N
	}
	return out, nil
}

func (r *commentRepository) LatestReplies(ctx context.Context, parentIDs []uuid.UUID, perParent int) (map[uuid.UUID][]model.Comment, error) {
	out := make(map[uuid.UUID][]model.Comment, len(parentIDs))
	if len(parentIDs) == 0 || perParent <= 0 {
		return out, nil
	}

	query := `
		SELECT ` + commentColumns + `
		FROM (
			SELECT c.*, ROW_NUMBER() OVER (
				PARTITION BY parent_id ORDER BY created_at DESC, seq DESC
			) AS rn
			FROM comments c
			WHERE parent_id = ANY($1::uuid[])
		) ranked
		WHERE rn <= $2
		ORDER BY parent_id, created_at DESC, seq DESC
	`
	var rows []model.Comment
	if err := r.db.SelectContext(ctx, &rows, query, uuidArray(parentIDs), perParent); err != nil {
		return nil, fmt.Errorf("latest replies: %w", err)
	}
	for _, c := range rows {
		if c.ParentID != nil {
			out[*c.ParentID] = append(out[*c.ParentID], c)
		}
	}
	return out, nil
}
