package model

import (
	"time"

	"github.com/google/uuid"
)

// Comment represents a comment on a video.
// ParentID is nil for top-level comments; replies always point at a top-level comment.
type Comment struct {
	ID        uuid.UUID  `db:"id" json:"id"`
	VideoID   uuid.UUID  `db:"video_id" json:"video_id"`
	OwnerID   uuid.UUID  `db:"owner_id" json:"owner_id"`
	Content   string     `db:"content" json:"content"`
	ParentID  *uuid.UUID `db:"parent_id" json:"parent_id,omitempty"`
	LikeCount int64      `db:"like_count" json:"like_count"`
	Seq       int64      `db:"seq" json:"-"` // Insertion order, breaks created_at ties
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt time.Time  `db:"updated_at" json:"updated_at"`
}

// IsTopLevel reports whether the comment starts a thread.
func (c *Comment) IsTopLevel() bool {
	return c.ParentID == nil
}

// CreateCommentRequest is the request body for creating a comment.
type CreateCommentRequest struct {
	Content  string  `json:"content"`
	ParentID *string `json:"parent_id,omitempty"`
}

// UpdateCommentRequest is the request body for updating a comment.
type UpdateCommentRequest struct {
	Content string `json:"content"`
}

// Comment constraints
const (
	MaxCommentLength = 2000

	// ReplyPreviewSize is how many replies are embedded in a thread listing.
	ReplyPreviewSize = 2
)
