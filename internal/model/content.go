package model

import (
	"time"

	"github.com/google/uuid"
)

// Video is an uploaded video owned by an account.
type Video struct {
	ID           uuid.UUID `db:"id" json:"id"`
	OwnerID      uuid.UUID `db:"owner_id" json:"owner_id"`
	Title        string    `db:"title" json:"title"`
	Description  string    `db:"description" json:"description"`
	VideoURL     string    `db:"video_url" json:"video_url"`
	ThumbnailURL string    `db:"thumbnail_url" json:"thumbnail_url"`
	Duration     float64   `db:"duration" json:"duration"`
	Views        int64     `db:"views" json:"views"`
	IsPublished  bool      `db:"is_published" json:"is_published"`
	LikeCount    int64     `db:"like_count" json:"like_count"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// VisibleTo reports whether viewer may see the video in listings.
func (v *Video) VisibleTo(viewerID uuid.UUID) bool {
	return v.IsPublished || v.OwnerID == viewerID
}

// VideoTotals is the per-owner video rollup used by channel stats.
type VideoTotals struct {
	VideoCount int64 `db:"video_count"`
	TotalViews int64 `db:"total_views"`
}

// Tweet is a short text post owned by an account.
type Tweet struct {
	ID        uuid.UUID `db:"id" json:"id"`
	OwnerID   uuid.UUID `db:"owner_id" json:"owner_id"`
	Content   string    `db:"content" json:"content"`
	LikeCount int64     `db:"like_count" json:"like_count"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Playlist is an ordered, duplicate-free list of videos.
type Playlist struct {
	ID          uuid.UUID   `db:"id" json:"id"`
	OwnerID     uuid.UUID   `db:"owner_id" json:"owner_id"`
	Name        string      `db:"name" json:"name"`
	Description string      `db:"description" json:"description"`
	VideoIDs    []uuid.UUID `db:"-" json:"video_ids"`
	CreatedAt   time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time   `db:"updated_at" json:"updated_at"`
}

// CreatePlaylistRequest is the request body for POST /playlists.
type CreatePlaylistRequest struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description" validate:"max=1000"`
}

// PublishVideoInput carries a new video's metadata and the local files to upload.
type PublishVideoInput struct {
	Title         string  `json:"title" validate:"required,max=200"`
	Description   string  `json:"description" validate:"max=5000"`
	Duration      float64 `json:"duration" validate:"gte=0"`
	VideoPath     string  `json:"-" validate:"required"`
	ThumbnailPath string  `json:"-" validate:"required"`
}
