package model

import (
	"time"

	"github.com/google/uuid"
)

// AnnotatedReply is a reply enriched with its owner, like count and the viewer's like flag.
type AnnotatedReply struct {
	ID        uuid.UUID       `json:"id"`
	ParentID  uuid.UUID       `json:"parent_id"`
	Content   string          `json:"content"`
	Owner     *AccountSummary `json:"owner"`
	LikeCount int64           `json:"like_count"`
	IsLiked   bool            `json:"is_liked"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// AnnotatedComment is a top-level comment with its rollups and a bounded reply preview.
type AnnotatedComment struct {
	ID         uuid.UUID        `json:"id"`
	VideoID    uuid.UUID        `json:"video_id"`
	Content    string           `json:"content"`
	Owner      *AccountSummary  `json:"owner"`
	LikeCount  int64            `json:"like_count"`
	IsLiked    bool             `json:"is_liked"`
	ReplyCount int64            `json:"reply_count"`
	Replies    []AnnotatedReply `json:"replies"`
	CreatedAt  time.Time        `json:"created_at"`
	UpdatedAt  time.Time        `json:"updated_at"`
}

// ChannelProfile is the public, viewer-relative projection of an account.
type ChannelProfile struct {
	ID                        uuid.UUID `json:"id"`
	FullName                  string    `json:"full_name"`
	Username                  string    `json:"username"`
	Email                     string    `json:"email,omitempty"`
	AvatarURL                 *string   `json:"avatar_url"`
	CoverURL                  *string   `json:"cover_url"`
	SubscribersCount          int64     `json:"subscribers_count"`
	ChannelsSubscribedToCount int64     `json:"channels_subscribed_to_count"`
	IsSubscribed              bool      `json:"is_subscribed"`
}

// ChannelSummary is an entry in a subscriber or subscription list.
type ChannelSummary struct {
	AccountSummary
	SubscribersCount int64 `json:"subscribers_count"`
	IsSubscribed     bool  `json:"is_subscribed"`
}

// ChannelStats are the owner-facing totals of a channel. Each count is zero when no rows exist.
type ChannelStats struct {
	VideoCount      int64 `json:"video_count"`
	SubscriberCount int64 `json:"subscriber_count"`
	TweetCount      int64 `json:"tweet_count"`
	TotalViews      int64 `json:"total_views"`
	TotalVideoLikes int64 `json:"total_video_likes"`
}

// VideoSummary is a video card: listing fields plus the owner profile.
type VideoSummary struct {
	ID           uuid.UUID       `json:"id"`
	Title        string          `json:"title"`
	Description  string          `json:"description"`
	VideoURL     string          `json:"video_url"`
	ThumbnailURL string          `json:"thumbnail_url"`
	Duration     float64         `json:"duration"`
	Views        int64           `json:"views"`
	IsPublished  bool            `json:"is_published"`
	Owner        *AccountSummary `json:"owner"`
	CreatedAt    time.Time       `json:"created_at"`
}

// NewVideoSummary projects a video and its (possibly missing) owner.
func NewVideoSummary(v *Video, owner *AccountSummary) VideoSummary {
	return VideoSummary{
		ID:           v.ID,
		Title:        v.Title,
		Description:  v.Description,
		VideoURL:     v.VideoURL,
		ThumbnailURL: v.ThumbnailURL,
		Duration:     v.Duration,
		Views:        v.Views,
		IsPublished:  v.IsPublished,
		Owner:        owner,
		CreatedAt:    v.CreatedAt,
	}
}

// LikedVideo is a liked-videos entry.
type LikedVideo struct {
	VideoSummary
	LikedAt time.Time `json:"liked_at"`
}
