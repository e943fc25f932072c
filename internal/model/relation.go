package model

import (
	"time"

	"github.com/google/uuid"
)

// TargetKind names what an edge points at.
type TargetKind string

const (
	TargetVideo   TargetKind = "video"
	TargetComment TargetKind = "comment"
	TargetTweet   TargetKind = "tweet"
	TargetChannel TargetKind = "channel" // Subscriptions
)

// LikeKinds lists the kinds a Like may target.
var LikeKinds = []TargetKind{TargetVideo, TargetComment, TargetTweet}

// AllKinds lists every toggleable kind.
var AllKinds = []TargetKind{TargetVideo, TargetComment, TargetTweet, TargetChannel}

// ParseTargetKind validates a kind received at the boundary.
func ParseTargetKind(raw string) (TargetKind, error) {
	switch k := TargetKind(raw); k {
	case TargetVideo, TargetComment, TargetTweet, TargetChannel:
		return k, nil
	}
	return "", ErrUnknownTargetKind
}

// IsLikeable reports whether a Like may point at this kind.
func (k TargetKind) IsLikeable() bool {
	return k == TargetVideo || k == TargetComment || k == TargetTweet
}

// LikeTarget is the thing a Like points at: exactly one of a video, a comment or a tweet.
// The zero value is invalid; build one with VideoTarget, CommentTarget, TweetTarget or NewLikeTarget.
type LikeTarget struct {
	kind TargetKind
	id   uuid.UUID
}

func VideoTarget(id uuid.UUID) LikeTarget   { return LikeTarget{kind: TargetVideo, id: id} }
func CommentTarget(id uuid.UUID) LikeTarget { return LikeTarget{kind: TargetComment, id: id} }
func TweetTarget(id uuid.UUID) LikeTarget   { return LikeTarget{kind: TargetTweet, id: id} }

// NewLikeTarget parses a kind and raw id into a LikeTarget.
func NewLikeTarget(kind TargetKind, rawID string) (LikeTarget, error) {
	if !kind.IsLikeable() {
		return LikeTarget{}, ErrUnknownTargetKind
	}
	id, err := ParseID(rawID)
	if err != nil {
		return LikeTarget{}, err
	}
	return LikeTarget{kind: kind, id: id}, nil
}

func (t LikeTarget) Kind() TargetKind { return t.kind }
func (t LikeTarget) ID() uuid.UUID    { return t.id }
func (t LikeTarget) IsZero() bool     { return t.kind == "" }

// Edge is a relation row as seen by the toggle engine: a like or a subscription.
type Edge struct {
	ActorID  uuid.UUID
	Kind     TargetKind
	TargetID uuid.UUID
}

// Like is a single actor's like of a target.
type Like struct {
	ID        uuid.UUID  `json:"id"`
	Target    LikeTarget `json:"-"`
	ActorID   uuid.UUID  `json:"actor_id"`
	CreatedAt time.Time  `json:"created_at"`
}

// Subscription links a subscriber to a channel. SubscriberID never equals ChannelID.
type Subscription struct {
	ID           uuid.UUID `db:"id" json:"id"`
	SubscriberID uuid.UUID `db:"subscriber_id" json:"subscriber_id"`
	ChannelID    uuid.UUID `db:"channel_id" json:"channel_id"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// ToggleResult reports which branch a toggle took and the target's cached counter afterwards.
type ToggleResult struct {
	Active bool   `json:"active"`
	Count  *int64 `json:"count,omitempty"`
}

// LikedRef is one of an actor's likes, as returned by a liked-targets scan.
type LikedRef struct {
	TargetID uuid.UUID `db:"target_id"`
	LikedAt  time.Time `db:"created_at"`
}
