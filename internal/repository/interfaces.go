package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"videotube/internal/model"
)

type AccountRepository interface {
	// Create fills ID and timestamps. Returns model.ErrAccountExists on a unique violation.
	Create(ctx context.Context, a *model.Account) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Account, error)
	// GetByUsername matches case-insensitively.
	GetByUsername(ctx context.Context, username string) (*model.Account, error)
	// GetByIdentifier matches username or email, case-insensitively.
	GetByIdentifier(ctx context.Context, identifier string) (*model.Account, error)
	ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error)
	UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error
	// SummariesByIDs omits ids with no account row.
	SummariesByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]model.AccountSummary, error)
	// PushWatchHistory moves videoID to the front and keeps at most limit entries.
	PushWatchHistory(ctx context.Context, id, videoID uuid.UUID, limit int) error
	WatchHistory(ctx context.Context, id uuid.UUID) ([]uuid.UUID, error)
}

type SessionRepository interface {
	Create(ctx context.Context, s *model.Session) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Session, error)
	// Rotate swaps the stored hash only if it still equals expectedHash.
	// Reports false when another rotation won or the session is gone.
	Rotate(ctx context.Context, id uuid.UUID, expectedHash, newHash string, expiresAt time.Time) (bool, error)
	// Trim keeps the keep most recently rotated sessions of the account.
	Trim(ctx context.Context, accountID uuid.UUID, keep int) (int64, error)
	DeleteAllForAccount(ctx context.Context, accountID uuid.UUID) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type VideoRepository interface {
	Create(ctx context.Context, v *model.Video) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Video, error)
	// GetByIDs omits ids with no video row.
	GetByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]model.Video, error)
	TotalsByOwner(ctx context.Context, ownerID uuid.UUID) (model.VideoTotals, error)
	IncrementViews(ctx context.Context, id uuid.UUID) error
}

type TweetRepository interface {
	Create(ctx context.Context, t *model.Tweet) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Tweet, error)
	CountByOwner(ctx context.Context, ownerID uuid.UUID) (int64, error)
}

type CommentRepository interface {
	// Create fills ID, Seq and timestamps; a preset CreatedAt is kept.
	Create(ctx context.Context, c *model.Comment) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Comment, error)
	UpdateContent(ctx context.Context, id, ownerID uuid.UUID, content string) (*model.Comment, error)
	// Delete removes the comment and, for a top-level comment, its replies.
	Delete(ctx context.Context, id, ownerID uuid.UUID) error
	// ListTopLevel orders by created_at then seq in the given direction.
	ListTopLevel(ctx context.Context, videoID uuid.UUID, order model.SortOrder, page model.PageRequest) ([]model.Comment, int64, error)
	// ListReplies returns replies most recent first.
	ListReplies(ctx context.Context, parentID uuid.UUID, page model.PageRequest) ([]model.Comment, int64, error)
	CountReplies(ctx context.Context, parentIDs []uuid.UUID) (map[uuid.UUID]int64, error)
	// LatestReplies returns up to perParent replies per parent, most recent first.
	LatestReplies(ctx context.Context, parentIDs []uuid.UUID, perParent int) (map[uuid.UUID][]model.Comment, error)
}

type LikeRepository interface {
	// CountByTargets counts Like rows per target; targets without likes are absent.
	CountByTargets(ctx context.Context, kind model.TargetKind, ids []uuid.UUID) (map[uuid.UUID]int64, error)
	LikedBy(ctx context.Context, actorID uuid.UUID, kind model.TargetKind, ids []uuid.UUID) (map[uuid.UUID]bool, error)
	// TargetsLikedBy lists the actor's likes of a kind, most recent first.
	TargetsLikedBy(ctx context.Context, actorID uuid.UUID, kind model.TargetKind) ([]model.LikedRef, error)
	CountOnVideosOwnedBy(ctx context.Context, ownerID uuid.UUID) (int64, error)
}

type SubscriptionRepository interface {
	CountSubscribers(ctx context.Context, channelID uuid.UUID) (int64, error)
	CountSubscribedTo(ctx context.Context, subscriberID uuid.UUID) (int64, error)
	SubscribedTo(ctx context.Context, subscriberID uuid.UUID, channelIDs []uuid.UUID) (map[uuid.UUID]bool, error)
	// ListSubscribers and ListSubscriptions return account ids, most recent first, and the total.
	ListSubscribers(ctx context.Context, channelID uuid.UUID, page model.PageRequest) ([]uuid.UUID, int64, error)
	ListSubscriptions(ctx context.Context, subscriberID uuid.UUID, page model.PageRequest) ([]uuid.UUID, int64, error)
}

// RelationRepository owns the edge rows and the counters cached from them.
type RelationRepository interface {
	// Flip deletes the edge if present or inserts it if absent, moving the cached
	// counter in the same atomic step. Losing an insert race counts as already active.
	Flip(ctx context.Context, e model.Edge) (model.ToggleResult, error)
	// Recount resets the target's cached counter from the edge rows.
	Recount(ctx context.Context, kind model.TargetKind, targetID uuid.UUID) (int64, error)
	// RecountAll repairs every drifted counter of a kind and returns how many changed.
	RecountAll(ctx context.Context, kind model.TargetKind) (int64, error)
}

type PlaylistRepository interface {
	Create(ctx context.Context, p *model.Playlist) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Playlist, error)
	// AddVideo reports false when the video is already in the playlist.
	AddVideo(ctx context.Context, playlistID, videoID uuid.UUID) (bool, error)
	RemoveVideo(ctx context.Context, playlistID, videoID uuid.UUID) (bool, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]model.Playlist, error)
}
