// Package memory is an in-process implementation of the repository interfaces.
// One Store holds every table behind a single mutex, so each method is atomic.
package memory

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"videotube/internal/model"
	"videotube/internal/repository"
)

type likeKey struct {
	actor  uuid.UUID
	kind   model.TargetKind
	target uuid.UUID
}

type subKey struct {
	subscriber uuid.UUID
	channel    uuid.UUID
}

// Edge rows carry an insertion sequence to break created_at ties.
type likeRow struct {
	model.Like
	seq int64
}

type subRow struct {
	model.Subscription
	seq int64
}

type Store struct {
	mu sync.RWMutex

	accounts      map[uuid.UUID]*model.Account
	sessions      map[uuid.UUID]*model.Session
	videos        map[uuid.UUID]*model.Video
	tweets        map[uuid.UUID]*model.Tweet
	comments      map[uuid.UUID]*model.Comment
	likes         map[likeKey]*likeRow
	subscriptions map[subKey]*subRow
	playlists     map[uuid.UUID]*model.Playlist

	// touched records the sequence of each session's last create or rotate.
	touched map[uuid.UUID]int64

	seq int64
	now func() time.Time
}

func New() *Store {
	return &Store{
		accounts:      make(map[uuid.UUID]*model.Account),
		sessions:      make(map[uuid.UUID]*model.Session),
		videos:        make(map[uuid.UUID]*model.Video),
		tweets:        make(map[uuid.UUID]*model.Tweet),
		comments:      make(map[uuid.UUID]*model.Comment),
		likes:         make(map[likeKey]*likeRow),
		subscriptions: make(map[subKey]*subRow),
		playlists:     make(map[uuid.UUID]*model.Playlist),
		touched:       make(map[uuid.UUID]int64),
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// SetClock overrides the time source used for generated timestamps.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// next returns a strictly increasing sequence number. Caller holds mu.
func (s *Store) next() int64 {
	s.seq++
	return s.seq
}

func (s *Store) Accounts() repository.AccountRepository           { return accountRepo{s} }
func (s *Store) Sessions() repository.SessionRepository           { return sessionRepo{s} }
func (s *Store) Videos() repository.VideoRepository               { return videoRepo{s} }
func (s *Store) Tweets() repository.TweetRepository               { return tweetRepo{s} }
func (s *Store) Comments() repository.CommentRepository           { return commentRepo{s} }
func (s *Store) Likes() repository.LikeRepository                 { return likeRepo{s} }
func (s *Store) Subscriptions() repository.SubscriptionRepository { return subscriptionRepo{s} }
func (s *Store) Relations() repository.RelationRepository         { return relationRepo{s} }
func (s *Store) Playlists() repository.PlaylistRepository         { return playlistRepo{s} }

// SetCounter overwrites a cached counter without touching edge rows.
// It exists to simulate drift in reconciliation tests.
func (s *Store) SetCounter(kind model.TargetKind, id uuid.UUID, n int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c := s.counter(kind, id); c != nil {
		*c = n
	}
}

// counter points at the cached counter for a target, or nil. Caller holds mu.
func (s *Store) counter(kind model.TargetKind, id uuid.UUID) *int64 {
	switch kind {
	case model.TargetVideo:
		if v, ok := s.videos[id]; ok {
			return &v.LikeCount
		}
	case model.TargetComment:
		if c, ok := s.comments[id]; ok {
			return &c.LikeCount
		}
	case model.TargetTweet:
		if t, ok := s.tweets[id]; ok {
			return &t.LikeCount
		}
	case model.TargetChannel:
		if a, ok := s.accounts[id]; ok {
			return &a.SubscriberCount
		}
	}
	return nil
}

func paginate[T any](items []T, page model.PageRequest) []T {
	start := page.Offset()
	if start < 0 || start >= len(items) {
		return []T{}
	}
	end := min(start+page.Size(), len(items))
	return items[start:end]
}

// sortComments orders by created_at then seq.
func sortComments(cs []model.Comment, order model.SortOrder) {
	sort.Slice(cs, func(i, j int) bool {
		a, b := cs[i], cs[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			if order == model.SortAsc {
				return a.CreatedAt.Before(b.CreatedAt)
			}
			return a.CreatedAt.After(b.CreatedAt)
		}
		if order == model.SortAsc {
			return a.Seq < b.Seq
		}
		return a.Seq > b.Seq
	})
}

func fold(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
