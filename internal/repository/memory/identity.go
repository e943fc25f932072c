package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"videotube/internal/model"
)

type accountRepo struct{ s *Store }

func (r accountRepo) Create(_ context.Context, a *model.Account) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.accounts {
		if fold(existing.Username) == fold(a.Username) || fold(existing.Email) == fold(a.Email) {
			return model.ErrAccountExists
		}
	}

	now := r.s.now()
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	a.CreatedAt, a.UpdatedAt = now, now
	stored := *a
	stored.WatchHistory = nil
	r.s.accounts[a.ID] = &stored
	return nil
}

func (r accountRepo) GetByID(_ context.Context, id uuid.UUID) (*model.Account, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	a, ok := r.s.accounts[id]
	if !ok {
		return nil, model.ErrAccountNotFound
	}
	return copyAccount(a), nil
}

func (r accountRepo) GetByUsername(_ context.Context, username string) (*model.Account, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, a := range r.s.accounts {
		if fold(a.Username) == fold(username) {
			return copyAccount(a), nil
		}
	}
	return nil, model.ErrAccountNotFound
}

func (r accountRepo) GetByIdentifier(_ context.Context, identifier string) (*model.Account, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, a := range r.s.accounts {
		if fold(a.Username) == fold(identifier) || fold(a.Email) == fold(identifier) {
			return copyAccount(a), nil
		}
	}
	return nil, model.ErrAccountNotFound
}

func (r accountRepo) ExistsByUsernameOrEmail(_ context.Context, username, email string) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, a := range r.s.accounts {
		if fold(a.Username) == fold(username) || fold(a.Email) == fold(email) {
			return true, nil
		}
	}
	return false, nil
}

func (r accountRepo) UpdatePasswordHash(_ context.Context, id uuid.UUID, hash string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	a, ok := r.s.accounts[id]
	if !ok {
		return model.ErrAccountNotFound
	}
	a.PasswordHashed = hash
	a.UpdatedAt = r.s.now()
	return nil
}

func (r accountRepo) SummariesByIDs(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]model.AccountSummary, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make(map[uuid.UUID]model.AccountSummary, len(ids))
	for _, id := range ids {
		if a, ok := r.s.accounts[id]; ok {
			out[id] = a.Summary()
		}
	}
	return out, nil
}

func (r accountRepo) PushWatchHistory(_ context.Context, id, videoID uuid.UUID, limit int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	a, ok := r.s.accounts[id]
	if !ok {
		return model.ErrAccountNotFound
	}

	history := make([]uuid.UUID, 0, len(a.WatchHistory)+1)
	history = append(history, videoID)
	for _, v := range a.WatchHistory {
		if v != videoID {
			history = append(history, v)
		}
	}
	if limit > 0 && len(history) > limit {
		history = history[:limit]
	}
	a.WatchHistory = history
	return nil
}

func (r accountRepo) WatchHistory(_ context.Context, id uuid.UUID) ([]uuid.UUID, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	a, ok := r.s.accounts[id]
	if !ok {
		return nil, model.ErrAccountNotFound
	}
	return append([]uuid.UUID(nil), a.WatchHistory...), nil
}

func copyAccount(a *model.Account) *model.Account {
	c := *a
	c.WatchHistory = append([]uuid.UUID(nil), a.WatchHistory...)
	return &c
}

type sessionRepo struct{ s *Store }

func (r sessionRepo) Create(_ context.Context, sess *model.Session) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	now := r.s.now()
	sess.CreatedAt, sess.RotatedAt = now, now
	stored := *sess
	r.s.sessions[sess.ID] = &stored
	r.s.touched[sess.ID] = r.s.next()
	return nil
}

func (r sessionRepo) GetByID(_ context.Context, id uuid.UUID) (*model.Session, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	sess, ok := r.s.sessions[id]
	if !ok {
		return nil, model.ErrSessionNotFound
	}
	c := *sess
	return &c, nil
}

func (r sessionRepo) Rotate(_ context.Context, id uuid.UUID, expectedHash, newHash string, expiresAt time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	sess, ok := r.s.sessions[id]
	if !ok || sess.TokenHash != expectedHash {
		return false, nil
	}
	sess.TokenHash = newHash
	sess.ExpiresAt = expiresAt
	sess.RotatedAt = r.s.now()
	r.s.touched[id] = r.s.next()
	return true, nil
}

func (r sessionRepo) Trim(_ context.Context, accountID uuid.UUID, keep int) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var owned []*model.Session
	for _, sess := range r.s.sessions {
		if sess.AccountID == accountID {
			owned = append(owned, sess)
		}
	}
	if len(owned) <= keep {
		return 0, nil
	}

	sort.Slice(owned, func(i, j int) bool {
		return r.s.touched[owned[i].ID] > r.s.touched[owned[j].ID]
	})

	var removed int64
	for _, sess := range owned[keep:] {
		r.s.drop(sess.ID)
		removed++
	}
	return removed, nil
}

func (r sessionRepo) DeleteAllForAccount(_ context.Context, accountID uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for id, sess := range r.s.sessions {
		if sess.AccountID == accountID {
			r.s.drop(id)
		}
	}
	return nil
}

func (r sessionRepo) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var n int64
	for id, sess := range r.s.sessions {
		if sess.IsExpired(now) {
			r.s.drop(id)
			n++
		}
	}
	return n, nil
}

// drop removes a session. Caller holds mu.
func (s *Store) drop(id uuid.UUID) {
	delete(s.sessions, id)
	delete(s.touched, id)
}
