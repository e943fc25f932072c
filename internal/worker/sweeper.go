package worker

import (
	"context"
	"time"

	"videotube/internal/logging"
)

// ExpiredSessionDeleter removes sessions whose refresh token has expired.
type ExpiredSessionDeleter interface {
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// SessionSweeper periodically deletes expired sessions until its context ends.
type SessionSweeper struct {
	sessions ExpiredSessionDeleter
	interval time.Duration
	now      func() time.Time
}

func NewSessionSweeper(sessions ExpiredSessionDeleter, interval time.Duration) *SessionSweeper {
	if interval <= 0 {
		interval = time.Hour
	}
	return &SessionSweeper{sessions: sessions, interval: interval, now: time.Now}
}

// Run sweeps once immediately and then on every tick. It returns when ctx is done.
func (s *SessionSweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		s.Sweep(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *SessionSweeper) Sweep(ctx context.Context) int64 {
	log := logging.WithComponent("session_sweeper")

	n, err := s.sessions.DeleteExpired(ctx, s.now())
	if err != nil {
		if ctx.Err() == nil {
			log.Warn().Err(err).Msg("sweep failed")
		}
		return 0
	}
	if n > 0 {
		log.Info().Int64("deleted", n).Msg("expired sessions removed")
	}
	return n
}
