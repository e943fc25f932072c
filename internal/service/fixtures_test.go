package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"videotube/internal/assets"
	"videotube/internal/config"
	"videotube/internal/model"
	"videotube/internal/queue"
	"videotube/internal/repository/memory"
	"videotube/internal/token"
)

// recordingPublisher keeps every published event in memory.
type recordingPublisher struct {
	mu     sync.Mutex
	events []queue.RelationEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, _ string, event queue.RelationEvent) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return "", p.err
	}
	p.events = append(p.events, event)
	return "1-0", nil
}

func (p *recordingPublisher) all() []queue.RelationEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]queue.RelationEvent(nil), p.events...)
}

// mapStatsCache is a StatsCache backed by a map.
type mapStatsCache struct {
	mu      sync.Mutex
	entries map[uuid.UUID]model.ChannelStats
	gets    int
	hits    int
}

func newMapStatsCache() *mapStatsCache {
	return &mapStatsCache{entries: make(map[uuid.UUID]model.ChannelStats)}
}

func (c *mapStatsCache) Get(_ context.Context, ownerID uuid.UUID) (*model.ChannelStats, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	s, ok := c.entries[ownerID]
	if !ok {
		return nil, false, nil
	}
	c.hits++
	return &s, true, nil
}

func (c *mapStatsCache) Set(_ context.Context, ownerID uuid.UUID, s *model.ChannelStats) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[ownerID] = *s
	return nil
}

func (c *mapStatsCache) Invalidate(_ context.Context, ownerID uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, ownerID)
	return nil
}

// fakeHost hands out URLs for uploads and records deletions.
type fakeHost struct {
	mu       sync.Mutex
	uploaded []string
	deleted  []string
	failOn   assets.Kind
}

func (h *fakeHost) Upload(_ context.Context, localPath string, kind assets.Kind) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if kind == h.failOn {
		return "", errors.New("bucket unavailable")
	}
	url := "https://cdn.test/" + string(kind) + "/" + uuid.NewString()
	h.uploaded = append(h.uploaded, url)
	return url, nil
}

func (h *fakeHost) Delete(_ context.Context, url string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.deleted = append(h.deleted, url)
	return nil
}

type fixture struct {
	store  *memory.Store
	cfg    *config.Config
	events *recordingPublisher
	stats  *mapStatsCache
	host   *fakeHost

	credentials *CredentialService
	toggles     *ToggleService
	aggregation *AggregationService
	comments    *CommentService
	playlists   *PlaylistService
	videos      *VideoService
	reconciler  *Reconciler
}

func testConfig() *config.Config {
	return &config.Config{
		AccessTokenSecret:     "access-secret",
		RefreshTokenSecret:    "refresh-secret",
		AccessTokenMaxAge:     900,
		RefreshTokenMaxAge:    86400,
		MaxSessionsPerAccount: 1,
		DefaultAvatarURL:      "https://cdn.test/default.png",
		MaxPageSize:           model.MaxPageSize,
		ExposeChannelEmail:    true,
	}
}

func newFixture(t *testing.T) *fixture {
	return newFixtureWith(t, testConfig())
}

func newFixtureWith(t *testing.T, cfg *config.Config) *fixture {
	t.Helper()

	store := memory.New()
	f := &fixture{
		store:  store,
		cfg:    cfg,
		events: &recordingPublisher{},
		stats:  newMapStatsCache(),
		host:   &fakeHost{},
	}

	signer := token.NewSigner(cfg.AccessTokenSecret, cfg.RefreshTokenSecret, cfg.AccessTokenTTL(), cfg.RefreshTokenTTL())
	f.credentials = NewCredentialService(store.Accounts(), store.Sessions(), signer, f.host, cfg)
	f.credentials.hashCost = bcrypt.MinCost

	f.toggles = NewToggleService(store.Relations(), store.Accounts(), store.Videos(), store.Comments(), store.Tweets(), f.events)
	f.aggregation = NewAggregationService(store.Accounts(), store.Videos(), store.Tweets(), store.Comments(),
		store.Likes(), store.Subscriptions(), f.stats, cfg)
	f.comments = NewCommentService(store.Comments(), store.Videos(), store.Accounts())
	f.playlists = NewPlaylistService(store.Playlists(), store.Videos())
	f.videos = NewVideoService(store.Videos(), store.Accounts(), f.host, f.stats)
	f.reconciler = NewReconciler(store.Relations())
	return f
}

func (f *fixture) account(t *testing.T, username string) *model.Account {
	t.Helper()
	a := &model.Account{
		Username: username,
		Email:    username + "@example.com",
		FullName: username + " example",
	}
	require.NoError(t, f.store.Accounts().Create(context.Background(), a))
	return a
}

func (f *fixture) video(t *testing.T, ownerID uuid.UUID, published bool) *model.Video {
	t.Helper()
	v := &model.Video{
		OwnerID:      ownerID,
		Title:        "video",
		VideoURL:     "https://cdn.test/videos/v.mp4",
		ThumbnailURL: "https://cdn.test/thumbnails/t.jpg",
		Duration:     12.5,
		IsPublished:  published,
	}
	require.NoError(t, f.store.Videos().Create(context.Background(), v))
	return v
}

func (f *fixture) comment(t *testing.T, videoID, ownerID uuid.UUID, parentID *uuid.UUID, at time.Time) *model.Comment {
	t.Helper()
	c := &model.Comment{
		VideoID:   videoID,
		OwnerID:   ownerID,
		Content:   "comment",
		ParentID:  parentID,
		CreatedAt: at,
	}
	require.NoError(t, f.store.Comments().Create(context.Background(), c))
	return c
}

func (f *fixture) like(t *testing.T, actorID uuid.UUID, kind model.TargetKind, targetID uuid.UUID) {
	t.Helper()
	res, err := f.toggles.Toggle(context.Background(), actorID, kind, targetID.String())
	require.NoError(t, err)
	require.True(t, res.Active)
}

var baseTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
