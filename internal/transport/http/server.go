package http

import (
	"context"
	"errors"
	"fmt"
	stdhttp "net/http"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"videotube/internal/assets"
	"videotube/internal/cache"
	"videotube/internal/config"
	"videotube/internal/database"
	"videotube/internal/handler"
	"videotube/internal/logging"
	"videotube/internal/queue"
	"videotube/internal/redis"
	"videotube/internal/repository"
	"videotube/internal/service"
	"videotube/internal/token"
	"videotube/internal/worker"
)

const (
	streamMaxLen    = 100_000
	shutdownTimeout = 15 * time.Second
)

func Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logging.Init(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	// 2. Connect to Database
	db, err := database.Connect(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := database.Migrate(ctx, db); err != nil {
		return err
	}

	accounts := repository.NewAccountRepository(db)
	sessions := repository.NewSessionRepository(db)
	videos := repository.NewVideoRepository(db)
	tweets := repository.NewTweetRepository(db)
	comments := repository.NewCommentRepository(db)
	likes := repository.NewLikeRepository(db)
	subscriptions := repository.NewSubscriptionRepository(db)
	relations := repository.NewRelationRepository(db)
	playlists := repository.NewPlaylistRepository(db)

	// 3. Optional Redis: stats cache and the relation event stream
	var (
		stats     cache.StatsCache
		publisher queue.Publisher
		rdb       *goredis.Client
	)
	if cfg.RedisURL != "" {
		rdb, err = redis.Connect(ctx, cfg.RedisURL)
		if err != nil {
			return err
		}
		defer rdb.Close()
		stats = cache.NewStatsCache(rdb)
		publisher = queue.NewPublisher(rdb, streamMaxLen)
	} else {
		logging.Warn().Msg("REDIS_URL not set, stats cache and counter workers disabled")
	}

	// 4. Optional asset host
	var host assets.Host
	if cfg.AssetsConfigured() {
		r2, err := assets.NewR2Host(ctx, cfg)
		if err != nil {
			return err
		}
		host = r2
	} else {
		logging.Warn().Msg("R2 not configured, uploads disabled")
	}

	signer := token.NewSigner(cfg.AccessTokenSecret, cfg.RefreshTokenSecret, cfg.AccessTokenTTL(), cfg.RefreshTokenTTL())

	credentials := service.NewCredentialService(accounts, sessions, signer, host, cfg)
	toggles := service.NewToggleService(relations, accounts, videos, comments, tweets, publisher)
	aggregation := service.NewAggregationService(accounts, videos, tweets, comments, likes, subscriptions, stats, cfg)
	commentService := service.NewCommentService(comments, videos, accounts)
	videoService := service.NewVideoService(videos, accounts, host, stats)
	playlistService := service.NewPlaylistService(playlists, videos)
	reconciler := service.NewReconciler(relations)

	// 5. Background work
	go worker.NewSessionSweeper(sessions, cfg.SessionSweepInterval).Run(ctx)

	var workers *worker.Manager
	if rdb != nil {
		workers = worker.NewManager(queue.NewConsumer(rdb), worker.NewHandler(reconciler, stats), worker.ManagerConfig{
			WorkerCount: cfg.WorkerCount,
		})
		if err := workers.Start(ctx); err != nil {
			return fmt.Errorf("start workers: %w", err)
		}
		defer workers.Stop()
	}

	// 6. Setup Server
	router := NewRouter(RouterConfig{
		AuthHandler:     handler.NewAuthHandler(credentials, cfg),
		RelationHandler: handler.NewRelationHandler(toggles, aggregation, cfg),
		CommentHandler:  handler.NewCommentHandler(commentService, aggregation, cfg),
		ChannelHandler:  handler.NewChannelHandler(aggregation),
		VideoHandler:    handler.NewVideoHandler(videoService),
		PlaylistHandler: handler.NewPlaylistHandler(playlistService),
		Signer:          signer,
		AllowedOrigins:  cfg.CORSAllowedOrigins,
	})

	srv := &stdhttp.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Info().Str("addr", srv.Addr).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logging.Info().Msg("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
