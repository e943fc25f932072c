// Command recount repairs denormalized like and subscriber counters from the
// relation tables.
//
//	recount            # every kind
//	recount -kind=video
package main

import (
	"context"
	"flag"
	"os/signal"
	"syscall"

	"videotube/internal/config"
	"videotube/internal/database"
	"videotube/internal/logging"
	"videotube/internal/model"
	"videotube/internal/repository"
	"videotube/internal/service"
)

func main() {
	kind := flag.String("kind", "", "only recount one kind: video, comment, tweet or channel")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadConfig()
	if err != nil {
		logging.Fatal().Err(err).Msg("load config")
	}
	logging.Init(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	db, err := database.Connect(cfg)
	if err != nil {
		logging.Fatal().Err(err).Msg("connect database")
	}
	defer db.Close()

	reconciler := service.NewReconciler(repository.NewRelationRepository(db))

	if *kind != "" {
		k, err := model.ParseTargetKind(*kind)
		if err != nil {
			logging.Fatal().Str("kind", *kind).Msg("unknown kind")
		}
		fixed, err := reconciler.ReconcileKind(ctx, k)
		if err != nil {
			logging.Fatal().Err(err).Str("kind", *kind).Msg("recount failed")
		}
		logging.Info().Str("kind", string(k)).Int64("fixed", fixed).Msg("recount done")
		return
	}

	fixed, err := reconciler.ReconcileAll(ctx)
	if err != nil {
		logging.Fatal().Err(err).Msg("recount failed")
	}
	for k, n := range fixed {
		logging.Info().Str("kind", string(k)).Int64("fixed", n).Msg("recount done")
	}
}
