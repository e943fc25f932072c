package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"videotube/internal/logging"
	"videotube/internal/metrics"
	"videotube/internal/model"
	"videotube/internal/queue"
)

// CounterReconciler recounts one target's cached counter from its edge rows.
type CounterReconciler interface {
	Reconcile(ctx context.Context, kind model.TargetKind, targetID uuid.UUID) (int64, error)
}

// StatsInvalidator drops an owner's cached channel stats.
type StatsInvalidator interface {
	Invalidate(ctx context.Context, ownerID uuid.UUID) error
}

// Handler processes relation events from the queue.
type Handler struct {
	reconciler CounterReconciler
	stats      StatsInvalidator // nil when no cache is configured
}

func NewHandler(reconciler CounterReconciler, stats StatsInvalidator) *Handler {
	return &Handler{reconciler: reconciler, stats: stats}
}

// HandleEvent routes an event by type.
func (h *Handler) HandleEvent(ctx context.Context, event queue.RelationEvent) error {
	start := time.Now()
	log := logging.WithComponent("worker")

	var err error
	switch event.Type {
	case queue.EventRelationToggled:
		err = h.handleRelationToggled(ctx, event)
	default:
		err = fmt.Errorf("unknown event type: %s", event.Type)
	}

	if err != nil {
		metrics.QueueEventsTotal.WithLabelValues("failed").Inc()
		log.Warn().Err(err).Str("type", event.Type).Dur("duration", time.Since(start)).Msg("event failed")
		return err
	}

	metrics.QueueEventsTotal.WithLabelValues("processed").Inc()
	log.Debug().Str("type", event.Type).Dur("duration", time.Since(start)).Msg("event processed")
	return nil
}

// handleRelationToggled brings the target's counter back in line with its
// rows, then drops the owner's cached stats so the next read recomputes them.
func (h *Handler) handleRelationToggled(ctx context.Context, event queue.RelationEvent) error {
	if _, err := h.reconciler.Reconcile(ctx, event.Kind, event.TargetID); err != nil {
		return fmt.Errorf("reconcile: %w", err)
	}

	if h.stats == nil || event.OwnerID == uuid.Nil {
		return nil
	}
	// Only video likes and subscriptions feed channel stats.
	if event.Kind != model.TargetVideo && event.Kind != model.TargetChannel {
		return nil
	}
	if err := h.stats.Invalidate(ctx, event.OwnerID); err != nil {
		return fmt.Errorf("invalidate stats: %w", err)
	}
	return nil
}
