package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"videotube/internal/logging"
	"videotube/internal/metrics"
	"videotube/internal/model"
	"videotube/internal/repository"
)

// Reconciler resets cached counters from the edge rows they summarize.
type Reconciler struct {
	relations repository.RelationRepository
}

func NewReconciler(relations repository.RelationRepository) *Reconciler {
	return &Reconciler{relations: relations}
}

// Reconcile recounts one target. A target deleted since the event was
// published is not an error.
func (r *Reconciler) Reconcile(ctx context.Context, kind model.TargetKind, targetID uuid.UUID) (int64, error) {
	n, err := r.relations.Recount(ctx, kind, targetID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("recount %s %s: %w", kind, targetID, err)
	}
	return n, nil
}

// ReconcileKind repairs every drifted counter of one kind.
func (r *Reconciler) ReconcileKind(ctx context.Context, kind model.TargetKind) (int64, error) {
	fixed, err := r.relations.RecountAll(ctx, kind)
	if err != nil {
		return 0, fmt.Errorf("recount all %s: %w", kind, err)
	}
	if fixed > 0 {
		metrics.CounterDriftTotal.WithLabelValues(string(kind)).Add(float64(fixed))
		logging.Ctx(ctx).Warn().Str("kind", string(kind)).Int64("fixed", fixed).Msg("repaired drifted counters")
	}
	return fixed, nil
}

// ReconcileAll runs ReconcileKind for every kind and reports repairs per kind.
func (r *Reconciler) ReconcileAll(ctx context.Context) (map[model.TargetKind]int64, error) {
	report := make(map[model.TargetKind]int64, len(model.AllKinds))
	for _, kind := range model.AllKinds {
		fixed, err := r.ReconcileKind(ctx, kind)
		if err != nil {
			return report, err
		}
		report[kind] = fixed
	}
	return report, nil
}
