package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"videotube/internal/logging"
	"videotube/internal/metrics"
	"videotube/internal/model"
	"videotube/internal/queue"
	"videotube/internal/repository"
)

// ToggleService flips likes and subscriptions.
type ToggleService struct {
	relations repository.RelationRepository
	accounts  repository.AccountRepository
	videos    repository.VideoRepository
	comments  repository.CommentRepository
	tweets    repository.TweetRepository
	events    queue.Publisher // optional
}

func NewToggleService(
	relations repository.RelationRepository,
	accounts repository.AccountRepository,
	videos repository.VideoRepository,
	comments repository.CommentRepository,
	tweets repository.TweetRepository,
	events queue.Publisher,
) *ToggleService {
	return &ToggleService{
		relations: relations,
		accounts:  accounts,
		videos:    videos,
		comments:  comments,
		tweets:    tweets,
		events:    events,
	}
}

// Toggle creates the actor's edge to the target if absent, or removes it if present.
// Active in the result always matches whether the edge exists afterwards.
func (s *ToggleService) Toggle(ctx context.Context, actorID uuid.UUID, kind model.TargetKind, rawTargetID string) (*model.ToggleResult, error) {
	targetID, err := model.ParseID(rawTargetID)
	if err != nil {
		return nil, err
	}
	if kind, err = model.ParseTargetKind(string(kind)); err != nil {
		return nil, err
	}
	return s.toggle(ctx, model.Edge{ActorID: actorID, Kind: kind, TargetID: targetID})
}

// ToggleLike flips the actor's like of a video, comment or tweet.
func (s *ToggleService) ToggleLike(ctx context.Context, actorID uuid.UUID, target model.LikeTarget) (*model.ToggleResult, error) {
	if target.IsZero() {
		return nil, model.ErrUnknownTargetKind
	}
	return s.toggle(ctx, model.Edge{ActorID: actorID, Kind: target.Kind(), TargetID: target.ID()})
}

// ToggleSubscription flips the subscriber's subscription to a channel.
func (s *ToggleService) ToggleSubscription(ctx context.Context, subscriberID uuid.UUID, rawChannelID string) (*model.ToggleResult, error) {
	return s.Toggle(ctx, subscriberID, model.TargetChannel, rawChannelID)
}

func (s *ToggleService) toggle(ctx context.Context, edge model.Edge) (*model.ToggleResult, error) {
	if edge.Kind == model.TargetChannel && edge.ActorID == edge.TargetID {
		return nil, model.ErrSelfSubscription
	}

	ownerID, err := s.ownerOf(ctx, edge.Kind, edge.TargetID)
	if err != nil {
		return nil, err
	}

	result, err := s.relations.Flip(ctx, edge)
	if err != nil {
		return nil, fmt.Errorf("flip %s: %w", edge.Kind, err)
	}

	metrics.RecordToggle(string(edge.Kind), result.Active)
	s.publish(ctx, edge, ownerID, result.Active)

	return &result, nil
}

// ownerOf resolves the target and returns the account whose stats it feeds.
func (s *ToggleService) ownerOf(ctx context.Context, kind model.TargetKind, id uuid.UUID) (uuid.UUID, error) {
	switch kind {
	case model.TargetVideo:
		v, err := s.videos.GetByID(ctx, id)
		if err != nil {
			return uuid.Nil, err
		}
		return v.OwnerID, nil
	case model.TargetComment:
		c, err := s.comments.GetByID(ctx, id)
		if err != nil {
			return uuid.Nil, err
		}
		return c.OwnerID, nil
	case model.TargetTweet:
		t, err := s.tweets.GetByID(ctx, id)
		if err != nil {
			return uuid.Nil, err
		}
		return t.OwnerID, nil
	case model.TargetChannel:
		a, err := s.accounts.GetByID(ctx, id)
		if err != nil {
			return uuid.Nil, err
		}
		return a.ID, nil
	}
	return uuid.Nil, model.ErrUnknownTargetKind
}

// publish is best effort: the counter was already moved and the reconciler
// repairs any drift a lost event would leave behind.
func (s *ToggleService) publish(ctx context.Context, edge model.Edge, ownerID uuid.UUID, active bool) {
	if s.events == nil {
		return
	}
	event := queue.NewRelationToggledEvent(edge, ownerID, active)
	if _, err := s.events.Publish(ctx, queue.StreamRelations, event); err != nil {
		logging.Ctx(ctx).Warn().Err(err).
			Str("kind", string(edge.Kind)).
			Str("target_id", edge.TargetID.String()).
			Msg("failed to publish relation event")
	}
}
