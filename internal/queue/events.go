package queue

import (
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"videotube/internal/model"
)

// Event types for the relation stream
const (
	EventRelationToggled = "relation_toggled"
)

// Stream names
const (
	StreamRelations = "stream:relations"
)

// Consumer group name for counter workers
const (
	ConsumerGroupCounters = "counter_workers"
)

// RelationEvent is published after every toggle. Workers use it to repair the
// target's cached counter and drop the owner's cached channel stats.
type RelationEvent struct {
	Type      string           `json:"type"`
	Timestamp int64            `json:"timestamp"`
	ActorID   uuid.UUID        `json:"actor_id"`
	Kind      model.TargetKind `json:"kind"`
	TargetID  uuid.UUID        `json:"target_id"`
	// OwnerID is the account whose stats depend on the target. For channels it
	// is the channel itself.
	OwnerID uuid.UUID `json:"owner_id"`
	Active  bool      `json:"active"`
}

// NewRelationToggledEvent builds the event for one toggle outcome.
func NewRelationToggledEvent(edge model.Edge, ownerID uuid.UUID, active bool) RelationEvent {
	return RelationEvent{
		Type:      EventRelationToggled,
		Timestamp: time.Now().Unix(),
		ActorID:   edge.ActorID,
		Kind:      edge.Kind,
		TargetID:  edge.TargetID,
		OwnerID:   ownerID,
		Active:    active,
	}
}

// ToMap converts the event to XADD field-value pairs. The payload lives in "data".
func (e RelationEvent) ToMap() (map[string]interface{}, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}
	return map[string]interface{}{
		"type": e.Type,
		"data": string(data),
	}, nil
}

// ParseRelationEvent parses a RelationEvent from stream message values.
func ParseRelationEvent(values map[string]interface{}) (RelationEvent, error) {
	data, ok := values["data"].(string)
	if !ok {
		return RelationEvent{}, fmt.Errorf("missing or invalid 'data' field")
	}

	var event RelationEvent
	if err := json.Unmarshal([]byte(data), &event); err != nil {
		return RelationEvent{}, fmt.Errorf("unmarshal event: %w", err)
	}
	return event, nil
}
