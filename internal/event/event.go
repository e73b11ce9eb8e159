package event

import (
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	TypePipelineStarted   Type = "pipeline.started"
	TypePipelineStep      Type = "pipeline.step"
	TypePipelineCompleted Type = "pipeline.completed"
	TypePipelineFailed    Type = "pipeline.failed"
)

type Event struct {
	ID        string `json:"id"`
	Type      Type   `json:"type"`
	Payload   any    `json:"payload"`
	Timestamp string `json:"timestamp"`
	ActorID   string `json:"actorId,omitempty"` // subject of the staff member who started the run
}

func New(eventType Type, actorID string, payload any) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Payload:   payload,
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		ActorID:   actorID,
	}
}

type Bus interface {
	Publish(e Event)
	Subscribe() (<-chan Event, func()) // channel and unsubscribe function
}
