package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mcdev12/hackjudge/go/internal/models"
)

// NewOutboxEvent marshals payload into an outbox row. A nil groupID marks an
// event-wide broadcast.
func NewOutboxEvent(groupID *uuid.UUID, eventType string, payload any, now time.Time) (models.OutboxEvent, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return models.OutboxEvent{}, fmt.Errorf("failed to marshal %s payload: %w", eventType, err)
	}
	return models.OutboxEvent{
		ID:        uuid.New(),
		GroupID:   groupID,
		EventType: eventType,
		Payload:   raw,
		CreatedAt: now,
	}, nil
}

// Subject returns the JetStream subject an event is published on.
func Subject(prefix string, groupID *uuid.UUID, eventType string) string {
	if groupID == nil {
		return fmt.Sprintf("%s.all.%s", prefix, eventType)
	}
	return fmt.Sprintf("%s.group.%s.%s", prefix, groupID.String(), eventType)
}

// Envelope is the JSON body of every message on the event stream.
type Envelope struct {
	EventID   string          `json:"eventId"`
	EventType string          `json:"eventType"`
	GroupID   string          `json:"groupId,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// NewEnvelope wraps an outbox event for publishing.
func NewEnvelope(event models.OutboxEvent, now time.Time) Envelope {
	env := Envelope{
		EventID:   event.ID.String(),
		EventType: event.EventType,
		Timestamp: now.UTC(),
		Payload:   json.RawMessage(event.Payload),
	}
	if event.GroupID != nil {
		env.GroupID = event.GroupID.String()
	}
	return env
}

// Broadcast reports whether the envelope targets every connected client.
func (e Envelope) Broadcast() bool {
	return e.GroupID == ""
}
