package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/corpsdraft/go/internal/draft/events"
)

// ErrEventNotFound is returned when an outbox row is missing or already sent.
var ErrEventNotFound = errors.New("outbox event not found or already sent")

// OutboxEvent is one row of draft_outbox
type OutboxEvent struct {
	ID        uuid.UUID       `json:"id"`
	RoomID    string          `json:"room_id"`
	EventType string          `json:"event_type"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
	SentAt    *time.Time      `json:"sent_at,omitempty"`
}

// Publisher delivers an outbox event downstream.
type Publisher interface {
	Publish(ctx context.Context, event OutboxEvent) error
}

// NewEvent builds an unsent outbox event with a fresh id.
func NewEvent(roomID string, eventType events.Type, payload any) (OutboxEvent, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return OutboxEvent{}, fmt.Errorf("failed to marshal %s payload: %w", eventType, err)
	}
	return OutboxEvent{
		ID:        uuid.New(),
		RoomID:    roomID,
		EventType: string(eventType),
		Payload:   data,
		CreatedAt: time.Now().UTC(),
	}, nil
}
