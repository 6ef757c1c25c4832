package events

import (
	"time"
)

// Type is the name of a lifecycle event published downstream. It is also the
// last token of the JetStream subject.
type Type string

const (
	DraftStarted   Type = "DraftStarted"
	PickMade       Type = "PickMade"
	TurnSkipped    Type = "TurnSkipped"
	DraftCancelled Type = "DraftCancelled"
	DraftCompleted Type = "DraftCompleted"
)

// Event payload types shared between the room engine and the outbox

// DraftStartedPayload is the payload for a DraftStarted event
type DraftStartedPayload struct {
	RoomID    string    `json:"room_id"`
	StartedAt time.Time `json:"started_at"`
	PickOrder []string  `json:"pick_order"`
	PoolSize  int       `json:"pool_size"`
}

// PickMadePayload is the payload for a PickMade event
type PickMadePayload struct {
	RoomID       string    `json:"room_id"`
	PlayerID     string    `json:"player_id"`
	PlayerName   string    `json:"player_name"`
	CaptionID    string    `json:"caption_id"`
	Corps        string    `json:"corps"`
	Caption      string    `json:"caption"`
	Round        int       `json:"round"`
	TurnSequence uint64    `json:"turn_sequence"`
	AutoPick     bool      `json:"auto_pick"`
	MadeAt       time.Time `json:"made_at"`
}

// TurnSkippedPayload is the payload for a TurnSkipped event, emitted when a
// turn is forced forward without a selection.
type TurnSkippedPayload struct {
	RoomID       string    `json:"room_id"`
	PlayerID     string    `json:"player_id"`
	Round        int       `json:"round"`
	TurnSequence uint64    `json:"turn_sequence"`
	SkippedAt    time.Time `json:"skipped_at"`
}

// DraftCancelledPayload is the payload for a DraftCancelled event
type DraftCancelledPayload struct {
	RoomID      string    `json:"room_id"`
	CancelledAt time.Time `json:"cancelled_at"`
	Reason      string    `json:"reason"`
}

// DraftCompletedPayload is the payload for a DraftCompleted event
type DraftCompletedPayload struct {
	RoomID      string    `json:"room_id"`
	CompletedAt time.Time `json:"completed_at"`
	Leftovers   int       `json:"leftovers"`
}
