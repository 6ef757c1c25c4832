package room

import "github.com/mcdev12/corpsdraft/go/internal/models"

// EventType names an outbound event on the wire.
type EventType string

const (
	EventRosterUpdated       EventType = "roster-updated"
	EventDraftState          EventType = "draft-state"
	EventCountdownBegin      EventType = "countdown-begin"
	EventCountdownCancelled  EventType = "countdown-cancelled"
	EventDraftBegin          EventType = "draft-begin"
	EventTurnStarted         EventType = "turn-started"
	EventTick                EventType = "tick"
	EventPickAccepted        EventType = "pick-accepted"
	EventNoPickWarning       EventType = "no-pick-warning"
	EventPoolExhausted       EventType = "pool-exhausted"
	EventDraftCancelled      EventType = "draft-cancelled"
	EventDraftConcluded      EventType = "draft-concluded"
	EventDuplicatePlayer     EventType = "duplicate-player"
	EventPlayerNotFound      EventType = "player-not-found"
	EventRoomNotFound        EventType = "room-not-found"
	EventDraftAlreadyStarted EventType = "draft-already-started"
	EventServerError         EventType = "server-error"
	EventServerShutdown      EventType = "server-shutdown"
)

// Event is an outbound message from a session to its connections.
type Event interface {
	Type() EventType
}

// RosterUpdated carries the full roster in join order.
type RosterUpdated struct {
	Players []models.Player `json:"players"`
}

// DraftState is sent to a connection right after it joins.
type DraftState struct {
	CountingDown bool `json:"countingDown"`
	Started      bool `json:"started"`
}

// CountdownBegin announces the pre-draft countdown.
type CountdownBegin struct {
	Seconds float64 `json:"seconds"`
}

type CountdownCancelled struct{}

type DraftBegin struct{}

// TurnStarted announces a new live turn.
type TurnStarted struct {
	Sequence  uint64           `json:"sequence"`
	Current   models.Player    `json:"current"`
	Next      models.Player    `json:"next"`
	Remaining []models.Caption `json:"remaining"`
	Round     int              `json:"round"`
}

// Tick reports the seconds left in the live turn.
type Tick struct {
	Sequence  uint64 `json:"sequence"`
	Remaining int    `json:"remaining"`
}

// PickAccepted reports the caption taken by Player. Auto is set for
// client-side auto-picks.
type PickAccepted struct {
	Player models.Player  `json:"player"`
	Item   models.Caption `json:"item"`
	Auto   bool           `json:"auto"`
}

// NoPickWarning goes only to the current picker once the turn timer runs out.
type NoPickWarning struct {
	Sequence uint64 `json:"sequence"`
}

type PoolExhausted struct{}

type DraftCancelled struct{}

// DraftConcluded carries the captions nobody picked.
type DraftConcluded struct {
	Leftovers []models.Caption `json:"leftovers"`
}

type DuplicatePlayer struct {
	PlayerID string `json:"playerId"`
}

type PlayerNotFound struct {
	PlayerID string `json:"playerId"`
}

type RoomNotFound struct {
	RoomID string `json:"roomId"`
}

type DraftAlreadyStarted struct{}

type ServerError struct {
	Message string `json:"message"`
}

type ServerShutdown struct{}

func (RosterUpdated) Type() EventType       { return EventRosterUpdated }
func (DraftState) Type() EventType          { return EventDraftState }
func (CountdownBegin) Type() EventType      { return EventCountdownBegin }
func (CountdownCancelled) Type() EventType  { return EventCountdownCancelled }
func (DraftBegin) Type() EventType          { return EventDraftBegin }
func (TurnStarted) Type() EventType         { return EventTurnStarted }
func (Tick) Type() EventType                { return EventTick }
func (PickAccepted) Type() EventType        { return EventPickAccepted }
func (NoPickWarning) Type() EventType       { return EventNoPickWarning }
func (PoolExhausted) Type() EventType       { return EventPoolExhausted }
func (DraftCancelled) Type() EventType      { return EventDraftCancelled }
func (DraftConcluded) Type() EventType      { return EventDraftConcluded }
func (DuplicatePlayer) Type() EventType     { return EventDuplicatePlayer }
func (PlayerNotFound) Type() EventType      { return EventPlayerNotFound }
func (RoomNotFound) Type() EventType        { return EventRoomNotFound }
func (DraftAlreadyStarted) Type() EventType { return EventDraftAlreadyStarted }
func (ServerError) Type() EventType         { return EventServerError }
func (ServerShutdown) Type() EventType      { return EventServerShutdown }
