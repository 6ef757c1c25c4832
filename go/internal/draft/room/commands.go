package room

import "github.com/mcdev12/corpsdraft/go/internal/models"

// Msg is anything a session's inbox accepts.
type Msg interface{ isMsg() }

// Identify binds Conn to PlayerID once both the player and the room resolve.
type Identify struct {
	Conn     Conn
	PlayerID string
}

// StartDraft begins the countdown. Owner only.
type StartDraft struct{ Conn Conn }

// CancelCountdown aborts a pending countdown. Owner only.
type CancelCountdown struct{ Conn Conn }

// CancelDraft aborts an active draft and resets the room. Owner only.
type CancelDraft struct{ Conn Conn }

// SubmitPick ends the current turn with ItemID. Sequence, when set, must match
// the live turn or the pick is dropped as stale.
type SubmitPick struct {
	Conn     Conn
	ItemID   string
	Auto     bool
	Sequence *uint64
}

// LineupComplete removes the sender from the roster after drafting.
type LineupComplete struct{ Conn Conn }

// Disconnected reports that Conn is gone.
type Disconnected struct{ Conn Conn }

// Shutdown sends Event (server-shutdown when nil) to every connection,
// disconnects them and stops the session.
type Shutdown struct{ Event Event }

// GetSnapshot asks for a read-only view of the session.
type GetSnapshot struct{ Reply chan Snapshot }

type identifyResolved struct {
	conn      Conn
	playerID  string
	player    *models.Player
	playerErr error
	tour      *models.Tour
	tourErr   error
}

type catalogLoaded struct {
	gen   uint64
	items []models.Caption
	err   error
}

type countdownElapsed struct{ gen uint64 }

// turnTick is the n-th tick of turn seq, counting from 1.
type turnTick struct {
	seq uint64
	n   int
}

type turnExpired struct{ seq uint64 }

type graceExpired struct{ seq uint64 }

func (Identify) isMsg()         {}
func (StartDraft) isMsg()       {}
func (CancelCountdown) isMsg()  {}
func (CancelDraft) isMsg()      {}
func (SubmitPick) isMsg()       {}
func (LineupComplete) isMsg()   {}
func (Disconnected) isMsg()     {}
func (Shutdown) isMsg()         {}
func (GetSnapshot) isMsg()      {}
func (identifyResolved) isMsg() {}
func (catalogLoaded) isMsg()    {}
func (countdownElapsed) isMsg() {}
func (turnTick) isMsg()         {}
func (turnExpired) isMsg()      {}
func (graceExpired) isMsg()     {}
