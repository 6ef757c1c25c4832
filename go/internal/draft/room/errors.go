package room

import "errors"

var (
	// ErrDuplicatePlayer is returned when a player id is already on the roster.
	ErrDuplicatePlayer = errors.New("player already joined")
	// ErrPlayerNotFound is returned by a PlayerDirectory lookup miss.
	ErrPlayerNotFound = errors.New("player not found")
	// ErrRoomNotFound is returned by a RoomDirectory lookup miss.
	ErrRoomNotFound = errors.New("room not found")
	// ErrDraftAlreadyStarted rejects joins once the draft is active.
	ErrDraftAlreadyStarted = errors.New("draft already started")
	// ErrSessionClosed is returned when posting to a session that has stopped.
	ErrSessionClosed = errors.New("session closed")
)
