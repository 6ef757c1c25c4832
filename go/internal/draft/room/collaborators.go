package room

import (
	"context"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/corpsdraft/go/internal/draft/events"
	"github.com/mcdev12/corpsdraft/go/internal/models"
)

// Conn is the session's handle on one client connection. Send must not block;
// Close must be safe to call more than once.
type Conn interface {
	ID() string
	Send(ev Event)
	Close()
}

// PlayerDirectory resolves player identities. A miss returns ErrPlayerNotFound.
type PlayerDirectory interface {
	FindPlayer(ctx context.Context, id string) (*models.Player, error)
}

// RoomDirectory resolves the tour backing a room. A miss returns ErrRoomNotFound.
type RoomDirectory interface {
	FindRoom(ctx context.Context, id string) (*models.Tour, error)
	MarkComplete(ctx context.Context, id string) error
}

// LeftoverSink persists the conclusion record of a draft.
type LeftoverSink interface {
	RecordLeftovers(ctx context.Context, record models.RemainingPicks) error
}

// Catalog supplies the captions a draft starts with.
type Catalog interface {
	AllItems(ctx context.Context) ([]models.Caption, error)
}

// Journal receives lifecycle events for downstream consumers. Append must not
// block the caller.
type Journal interface {
	Append(roomID string, eventType events.Type, payload any)
}

// Deps groups the collaborators a session needs. Journal and Clock are optional.
type Deps struct {
	Players   PlayerDirectory
	Rooms     RoomDirectory
	Leftovers LeftoverSink
	Catalog   Catalog
	Journal   Journal
	Clock     clockwork.Clock
}

type noopJournal struct{}

func (noopJournal) Append(string, events.Type, any) {}
