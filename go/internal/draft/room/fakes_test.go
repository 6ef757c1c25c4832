package room

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/corpsdraft/go/internal/draft/events"
	"github.com/mcdev12/corpsdraft/go/internal/models"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	id     string
	mu     sync.Mutex
	events []Event
	closed bool
}

func newConn(id string) *fakeConn { return &fakeConn{id: id} }

func (c *fakeConn) ID() string { return c.id }

func (c *fakeConn) Send(ev Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
}

func (c *fakeConn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *fakeConn) ofType(t EventType) []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []Event
	for _, ev := range c.events {
		if ev.Type() == t {
			out = append(out, ev)
		}
	}
	return out
}

func (c *fakeConn) lastTurn(t *testing.T) TurnStarted {
	t.Helper()
	turns := c.ofType(EventTurnStarted)
	require.NotEmpty(t, turns, "connection %s saw no turn-started", c.id)
	return turns[len(turns)-1].(TurnStarted)
}

type fakeDirectory struct {
	mu        sync.Mutex
	players   map[string]models.Player
	tours     map[string]models.Tour
	lookupErr error
	completed []string
}

func (d *fakeDirectory) FindPlayer(_ context.Context, id string) (*models.Player, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.lookupErr != nil {
		return nil, d.lookupErr
	}
	p, ok := d.players[id]
	if !ok {
		return nil, ErrPlayerNotFound
	}
	return &p, nil
}

func (d *fakeDirectory) FindRoom(_ context.Context, id string) (*models.Tour, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	t, ok := d.tours[id]
	if !ok {
		return nil, ErrRoomNotFound
	}
	return &t, nil
}

func (d *fakeDirectory) MarkComplete(_ context.Context, id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.completed = append(d.completed, id)
	return nil
}

func (d *fakeDirectory) completedRooms() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.completed...)
}

type fakeSink struct {
	records chan models.RemainingPicks
	err     error
}

func (f *fakeSink) RecordLeftovers(_ context.Context, record models.RemainingPicks) error {
	f.records <- record
	return f.err
}

type fakeCatalog struct {
	items []models.Caption
	err   error
}

func (f *fakeCatalog) AllItems(context.Context) ([]models.Caption, error) {
	if f.err != nil {
		return nil, f.err
	}
	return append([]models.Caption(nil), f.items...), nil
}

type journalEntry struct {
	roomID    string
	eventType events.Type
	payload   any
}

type fakeJournal struct {
	mu      sync.Mutex
	entries []journalEntry
}

func (j *fakeJournal) Append(roomID string, eventType events.Type, payload any) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = append(j.entries, journalEntry{roomID, eventType, payload})
}

func (j *fakeJournal) types() []events.Type {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]events.Type, len(j.entries))
	for i, e := range j.entries {
		out[i] = e.eventType
	}
	return out
}

const testRoom = "tour-1"

var errLookup = errors.New("connection refused")

func captions(ids ...string) []models.Caption {
	out := make([]models.Caption, len(ids))
	for i, id := range ids {
		out[i] = models.Caption{ID: id, Corps: "Corps " + id, Caption: "Brass"}
	}
	return out
}

// harness drives a session on the test goroutine. Messages posted by timer
// and lookup goroutines are pulled from the inbox with pump.
type harness struct {
	t       *testing.T
	s       *Session
	clock   *clockwork.FakeClock
	dir     *fakeDirectory
	sink    *fakeSink
	catalog *fakeCatalog
	journal *fakeJournal
	closed  chan struct{}
}

func newHarness(t *testing.T, ownerID string, items []models.Caption) *harness {
	t.Helper()
	h := &harness{
		t:     t,
		clock: clockwork.NewFakeClock(),
		dir: &fakeDirectory{
			players: map[string]models.Player{},
			tours: map[string]models.Tour{
				testRoom: {ID: testRoom, Name: "Summer Tour", OwnerID: ownerID},
			},
		},
		sink:    &fakeSink{records: make(chan models.RemainingPicks, 1)},
		catalog: &fakeCatalog{items: items},
		journal: &fakeJournal{},
		closed:  make(chan struct{}),
	}
	h.s = NewSession(testRoom, DefaultConfig(), Deps{
		Players:   h.dir,
		Rooms:     h.dir,
		Leftovers: h.sink,
		Catalog:   h.catalog,
		Journal:   h.journal,
		Clock:     h.clock,
	}, func(*Session) { close(h.closed) })
	return h
}

func (h *harness) addPlayer(id string) {
	h.dir.mu.Lock()
	defer h.dir.mu.Unlock()
	h.dir.players[id] = models.Player{ID: id, DisplayName: "Player " + id}
}

// pump handles the next queued message.
func (h *harness) pump() Msg {
	h.t.Helper()
	select {
	case m := <-h.s.inbox:
		h.s.handle(m)
		return m
	case <-time.After(2 * time.Second):
		h.t.Fatal("timed out waiting for session message")
		return nil
	}
}

// pumpUntil handles queued messages until cond holds.
func (h *harness) pumpUntil(cond func() bool) {
	h.t.Helper()
	for !cond() {
		h.pump()
	}
}

func (h *harness) join(playerID string) *fakeConn {
	h.t.Helper()
	h.addPlayer(playerID)
	conn := newConn("conn-" + playerID)
	h.s.handle(Identify{Conn: conn, PlayerID: playerID})
	h.pumpUntil(func() bool {
		return h.s.roster.IndexOfConn(conn) >= 0 || conn.isClosed()
	})
	return conn
}

func (h *harness) activate(owner *fakeConn) {
	h.t.Helper()
	h.s.handle(StartDraft{Conn: owner})
	require.Equal(h.t, StateCountingDown, h.s.state)
	h.clock.Advance(h.s.cfg.Countdown)
	h.pumpUntil(func() bool { return h.s.state == StateActive })
}

func (h *harness) pick(conn *fakeConn, itemID string) {
	h.s.handle(SubmitPick{Conn: conn, ItemID: itemID})
}
