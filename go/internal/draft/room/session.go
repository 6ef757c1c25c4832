package room

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/corpsdraft/go/internal/models"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// State is the lifecycle stage of a draft room.
type State int

const (
	StateLobby State = iota
	StateCountingDown
	StateActive
	StateConcluded
)

func (s State) String() string {
	switch s {
	case StateLobby:
		return "lobby"
	case StateCountingDown:
		return "counting_down"
	case StateActive:
		return "active"
	case StateConcluded:
		return "concluded"
	default:
		return "unknown"
	}
}

// Snapshot is a read-only view of a session.
type Snapshot struct {
	RoomID       string           `json:"roomId"`
	State        string           `json:"state"`
	Players      []models.Player  `json:"players"`
	Connections  int              `json:"connections"`
	Remaining    int              `json:"remaining"`
	TurnSequence uint64           `json:"turnSequence"`
	TurnIndex    int              `json:"turnIndex"`
	Round        int              `json:"round"`
	Current      *models.Player   `json:"current,omitempty"`
	LastPick     *models.Caption  `json:"lastPick,omitempty"`
	Leftovers    []models.Caption `json:"-"`
}

// pendingDraft tracks a countdown until both the timer and the catalog load
// have completed.
type pendingDraft struct {
	gen     uint64
	elapsed bool
	loaded  bool
	items   []models.Caption
}

// Session is the single serialization point for one room. All state below the
// inbox is owned by the session goroutine.
type Session struct {
	id      string
	cfg     Config
	deps    Deps
	clock   clockwork.Clock
	sched   *Scheduler
	logger  zerolog.Logger
	onClose func(*Session)

	inbox    chan Msg
	done     chan struct{}
	stopOnce sync.Once
	ctx      context.Context
	cancel   context.CancelFunc

	state        State
	tour         *models.Tour
	conns        map[string]Conn
	roster       Roster
	pool         *Pool
	turnSequence uint64
	turnIndex    int
	round        int
	lastPick     *models.Caption
	countdownGen uint64
	pending      *pendingDraft
	startedAt    time.Time
}

// NewSession creates a session for roomID. Call Start to run it.
// onClose, if set, runs once after the session stops.
func NewSession(roomID string, cfg Config, deps Deps, onClose func(*Session)) *Session {
	cfg = cfg.withDefaults()
	if deps.Clock == nil {
		deps.Clock = clockwork.NewRealClock()
	}
	if deps.Journal == nil {
		deps.Journal = noopJournal{}
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		id:      roomID,
		cfg:     cfg,
		deps:    deps,
		clock:   deps.Clock,
		logger:  log.With().Str("room_id", roomID).Logger(),
		onClose: onClose,
		inbox:   make(chan Msg, cfg.InboxSize),
		done:    make(chan struct{}),
		ctx:     ctx,
		cancel:  cancel,
		state:   StateLobby,
		conns:   make(map[string]Conn),
		pool:    NewPool(),
	}
	s.sched = NewScheduler(s.clock, cfg, s.logger, s.post)
	return s
}

// Start runs the session loop in its own goroutine.
func (s *Session) Start() {
	go s.loop()
}

// ID returns the room id.
func (s *Session) ID() string { return s.id }

// Done is closed once the session has stopped.
func (s *Session) Done() <-chan struct{} { return s.done }

// Post queues msg for the session. It returns ErrSessionClosed once the
// session has stopped.
func (s *Session) Post(msg Msg) error {
	select {
	case <-s.done:
		return ErrSessionClosed
	default:
	}
	if !s.post(msg) {
		return ErrSessionClosed
	}
	return nil
}

// Snapshot returns a view of the session taken on the session goroutine.
func (s *Session) Snapshot(ctx context.Context) (Snapshot, error) {
	reply := make(chan Snapshot, 1)
	if err := s.Post(GetSnapshot{Reply: reply}); err != nil {
		return Snapshot{}, err
	}
	select {
	case snap := <-reply:
		return snap, nil
	case <-s.done:
		return Snapshot{}, ErrSessionClosed
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}
}

func (s *Session) post(msg Msg) bool {
	select {
	case s.inbox <- msg:
		return true
	case <-s.done:
		return false
	}
}

func (s *Session) loop() {
	s.logger.Info().Msg("draft session started")
	for {
		select {
		case msg := <-s.inbox:
			s.handle(msg)
		case <-s.done:
			return
		}
	}
}

func (s *Session) handle(msg Msg) {
	switch m := msg.(type) {
	case Identify:
		s.handleIdentify(m)
	case identifyResolved:
		s.handleIdentifyResolved(m)
	case StartDraft:
		s.handleStartDraft(m)
	case CancelCountdown:
		s.handleCancelCountdown(m)
	case catalogLoaded:
		s.handleCatalogLoaded(m)
	case countdownElapsed:
		s.handleCountdownElapsed(m)
	case SubmitPick:
		s.handleSubmitPick(m)
	case turnTick:
		s.handleTick(m)
	case turnExpired:
		s.handleTurnExpired(m)
	case graceExpired:
		s.handleGraceExpired(m)
	case CancelDraft:
		s.handleCancelDraft(m)
	case LineupComplete:
		s.handleLineupComplete(m)
	case Disconnected:
		s.handleDisconnected(m)
	case Shutdown:
		s.handleShutdown(m)
	case GetSnapshot:
		m.Reply <- s.snapshot()
	default:
		s.logger.Warn().Type("msg", msg).Msg("unhandled session message")
	}
}

func (s *Session) snapshot() Snapshot {
	snap := Snapshot{
		RoomID:       s.id,
		State:        s.state.String(),
		Players:      s.roster.Members(),
		Connections:  len(s.conns),
		Remaining:    s.pool.Len(),
		TurnSequence: s.turnSequence,
		TurnIndex:    s.turnIndex,
		Round:        s.round,
		Leftovers:    s.pool.Remaining(),
	}
	if s.state == StateActive && s.roster.Len() > 0 {
		current := s.roster.At(s.turnIndex).Player
		snap.Current = &current
	}
	if s.lastPick != nil {
		last := *s.lastPick
		snap.LastPick = &last
	}
	return snap
}

// identification

func (s *Session) handleIdentify(m Identify) {
	if m.Conn == nil {
		return
	}
	// A connection identifies once, whether its lookup is pending or done.
	if _, ok := s.conns[m.Conn.ID()]; ok || s.roster.IndexOfConn(m.Conn) >= 0 {
		s.logger.Warn().Str("connection_id", m.Conn.ID()).Msg("connection already identified")
		return
	}
	s.conns[m.Conn.ID()] = m.Conn

	go func() {
		ctx, cancel := context.WithTimeout(s.ctx, s.cfg.LookupTimeout)
		defer cancel()

		res := identifyResolved{conn: m.Conn, playerID: m.PlayerID}
		res.player, res.playerErr = s.deps.Players.FindPlayer(ctx, m.PlayerID)
		if res.playerErr == nil && res.player != nil {
			res.tour, res.tourErr = s.deps.Rooms.FindRoom(ctx, s.id)
		}
		s.post(res)
	}()
}

func (s *Session) handleIdentifyResolved(r identifyResolved) {
	if _, ok := s.conns[r.conn.ID()]; !ok {
		return
	}

	switch {
	case r.playerErr == nil && r.player == nil, errors.Is(r.playerErr, ErrPlayerNotFound):
		s.reject(r.conn, PlayerNotFound{PlayerID: r.playerID})
		return
	case r.playerErr != nil:
		s.logger.Error().Err(r.playerErr).Str("player_id", r.playerID).Msg("player lookup failed")
		s.reject(r.conn, ServerError{Message: "player lookup failed"})
		return
	case r.tourErr == nil && r.tour == nil, errors.Is(r.tourErr, ErrRoomNotFound):
		s.reject(r.conn, RoomNotFound{RoomID: s.id})
		return
	case r.tourErr != nil:
		s.logger.Error().Err(r.tourErr).Msg("room lookup failed")
		s.reject(r.conn, ServerError{Message: "room lookup failed"})
		return
	}

	s.tour = r.tour
	if s.state == StateActive || r.tour.DraftComplete {
		s.reject(r.conn, DraftAlreadyStarted{})
		return
	}
	if err := s.roster.Join(*r.player, r.conn); err != nil {
		s.logger.Warn().Str("player_id", r.player.ID).Msg("duplicate player rejected")
		s.reject(r.conn, DuplicatePlayer{PlayerID: r.player.ID})
		return
	}

	s.logger.Info().
		Str("player_id", r.player.ID).
		Str("connection_id", r.conn.ID()).
		Int("roster_size", s.roster.Len()).
		Msg("player joined")

	r.conn.Send(DraftState{
		CountingDown: s.state == StateCountingDown,
		Started:      s.state == StateActive,
	})
	s.broadcast(RosterUpdated{Players: s.roster.Members()})
}

func (s *Session) reject(conn Conn, ev Event) {
	conn.Send(ev)
	conn.Close()
	delete(s.conns, conn.ID())
	if s.dropMember(conn) {
		return
	}
	s.retireIfIdle()
}

func (s *Session) isOwner(conn Conn) bool {
	entry, ok := s.roster.Lookup(conn)
	return ok && s.tour.IsOwnedBy(entry.Player.ID)
}

// countdown

func (s *Session) handleStartDraft(m StartDraft) {
	if s.state != StateLobby || !s.isOwner(m.Conn) || s.roster.Len() == 0 {
		s.logger.Debug().Str("state", s.state.String()).Msg("start draft rejected")
		return
	}

	s.state = StateCountingDown
	s.countdownGen++
	gen := s.countdownGen
	s.pending = &pendingDraft{gen: gen}
	s.sched.StartCountdown(gen)

	go func() {
		ctx, cancel := context.WithTimeout(s.ctx, s.cfg.LookupTimeout)
		defer cancel()
		items, err := s.deps.Catalog.AllItems(ctx)
		s.post(catalogLoaded{gen: gen, items: items, err: err})
	}()

	s.logger.Info().Dur("countdown", s.cfg.Countdown).Msg("draft countdown started")
	s.broadcast(CountdownBegin{Seconds: s.cfg.Countdown.Seconds()})
}

func (s *Session) handleCancelCountdown(m CancelCountdown) {
	if s.state != StateCountingDown || !s.isOwner(m.Conn) {
		return
	}
	s.abortCountdown()
	s.logger.Info().Msg("draft countdown cancelled")
	s.broadcast(CountdownCancelled{})
}

func (s *Session) abortCountdown() {
	s.sched.CancelCountdown()
	s.pending = nil
	s.state = StateLobby
}

func (s *Session) handleCatalogLoaded(m catalogLoaded) {
	if s.state != StateCountingDown || s.pending == nil || s.pending.gen != m.gen {
		return
	}
	if m.err != nil {
		s.logger.Error().Err(m.err).Msg("failed to load catalog")
		s.abortCountdown()
		s.broadcast(CountdownCancelled{})
		return
	}
	s.pending.items = m.items
	s.pending.loaded = true
	if !s.pending.elapsed {
		return
	}
	if s.roster.Len() == 0 {
		s.abortCountdown()
		s.retireIfIdle()
		return
	}
	s.activate()
}

func (s *Session) handleCountdownElapsed(m countdownElapsed) {
	if s.state != StateCountingDown || s.pending == nil || s.pending.gen != m.gen {
		return
	}
	if s.roster.Len() == 0 {
		s.logger.Info().Msg("countdown elapsed with empty roster")
		s.abortCountdown()
		s.retireIfIdle()
		return
	}
	s.pending.elapsed = true
	if s.pending.loaded {
		s.activate()
	}
}

// stop cancels every timer and marks the session done. Idempotent.
func (s *Session) stop() {
	s.stopOnce.Do(func() {
		s.sched.Cancel()
		s.cancel()
		close(s.done)
		s.logger.Info().Str("state", s.state.String()).Msg("draft session stopped")
		if s.onClose != nil {
			s.onClose(s)
		}
	})
}

func (s *Session) retireIfIdle() {
	if s.state == StateLobby && len(s.conns) == 0 {
		s.stop()
	}
}

func (s *Session) broadcast(ev Event) {
	for _, c := range s.conns {
		c.Send(ev)
	}
}

func (s *Session) disconnectAll() {
	for id, c := range s.conns {
		c.Close()
		delete(s.conns, id)
	}
}

func (s *Session) handleShutdown(m Shutdown) {
	ev := m.Event
	if ev == nil {
		ev = ServerShutdown{}
	}
	s.sched.Cancel()
	s.broadcast(ev)
	s.disconnectAll()
	s.stop()
}
