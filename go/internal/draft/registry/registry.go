package registry

import (
	"context"
	"errors"
	"sort"

	"github.com/mcdev12/corpsdraft/go/internal/draft/room"
	"github.com/rs/zerolog/log"
)

// ErrClosed is returned once the registry has shut down.
var ErrClosed = errors.New("registry closed")

type registryMsg interface{ isRegistryMsg() }

type getOrCreate struct {
	RoomID string
	Reply  chan *room.Session
}

type get struct {
	RoomID string
	Reply  chan *room.Session
}

type remove struct {
	RoomID string
	Reply  chan bool
}

type list struct {
	Reply chan []string
}

type shutdown struct {
	Reply chan []*room.Session
}

type sessionClosed struct {
	RoomID  string
	Session *room.Session
}

func (getOrCreate) isRegistryMsg()   {}
func (get) isRegistryMsg()           {}
func (remove) isRegistryMsg()        {}
func (list) isRegistryMsg()          {}
func (shutdown) isRegistryMsg()      {}
func (sessionClosed) isRegistryMsg() {}

// Registry maps room ids to live draft sessions. Its maps are owned by a
// single goroutine, so at most one session exists per room id. A removed
// session stays in closing until it has stopped, and creates for that room
// wait in waiting until then.
type Registry struct {
	inbox    chan registryMsg
	sessions map[string]*room.Session
	closing  map[string]*room.Session
	waiting  map[string][]chan *room.Session
	cfg      room.Config
	deps     room.Deps
	closed   bool
	ctx      context.Context
	cancel   context.CancelFunc
}

// New starts a registry that builds sessions with cfg and deps.
func New(parent context.Context, cfg room.Config, deps room.Deps) *Registry {
	ctx, cancel := context.WithCancel(parent)
	r := &Registry{
		inbox:    make(chan registryMsg, 64),
		sessions: make(map[string]*room.Session),
		closing:  make(map[string]*room.Session),
		waiting:  make(map[string][]chan *room.Session),
		cfg:      cfg,
		deps:     deps,
		ctx:      ctx,
		cancel:   cancel,
	}
	go r.loop()
	return r
}

// GetOrCreate returns the session for roomID, creating and starting it if
// none is live.
func (r *Registry) GetOrCreate(ctx context.Context, roomID string) (*room.Session, error) {
	reply := make(chan *room.Session, 1)
	if err := r.send(ctx, getOrCreate{RoomID: roomID, Reply: reply}); err != nil {
		return nil, err
	}
	s, err := r.await(ctx, reply)
	if err == nil && s == nil {
		return nil, ErrClosed
	}
	return s, err
}

// Get returns the live session for roomID, or nil.
func (r *Registry) Get(ctx context.Context, roomID string) (*room.Session, error) {
	reply := make(chan *room.Session, 1)
	if err := r.send(ctx, get{RoomID: roomID, Reply: reply}); err != nil {
		return nil, err
	}
	return r.await(ctx, reply)
}

// Remove tears the room down: connections receive draft-cancelled and are
// closed. It reports whether a session existed.
func (r *Registry) Remove(ctx context.Context, roomID string) (bool, error) {
	reply := make(chan bool, 1)
	if err := r.send(ctx, remove{RoomID: roomID, Reply: reply}); err != nil {
		return false, err
	}
	select {
	case ok := <-reply:
		return ok, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

// Rooms lists live room ids in sorted order.
func (r *Registry) Rooms(ctx context.Context) ([]string, error) {
	reply := make(chan []string, 1)
	if err := r.send(ctx, list{Reply: reply}); err != nil {
		return nil, err
	}
	select {
	case ids := <-reply:
		return ids, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Shutdown tells every session the server is going away and waits for them
// to stop or for ctx to expire.
func (r *Registry) Shutdown(ctx context.Context) error {
	reply := make(chan []*room.Session, 1)
	if err := r.send(ctx, shutdown{Reply: reply}); err != nil {
		return err
	}
	var sessions []*room.Session
	select {
	case sessions = <-reply:
	case <-ctx.Done():
		return ctx.Err()
	}

	for _, s := range sessions {
		select {
		case <-s.Done():
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	r.cancel()
	log.Info().Int("rooms", len(sessions)).Msg("registry shut down")
	return nil
}

func (r *Registry) send(ctx context.Context, msg registryMsg) error {
	select {
	case r.inbox <- msg:
		return nil
	case <-r.ctx.Done():
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Registry) await(ctx context.Context, reply chan *room.Session) (*room.Session, error) {
	select {
	case s := <-reply:
		return s, nil
	case <-r.ctx.Done():
		return nil, ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (r *Registry) loop() {
	for {
		select {
		case <-r.ctx.Done():
			return
		case m := <-r.inbox:
			r.handle(m)
		}
	}
}

func (r *Registry) handle(m registryMsg) {
	switch msg := m.(type) {
	case getOrCreate:
		if r.closed {
			msg.Reply <- nil
			return
		}
		if s := r.sessions[msg.RoomID]; s != nil && !stopped(s) {
			msg.Reply <- s
			return
		}
		if _, ok := r.closing[msg.RoomID]; ok {
			r.waiting[msg.RoomID] = append(r.waiting[msg.RoomID], msg.Reply)
			return
		}
		msg.Reply <- r.create(msg.RoomID)

	case get:
		msg.Reply <- r.sessions[msg.RoomID]

	case remove:
		s := r.sessions[msg.RoomID]
		if s == nil {
			msg.Reply <- false
			return
		}
		delete(r.sessions, msg.RoomID)
		r.closing[msg.RoomID] = s
		go s.Post(room.Shutdown{Event: room.DraftCancelled{}})
		log.Info().Str("room_id", msg.RoomID).Msg("room removed")
		msg.Reply <- true

	case list:
		ids := make([]string, 0, len(r.sessions))
		for id := range r.sessions {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		msg.Reply <- ids

	case shutdown:
		r.closed = true
		sessions := make([]*room.Session, 0, len(r.sessions))
		for _, s := range r.sessions {
			sessions = append(sessions, s)
			go s.Post(room.Shutdown{})
		}
		for _, s := range r.closing {
			sessions = append(sessions, s)
		}
		for _, waiters := range r.waiting {
			for _, reply := range waiters {
				reply <- nil
			}
		}
		clear(r.sessions)
		clear(r.closing)
		clear(r.waiting)
		msg.Reply <- sessions

	case sessionClosed:
		if r.closing[msg.RoomID] == msg.Session {
			delete(r.closing, msg.RoomID)
			r.release(msg.RoomID)
			return
		}
		if r.sessions[msg.RoomID] == msg.Session {
			delete(r.sessions, msg.RoomID)
			log.Debug().Str("room_id", msg.RoomID).Msg("closed session dropped")
		}
	}
}

// release hands a fresh session to every create that waited on a removed one.
func (r *Registry) release(roomID string) {
	waiters := r.waiting[roomID]
	delete(r.waiting, roomID)
	if len(waiters) == 0 {
		return
	}
	var s *room.Session
	if !r.closed {
		s = r.create(roomID)
	}
	for _, reply := range waiters {
		reply <- s
	}
}

func stopped(s *room.Session) bool {
	select {
	case <-s.Done():
		return true
	default:
		return false
	}
}

func (r *Registry) create(roomID string) *room.Session {
	s := room.NewSession(roomID, r.cfg, r.deps, func(closed *room.Session) {
		go func() {
			select {
			case r.inbox <- sessionClosed{RoomID: roomID, Session: closed}:
			case <-r.ctx.Done():
			}
		}()
	})
	r.sessions[roomID] = s
	s.Start()
	log.Info().Str("room_id", roomID).Msg("room created")
	return s
}
