package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/mcdev12/corpsdraft/go/internal/draft/room"
	"github.com/rs/zerolog/log"
)

// SessionProvider resolves the draft session for a room.
type SessionProvider interface {
	GetOrCreate(ctx context.Context, roomID string) (*room.Session, error)
}

// ConnectionManager manages WebSocket connections for draft rooms
type ConnectionManager struct {
	// Connection pools organized by room ID
	roomConnections map[string]map[*Connection]bool
	mu              sync.RWMutex

	upgrader websocket.Upgrader
	config   ConnectionConfig
	sessions SessionProvider
}

// Connection is one client socket. It implements room.Conn.
type Connection struct {
	id      string
	roomID  string
	conn    *websocket.Conn
	send    chan []byte
	manager *ConnectionManager

	mu      sync.Mutex
	closed  bool
	session *room.Session

	ConnectedAt time.Time
}

// ConnectionConfig holds configuration for WebSocket connections
type ConnectionConfig struct {
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	PingInterval    time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	SendBufferSize  int
	CheckOrigin     func(r *http.Request) bool
}

// DefaultConnectionConfig returns default WebSocket configuration
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		MaxMessageSize:  4096,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		SendBufferSize:  256,
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}
}

// NewConnectionManager creates a new WebSocket connection manager
func NewConnectionManager(config ConnectionConfig, sessions SessionProvider) *ConnectionManager {
	return &ConnectionManager{
		roomConnections: make(map[string]map[*Connection]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		config:   config,
		sessions: sessions,
	}
}

// UpgradeConnection upgrades an HTTP connection to WebSocket and starts its pumps.
func (cm *ConnectionManager) UpgradeConnection(w http.ResponseWriter, r *http.Request, roomID string) error {
	conn, err := cm.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return fmt.Errorf("failed to upgrade connection: %w", err)
	}

	connection := &Connection{
		id:          uuid.New().String(),
		roomID:      roomID,
		conn:        conn,
		send:        make(chan []byte, cm.config.SendBufferSize),
		manager:     cm,
		ConnectedAt: time.Now(),
	}

	cm.registerConnection(connection)

	go connection.writePump()
	go connection.readPump()

	log.Info().
		Str("connection_id", connection.id).
		Str("room_id", roomID).
		Msg("WebSocket connection established")

	return nil
}

func (cm *ConnectionManager) registerConnection(conn *Connection) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if cm.roomConnections[conn.roomID] == nil {
		cm.roomConnections[conn.roomID] = make(map[*Connection]bool)
	}
	cm.roomConnections[conn.roomID][conn] = true

	log.Debug().
		Str("connection_id", conn.id).
		Str("room_id", conn.roomID).
		Int("total_connections", len(cm.roomConnections[conn.roomID])).
		Msg("connection registered")
}

func (cm *ConnectionManager) unregisterConnection(conn *Connection) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	connections, exists := cm.roomConnections[conn.roomID]
	if !exists || !connections[conn] {
		return
	}
	delete(connections, conn)
	if len(connections) == 0 {
		delete(cm.roomConnections, conn.roomID)
	}

	log.Info().
		Str("connection_id", conn.id).
		Str("room_id", conn.roomID).
		Msg("connection unregistered")
}

// ConnectionStats summarises live connections
type ConnectionStats struct {
	TotalConnections int            `json:"total_connections"`
	ActiveRooms      int            `json:"active_rooms"`
	RoomConnections  map[string]int `json:"room_connections"`
}

// GetConnectionStats returns statistics about active connections
func (cm *ConnectionManager) GetConnectionStats() ConnectionStats {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	stats := ConnectionStats{
		ActiveRooms:     len(cm.roomConnections),
		RoomConnections: make(map[string]int, len(cm.roomConnections)),
	}
	for roomID, connections := range cm.roomConnections {
		stats.TotalConnections += len(connections)
		stats.RoomConnections[roomID] = len(connections)
	}
	return stats
}

// ID implements room.Conn.
func (c *Connection) ID() string { return c.id }

// Send implements room.Conn. A full send buffer closes the connection.
func (c *Connection) Send(ev room.Event) {
	data, err := EncodeEvent(c.roomID, ev, time.Now())
	if err != nil {
		log.Error().Err(err).Str("connection_id", c.id).Msg("failed to encode event")
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- data:
	default:
		log.Warn().
			Str("connection_id", c.id).
			Str("room_id", c.roomID).
			Msg("connection send buffer full, closing connection")
		c.closeLocked()
	}
}

// Close implements room.Conn. Queued frames are flushed before the close frame.
func (c *Connection) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeLocked()
}

func (c *Connection) closeLocked() {
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

func (c *Connection) attached() *room.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

func (c *Connection) attach(s *room.Session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.session = s
}

// writePump handles sending messages to the WebSocket connection
func (c *Connection) writePump() {
	ticker := time.NewTicker(c.manager.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.manager.config.WriteTimeout))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Error().
					Err(err).
					Str("connection_id", c.id).
					Msg("failed to write message to WebSocket")
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.manager.config.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Error().
					Err(err).
					Str("connection_id", c.id).
					Msg("failed to send ping")
				return
			}
		}
	}
}

// readPump reads client frames and forwards them to the room's session
func (c *Connection) readPump() {
	defer func() {
		c.manager.unregisterConnection(c)
		if s := c.attached(); s != nil {
			_ = s.Post(room.Disconnected{Conn: c})
		}
		c.Close()
		c.conn.Close()
	}()

	c.conn.SetReadLimit(c.manager.config.MaxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(c.manager.config.ReadTimeout))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.manager.config.ReadTimeout))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Error().
					Err(err).
					Str("connection_id", c.id).
					Msg("unexpected WebSocket close error")
			}
			return
		}

		c.handleClientMessage(message)
		_ = c.conn.SetReadDeadline(time.Now().Add(c.manager.config.ReadTimeout))
	}
}

// handleClientMessage decodes one frame and posts it to the session. The
// first identify resolves the session; everything before it is dropped.
func (c *Connection) handleClientMessage(message []byte) {
	msg, err := DecodeCommand(c, message)
	if err != nil {
		log.Warn().
			Err(err).
			Str("connection_id", c.id).
			Msg("ignoring client message")
		return
	}

	s := c.attached()
	if s == nil {
		if _, ok := msg.(room.Identify); !ok {
			log.Debug().Str("connection_id", c.id).Msg("command before identify dropped")
			return
		}
		if err := c.identify(msg); err != nil {
			log.Error().Err(err).Str("connection_id", c.id).Msg("failed to attach connection")
			c.Send(room.ServerError{Message: "room unavailable"})
			c.Close()
		}
		return
	}

	if err := s.Post(msg); err != nil {
		c.Close()
	}
}

// identify attaches the connection to the room's session, retrying once if
// the session it got stopped in the meantime.
func (c *Connection) identify(msg room.Msg) error {
	ctx, cancel := context.WithTimeout(context.Background(), c.manager.config.WriteTimeout)
	defer cancel()

	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		s, err := c.manager.sessions.GetOrCreate(ctx, c.roomID)
		if err != nil {
			return fmt.Errorf("failed to resolve room %s: %w", c.roomID, err)
		}
		if err := s.Post(msg); err != nil {
			lastErr = err
			if errors.Is(err, room.ErrSessionClosed) {
				continue
			}
			return err
		}
		c.attach(s)
		go c.watch(s)
		return nil
	}
	return lastErr
}

// watch closes the socket if the session stops without closing it first.
func (c *Connection) watch(s *room.Session) {
	<-s.Done()
	c.Close()
}
