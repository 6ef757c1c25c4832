package gateway

import (
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// Service is the draft gateway: WebSocket connections plus the room HTTP API
type Service struct {
	connectionManager *ConnectionManager
	wsHandler         *WebSocketHandler
	stateHandler      *StateHandler
}

// Config holds configuration for the draft gateway service
type Config struct {
	ConnectionConfig ConnectionConfig
	CORS             CORSConfig
}

// DefaultConfig returns default configuration for the draft gateway
func DefaultConfig() Config {
	return Config{
		ConnectionConfig: DefaultConnectionConfig(),
		CORS:             DefaultCORSConfig(),
	}
}

// NewService creates a new draft gateway service backed by rooms
func NewService(config Config, rooms RoomProvider) *Service {
	connectionManager := NewConnectionManager(config.ConnectionConfig, rooms)

	return &Service{
		connectionManager: connectionManager,
		wsHandler:         NewWebSocketHandler(connectionManager),
		stateHandler:      NewStateHandler(rooms),
	}
}

// RegisterRoutes registers the WebSocket and room HTTP routes
func (s *Service) RegisterRoutes(r chi.Router) {
	s.wsHandler.RegisterRoutes(r)
	s.stateHandler.RegisterStateRoutes(r)
	log.Info().Msg("draft gateway routes registered")
}

// GetStats returns statistics about the gateway service
func (s *Service) GetStats() ConnectionStats {
	return s.connectionManager.GetConnectionStats()
}
