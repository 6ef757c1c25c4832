package main

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/mcdev12/corpsdraft/go/internal/draft/gateway"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

func setupServer(config *Config, services *Services) *http.Server {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	// Register services
	services.Gateway.RegisterRoutes(r)

	// Add health check endpoint
	setupHealthCheck(r, services)

	// Wrap with CORS
	handler := gateway.CORSMiddleware(gateway.DefaultCORSConfig(), r)

	// Setup HTTP/2 server
	return &http.Server{
		Addr:    fmt.Sprintf(":%s", config.Server.Port),
		Handler: h2c.NewHandler(handler, &http2.Server{}),
	}
}

func setupHealthCheck(r chi.Router, services *Services) {
	if services.Health != nil {
		r.Method(http.MethodGet, "/health", services.Health)
		return
	}
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			log.Error().Err(err).Msg("failed to write health check response")
		}
	})
}
