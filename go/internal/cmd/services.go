package main

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mcdev12/corpsdraft/go/internal/draft/catalog"
	"github.com/mcdev12/corpsdraft/go/internal/draft/gateway"
	"github.com/mcdev12/corpsdraft/go/internal/draft/outbox"
	"github.com/mcdev12/corpsdraft/go/internal/draft/registry"
	"github.com/mcdev12/corpsdraft/go/internal/draft/room"
	"github.com/mcdev12/corpsdraft/go/internal/draft/store"
	"github.com/rs/zerolog/log"
)

type Services struct {
	Store     *store.Store
	Outbox    *outbox.Repository
	Journal   *outbox.Writer
	Publisher *outbox.JetStreamPublisher
	Listener  *outbox.Listener
	Health    *outbox.HealthChecker
	Registry  *registry.Registry
	Gateway   *gateway.Service
}

func setupServices(ctx context.Context, config *Config, pool *pgxpool.Pool, dsn string) *Services {
	// Database layer → collaborators → rooms → gateway

	st := store.New(pool)
	outboxRepo := outbox.NewRepository(pool)

	journal := outbox.NewWriter(outboxRepo, outbox.DefaultWriterConfig())
	journal.Start()

	var itemSource room.Catalog = st
	if config.Catalog.Source == catalogSourceFile {
		itemSource = catalog.NewFile(config.Catalog.Path)
	}
	log.Info().Str("source", config.Catalog.Source).Msg("caption catalog configured")

	services := &Services{
		Store:   st,
		Outbox:  outboxRepo,
		Journal: journal,
	}

	// Rows keep accumulating in draft_outbox while NATS is unreachable; a
	// later relay drains them.
	publisher, err := outbox.NewJetStreamPublisher(ctx, config.JetStreamConfig())
	if err != nil {
		log.Error().Err(err).Str("nats_url", config.NATS.URL).Msg("failed to connect publisher, outbox relay disabled")
	} else {
		services.Publisher = publisher
		listener, err := outbox.NewListener(outboxRepo, publisher, config.ListenerConfig(dsn))
		if err != nil {
			log.Error().Err(err).Msg("failed to start outbox listener, outbox relay disabled")
		} else {
			services.Listener = listener
			go func() {
				if err := listener.Start(ctx); err != nil {
					log.Error().Err(err).Msg("outbox listener stopped")
				}
			}()
		}
	}

	var natsConnected func() bool
	if services.Publisher != nil {
		natsConnected = services.Publisher.Connected
	}
	services.Health = outbox.NewHealthChecker(services.Listener, pool, outboxRepo, natsConnected, 5*time.Minute)

	// The registry outlives the signal context so that shutdown can still
	// reach every room.
	services.Registry = registry.New(context.Background(), config.RoomConfig(), room.Deps{
		Players:   st,
		Rooms:     st,
		Leftovers: st,
		Catalog:   itemSource,
		Journal:   journal,
	})
	services.Gateway = gateway.NewService(gateway.DefaultConfig(), services.Registry)

	return services
}

// Shutdown stops rooms first so their final events reach clients and the
// journal, then drains the journal.
func (s *Services) Shutdown(ctx context.Context) {
	if err := s.Registry.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("failed to shut down rooms")
	}
	if err := s.Journal.Close(ctx); err != nil {
		log.Error().Err(err).Msg("failed to drain outbox journal")
	}
	if s.Publisher != nil {
		_ = s.Publisher.Close()
	}
}
