package main

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mcdev12/corpsdraft/go/internal/dbconfig"
	"github.com/mcdev12/corpsdraft/go/internal/draft/store"
	"github.com/rs/zerolog/log"
)

func setupDatabase(ctx context.Context, dbConfig dbconfig.Config) (*pgxpool.Pool, error) {
	pool, err := dbconfig.NewPool(ctx, dbConfig)
	if err != nil {
		return nil, err
	}

	if getEnvAsInt("DB_MIGRATE", 1) == 1 {
		if err := store.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, fmt.Errorf("failed to migrate database: %w", err)
		}
	}

	log.Info().
		Str("user", dbConfig.User).
		Str("host", dbConfig.Host).
		Int("port", dbConfig.Port).
		Str("database", dbConfig.Database).
		Msg("connected to database")
	return pool, nil
}
