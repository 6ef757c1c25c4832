package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mcdev12/corpsdraft/go/internal/dbconfig"
	"github.com/mcdev12/corpsdraft/go/internal/draft/catalog"
)

func main() {
	ctx := context.Background()

	path := "captions.yaml"
	if len(os.Args) > 1 {
		path = os.Args[1]
	}

	// 1) Load the caption catalog
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read %s: %v\n", path, err)
		os.Exit(1)
	}
	captions, err := catalog.Parse(data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "parse %s: %v\n", path, err)
		os.Exit(1)
	}

	// 2) Connect to DB
	cfg := dbconfig.NewConfigFromEnv()
	pool, err := pgxpool.New(ctx, cfg.DSN())
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect error: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	// 3) Seed captions
	total, inserted, skipped, errs := len(captions), 0, 0, 0
	for _, c := range captions {
		tag, err := pool.Exec(ctx, `
            INSERT INTO captions (id, corps, caption)
            VALUES ($1, $2, $3)
            ON CONFLICT (id) DO NOTHING
        `, c.ID, c.Corps, c.Caption)
		if err != nil {
			errs++
			continue
		}
		if tag.RowsAffected() == 1 {
			inserted++
		} else {
			skipped++
		}
	}
	fmt.Printf(
		"Captions seed: total=%d inserted=%d skipped=%d errors=%d\n",
		total, inserted, skipped, errs,
	)
}
