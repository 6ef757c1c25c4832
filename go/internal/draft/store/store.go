package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/mcdev12/corpsdraft/go/internal/draft/events"
	"github.com/mcdev12/corpsdraft/go/internal/draft/outbox"
	"github.com/mcdev12/corpsdraft/go/internal/draft/room"
	"github.com/mcdev12/corpsdraft/go/internal/models"
	"github.com/mcdev12/corpsdraft/go/internal/sqlutil"
	"github.com/rs/zerolog/log"
)

// DB is satisfied by *pgxpool.Pool.
type DB interface {
	outbox.DBTX
	sqlutil.TxBeginner
}

// Store backs the room collaborators with Postgres: player and tour lookups,
// the caption catalog and the conclusion record.
type Store struct {
	db     DB
	outbox *outbox.Repository
}

func New(db DB) *Store {
	return &Store{
		db:     db,
		outbox: outbox.NewRepository(db),
	}
}

// FindPlayer implements room.PlayerDirectory.
func (s *Store) FindPlayer(ctx context.Context, id string) (*models.Player, error) {
	var displayName pgtype.Text
	err := s.db.QueryRow(ctx, `SELECT display_name FROM players WHERE id = $1`, id).Scan(&displayName)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("player %s: %w", id, room.ErrPlayerNotFound)
		}
		return nil, fmt.Errorf("failed to get player %s: %w", id, err)
	}
	return &models.Player{
		ID:          id,
		DisplayName: sqlutil.FromText(displayName, id),
	}, nil
}

// FindRoom implements room.RoomDirectory.
func (s *Store) FindRoom(ctx context.Context, id string) (*models.Tour, error) {
	var (
		name          string
		ownerID       pgtype.Text
		draftActive   pgtype.Bool
		draftComplete pgtype.Bool
		createdAt     pgtype.Timestamptz
	)
	err := s.db.QueryRow(ctx, `
		SELECT name, owner_id, draft_active, draft_complete, created_at
		FROM tours WHERE id = $1`, id).
		Scan(&name, &ownerID, &draftActive, &draftComplete, &createdAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("tour %s: %w", id, room.ErrRoomNotFound)
		}
		return nil, fmt.Errorf("failed to get tour %s: %w", id, err)
	}
	return &models.Tour{
		ID:            id,
		Name:          name,
		OwnerID:       sqlutil.FromText(ownerID, ""),
		DraftActive:   sqlutil.FromBool(draftActive),
		DraftComplete: sqlutil.FromBool(draftComplete),
		CreatedAt:     sqlutil.FromTimestamptz(createdAt),
	}, nil
}

// MarkComplete implements room.RoomDirectory.
func (s *Store) MarkComplete(ctx context.Context, id string) error {
	_, err := s.db.Exec(ctx, `
		UPDATE tours SET draft_complete = TRUE, draft_active = FALSE
		WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to mark tour %s complete: %w", id, err)
	}
	return nil
}

type leftoverQueries struct {
	tx     pgx.Tx
	outbox *outbox.Repository
}

// RecordLeftovers implements room.LeftoverSink. The record and its
// DraftCompleted outbox row commit together; a second record for the same
// tour is ignored.
func (s *Store) RecordLeftovers(ctx context.Context, record models.RemainingPicks) error {
	picks := record.LeftOverPicks
	if picks == nil {
		picks = []models.Caption{}
	}
	data, err := json.Marshal(picks)
	if err != nil {
		return fmt.Errorf("failed to marshal leftover picks: %w", err)
	}

	completed, err := outbox.NewEvent(record.TourID, events.DraftCompleted, events.DraftCompletedPayload{
		RoomID:      record.TourID,
		CompletedAt: time.Now().UTC(),
		Leftovers:   len(picks),
	})
	if err != nil {
		return err
	}

	newQueries := func(tx pgx.Tx) *leftoverQueries {
		return &leftoverQueries{tx: tx, outbox: s.outbox.WithTx(tx)}
	}
	err = sqlutil.Run(ctx, s.db, newQueries, func(q *leftoverQueries) error {
		tag, err := q.tx.Exec(ctx, `
			INSERT INTO remaining_picks (id, tour_id, left_over_picks)
			VALUES ($1, $2, $3)
			ON CONFLICT (tour_id) DO NOTHING`,
			record.ID, record.TourID, data)
		if err != nil {
			return fmt.Errorf("failed to insert remaining picks: %w", err)
		}
		if tag.RowsAffected() == 0 {
			log.Warn().Str("tour_id", record.TourID).Msg("remaining picks already recorded")
			return nil
		}
		return q.outbox.Insert(ctx, completed)
	})
	if err != nil {
		return fmt.Errorf("failed to record leftovers for tour %s: %w", record.TourID, err)
	}

	log.Info().
		Str("tour_id", record.TourID).
		Int("leftovers", len(picks)).
		Msg("remaining picks recorded")
	return nil
}

// AllItems implements room.Catalog from the captions table.
func (s *Store) AllItems(ctx context.Context) ([]models.Caption, error) {
	rows, err := s.db.Query(ctx, `SELECT id, corps, caption FROM captions ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list captions: %w", err)
	}
	defer rows.Close()

	items := []models.Caption{}
	for rows.Next() {
		var c models.Caption
		if err := rows.Scan(&c.ID, &c.Corps, &c.Caption); err != nil {
			return nil, fmt.Errorf("failed to scan caption: %w", err)
		}
		items = append(items, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list captions: %w", err)
	}
	return items, nil
}
