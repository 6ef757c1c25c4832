package outbox

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Repository struct {
	db DBTX
}

func NewRepository(db DBTX) *Repository {
	return &Repository{
		db: db,
	}
}

// WithTx binds the repository to tx.
func (r *Repository) WithTx(tx pgx.Tx) *Repository {
	return &Repository{db: tx}
}

const insertOutbox = `
INSERT INTO draft_outbox (id, room_id, event_type, payload, created_at)
VALUES ($1, $2, $3, $4, $5)`

func (r *Repository) Insert(ctx context.Context, event OutboxEvent) error {
	_, err := r.db.Exec(ctx, insertOutbox,
		event.ID, event.RoomID, event.EventType, []byte(event.Payload), event.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert %s outbox event: %w", event.EventType, err)
	}
	return nil
}

const fetchUnsentOutbox = `
SELECT id, room_id, event_type, payload, created_at, sent_at
FROM draft_outbox
WHERE sent_at IS NULL
ORDER BY created_at
LIMIT $1`

func (r *Repository) FetchUnsent(ctx context.Context, limit int) ([]OutboxEvent, error) {
	rows, err := r.db.Query(ctx, fetchUnsentOutbox, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch unsent outbox events: %w", err)
	}
	defer rows.Close()

	var out []OutboxEvent
	for rows.Next() {
		var ev OutboxEvent
		if err := rows.Scan(&ev.ID, &ev.RoomID, &ev.EventType, &ev.Payload, &ev.CreatedAt, &ev.SentAt); err != nil {
			return nil, fmt.Errorf("failed to scan outbox event: %w", err)
		}
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to fetch unsent outbox events: %w", err)
	}
	return out, nil
}

const fetchOutboxByID = `
SELECT id, room_id, event_type, payload, created_at, sent_at
FROM draft_outbox
WHERE id = $1 AND sent_at IS NULL`

func (r *Repository) FetchByID(ctx context.Context, id uuid.UUID) (*OutboxEvent, error) {
	var ev OutboxEvent
	err := r.db.QueryRow(ctx, fetchOutboxByID, id).
		Scan(&ev.ID, &ev.RoomID, &ev.EventType, &ev.Payload, &ev.CreatedAt, &ev.SentAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrEventNotFound
		}
		return nil, fmt.Errorf("failed to fetch outbox event by ID: %w", err)
	}
	return &ev, nil
}

const markOutboxSent = `UPDATE draft_outbox SET sent_at = now() WHERE id = $1`

func (r *Repository) MarkSent(ctx context.Context, id uuid.UUID) error {
	if _, err := r.db.Exec(ctx, markOutboxSent, id); err != nil {
		return fmt.Errorf("failed to mark outbox event as sent: %w", err)
	}
	return nil
}

const countPendingOutbox = `SELECT COUNT(*) FROM draft_outbox WHERE sent_at IS NULL`

func (r *Repository) CountPending(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRow(ctx, countPendingOutbox).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count pending outbox events: %w", err)
	}
	return count, nil
}
