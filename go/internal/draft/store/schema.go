package store

import (
	"context"
	"fmt"
)

// Schema creates the tables the draft server reads and writes. Every
// statement is idempotent.
const Schema = `
CREATE TABLE IF NOT EXISTS players (
    id           TEXT PRIMARY KEY,
    display_name TEXT
);

CREATE TABLE IF NOT EXISTS tours (
    id             TEXT PRIMARY KEY,
    name           TEXT NOT NULL,
    owner_id       TEXT REFERENCES players (id),
    draft_active   BOOLEAN DEFAULT FALSE,
    draft_complete BOOLEAN DEFAULT FALSE,
    created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS captions (
    id      TEXT PRIMARY KEY,
    corps   TEXT NOT NULL,
    caption TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS remaining_picks (
    id              TEXT PRIMARY KEY,
    tour_id         TEXT NOT NULL UNIQUE REFERENCES tours (id),
    left_over_picks JSONB NOT NULL
);

CREATE TABLE IF NOT EXISTS draft_outbox (
    id         UUID PRIMARY KEY,
    room_id    TEXT NOT NULL,
    event_type TEXT NOT NULL,
    payload    JSONB NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    sent_at    TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS draft_outbox_unsent_idx
    ON draft_outbox (created_at) WHERE sent_at IS NULL;

CREATE OR REPLACE FUNCTION notify_draft_outbox() RETURNS trigger AS $$
BEGIN
    PERFORM pg_notify('draft_outbox_events', NEW.id::text);
    RETURN NEW;
END;
$$ LANGUAGE plpgsql;

DROP TRIGGER IF EXISTS draft_outbox_notify ON draft_outbox;
CREATE TRIGGER draft_outbox_notify
    AFTER INSERT ON draft_outbox
    FOR EACH ROW EXECUTE FUNCTION notify_draft_outbox();
`

// Migrate applies Schema.
func Migrate(ctx context.Context, db DB) error {
	if _, err := db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}
