package outbox

import (
	"context"
	"sync"
	"time"

	"github.com/mcdev12/corpsdraft/go/internal/draft/events"
	"github.com/rs/zerolog/log"
)

// Inserter persists outbox rows.
type Inserter interface {
	Insert(ctx context.Context, event OutboxEvent) error
}

type WriterConfig struct {
	BufferSize   int
	MaxRetries   int
	RetryDelay   time.Duration
	WriteTimeout time.Duration
}

func DefaultWriterConfig() WriterConfig {
	return WriterConfig{
		BufferSize:   1024,
		MaxRetries:   3,
		RetryDelay:   200 * time.Millisecond,
		WriteTimeout: 5 * time.Second,
	}
}

// Writer journals lifecycle events into the outbox. Append never blocks the
// caller; a single goroutine performs the inserts in order.
type Writer struct {
	repo  Inserter
	cfg   WriterConfig
	queue chan OutboxEvent
	done  chan struct{}

	mu     sync.RWMutex
	closed bool
}

func NewWriter(repo Inserter, cfg WriterConfig) *Writer {
	return &Writer{
		repo:  repo,
		cfg:   cfg,
		queue: make(chan OutboxEvent, cfg.BufferSize),
		done:  make(chan struct{}),
	}
}

// Start runs the insert loop until Close drains the queue.
func (w *Writer) Start() {
	go w.run()
}

// Append queues a lifecycle event. A full queue drops the event.
func (w *Writer) Append(roomID string, eventType events.Type, payload any) {
	ev, err := NewEvent(roomID, eventType, payload)
	if err != nil {
		log.Error().Err(err).Str("room_id", roomID).Msg("failed to build outbox event")
		return
	}

	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		log.Warn().Str("room_id", roomID).Str("event_type", string(eventType)).Msg("outbox writer closed, event dropped")
		return
	}
	select {
	case w.queue <- ev:
	default:
		log.Warn().
			Str("room_id", roomID).
			Str("event_type", string(eventType)).
			Msg("outbox queue full, event dropped")
	}
}

// Close stops accepting events and waits for queued ones to be written.
func (w *Writer) Close(ctx context.Context) error {
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		close(w.queue)
	}
	w.mu.Unlock()

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *Writer) run() {
	defer close(w.done)
	for ev := range w.queue {
		w.write(ev)
	}
}

func (w *Writer) write(ev OutboxEvent) {
	for attempt := 0; attempt <= w.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(w.cfg.RetryDelay * time.Duration(attempt))
		}

		ctx, cancel := context.WithTimeout(context.Background(), w.cfg.WriteTimeout)
		err := w.repo.Insert(ctx, ev)
		cancel()
		if err == nil {
			log.Debug().
				Str("event_id", ev.ID.String()).
				Str("event_type", ev.EventType).
				Msg("outbox event inserted")
			return
		}
		log.Error().
			Err(err).
			Int("attempt", attempt+1).
			Str("event_id", ev.ID.String()).
			Msg("failed to insert outbox event, retrying")
	}
	log.Error().
		Str("event_id", ev.ID.String()).
		Str("room_id", ev.RoomID).
		Str("event_type", ev.EventType).
		Msg("outbox event dropped after retries")
}
