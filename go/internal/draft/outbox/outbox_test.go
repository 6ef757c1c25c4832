package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/corpsdraft/go/internal/draft/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	mu        sync.Mutex
	rows      []OutboxEvent
	sent      map[uuid.UUID]bool
	insertErr error
	inserts   int
}

func newMemStore() *memStore {
	return &memStore{sent: map[uuid.UUID]bool{}}
}

func (m *memStore) Insert(_ context.Context, ev OutboxEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inserts++
	if m.insertErr != nil {
		return m.insertErr
	}
	m.rows = append(m.rows, ev)
	return nil
}

func (m *memStore) FetchByID(_ context.Context, id uuid.UUID) (*OutboxEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ev := range m.rows {
		if ev.ID == id && !m.sent[id] {
			out := ev
			return &out, nil
		}
	}
	return nil, ErrEventNotFound
}

func (m *memStore) FetchUnsent(_ context.Context, limit int) ([]OutboxEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []OutboxEvent
	for _, ev := range m.rows {
		if !m.sent[ev.ID] && len(out) < limit {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (m *memStore) MarkSent(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent[id] = true
	return nil
}

func (m *memStore) CountPending(context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows) - len(m.sent), nil
}

type recPublisher struct {
	mu        sync.Mutex
	published []OutboxEvent
	failures  int
}

func (p *recPublisher) Publish(_ context.Context, ev OutboxEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failures > 0 {
		p.failures--
		return errors.New("nats: timeout")
	}
	p.published = append(p.published, ev)
	return nil
}

type okPinger struct{ err error }

func (p okPinger) Ping(context.Context) error { return p.err }

func testListenerConfig() ListenerConfig {
	cfg := DefaultListenerConfig()
	cfg.MaxRetries = 2
	cfg.RetryDelay = time.Millisecond
	return cfg
}

func mustEvent(t *testing.T, roomID string, typ events.Type) OutboxEvent {
	t.Helper()
	ev, err := NewEvent(roomID, typ, events.DraftCancelledPayload{RoomID: roomID, Reason: "cancelled by owner"})
	require.NoError(t, err)
	return ev
}

func TestWriterInsertsInOrder(t *testing.T) {
	store := newMemStore()
	w := NewWriter(store, DefaultWriterConfig())
	w.Start()

	w.Append("tour-1", events.DraftStarted, events.DraftStartedPayload{RoomID: "tour-1", PoolSize: 3})
	w.Append("tour-1", events.PickMade, events.PickMadePayload{RoomID: "tour-1", CaptionID: "c1"})
	w.Append("tour-1", events.DraftCancelled, events.DraftCancelledPayload{RoomID: "tour-1"})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, w.Close(ctx))

	require.Len(t, store.rows, 3)
	assert.Equal(t, string(events.DraftStarted), store.rows[0].EventType)
	assert.Equal(t, string(events.PickMade), store.rows[1].EventType)
	assert.Equal(t, string(events.DraftCancelled), store.rows[2].EventType)

	var payload events.PickMadePayload
	require.NoError(t, json.Unmarshal(store.rows[1].Payload, &payload))
	assert.Equal(t, "c1", payload.CaptionID)

	// closed writers drop instead of panicking
	w.Append("tour-1", events.PickMade, events.PickMadePayload{})
	assert.Len(t, store.rows, 3)
}

func TestWriterRetriesThenDrops(t *testing.T) {
	store := newMemStore()
	store.insertErr = errors.New("connection reset")
	cfg := DefaultWriterConfig()
	cfg.RetryDelay = time.Millisecond
	w := NewWriter(store, cfg)
	w.Start()

	w.Append("tour-1", events.DraftStarted, events.DraftStartedPayload{})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, w.Close(ctx))

	assert.Equal(t, cfg.MaxRetries+1, store.inserts)
	assert.Empty(t, store.rows)
}

func TestWriterDropsWhenQueueFull(t *testing.T) {
	store := newMemStore()
	cfg := DefaultWriterConfig()
	cfg.BufferSize = 1
	w := NewWriter(store, cfg)

	// not started, so the queue never drains
	w.Append("tour-1", events.DraftStarted, events.DraftStartedPayload{})
	w.Append("tour-1", events.PickMade, events.PickMadePayload{})
	assert.Len(t, w.queue, 1)
}

func TestListenerProcessUnsent(t *testing.T) {
	store := newMemStore()
	first := mustEvent(t, "tour-1", events.DraftStarted)
	second := mustEvent(t, "tour-2", events.DraftCancelled)
	store.rows = []OutboxEvent{first, second}

	pub := &recPublisher{failures: 1}
	l := newListener(store, pub, testListenerConfig())

	require.NoError(t, l.processUnsent(context.Background()))

	require.Len(t, pub.published, 2)
	assert.Equal(t, first.ID, pub.published[0].ID)
	assert.True(t, store.sent[first.ID])
	assert.True(t, store.sent[second.ID])

	published, failed, last := l.Stats().Snapshot()
	assert.Equal(t, uint64(2), published)
	assert.Zero(t, failed)
	assert.False(t, last.IsZero())
}

func TestListenerLeavesFailedEventsUnsent(t *testing.T) {
	store := newMemStore()
	ev := mustEvent(t, "tour-1", events.DraftCompleted)
	store.rows = []OutboxEvent{ev}

	pub := &recPublisher{failures: 10}
	l := newListener(store, pub, testListenerConfig())

	require.NoError(t, l.processUnsent(context.Background()))

	assert.False(t, store.sent[ev.ID])
	_, failed, _ := l.Stats().Snapshot()
	assert.Equal(t, uint64(1), failed)
}

func TestListenerHandleNotification(t *testing.T) {
	store := newMemStore()
	ev := mustEvent(t, "tour-1", events.PickMade)
	store.rows = []OutboxEvent{ev}
	pub := &recPublisher{}
	l := newListener(store, pub, testListenerConfig())

	require.NoError(t, l.handleNotification(context.Background(), ev.ID.String()))
	assert.True(t, store.sent[ev.ID])

	err := l.handleNotification(context.Background(), ev.ID.String())
	assert.ErrorIs(t, err, ErrEventNotFound)

	assert.Error(t, l.handleNotification(context.Background(), "not-a-uuid"))
	assert.Len(t, pub.published, 1)
}

func TestBuildMessage(t *testing.T) {
	ev := mustEvent(t, "tour-1", events.DraftCancelled)
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	msg, err := BuildMessage("draft.events", ev, now)
	require.NoError(t, err)

	assert.Equal(t, "draft.events.DraftCancelled", msg.Subject)
	assert.Equal(t, ev.ID.String(), msg.Header.Get("Event-ID"))
	assert.Equal(t, "tour-1", msg.Header.Get("Room-ID"))

	var env Envelope
	require.NoError(t, json.Unmarshal(msg.Data, &env))
	assert.Equal(t, ev.ID.String(), env.EventID)
	assert.Equal(t, "DraftCancelled", env.EventType)
	assert.Equal(t, "tour-1", env.RoomID)
	assert.True(t, now.Equal(env.Timestamp))
	assert.JSONEq(t, string(ev.Payload), string(env.Payload))
}

func TestHealthChecker(t *testing.T) {
	store := newMemStore()
	store.rows = []OutboxEvent{mustEvent(t, "tour-1", events.DraftStarted)}
	l := newListener(store, &recPublisher{}, testListenerConfig())

	t.Run("listener not running", func(t *testing.T) {
		h := NewHealthChecker(l, okPinger{}, store, func() bool { return true }, time.Minute)
		status := h.Check(context.Background())
		assert.False(t, status.Healthy)
		assert.True(t, status.DatabaseConnected)
		assert.Equal(t, 1, status.PendingEvents)
	})

	close(l.running)

	t.Run("healthy", func(t *testing.T) {
		h := NewHealthChecker(l, okPinger{}, store, func() bool { return true }, time.Minute)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusOK, rec.Code)

		var status HealthStatus
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
		assert.True(t, status.Healthy)
		assert.True(t, status.ListenerActive)
		assert.True(t, status.NATSConnected)
	})

	t.Run("database down", func(t *testing.T) {
		h := NewHealthChecker(l, okPinger{err: errors.New("refused")}, store, nil, time.Minute)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}
