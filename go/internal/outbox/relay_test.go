package outbox_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/hackjudge/go/internal/events"
	"github.com/mcdev12/hackjudge/go/internal/models"
	"github.com/mcdev12/hackjudge/go/internal/outbox"
	"github.com/mcdev12/hackjudge/go/internal/store/memstore"
)

type fakePublisher struct {
	mu        sync.Mutex
	published []models.OutboxEvent
	// failures maps an event id to how many more attempts should fail; -1
	// fails forever.
	failures map[uuid.UUID]int
	attempts int
}

func newFakePublisher() *fakePublisher {
	return &fakePublisher{failures: make(map[uuid.UUID]int)}
}

func (p *fakePublisher) Publish(_ context.Context, event models.OutboxEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.attempts++
	if n, ok := p.failures[event.ID]; ok && n != 0 {
		if n > 0 {
			p.failures[event.ID] = n - 1
		}
		return errors.New("nats: no responders available for request")
	}
	p.published = append(p.published, event)
	return nil
}

func (p *fakePublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.published))
	for i, e := range p.published {
		out[i] = e.EventType
	}
	return out
}

type fakeNotifier struct {
	ch     chan *pq.Notification
	closed atomic.Bool
}

func (n *fakeNotifier) Notifications() <-chan *pq.Notification { return n.ch }
func (n *fakeNotifier) Ping() error                            { return nil }
func (n *fakeNotifier) Close() error {
	n.closed.Store(true)
	return nil
}

func testConfig() outbox.Config {
	cfg := outbox.DefaultConfig()
	cfg.MaxRetries = 2
	cfg.RetryDelay = time.Millisecond
	return cfg
}

func insertEvent(t *testing.T, s *memstore.Store, eventType string) models.OutboxEvent {
	t.Helper()
	groupID := uuid.New()
	ev, err := events.NewOutboxEvent(&groupID, eventType, events.JudgingTogglePayload{Active: true}, time.Now())
	require.NoError(t, err)
	require.NoError(t, s.WithinTx(context.Background(), func(tx *memstore.Tx) error {
		return tx.InsertOutboxEvent(context.Background(), ev)
	}))
	return ev
}

func unsent(t *testing.T, s *memstore.Store) int64 {
	t.Helper()
	n, err := s.CountUnsentOutbox(context.Background())
	require.NoError(t, err)
	return n
}

func TestProcessUnsentRelaysInCommitOrder(t *testing.T) {
	s := memstore.New()
	insertEvent(t, s, events.TypeGroupsFormed)
	insertEvent(t, s, events.TypeJudgingStarted)
	insertEvent(t, s, events.TypePresentationStarted)

	pub := newFakePublisher()
	r := outbox.NewRelay(s, pub, nil, clockwork.NewRealClock(), testConfig(), nil)

	require.NoError(t, r.ProcessUnsent(context.Background()))

	assert.Equal(t, []string{events.TypeGroupsFormed, events.TypeJudgingStarted, events.TypePresentationStarted}, pub.types())
	assert.Zero(t, unsent(t, s))
	n, last := r.Stats()
	assert.EqualValues(t, 3, n)
	assert.False(t, last.IsZero())
}

func TestProcessUnsentSkipsPastAFailingEvent(t *testing.T) {
	s := memstore.New()
	bad := insertEvent(t, s, events.TypeGroupsFormed)
	insertEvent(t, s, events.TypeJudgingStarted)

	pub := newFakePublisher()
	pub.failures[bad.ID] = -1
	r := outbox.NewRelay(s, pub, nil, clockwork.NewRealClock(), testConfig(), nil)

	require.NoError(t, r.ProcessUnsent(context.Background()))

	assert.Equal(t, []string{events.TypeJudgingStarted}, pub.types())
	assert.EqualValues(t, 1, unsent(t, s))
	// one initial attempt plus two retries for the failing event
	assert.Equal(t, 4, pub.attempts)
}

func TestPublishRetriesTransientFailures(t *testing.T) {
	s := memstore.New()
	ev := insertEvent(t, s, events.TypeScoreSubmitted)

	pub := newFakePublisher()
	pub.failures[ev.ID] = 2
	r := outbox.NewRelay(s, pub, nil, clockwork.NewRealClock(), testConfig(), nil)

	require.NoError(t, r.HandleNotification(context.Background(), ev.ID.String()))
	assert.Equal(t, []string{events.TypeScoreSubmitted}, pub.types())
	assert.Zero(t, unsent(t, s))
}

func TestHandleNotificationSkipsRelayedEvents(t *testing.T) {
	s := memstore.New()
	ev := insertEvent(t, s, events.TypeJudgingEnded)
	require.NoError(t, s.MarkOutboxSent(context.Background(), ev.ID))

	pub := newFakePublisher()
	r := outbox.NewRelay(s, pub, nil, clockwork.NewRealClock(), testConfig(), nil)

	require.NoError(t, r.HandleNotification(context.Background(), ev.ID.String()))
	assert.Empty(t, pub.types())

	assert.Error(t, r.HandleNotification(context.Background(), "not-a-uuid"))
}

func TestStartRelaysOnNotification(t *testing.T) {
	s := memstore.New()
	backlog := insertEvent(t, s, events.TypeGroupsFormed)

	pub := newFakePublisher()
	notifier := &fakeNotifier{ch: make(chan *pq.Notification)}
	r := outbox.NewRelay(s, pub, notifier, clockwork.NewFakeClock(), testConfig(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Start(ctx) }()

	require.Eventually(t, func() bool { return len(pub.types()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, backlog.ID, pub.published[0].ID)

	live := insertEvent(t, s, events.TypePresentationPaused)
	notifier.ch <- &pq.Notification{Channel: "judging_outbox_events", Extra: live.ID.String()}
	require.Eventually(t, func() bool { return len(pub.types()) == 2 }, time.Second, 5*time.Millisecond)

	// a reconnect sweeps rows whose notification was lost
	insertEvent(t, s, events.TypePresentationResumed)
	notifier.ch <- nil
	require.Eventually(t, func() bool { return len(pub.types()) == 3 }, time.Second, 5*time.Millisecond)
	assert.True(t, r.Running())

	cancel()
	require.NoError(t, <-done)
	assert.True(t, notifier.closed.Load())
	assert.False(t, r.Running())
}

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

func TestHealthChecker(t *testing.T) {
	s := memstore.New()
	insertEvent(t, s, events.TypeGroupsFormed)
	clock := clockwork.NewFakeClock()
	r := outbox.NewRelay(s, newFakePublisher(), nil, clock, testConfig(), nil)

	checker := outbox.NewHealthChecker(r, pinger{}, s, func() bool { return false }, clock, time.Minute)
	status := checker.Check(context.Background())

	assert.False(t, status.Healthy)
	assert.True(t, status.DatabaseConnected)
	assert.False(t, status.NATSConnected)
	assert.EqualValues(t, 1, status.PendingEvents)
	assert.Contains(t, status.Errors, "NATS disconnected")
	assert.Contains(t, status.Errors, "relay not running")

	rec := httptest.NewRecorder()
	checker.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"pending_events":1`)
}
