package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/jonboulle/clockwork"
)

// backlogAlert is the unsent count above which the report carries a warning.
const backlogAlert = 1000

type HealthStatus struct {
	Healthy           bool      `json:"healthy"`
	EventsPublished   uint64    `json:"events_published"`
	LastEventTime     time.Time `json:"last_event_time"`
	PendingEvents     int64     `json:"pending_events"`
	DatabaseConnected bool      `json:"database_connected"`
	NATSConnected     bool      `json:"nats_connected"`
	RelayRunning      bool      `json:"relay_running"`
	Errors            []string  `json:"errors"`
}

// Pinger checks a backing connection.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthChecker reports whether the relay is keeping up.
type HealthChecker struct {
	relay     *Relay
	db        Pinger
	source    Source
	connected func() bool
	clock     clockwork.Clock
	threshold time.Duration
}

// NewHealthChecker builds a checker. connected reports the NATS connection
// state and may be nil when no broker is configured.
func NewHealthChecker(relay *Relay, db Pinger, source Source, connected func() bool, clock clockwork.Clock, threshold time.Duration) *HealthChecker {
	return &HealthChecker{
		relay:     relay,
		db:        db,
		source:    source,
		connected: connected,
		clock:     clock,
		threshold: threshold,
	}
}

func (h *HealthChecker) Check(ctx context.Context) HealthStatus {
	status := HealthStatus{Healthy: true, Errors: []string{}}
	fail := func(format string, args ...any) {
		status.Healthy = false
		status.Errors = append(status.Errors, fmt.Sprintf(format, args...))
	}

	status.EventsPublished, status.LastEventTime = h.relay.Stats()

	if err := h.db.Ping(ctx); err != nil {
		fail("database ping failed: %v", err)
	} else {
		status.DatabaseConnected = true
	}

	if h.connected != nil {
		status.NATSConnected = h.connected()
		if !status.NATSConnected {
			fail("NATS disconnected")
		}
	}

	status.RelayRunning = h.relay.Running()
	if !status.RelayRunning {
		fail("relay not running")
	}

	if status.DatabaseConnected {
		pending, err := h.source.CountUnsentOutbox(ctx)
		if err != nil {
			status.Errors = append(status.Errors, fmt.Sprintf("failed to count pending events: %v", err))
		} else {
			status.PendingEvents = pending
			if pending > backlogAlert {
				status.Errors = append(status.Errors, fmt.Sprintf("high pending event count: %d", pending))
			}
		}
	}

	if status.PendingEvents > 0 && !status.LastEventTime.IsZero() {
		if idle := h.clock.Since(status.LastEventTime); idle > h.threshold {
			fail("no events relayed for %s", idle)
		}
	}

	return status
}

func (h *HealthChecker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := h.Check(ctx)

	w.Header().Set("Content-Type", "application/json")
	if !status.Healthy {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_ = json.NewEncoder(w).Encode(status)
}
