package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/hackjudge/go/internal/auth"
	"github.com/mcdev12/hackjudge/go/internal/events"
	"github.com/mcdev12/hackjudge/go/internal/models"
	"github.com/mcdev12/hackjudge/go/internal/presentation"
)

// TypeSnapshot is the first message a group member receives: the group's
// schedule as of connect time, so the client can render before any event.
const TypeSnapshot = "Snapshot"

// StateProvider loads a group's schedule.
type StateProvider interface {
	Schedule(ctx context.Context, groupID uuid.UUID) (*presentation.GroupSchedule, error)
}

type snapshotPayload struct {
	GroupID             string                    `json:"group_id"`
	Presentations       []models.PresentationSlot `json:"presentations"`
	CurrentlyPresenting string                    `json:"currently_presenting"`
	ServerTime          time.Time                 `json:"server_time"`
}

type WebSocketHandler struct {
	manager  *ConnectionManager
	provider StateProvider
}

// NewWebSocketHandler builds the upgrade handler. provider may be nil, in
// which case no snapshot is sent.
func NewWebSocketHandler(cm *ConnectionManager, provider StateProvider) *WebSocketHandler {
	return &WebSocketHandler{manager: cm, provider: provider}
}

// ScopeFor maps a user to the events they may watch.
func ScopeFor(user *models.User) Scope {
	if user.Role == models.RoleDirector {
		return Scope{All: true}
	}
	return Scope{GroupID: user.GroupID}
}

// HandleConnection upgrades an authenticated request. The token travels in
// the token query argument because browsers cannot set headers on upgrade.
func (h *WebSocketHandler) HandleConnection(w http.ResponseWriter, r *http.Request) {
	user := auth.CurrentUser(r.Context())
	if user == nil {
		http.Error(w, "authentication required", http.StatusUnauthorized)
		return
	}

	scope := ScopeFor(user)
	first, err := h.snapshot(r.Context(), scope)
	if err != nil {
		log.Warn().Err(err).Str("user_id", user.ID.String()).Msg("failed to build connect snapshot")
	}

	// Upgrade has already answered the request when it fails.
	if err := h.manager.UpgradeConnection(w, r, user.ID.String(), scope, first); err != nil {
		log.Error().Err(err).Str("user_id", user.ID.String()).Msg("failed to upgrade WebSocket connection")
	}
}

func (h *WebSocketHandler) snapshot(ctx context.Context, scope Scope) ([]byte, error) {
	if h.provider == nil || scope.GroupID == nil {
		return nil, nil
	}

	sched, err := h.provider.Schedule(ctx, *scope.GroupID)
	if err != nil {
		return nil, err
	}

	payload := snapshotPayload{
		GroupID:       sched.GroupID.String(),
		Presentations: sched.Slots,
		ServerTime:    sched.ServerTime,
	}
	if sched.CurrentlyPresenting != nil {
		payload.CurrentlyPresenting = *sched.CurrentlyPresenting
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return json.Marshal(events.Envelope{
		EventID:   uuid.NewString(),
		EventType: TypeSnapshot,
		GroupID:   payload.GroupID,
		Timestamp: sched.ServerTime,
		Payload:   raw,
	})
}

func (h *WebSocketHandler) HandleStats(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(h.manager.Stats()); err != nil {
		log.Error().Err(err).Msg("failed to write connection stats")
	}
}
