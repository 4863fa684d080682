// Package gateway fans judging events out to browsers over WebSocket. Each
// connection is scoped by the authenticated user: directors see every
// event, group members see their group's events plus event-wide ones.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/hackjudge/go/internal/events"
)

// ConnectionManager tracks live connections and delivers broadcasts.
type ConnectionManager struct {
	conns map[*Connection]struct{}
	mu    sync.RWMutex

	upgrader    websocket.Upgrader
	config      ConnectionConfig
	metrics     Metrics
	broadcastCh chan events.Envelope
}

// Scope selects which events a connection receives.
type Scope struct {
	All     bool
	GroupID *uuid.UUID
}

// Wants reports whether an event for env belongs on a connection with this
// scope.
func (s Scope) Wants(env events.Envelope) bool {
	if s.All || env.Broadcast() {
		return true
	}
	return s.GroupID != nil && s.GroupID.String() == env.GroupID
}

// Connection is one browser socket.
type Connection struct {
	ID      string
	UserID  string
	Scope   Scope
	Conn    *websocket.Conn
	Send    chan []byte
	Manager *ConnectionManager

	ConnectedAt time.Time
}

type ConnectionConfig struct {
	WriteTimeout    time.Duration `yaml:"write_timeout" env:"WS_WRITE_TIMEOUT" envDefault:"10s"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env:"WS_READ_TIMEOUT" envDefault:"60s"`
	PingInterval    time.Duration `yaml:"ping_interval" env:"WS_PING_INTERVAL" envDefault:"30s"`
	MaxMessageSize  int64         `yaml:"max_message_size" env:"WS_MAX_MESSAGE_SIZE" envDefault:"1024"`
	ReadBufferSize  int           `yaml:"read_buffer_size" env:"WS_READ_BUFFER_SIZE" envDefault:"1024"`
	WriteBufferSize int           `yaml:"write_buffer_size" env:"WS_WRITE_BUFFER_SIZE" envDefault:"1024"`
	SendBuffer      int           `yaml:"send_buffer" env:"WS_SEND_BUFFER" envDefault:"256"`
	// AllowedOrigins is matched exactly against the Origin header; empty
	// allows any origin.
	AllowedOrigins []string `yaml:"allowed_origins" env:"WS_ALLOWED_ORIGINS" envSeparator:","`
}

func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		MaxMessageSize:  1024,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		SendBuffer:      256,
	}
}

func (c ConnectionConfig) checkOrigin(r *http.Request) bool {
	if len(c.AllowedOrigins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	for _, allowed := range c.AllowedOrigins {
		if origin == allowed {
			return true
		}
	}
	return false
}

func NewConnectionManager(config ConnectionConfig, metrics Metrics) *ConnectionManager {
	if metrics == nil {
		metrics = noopMetrics{}
	}
	if config.SendBuffer <= 0 {
		config.SendBuffer = DefaultConnectionConfig().SendBuffer
	}
	return &ConnectionManager{
		conns: make(map[*Connection]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.checkOrigin,
		},
		config:      config,
		metrics:     metrics,
		broadcastCh: make(chan events.Envelope, 1000),
	}
}

// Start delivers queued broadcasts until ctx is cancelled, then closes
// every connection.
func (cm *ConnectionManager) Start(ctx context.Context) {
	log.Info().Msg("connection manager started")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("connection manager shutting down")
			cm.closeAll()
			return
		case env := <-cm.broadcastCh:
			cm.deliver(env)
		}
	}
}

// UpgradeConnection upgrades the request and registers the socket. first,
// when non-nil, is written before any broadcast.
func (cm *ConnectionManager) UpgradeConnection(w http.ResponseWriter, r *http.Request, userID string, scope Scope, first []byte) error {
	conn, err := cm.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return fmt.Errorf("failed to upgrade connection: %w", err)
	}

	c := &Connection{
		ID:          uuid.New().String(),
		UserID:      userID,
		Scope:       scope,
		Conn:        conn,
		Send:        make(chan []byte, cm.config.SendBuffer),
		Manager:     cm,
		ConnectedAt: time.Now(),
	}
	if first != nil {
		c.Send <- first
	}

	cm.register(c)

	go c.writePump()
	go c.readPump()

	log.Info().
		Str("connection_id", c.ID).
		Str("user_id", userID).
		Bool("all", scope.All).
		Msg("WebSocket connection established")
	return nil
}

func (cm *ConnectionManager) register(c *Connection) {
	cm.mu.Lock()
	cm.conns[c] = struct{}{}
	n := len(cm.conns)
	cm.mu.Unlock()

	cm.metrics.Connections(n)
}

func (cm *ConnectionManager) unregister(c *Connection) {
	cm.mu.Lock()
	_, ok := cm.conns[c]
	if ok {
		delete(cm.conns, c)
		close(c.Send)
	}
	n := len(cm.conns)
	cm.mu.Unlock()

	if ok {
		cm.metrics.Connections(n)
		log.Info().
			Str("connection_id", c.ID).
			Str("user_id", c.UserID).
			Msg("connection unregistered")
	}
}

func (cm *ConnectionManager) closeAll() {
	cm.mu.RLock()
	conns := make([]*Connection, 0, len(cm.conns))
	for c := range cm.conns {
		conns = append(conns, c)
	}
	cm.mu.RUnlock()

	for _, c := range conns {
		cm.unregister(c)
	}
}

// Broadcast queues an event for delivery. The event is dropped when the
// queue is full.
func (cm *ConnectionManager) Broadcast(env events.Envelope) {
	select {
	case cm.broadcastCh <- env:
	default:
		cm.metrics.Dropped("queue_full")
		log.Warn().Str("event_id", env.EventID).Msg("broadcast channel full, dropping message")
	}
}

func (cm *ConnectionManager) deliver(env events.Envelope) {
	data, err := json.Marshal(env)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal event for broadcast")
		return
	}

	cm.mu.RLock()
	var targets []*Connection
	for c := range cm.conns {
		if c.Scope.Wants(env) {
			targets = append(targets, c)
		}
	}
	cm.mu.RUnlock()

	for _, c := range targets {
		if !cm.trySend(c, data) {
			// slow reader; dropping it keeps the fan-out from stalling
			cm.metrics.Dropped("slow_consumer")
			log.Warn().
				Str("connection_id", c.ID).
				Str("user_id", c.UserID).
				Msg("connection send buffer full, closing connection")
			cm.unregister(c)
		}
	}

	cm.metrics.Broadcast(env.EventType)
	log.Debug().
		Str("event_type", env.EventType).
		Str("group_id", env.GroupID).
		Int("connections", len(targets)).
		Msg("event broadcasted")
}

// trySend holds the read lock so Send cannot be closed underneath it.
func (cm *ConnectionManager) trySend(c *Connection, data []byte) bool {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	if _, ok := cm.conns[c]; !ok {
		return true
	}
	select {
	case c.Send <- data:
		return true
	default:
		return false
	}
}

type ConnectionStats struct {
	TotalConnections int            `json:"total_connections"`
	Directors        int            `json:"directors"`
	Groups           map[string]int `json:"groups"`
}

func (cm *ConnectionManager) Stats() ConnectionStats {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	stats := ConnectionStats{TotalConnections: len(cm.conns), Groups: make(map[string]int)}
	for c := range cm.conns {
		switch {
		case c.Scope.All:
			stats.Directors++
		case c.Scope.GroupID != nil:
			stats.Groups[c.Scope.GroupID.String()]++
		}
	}
	return stats
}

func (c *Connection) writePump() {
	ticker := time.NewTicker(c.Manager.config.PingInterval)
	defer func() {
		ticker.Stop()
		_ = c.Conn.Close()
		c.Manager.unregister(c)
	}()

	for {
		select {
		case message, ok := <-c.Send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if !ok {
				_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Error().Err(err).Str("connection_id", c.ID).Msg("failed to write message to WebSocket")
				return
			}

		case <-ticker.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Error().Err(err).Str("connection_id", c.ID).Msg("failed to send ping")
				return
			}
		}
	}
}

// readPump only services control frames; clients have nothing to say.
func (c *Connection) readPump() {
	defer func() {
		c.Manager.unregister(c)
		_ = c.Conn.Close()
	}()

	c.Conn.SetReadLimit(c.Manager.config.MaxMessageSize)
	_ = c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	})

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Error().Err(err).Str("connection_id", c.ID).Msg("unexpected WebSocket close error")
			}
			return
		}
		_ = c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	}
}
