// Package signaling terminates the GlassCall WebSocket protocol: room
// lifecycle, opaque WebRTC signal relay, raise-hand coordination, and chat.
package signaling

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/glasscall/relay/internal/config"
	"github.com/glasscall/relay/internal/metrics"
	"github.com/glasscall/relay/internal/origin"
	"github.com/glasscall/relay/internal/ratelimit"
	"github.com/glasscall/relay/internal/room"
)

const wsWriteWait = 1 * time.Second

// Server upgrades signaling connections and runs one read loop per client.
//
// It enforces per-connection limits (message size, message rate, idle
// timeout) so a single misbehaving client cannot hold resources or flood a
// room.
type Server struct {
	cfg      config.Config
	log      *slog.Logger
	registry *room.Registry
	metrics  *metrics.Metrics
	clock    ratelimit.Clock
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*client]struct{}
	closed  bool
}

func NewServer(cfg config.Config, log *slog.Logger, registry *room.Registry, m *metrics.Metrics) *Server {
	s := &Server{
		cfg:      cfg,
		log:      log,
		registry: registry,
		metrics:  m,
		clock:    ratelimit.RealClock{},
		clients:  make(map[*client]struct{}),
	}
	s.upgrader = websocket.Upgrader{CheckOrigin: s.checkOrigin}
	return s
}

// checkOrigin admits requests without an Origin header (non-browser clients)
// and otherwise applies the configured allowlist, defaulting to same-host.
func (s *Server) checkOrigin(r *http.Request) bool {
	header := strings.TrimSpace(r.Header.Get("Origin"))
	if header == "" {
		return true
	}
	normalized, originHost, ok := origin.Normalize(header)
	if !ok {
		return false
	}
	return origin.Allowed(normalized, originHost, r.Host, s.cfg.AllowedOrigins)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error response.
		return
	}

	c := newClient(conn, s.log, s.cfg.SendQueueMessages)
	if !s.track(c) {
		writeClose(conn, websocket.CloseGoingAway, "server shutting down")
		_ = conn.Close()
		return
	}

	s.metrics.Inc(metrics.WSConnections)
	c.log.Debug("signaling connection opened", slog.String("remote", conn.RemoteAddr().String()))

	go c.writeLoop(s.cfg.SignalingWSPingInterval, wsWriteWait)

	s.readLoop(c)

	s.handleDisconnect(c)
	c.close()
	s.untrack(c)
	s.metrics.Inc(metrics.WSDisconnections)
	c.log.Debug("signaling connection closed")
}

func (s *Server) readLoop(c *client) {
	conn := c.conn
	conn.SetReadLimit(s.cfg.MaxSignalingMessageBytes)

	resetIdle := func() {
		_ = conn.SetReadDeadline(s.clock.Now().Add(s.cfg.SignalingWSIdleTimeout))
	}
	resetIdle()
	conn.SetPongHandler(func(string) error {
		resetIdle()
		return nil
	})

	rate := int64(s.cfg.MaxSignalingMessagesPerSecond)
	bucket := ratelimit.NewTokenBucket(s.clock, rate, rate)

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if errors.Is(err, websocket.ErrReadLimit) {
				s.metrics.Inc(metrics.DropReasonOversized)
				writeClose(conn, websocket.CloseMessageTooBig, "message too large")
			}
			return
		}
		resetIdle()
		if msgType != websocket.TextMessage {
			writeClose(conn, websocket.CloseUnsupportedData, "expected text message")
			return
		}

		if !bucket.Allow(1) {
			s.metrics.Inc(metrics.DropReasonRateLimited)
			writeClose(conn, websocket.ClosePolicyViolation, "rate limit exceeded")
			return
		}

		env, err := parseEnvelope(data)
		if err == nil {
			err = env.validate()
		}
		if err != nil {
			s.metrics.Inc(metrics.DropReasonMalformed)
			c.Send(errorEnvelope("Invalid message format."))
			continue
		}

		s.dispatch(c, env)
	}
}

// track registers c, refusing new clients once Close has begun.
func (s *Server) track(c *client) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.clients[c] = struct{}{}
	return true
}

func (s *Server) untrack(c *client) {
	s.mu.Lock()
	delete(s.clients, c)
	s.mu.Unlock()
}

// Close tears down every live connection. Read loops observe the closed
// socket, run their normal disconnect path, and unregister themselves.
func (s *Server) Close() {
	s.mu.Lock()
	s.closed = true
	clients := make([]*client, 0, len(s.clients))
	for c := range s.clients {
		clients = append(clients, c)
	}
	s.mu.Unlock()

	for _, c := range clients {
		writeClose(c.conn, websocket.CloseGoingAway, "server shutting down")
		c.close()
	}
}

func writeClose(conn *websocket.Conn, code int, reason string) {
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), time.Now().Add(wsWriteWait))
}
