package signaling

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

type role int

const (
	roleNone role = iota
	roleHost
	roleJoiner
)

// client is one WebSocket connection. It owns the outbound queue and write
// goroutine; all session fields (roomID, role, name) belong to the read loop
// and are never touched from other goroutines.
type client struct {
	id   string
	conn *websocket.Conn
	log  *slog.Logger

	out       chan any
	done      chan struct{}
	closeOnce sync.Once

	roomID string
	role   role
	name   string
}

func newClient(conn *websocket.Conn, log *slog.Logger, queueSize int) *client {
	id := uuid.NewString()
	return &client{
		id:   id,
		conn: conn,
		log:  log.With(slog.String("conn_id", id)),
		out:  make(chan any, queueSize),
		done: make(chan struct{}),
	}
}

func (c *client) ID() string { return c.id }

// Send enqueues v for delivery and reports whether it was accepted. It never
// blocks: a full queue or a closed connection drops the message, and the
// caller decides whether that matters.
func (c *client) Send(v any) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.out <- v:
		return true
	case <-c.done:
		return false
	default:
		return false
	}
}

// close stops the write loop and tears down the underlying connection. Safe
// to call more than once and from any goroutine.
func (c *client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}

// writeLoop drains the outbound queue onto the wire and keeps the connection
// alive with periodic pings. It exits when close is called or a write fails.
func (c *client) writeLoop(pingInterval, writeWait time.Duration) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	defer c.close()

	for {
		select {
		case v := <-c.out:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(v); err != nil {
				c.log.Debug("signaling write failed", slog.String("error", err.Error()))
				return
			}
		case <-ticker.C:
			deadline := time.Now().Add(writeWait)
			if err := c.conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}
