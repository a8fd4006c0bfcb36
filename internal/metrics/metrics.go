package metrics

import "sync"

// Event counter names.
const (
	WSConnections    = "ws_connections"
	WSDisconnections = "ws_disconnections"

	RoomsCreated     = "rooms_created"
	RoomsDestroyed   = "rooms_destroyed"
	RoomIDCollisions = "room_id_collisions"
	RoomJoins        = "room_joins"

	ChatMessages   = "chat_messages"
	SignalsRelayed = "signals_relayed"

	// Drop reasons.
	DropReasonMalformed         = "dropped_malformed"
	DropReasonUnknownType       = "dropped_unknown_type"
	DropReasonUnauthorized      = "dropped_unauthorized"
	DropReasonTargetUnreachable = "dropped_target_unreachable"
	DropReasonBackpressure      = "dropped_backpressure"
	DropReasonRateLimited       = "dropped_rate_limited"
	DropReasonOversized         = "dropped_oversized"
	DropReasonRoomNotFound      = "dropped_room_not_found"
	RejectedStateTransition     = "rejected_state_transition"
)

// Metrics is a minimal, concurrency-safe counter registry.
//
// It exists so dispatch and fan-out decisions stay observable and testable
// without pulling a metrics backend into the relay's hot path; /metrics
// exposes the counters in Prometheus' text format.
type Metrics struct {
	mu sync.Mutex
	m  map[string]uint64
}

func New() *Metrics {
	return &Metrics{
		m: make(map[string]uint64),
	}
}

func (m *Metrics) Inc(name string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	m.m[name]++
	m.mu.Unlock()
}

func (m *Metrics) Add(name string, n uint64) {
	if m == nil {
		return
	}
	m.mu.Lock()
	m.m[name] += n
	m.mu.Unlock()
}

func (m *Metrics) Get(name string) uint64 {
	if m == nil {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.m[name]
}

// Snapshot returns a copy of all counters.
func (m *Metrics) Snapshot() map[string]uint64 {
	if m == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]uint64, len(m.m))
	for k, v := range m.m {
		out[k] = v
	}
	return out
}
