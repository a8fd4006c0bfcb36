package room

import (
	"crypto/rand"
	"fmt"
	"sync"

	"github.com/glasscall/relay/internal/metrics"
)

// roomIDLength keeps ids short enough to read over a call, matching the
// tokens clients already expect.
const roomIDLength = 7

const roomIDCharset = "0123456789abcdefghijklmnopqrstuvwxyz"

// maxRoomIDAttempts bounds the regenerate-on-collision loop. With 36^7 ids
// the loop effectively never exhausts unless the id space is nearly full.
const maxRoomIDAttempts = 10

// Registry is the process-wide mapping from room id to live Room.
//
// It is an explicit object rather than ambient package state so tests can run
// isolated registries side by side. The registry guards only the id->Room
// table; each Room serializes its own membership and chat mutations.
type Registry struct {
	maxRooms          int
	maxJoinersPerRoom int
	metrics           *metrics.Metrics

	mu    sync.Mutex
	rooms map[string]*Room
}

// NewRegistry creates an empty registry. maxRooms and maxJoinersPerRoom <= 0
// mean unlimited.
func NewRegistry(maxRooms, maxJoinersPerRoom int, m *metrics.Metrics) *Registry {
	return &Registry{
		maxRooms:          maxRooms,
		maxJoinersPerRoom: maxJoinersPerRoom,
		metrics:           m,
		rooms:             make(map[string]*Room),
	}
}

// Create allocates a new Room hosted by host, under an id guaranteed unique
// among live rooms. A generated id that collides with a live room is
// discarded and regenerated, never silently overwritten.
func (g *Registry) Create(host Peer) (*Room, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.maxRooms > 0 && len(g.rooms) >= g.maxRooms {
		return nil, ErrTooManyRooms
	}

	for attempt := 0; attempt < maxRoomIDAttempts; attempt++ {
		id, err := newRoomID()
		if err != nil {
			return nil, err
		}
		if _, exists := g.rooms[id]; exists {
			g.metrics.Inc(metrics.RoomIDCollisions)
			continue
		}

		r := newRoom(id, host, g.maxJoinersPerRoom, g.metrics)
		g.rooms[id] = r
		g.metrics.Inc(metrics.RoomsCreated)
		return r, nil
	}

	return nil, fmt.Errorf("generate room id: %d consecutive collisions", maxRoomIDAttempts)
}

// Get resolves a live room by id.
func (g *Registry) Get(id string) (*Room, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	r, ok := g.rooms[id]
	if !ok {
		return nil, ErrRoomNotFound
	}
	return r, nil
}

// Destroy removes the room from the registry. Destroying an unknown or
// already-destroyed id is a no-op.
func (g *Registry) Destroy(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.rooms[id]; !ok {
		return
	}
	delete(g.rooms, id)
	g.metrics.Inc(metrics.RoomsDestroyed)
}

// Len reports the number of live rooms.
func (g *Registry) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.rooms)
}

// newRoomID draws a short lowercase base-36 token from crypto/rand, using
// rejection sampling to keep the character distribution uniform.
func newRoomID() (string, error) {
	// Largest multiple of len(roomIDCharset) below 256.
	const limit = byte(256 / len(roomIDCharset) * len(roomIDCharset))

	id := make([]byte, 0, roomIDLength)
	var buf [16]byte
	for len(id) < roomIDLength {
		if _, err := rand.Read(buf[:]); err != nil {
			return "", fmt.Errorf("generate room id: %w", err)
		}
		for _, b := range buf {
			if b >= limit {
				continue
			}
			id = append(id, roomIDCharset[int(b)%len(roomIDCharset)])
			if len(id) == roomIDLength {
				break
			}
		}
	}
	return string(id), nil
}
