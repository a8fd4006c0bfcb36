// Package room implements the relay's per-room state machine: membership,
// chat history, question-state tracking, and fan-out to peers.
//
// The package is transport-agnostic: peers are addressed through the Peer
// interface, whose Send is a non-blocking best-effort enqueue. Every mutating
// operation on a Room is serialized by the room's own mutex; operations on
// different rooms never contend.
package room

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/glasscall/relay/internal/metrics"
)

// Addressing modes for Relay.
const (
	RelayToHost       = "host"
	RelayToAllJoiners = "all_joiners"
)

// Peer is one connected client as seen by a Room.
//
// Send enqueues an outbound envelope for delivery and must never block; it
// returns false when the message was dropped (peer gone or backlogged). The
// Room holds peers as non-owning references; the transport layer owns the
// underlying connection.
type Peer interface {
	ID() string
	Send(v any) bool
}

type joiner struct {
	peer  Peer
	name  string
	state QuestionState
}

// Room aggregates exactly one host, a set of joiners, and an append-only
// chat log. A Room with zero joiners is valid; a Room never outlives its
// host.
type Room struct {
	id      string
	host    Peer
	metrics *metrics.Metrics

	maxJoiners int

	mu      sync.Mutex
	joiners map[string]*joiner
	chat    []ChatMessage
	ended   bool
}

func newRoom(id string, host Peer, maxJoiners int, m *metrics.Metrics) *Room {
	return &Room{
		id:         id,
		host:       host,
		metrics:    m,
		maxJoiners: maxJoiners,
		joiners:    make(map[string]*joiner),
	}
}

func (r *Room) ID() string { return r.id }

// HostID returns the host connection's id.
func (r *Room) HostID() string { return r.host.ID() }

func (r *Room) JoinerCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.joiners)
}

// JoinerState reports the question state of a joiner, if present.
func (r *Room) JoinerState(id string) (QuestionState, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.joiners[id]
	if !ok {
		return StateIdle, false
	}
	return j.state, true
}

// Join adds p to the room, notifies the host, and replays the chat log as it
// exists at join time to p only. Messages sent after the join arrive via live
// broadcasts, never via replay.
func (r *Room) Join(p Peer, displayName string) error {
	r.mu.Lock()
	if r.ended {
		r.mu.Unlock()
		return ErrRoomNotFound
	}
	if r.maxJoiners > 0 && len(r.joiners) >= r.maxJoiners {
		r.mu.Unlock()
		return ErrRoomFull
	}

	r.joiners[p.ID()] = &joiner{peer: p, name: displayName, state: StateIdle}
	history := make([]ChatMessage, len(r.chat))
	copy(history, r.chat)
	r.mu.Unlock()

	r.metrics.Inc(metrics.RoomJoins)

	r.send(r.host, userJoinedEvent{Type: EventUserJoined, UserID: p.ID(), UserName: displayName})
	r.send(p, chatHistoryEvent{Type: EventChatHistory, Messages: history})
	return nil
}

// Leave removes p from the room. A departing host ends the room: every
// remaining joiner gets a terminal class_ended event and Leave reports
// ended=true so the caller can drop the room from its registry. A departing
// joiner notifies the host. Leaving a room one is not in is a no-op.
func (r *Room) Leave(p Peer) (ended bool) {
	r.mu.Lock()
	if r.ended {
		r.mu.Unlock()
		return false
	}

	if p.ID() == r.host.ID() {
		peers := r.endLocked()
		r.mu.Unlock()
		for _, jp := range peers {
			r.send(jp, classEndedEvent{Type: EventClassEnded})
		}
		return true
	}

	if _, ok := r.joiners[p.ID()]; !ok {
		r.mu.Unlock()
		return false
	}
	delete(r.joiners, p.ID())
	r.mu.Unlock()

	r.send(r.host, userLeftEvent{Type: EventUserLeft, UserID: p.ID()})
	return false
}

// End terminates the room on behalf of p. It reports false without side
// effects unless p is the host.
func (r *Room) End(p Peer) bool {
	if p.ID() != r.host.ID() {
		return false
	}

	r.mu.Lock()
	if r.ended {
		r.mu.Unlock()
		return true
	}
	peers := r.endLocked()
	r.mu.Unlock()

	for _, jp := range peers {
		r.send(jp, classEndedEvent{Type: EventClassEnded})
	}
	return true
}

// endLocked marks the room ended and returns a snapshot of the joiner peers
// to notify. Callers hold r.mu.
func (r *Room) endLocked() []Peer {
	r.ended = true
	peers := make([]Peer, 0, len(r.joiners))
	for _, j := range r.joiners {
		peers = append(peers, j.peer)
	}
	r.joiners = make(map[string]*joiner)
	return peers
}

// Relay forwards an opaque, already from-tagged signaling payload to the
// addressing target: the host, every joiner, or one joiner by id. A target
// id that is not a member is an expected race with disconnects and is
// silently dropped.
func (r *Room) Relay(sender Peer, to string, payload json.RawMessage) error {
	r.mu.Lock()
	if r.ended {
		r.mu.Unlock()
		return ErrRoomNotFound
	}

	switch to {
	case RelayToHost:
		host := r.host
		r.mu.Unlock()
		r.send(host, payload)
	case RelayToAllJoiners:
		peers := r.joinerPeersLocked()
		r.mu.Unlock()
		for _, p := range peers {
			r.send(p, payload)
		}
	default:
		j, ok := r.joiners[to]
		r.mu.Unlock()
		if !ok {
			r.metrics.Inc(metrics.DropReasonTargetUnreachable)
			return nil
		}
		r.send(j.peer, payload)
	}

	r.metrics.Inc(metrics.SignalsRelayed)
	return nil
}

// BroadcastChat appends a chat message and delivers it to the host and every
// joiner present at send time, including the sender. Senders recognize their
// own messages client-side by comparing senderID.
func (r *Room) BroadcastChat(sender Peer, senderName, text string) (ChatMessage, error) {
	msg := ChatMessage{
		SenderID:   sender.ID(),
		SenderName: senderName,
		Text:       text,
		Timestamp:  time.Now().UnixMilli(),
	}

	r.mu.Lock()
	if r.ended {
		r.mu.Unlock()
		return ChatMessage{}, ErrRoomNotFound
	}
	r.chat = append(r.chat, msg)
	peers := r.joinerPeersLocked()
	host := r.host
	r.mu.Unlock()

	r.metrics.Inc(metrics.ChatMessages)

	event := newChatMessageEvent{Type: EventNewChatMessage, Message: msg}
	r.send(host, event)
	for _, p := range peers {
		r.send(p, event)
	}
	return msg, nil
}

// HandRaise forwards a question request to the host and moves the raising
// joiner Idle -> HandRaised. A raise from any other state is rejected with no
// outbound event.
func (r *Room) HandRaise(userID, userName string) {
	r.mu.Lock()
	if r.ended {
		r.mu.Unlock()
		return
	}
	j, ok := r.joiners[userID]
	if !ok {
		r.mu.Unlock()
		r.metrics.Inc(metrics.DropReasonTargetUnreachable)
		return
	}
	if j.state != StateIdle {
		r.mu.Unlock()
		r.metrics.Inc(metrics.RejectedStateTransition)
		return
	}
	j.state = StateHandRaised
	host := r.host
	r.mu.Unlock()

	r.send(host, questionRequestEvent{Type: EventQuestionRequest, UserID: userID, UserName: userName})
}

// AllowUnmute grants the target joiner the floor (-> Speaking) and sends it
// an unmute_allowed directive. An unknown target is silently dropped; a
// target already speaking is a rejected transition.
func (r *Room) AllowUnmute(targetID string) {
	r.setMute(targetID, false)
}

// ForceMute revokes the target joiner's floor (-> Idle) and sends it a
// mute_enforced directive. An unknown target is silently dropped; a target
// already idle is a rejected transition.
func (r *Room) ForceMute(targetID string) {
	r.setMute(targetID, true)
}

func (r *Room) setMute(targetID string, muted bool) {
	r.mu.Lock()
	if r.ended {
		r.mu.Unlock()
		return
	}
	j, ok := r.joiners[targetID]
	if !ok {
		r.mu.Unlock()
		r.metrics.Inc(metrics.DropReasonTargetUnreachable)
		return
	}

	if muted {
		if j.state == StateIdle {
			r.mu.Unlock()
			r.metrics.Inc(metrics.RejectedStateTransition)
			return
		}
		j.state = StateIdle
	} else {
		if j.state == StateSpeaking {
			r.mu.Unlock()
			r.metrics.Inc(metrics.RejectedStateTransition)
			return
		}
		j.state = StateSpeaking
	}
	target := j.peer
	r.mu.Unlock()

	if muted {
		r.send(target, muteEnforcedEvent{Type: EventMuteEnforced})
	} else {
		r.send(target, unmuteAllowedEvent{Type: EventUnmuteAllowed})
	}
}

// joinerPeersLocked snapshots the joiner peers so fan-out never iterates a
// map that a concurrent leave may mutate. Callers hold r.mu.
func (r *Room) joinerPeersLocked() []Peer {
	peers := make([]Peer, 0, len(r.joiners))
	for _, j := range r.joiners {
		peers = append(peers, j.peer)
	}
	return peers
}

func (r *Room) send(p Peer, v any) {
	if !p.Send(v) {
		r.metrics.Inc(metrics.DropReasonBackpressure)
	}
}
