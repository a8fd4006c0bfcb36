package signaling

import (
	"errors"
	"log/slog"

	"github.com/glasscall/relay/internal/metrics"
	"github.com/glasscall/relay/internal/room"
)

func (s *Server) dispatch(c *client, env envelope) {
	switch env.Type {
	case msgCreateRoom:
		s.handleCreateRoom(c, env)
	case msgJoinRoom:
		s.handleJoinRoom(c, env)
	case msgWebRTCSignal:
		s.handleSignal(c, env)
	case msgRaiseHand:
		s.handleRaiseHand(c, env)
	case msgUnmuteCommand:
		s.handleMuteState(c, env, false)
	case msgMuteCommand:
		s.handleMuteState(c, env, true)
	case msgChatMessage:
		s.handleChat(c, env)
	case msgEndClass:
		s.handleEndClass(c, env)
	default:
		s.metrics.Inc(metrics.DropReasonUnknownType)
		c.log.Debug("ignoring unknown message type", slog.String("type", env.Type))
	}
}

func (s *Server) handleCreateRoom(c *client, env envelope) {
	if c.role != roleNone {
		c.Send(errorEnvelope("Already in a room."))
		return
	}

	r, err := s.registry.Create(c)
	if err != nil {
		if errors.Is(err, room.ErrTooManyRooms) {
			c.Send(errorEnvelope("Room limit reached."))
			return
		}
		c.log.Error("create room failed", slog.String("error", err.Error()))
		c.Send(errorEnvelope("Failed to create room."))
		return
	}

	c.roomID = r.ID()
	c.role = roleHost
	c.name = env.UserName
	c.log.Info("room created", slog.String("room_id", r.ID()))
	c.Send(roomCreatedEvent{Type: "room_created", RoomID: r.ID()})
}

func (s *Server) handleJoinRoom(c *client, env envelope) {
	if c.role != roleNone {
		c.Send(errorEnvelope("Already in a room."))
		return
	}

	r, err := s.registry.Get(env.RoomID)
	if err != nil {
		s.metrics.Inc(metrics.DropReasonRoomNotFound)
		c.Send(errorEnvelope("Room not found."))
		return
	}

	if err := r.Join(c, env.UserName); err != nil {
		switch {
		case errors.Is(err, room.ErrRoomFull):
			c.Send(errorEnvelope("Room is full."))
		default:
			s.metrics.Inc(metrics.DropReasonRoomNotFound)
			c.Send(errorEnvelope("Room not found."))
		}
		return
	}

	c.roomID = env.RoomID
	c.role = roleJoiner
	c.name = env.UserName
	c.log.Info("joined room", slog.String("room_id", env.RoomID), slog.String("user_name", env.UserName))
}

func (s *Server) handleSignal(c *client, env envelope) {
	r, err := s.registry.Get(env.RoomID)
	if err != nil {
		s.metrics.Inc(metrics.DropReasonRoomNotFound)
		c.Send(errorEnvelope("Room not found."))
		return
	}

	payload, err := retagSignal(env.raw, c.id)
	if err != nil {
		s.metrics.Inc(metrics.DropReasonMalformed)
		c.Send(errorEnvelope("Invalid message format."))
		return
	}

	if err := r.Relay(c, env.To, payload); err != nil {
		s.metrics.Inc(metrics.DropReasonRoomNotFound)
		c.Send(errorEnvelope("Room not found."))
	}
}

func (s *Server) handleRaiseHand(c *client, env envelope) {
	r, ok := s.clientRoom(c)
	if !ok {
		return
	}
	r.HandRaise(c.id, env.UserName)
}

func (s *Server) handleMuteState(c *client, env envelope, muted bool) {
	r, err := s.registry.Get(env.RoomID)
	if err != nil {
		s.metrics.Inc(metrics.DropReasonRoomNotFound)
		c.Send(errorEnvelope("Room not found."))
		return
	}

	// Only the room's host may drive the floor.
	if r.HostID() != c.id {
		s.metrics.Inc(metrics.DropReasonUnauthorized)
		return
	}

	if muted {
		r.ForceMute(env.TargetUserID)
	} else {
		r.AllowUnmute(env.TargetUserID)
	}
}

func (s *Server) handleChat(c *client, env envelope) {
	r, ok := s.clientRoom(c)
	if !ok {
		c.Send(errorEnvelope("Room not found."))
		return
	}

	senderName := env.UserName
	if senderName == "" {
		senderName = c.name
	}
	if _, err := r.BroadcastChat(c, senderName, env.Text); err != nil {
		c.Send(errorEnvelope("Room not found."))
	}
}

func (s *Server) handleEndClass(c *client, env envelope) {
	r, err := s.registry.Get(env.RoomID)
	if err != nil {
		s.metrics.Inc(metrics.DropReasonRoomNotFound)
		c.Send(errorEnvelope("Room not found."))
		return
	}

	if c.role != roleHost || !r.End(c) {
		s.metrics.Inc(metrics.DropReasonUnauthorized)
		return
	}

	s.registry.Destroy(r.ID())
	c.roomID = ""
	c.role = roleNone
	c.log.Info("class ended", slog.String("room_id", r.ID()))
}

// handleDisconnect runs the room cleanup path after the read loop exits: a
// departing host tears the room down, a departing joiner is removed and the
// host notified.
func (s *Server) handleDisconnect(c *client) {
	if c.roomID == "" {
		return
	}
	r, err := s.registry.Get(c.roomID)
	if err != nil {
		return
	}
	if ended := r.Leave(c); ended {
		s.registry.Destroy(r.ID())
		c.log.Info("class ended by disconnect", slog.String("room_id", r.ID()))
	}
}

// clientRoom resolves the room the connection previously created or joined.
func (s *Server) clientRoom(c *client) (*room.Room, bool) {
	if c.roomID == "" {
		return nil, false
	}
	r, err := s.registry.Get(c.roomID)
	if err != nil {
		s.metrics.Inc(metrics.DropReasonRoomNotFound)
		return nil, false
	}
	return r, true
}
