package signaling

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Inbound message types.
const (
	msgCreateRoom    = "create_room"
	msgJoinRoom      = "join_room"
	msgWebRTCSignal  = "webrtc_signal"
	msgRaiseHand     = "raise_hand"
	msgUnmuteCommand = "unmute_command"
	msgMuteCommand   = "mute_command"
	msgChatMessage   = "chat_message"
	msgEndClass      = "end_class"
)

// envelope is the routing header shared by all inbound messages. Only the
// fields the relay itself acts on are decoded; the raw bytes are retained so
// webrtc_signal payloads pass through without interpretation.
type envelope struct {
	Type         string `json:"type"`
	RoomID       string `json:"roomID"`
	UserName     string `json:"userName"`
	Text         string `json:"text"`
	TargetUserID string `json:"targetUserID"`
	To           string `json:"to"`

	raw json.RawMessage
}

var errMalformed = errors.New("malformed message")

func parseEnvelope(data []byte) (envelope, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return envelope{}, fmt.Errorf("%w: %v", errMalformed, err)
	}
	if env.Type == "" {
		return envelope{}, fmt.Errorf("%w: missing type", errMalformed)
	}
	env.raw = data
	return env, nil
}

// validate checks the per-type required routing fields. Payload contents
// beyond routing are not the relay's business.
func (e envelope) validate() error {
	switch e.Type {
	case msgJoinRoom, msgEndClass:
		if e.RoomID == "" {
			return fmt.Errorf("%w: %s requires roomID", errMalformed, e.Type)
		}
	case msgWebRTCSignal:
		if e.RoomID == "" || e.To == "" {
			return fmt.Errorf("%w: webrtc_signal requires roomID and to", errMalformed)
		}
	case msgUnmuteCommand, msgMuteCommand:
		if e.RoomID == "" || e.TargetUserID == "" {
			return fmt.Errorf("%w: %s requires roomID and targetUserID", errMalformed, e.Type)
		}
	case msgChatMessage:
		if e.Text == "" {
			return fmt.Errorf("%w: chat_message requires text", errMalformed)
		}
	}
	return nil
}

// retagSignal stamps the sender's connection id onto an opaque signal payload
// as "from", preserving every other field byte for byte. The receiving side
// uses it to address its reply.
func retagSignal(raw json.RawMessage, from string) (json.RawMessage, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("%w: %v", errMalformed, err)
	}
	encoded, err := json.Marshal(from)
	if err != nil {
		return nil, err
	}
	fields["from"] = encoded
	return json.Marshal(fields)
}

// Outbound control envelopes owned by the signaling layer itself. Room
// membership and coordination events are built by the room package.

type roomCreatedEvent struct {
	Type   string `json:"type"`
	RoomID string `json:"roomID"`
}

type errorEvent struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func errorEnvelope(message string) errorEvent {
	return errorEvent{Type: "error", Message: message}
}
