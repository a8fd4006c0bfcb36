package room

// Outbound event envelopes fanned out by a Room. Field names follow the wire
// protocol exactly; clients switch on the `type` discriminator.

const (
	EventUserJoined      = "user_joined"
	EventUserLeft        = "user_left"
	EventChatHistory     = "chat_history"
	EventNewChatMessage  = "new_chat_message"
	EventClassEnded      = "class_ended"
	EventQuestionRequest = "question_request"
	EventUnmuteAllowed   = "unmute_allowed"
	EventMuteEnforced    = "mute_enforced"
)

// ChatMessage is one chat log entry. Immutable once appended; Timestamp is
// milliseconds since the Unix epoch.
type ChatMessage struct {
	SenderID   string `json:"senderID"`
	SenderName string `json:"senderName"`
	Text       string `json:"text"`
	Timestamp  int64  `json:"timestamp"`
}

type userJoinedEvent struct {
	Type     string `json:"type"`
	UserID   string `json:"userID"`
	UserName string `json:"userName"`
}

type userLeftEvent struct {
	Type   string `json:"type"`
	UserID string `json:"userID"`
}

type chatHistoryEvent struct {
	Type     string        `json:"type"`
	Messages []ChatMessage `json:"messages"`
}

type newChatMessageEvent struct {
	Type    string      `json:"type"`
	Message ChatMessage `json:"message"`
}

type classEndedEvent struct {
	Type string `json:"type"`
}

type questionRequestEvent struct {
	Type     string `json:"type"`
	UserID   string `json:"userID"`
	UserName string `json:"userName"`
}

type unmuteAllowedEvent struct {
	Type string `json:"type"`
}

type muteEnforcedEvent struct {
	Type string `json:"type"`
}
