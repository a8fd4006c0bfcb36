package room

// QuestionState tracks where a joiner is in the raise-hand/speak cycle.
//
// Transitions are driven exclusively by room operations: HandRaise moves
// Idle -> HandRaised, AllowUnmute moves Idle/HandRaised -> Speaking, and
// ForceMute moves HandRaised/Speaking -> Idle. Anything else is rejected.
type QuestionState int

const (
	StateIdle QuestionState = iota
	StateHandRaised
	StateSpeaking
)

func (s QuestionState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateHandRaised:
		return "hand_raised"
	case StateSpeaking:
		return "speaking"
	default:
		return "unknown"
	}
}
