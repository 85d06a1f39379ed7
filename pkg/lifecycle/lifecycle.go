package lifecycle

// State is the connection state of a session.
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateConnected
	StateLivenessLost
	StateReconnecting
	StatePermanentlyFailed
)

// States lists every state in declaration order.
var States = []State{
	StateIdle,
	StateConnecting,
	StateConnected,
	StateLivenessLost,
	StateReconnecting,
	StatePermanentlyFailed,
}

// String returns a human-readable representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateConnecting:
		return "Connecting"
	case StateConnected:
		return "Connected"
	case StateLivenessLost:
		return "LivenessLost"
	case StateReconnecting:
		return "Reconnecting"
	case StatePermanentlyFailed:
		return "PermanentlyFailed"
	default:
		return "Unknown"
	}
}

// Terminal reports whether no transition leaves s.
func (s State) Terminal() bool {
	return s == StatePermanentlyFailed
}

// EventEmitter is called when the state changes.
type EventEmitter interface {
	OnStateChange(previous, current State, reason string)
}

// transitions holds the valid edges of the state machine.
var transitions = map[State][]State{
	StateIdle:         {StateConnecting},
	StateConnecting:   {StateConnected, StateIdle},
	StateConnected:    {StateLivenessLost, StateIdle},
	StateLivenessLost: {StateReconnecting, StateIdle},
	StateReconnecting: {StateConnected, StatePermanentlyFailed, StateIdle},
}

// CanTransition reports whether from -> to is a valid edge.
func CanTransition(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}
