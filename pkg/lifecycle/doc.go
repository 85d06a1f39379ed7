// Package lifecycle provides the connection state machine shared by a
// session's receive loop, liveness monitor and reconnection worker.
//
// All shared connection state lives in one Manager value and changes only
// through TransitionTo or CompareAndTransition, which validate the edge
// under a lock and notify an EventEmitter outside it.
//
// # State Machine
//
// Valid state transitions:
//   - Idle -> Connecting
//   - Connecting -> Connected, Idle
//   - Connected -> LivenessLost, Idle
//   - LivenessLost -> Reconnecting, Idle
//   - Reconnecting -> Connected, PermanentlyFailed, Idle
//
// PermanentlyFailed is terminal.
//
// # Usage
//
//	m := lifecycle.NewManager(logger, emitter)
//	if !m.CompareAndTransition(lifecycle.StateConnected, lifecycle.StateLivenessLost, "read error") {
//	    return // another goroutine already owns recovery
//	}
package lifecycle
