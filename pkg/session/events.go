package session

import (
	"fmt"
	"time"

	"github.com/cardlink/cardlink/pkg/lifecycle"
	"github.com/cardlink/cardlink/pkg/protocol"
)

// EventKind identifies a session event.
type EventKind int

const (
	// EventStateChanged is published on every state transition.
	EventStateChanged EventKind = iota
	// EventReconnectAttempt is published before each reconnection dial.
	EventReconnectAttempt
	// EventReconnected is published once a reconnection succeeded.
	EventReconnected
	// EventPermanentFailure is published when reconnection gave up.
	EventPermanentFailure
)

func (k EventKind) String() string {
	switch k {
	case EventStateChanged:
		return "StateChanged"
	case EventReconnectAttempt:
		return "ReconnectAttempt"
	case EventReconnected:
		return "Reconnected"
	case EventPermanentFailure:
		return "PermanentFailure"
	default:
		return "Unknown"
	}
}

// Event is a notification about the session itself, as opposed to a message
// from the server.
type Event struct {
	Kind EventKind
	Time time.Time

	// From and To are set for EventStateChanged.
	From   lifecycle.State
	To     lifecycle.State
	Reason string

	// Attempt is set for EventReconnectAttempt, EventReconnected and
	// EventPermanentFailure.
	Attempt int

	// Err is set for EventPermanentFailure.
	Err error
}

func (e Event) String() string {
	switch e.Kind {
	case EventStateChanged:
		return fmt.Sprintf("%s %s -> %s (%s)", e.Kind, e.From, e.To, e.Reason)
	case EventPermanentFailure:
		return fmt.Sprintf("%s after %d attempts: %v", e.Kind, e.Attempt, e.Err)
	default:
		return fmt.Sprintf("%s #%d", e.Kind, e.Attempt)
	}
}

// MessageHandler receives every inbound server message. It runs on the
// receive goroutine; a slow handler delays the next read.
type MessageHandler func(ev protocol.Event)

// Notifier is told about terminal failure.
type Notifier interface {
	NotifyFailure(err error)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(err error)

// NotifyFailure calls f(err).
func (f NotifierFunc) NotifyFailure(err error) { f(err) }

// stateEvents bridges lifecycle transitions to the session's event channel
// and state gauge.
type stateEvents struct {
	s *Session
}

func (e stateEvents) OnStateChange(previous, current lifecycle.State, reason string) {
	e.s.metrics.SetState(current.String(), stateNames)
	e.s.publish(Event{Kind: EventStateChanged, From: previous, To: current, Reason: reason})
}

var stateNames = func() []string {
	names := make([]string, len(lifecycle.States))
	for i, s := range lifecycle.States {
		names[i] = s.String()
	}
	return names
}()
