// Package session keeps one player connected to a card game server.
//
// A [Session] owns a TCP [transport.Transport], a receive loop that turns
// server lines into [protocol.Event] values, and a [liveness.Monitor] that
// notices a silent peer. When the connection dies the session starts a single
// reconnection worker that redials with a fixed delay and, on success, sends
// a re-entry frame carrying the stored username before any other traffic.
//
// # Basic Usage
//
//	cfg := session.DefaultConfig("localhost:7777", "bob")
//	s, err := session.New(cfg, session.WithLogger(logger))
//	if err != nil {
//	    return err
//	}
//	s.SetMessageHandler(func(ev protocol.Event) {
//	    fmt.Println(ev.Name, ev.Fields)
//	})
//	if err := s.Connect(ctx); err != nil {
//	    return err // *transport.ConnectError
//	}
//	s.SendAction(protocol.ActionEnter)
//	defer s.Disconnect()
//
// # State
//
// The state machine lives in [lifecycle.Manager]:
//
//	Idle -> Connecting -> Connected -> LivenessLost -> Reconnecting -> Connected
//	                                                                -> PermanentlyFailed
//
// Disconnect returns to Idle from any non-terminal state and cancels an
// in-flight reconnection. PermanentlyFailed is terminal; build a new Session.
//
// # Events
//
// State changes and reconnection progress are published on [Session.Events]
// so a presentation layer can consume them on its own schedule. The channel
// is buffered and never blocks the session; events are dropped when it is
// full. Terminal failure is also reported once through the [Notifier].
package session
