package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cardlink/cardlink/pkg/lifecycle"
)

func forceState(t *testing.T, s *Session, path ...lifecycle.State) {
	t.Helper()
	for _, st := range path {
		if err := s.lc.TransitionTo(st, "test"); err != nil {
			t.Fatalf("TransitionTo(%v) error = %v", st, err)
		}
	}
}

func drainStates(s *Session) []lifecycle.State {
	var states []lifecycle.State
	for {
		select {
		case ev := <-s.Events():
			if ev.Kind == EventStateChanged {
				states = append(states, ev.To)
			}
		default:
			return states
		}
	}
}

func TestSession_ReconnectYieldsToDisconnect(t *testing.T) {
	s := newTestSession(t, testConfig("127.0.0.1:1"))
	forceState(t, s, lifecycle.StateConnecting, lifecycle.StateConnected, lifecycle.StateLivenessLost)
	drainStates(s)

	// Holding s.mu stands in for a Disconnect in progress.
	s.mu.Lock()
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.reconnect(context.Background(), errors.New("lost"))
	}()
	time.Sleep(50 * time.Millisecond)
	if got := s.State(); got != lifecycle.StateLivenessLost {
		s.mu.Unlock()
		t.Fatalf("state = %v while s.mu held, want LivenessLost", got)
	}
	if err := s.lc.TransitionTo(lifecycle.StateIdle, "disconnect"); err != nil {
		s.mu.Unlock()
		t.Fatalf("TransitionTo(Idle) error = %v", err)
	}
	s.mu.Unlock()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("reconnect did not return")
	}

	states := drainStates(s)
	if len(states) != 1 || states[0] != lifecycle.StateIdle {
		t.Errorf("state events = %v, want [Idle]", states)
	}
}

func TestSession_FailKeepsNewCancel(t *testing.T) {
	notifier := &countingNotifier{}
	s := newTestSession(t, testConfig("127.0.0.1:1"), WithNotifier(notifier))

	// A fresh Connect owns s.cancel after the worker was disconnected.
	forceState(t, s, lifecycle.StateConnecting)
	cancelled := false
	s.mu.Lock()
	s.cancel = func() { cancelled = true }
	s.mu.Unlock()

	s.fail(3, errors.New("refused"))

	s.mu.Lock()
	kept := s.cancel != nil
	s.mu.Unlock()
	if !kept {
		t.Error("fail cleared the cancel func of a later Connect")
	}
	if got := s.State(); got != lifecycle.StateConnecting {
		t.Errorf("state = %v, want Connecting", got)
	}
	if n := len(notifier.calls()); n != 0 {
		t.Errorf("notifier calls = %d, want 0", n)
	}

	s.Disconnect()
	if !cancelled {
		t.Error("Disconnect did not reach the kept cancel func")
	}
}
