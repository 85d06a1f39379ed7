package lifecycle

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cardlink/cardlink/pkg/log"
)

// mockEmitter tracks state change events for testing.
type mockEmitter struct {
	mu     sync.Mutex
	events []stateChangeEvent
}

type stateChangeEvent struct {
	previous State
	current  State
	reason   string
}

func (m *mockEmitter) OnStateChange(previous, current State, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, stateChangeEvent{previous, current, reason})
}

func (m *mockEmitter) Events() []stateChangeEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]stateChangeEvent{}, m.events...)
}

func TestNewManager(t *testing.T) {
	m := NewManager(nil, nil)

	if m.State() != StateIdle {
		t.Errorf("initial state = %v, want StateIdle", m.State())
	}
}

func TestState_String(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateIdle, "Idle"},
		{StateConnecting, "Connecting"},
		{StateConnected, "Connected"},
		{StateLivenessLost, "LivenessLost"},
		{StateReconnecting, "Reconnecting"},
		{StatePermanentlyFailed, "PermanentlyFailed"},
		{State(99), "Unknown"},
	}

	for _, tt := range tests {
		got := tt.state.String()
		if got != tt.want {
			t.Errorf("State(%d).String() = %s, want %s", tt.state, got, tt.want)
		}
	}
}

func TestManager_TransitionTo_ValidTransitions(t *testing.T) {
	tests := []struct {
		name string
		from State
		to   State
	}{
		{"idle to connecting", StateIdle, StateConnecting},
		{"connecting to connected", StateConnecting, StateConnected},
		{"connecting to idle", StateConnecting, StateIdle},
		{"connected to liveness lost", StateConnected, StateLivenessLost},
		{"connected to idle", StateConnected, StateIdle},
		{"liveness lost to reconnecting", StateLivenessLost, StateReconnecting},
		{"liveness lost to idle", StateLivenessLost, StateIdle},
		{"reconnecting to connected", StateReconnecting, StateConnected},
		{"reconnecting to permanently failed", StateReconnecting, StatePermanentlyFailed},
		{"reconnecting to idle", StateReconnecting, StateIdle},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewManager(log.NewNoopLogger(), nil)
			m.state = tt.from

			if err := m.TransitionTo(tt.to, "test"); err != nil {
				t.Errorf("TransitionTo() error = %v", err)
			}
			if m.State() != tt.to {
				t.Errorf("state = %v after transition, want %v", m.State(), tt.to)
			}
		})
	}
}

func TestManager_TransitionTo_InvalidTransitions(t *testing.T) {
	tests := []struct {
		name string
		from State
		to   State
	}{
		{"idle to connected", StateIdle, StateConnected},
		{"idle to idle", StateIdle, StateIdle},
		{"idle to reconnecting", StateIdle, StateReconnecting},
		{"connected to reconnecting", StateConnected, StateReconnecting},
		{"connected to connecting", StateConnected, StateConnecting},
		{"liveness lost to connected", StateLivenessLost, StateConnected},
		{"reconnecting to liveness lost", StateReconnecting, StateLivenessLost},
		{"failed to idle", StatePermanentlyFailed, StateIdle},
		{"failed to connecting", StatePermanentlyFailed, StateConnecting},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewManager(log.NewNoopLogger(), nil)
			m.state = tt.from

			err := m.TransitionTo(tt.to, "test")
			if !errors.Is(err, ErrInvalidTransition) {
				t.Errorf("TransitionTo() error = %v, want ErrInvalidTransition", err)
			}
			// State should not change on invalid transition
			if m.State() != tt.from {
				t.Errorf("state changed to %v on invalid transition, want %v", m.State(), tt.from)
			}
		})
	}
}

func TestManager_TransitionTo_EmitsEvents(t *testing.T) {
	emitter := &mockEmitter{}
	m := NewManager(log.NewNoopLogger(), emitter)

	_ = m.TransitionTo(StateConnecting, "connect")
	_ = m.TransitionTo(StateConnected, "dialed")

	events := emitter.Events()
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}

	if events[0].previous != StateIdle || events[0].current != StateConnecting {
		t.Errorf("event 0: got %v->%v, want Idle->Connecting", events[0].previous, events[0].current)
	}
	if events[1].previous != StateConnecting || events[1].current != StateConnected || events[1].reason != "dialed" {
		t.Errorf("event 1: got %+v, want Connecting->Connected (dialed)", events[1])
	}
}

func TestManager_CompareAndTransition(t *testing.T) {
	m := NewManager(log.NewNoopLogger(), nil)
	m.state = StateConnected

	if m.CompareAndTransition(StateReconnecting, StateConnected, "wrong from") {
		t.Error("CompareAndTransition succeeded with stale from")
	}
	if !m.CompareAndTransition(StateConnected, StateLivenessLost, "silence") {
		t.Fatal("CompareAndTransition failed from current state")
	}
	if m.State() != StateLivenessLost {
		t.Errorf("state = %v, want LivenessLost", m.State())
	}
	if m.CompareAndTransition(StateLivenessLost, StatePermanentlyFailed, "invalid edge") {
		t.Error("CompareAndTransition accepted an invalid edge")
	}
}

func TestManager_CompareAndTransition_SingleWinner(t *testing.T) {
	m := NewManager(log.NewNoopLogger(), nil)
	m.state = StateConnected

	var wins atomic.Int32
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if m.CompareAndTransition(StateConnected, StateLivenessLost, "race") {
				wins.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	if wins.Load() != 1 {
		t.Errorf("wins = %d, want exactly 1", wins.Load())
	}
}

func TestState_Terminal(t *testing.T) {
	for _, s := range States {
		want := s == StatePermanentlyFailed
		if s.Terminal() != want {
			t.Errorf("%v.Terminal() = %v, want %v", s, s.Terminal(), want)
		}
		if s.Terminal() && len(transitions[s]) != 0 {
			t.Errorf("terminal state %v has outgoing edges", s)
		}
	}
}

func TestManager_WaitWithTimeout_Success(t *testing.T) {
	m := NewManager(log.NewNoopLogger(), nil)

	m.Go(func() {
		time.Sleep(10 * time.Millisecond)
	})

	if err := m.WaitWithTimeout(time.Second); err != nil {
		t.Errorf("WaitWithTimeout() = %v, want nil", err)
	}
}

func TestManager_WaitWithTimeout_Timeout(t *testing.T) {
	m := NewManager(log.NewNoopLogger(), nil)

	release := make(chan struct{})
	m.Go(func() { <-release })

	err := m.WaitWithTimeout(10 * time.Millisecond)
	if err != ErrShutdownTimeout {
		t.Errorf("WaitWithTimeout() = %v, want ErrShutdownTimeout", err)
	}

	// Clean up
	close(release)
}

func TestManager_Concurrency(t *testing.T) {
	m := NewManager(log.NewNoopLogger(), nil)

	var wg sync.WaitGroup

	// Concurrent state reads
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = m.State()
				_ = m.Is(StateConnected)
			}
		}()
	}

	// Concurrent transitions (some will fail, which is expected)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = m.TransitionTo(StateConnecting, "test")
			_ = m.TransitionTo(StateConnected, "test")
			_ = m.TransitionTo(StateIdle, "test")
		}()
	}

	wg.Wait()
}
