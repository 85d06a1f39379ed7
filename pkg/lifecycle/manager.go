package lifecycle

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cardlink/cardlink/pkg/log"
)

var (
	// ErrInvalidTransition is returned for an edge the state machine does not have.
	ErrInvalidTransition = errors.New("lifecycle: invalid transition")

	// ErrShutdownTimeout is returned when workers outlive WaitWithTimeout.
	ErrShutdownTimeout = errors.New("lifecycle: shutdown timeout")
)

// Manager holds the connection state and tracks the goroutines working on it.
type Manager struct {
	mu           sync.RWMutex
	state        State
	wg           sync.WaitGroup
	logger       log.Logger
	eventEmitter EventEmitter
}

// NewManager creates a manager in StateIdle.
func NewManager(logger log.Logger, emitter EventEmitter) *Manager {
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	return &Manager{
		state:        StateIdle,
		logger:       logger,
		eventEmitter: emitter,
	}
}

// State returns the current state.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Is reports whether the current state is s.
func (m *Manager) Is(s State) bool {
	return m.State() == s
}

// TransitionTo moves to newState from whatever the current state is.
// Returns an error wrapping ErrInvalidTransition if the edge does not exist.
func (m *Manager) TransitionTo(newState State, reason string) error {
	m.mu.Lock()
	oldState := m.state
	if !CanTransition(oldState, newState) {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, oldState, newState)
	}
	m.state = newState
	m.mu.Unlock()

	m.emit(oldState, newState, reason)
	return nil
}

// CompareAndTransition moves from -> to only if the current state is from.
// Exactly one of several concurrent callers with the same from wins.
func (m *Manager) CompareAndTransition(from, to State, reason string) bool {
	if !CanTransition(from, to) {
		return false
	}
	m.mu.Lock()
	if m.state != from {
		m.mu.Unlock()
		return false
	}
	m.state = to
	m.mu.Unlock()

	m.emit(from, to, reason)
	return true
}

func (m *Manager) emit(from, to State, reason string) {
	// Emit event outside of lock
	if m.eventEmitter != nil {
		m.eventEmitter.OnStateChange(from, to, reason)
	}

	m.logger.Info("state transition",
		log.String("from", from.String()),
		log.String("to", to.String()),
		log.String("reason", reason),
	)
}

// Go runs fn on a tracked goroutine.
func (m *Manager) Go(fn func()) {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		fn()
	}()
}

// WaitWithTimeout waits for all tracked goroutines to finish.
// Returns ErrShutdownTimeout if the timeout expires.
func (m *Manager) WaitWithTimeout(timeout time.Duration) error {
	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		m.logger.Warn("workers still running after timeout",
			log.Duration("timeout", timeout),
		)
		return ErrShutdownTimeout
	}
}
