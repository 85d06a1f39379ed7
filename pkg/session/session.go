package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cardlink/cardlink/pkg/lifecycle"
	"github.com/cardlink/cardlink/pkg/liveness"
	"github.com/cardlink/cardlink/pkg/log"
	"github.com/cardlink/cardlink/pkg/metrics"
	"github.com/cardlink/cardlink/pkg/protocol"
	"github.com/cardlink/cardlink/pkg/transport"
)

// Session is one player's connection to the game server.
// Use New() to create an instance, then Connect() to dial.
type Session struct {
	logger   log.Logger
	dialer   transport.Dialer
	notifier Notifier
	metrics  *metrics.Collector
	lc       *lifecycle.Manager
	events   chan Event

	// connectMu serializes Connect calls.
	connectMu sync.Mutex

	mu  sync.Mutex
	cfg Config
	tr  *transport.Transport
	mon *liveness.Monitor
	// gen changes whenever a transport is detached; receive loops and
	// monitors from an older generation are ignored.
	gen uint64
	// cancel stops the in-flight dial or reconnection worker.
	cancel context.CancelFunc

	handlerMu sync.RWMutex
	handler   MessageHandler
}

// New creates a Session in StateIdle.
// Returns an error wrapping ErrInvalidConfig if cfg is invalid.
func New(cfg Config, opts ...Option) (*Session, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	s := &Session{
		cfg:      cfg,
		dialer:   o.dialer,
		notifier: o.notifier,
		metrics:  o.metrics,
		events:   make(chan Event, o.eventBuffer),
		logger: o.logger.With(
			log.String("username", cfg.Username),
			log.String("address", cfg.Address),
		),
	}
	s.lc = lifecycle.NewManager(s.logger, stateEvents{s: s})
	s.metrics.SetState(lifecycle.StateIdle.String(), stateNames)
	return s, nil
}

// Connect dials the server, starts the receive loop and the liveness
// monitor, and moves to Connected. It is a no-op while already connected or
// recovering. A dial failure is returned as a *transport.ConnectError and is
// not retried.
func (s *Session) Connect(ctx context.Context) error {
	s.connectMu.Lock()
	defer s.connectMu.Unlock()

	s.mu.Lock()
	switch s.lc.State() {
	case lifecycle.StatePermanentlyFailed:
		s.mu.Unlock()
		return ErrPermanentlyFailed
	case lifecycle.StateIdle:
	default:
		s.mu.Unlock()
		return nil
	}
	if err := s.lc.TransitionTo(lifecycle.StateConnecting, "connect"); err != nil {
		s.mu.Unlock()
		return err
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	s.cancel = cancel
	cfg := s.cfg
	s.mu.Unlock()

	tr, err := s.open(ctx, cfg)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancel = nil
	if !s.lc.Is(lifecycle.StateConnecting) {
		if tr != nil {
			_ = tr.Close()
		}
		return ErrConnectAborted
	}
	if err != nil {
		_ = s.lc.TransitionTo(lifecycle.StateIdle, "connect failed")
		s.logger.Warn("connect failed", log.Err(err))
		return err
	}
	s.attachLocked(tr)
	if err := s.lc.TransitionTo(lifecycle.StateConnected, "connected"); err != nil {
		return err
	}
	return nil
}

func (s *Session) open(ctx context.Context, cfg Config) (*transport.Transport, error) {
	return transport.Open(ctx, s.dialer, cfg.Address, transport.Options{
		DialTimeout: cfg.DialTimeout,
		Logger:      s.logger,
	})
}

// attachLocked installs tr as the live transport and starts its receive loop
// and monitor. s.mu must be held.
func (s *Session) attachLocked(tr *transport.Transport) {
	gen := s.gen
	mon := liveness.NewMonitor(liveness.Config{
		Threshold:       s.cfg.LivenessThreshold,
		Interval:        s.cfg.MonitorInterval,
		CountHeartbeats: s.cfg.HeartbeatCountsAsLiveness,
	}, func(silence time.Duration) {
		s.lost(gen, fmt.Errorf("%w: silent for %s", ErrLivenessLost, silence.Round(time.Millisecond)))
	})
	s.tr = tr
	s.mon = mon
	mon.Start()
	s.lc.Go(func() { s.receive(gen, tr, mon) })
}

// detachLocked forgets the live transport and monitor and returns them so the
// caller can stop them after releasing s.mu.
func (s *Session) detachLocked() (*transport.Transport, *liveness.Monitor) {
	tr, mon := s.tr, s.mon
	s.tr, s.mon = nil, nil
	s.gen++
	return tr, mon
}

// teardown must not run on the monitor goroutine of mon.
func teardown(tr *transport.Transport, mon *liveness.Monitor) {
	if mon != nil {
		mon.Stop()
	}
	if tr != nil {
		_ = tr.Close()
	}
}

// Disconnect closes the connection and returns to Idle, cancelling any
// reconnection in progress. It is always safe to call.
func (s *Session) Disconnect() {
	s.mu.Lock()
	st := s.lc.State()
	if st == lifecycle.StateIdle || st.Terminal() {
		s.mu.Unlock()
		return
	}
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	tr, mon := s.detachLocked()
	if err := s.lc.TransitionTo(lifecycle.StateIdle, "disconnect"); err != nil {
		s.logger.Error("disconnect transition", log.Err(err))
	}
	s.mu.Unlock()

	teardown(tr, mon)
}

// Send encodes action with the session's username and writes it.
// It returns ErrNotConnected outside Connected, a protocol error for a bad
// action or payload, and a *SendError when the write fails.
func (s *Session) Send(action protocol.Action, payload ...string) error {
	frame, err := protocol.Encode(action, s.cfg.Username, payload...)
	if err != nil {
		s.metrics.SendDropped("encode")
		return err
	}

	s.mu.Lock()
	tr := s.tr
	connected := s.lc.Is(lifecycle.StateConnected)
	s.mu.Unlock()
	if !connected || tr == nil {
		s.metrics.SendDropped("not_connected")
		return ErrNotConnected
	}

	if err := tr.WriteLine(frame); err != nil {
		s.metrics.SendDropped("write")
		return &SendError{Action: action, Err: err}
	}
	s.metrics.FrameSent(string(action))
	return nil
}

// SendAction is the fire-and-forget form of Send: failures are logged and
// the message is dropped.
func (s *Session) SendAction(action protocol.Action, payload ...string) {
	err := s.Send(action, payload...)
	switch {
	case err == nil:
	case err == ErrNotConnected:
		s.logger.Debug("action dropped",
			log.String("action", string(action)),
			log.String("state", s.lc.State().String()),
		)
	default:
		s.logger.Warn("action dropped",
			log.String("action", string(action)),
			log.Err(err),
		)
	}
}

// SetMessageHandler replaces the inbound message sink. The previous handler
// gets no message read after this call returns. nil discards messages.
func (s *Session) SetMessageHandler(h MessageHandler) {
	s.handlerMu.Lock()
	s.handler = h
	s.handlerMu.Unlock()
}

func (s *Session) messageHandler() MessageHandler {
	s.handlerMu.RLock()
	defer s.handlerMu.RUnlock()
	return s.handler
}

// IsConnected reports whether the session is in StateConnected.
func (s *Session) IsConnected() bool {
	return s.lc.Is(lifecycle.StateConnected)
}

// State returns the current connection state.
func (s *Session) State() lifecycle.State {
	return s.lc.State()
}

// Identity returns the username and server address the session uses.
func (s *Session) Identity() (username, address string) {
	return s.cfg.Username, s.cfg.Address
}

// Events returns the session event channel. It is never closed.
func (s *Session) Events() <-chan Event {
	return s.events
}

func (s *Session) publish(ev Event) {
	if ev.Time.IsZero() {
		ev.Time = time.Now()
	}
	select {
	case s.events <- ev:
	default:
		s.logger.Debug("session event dropped", log.String("kind", ev.Kind.String()))
	}
}

// Retune applies new tunables to the live session. The threshold takes
// effect on the current monitor; retry settings apply to the next
// reconnection.
func (s *Session) Retune(t Tuning) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.LivenessThreshold > 0 {
		s.cfg.LivenessThreshold = t.LivenessThreshold
		if s.mon != nil {
			s.mon.SetThreshold(t.LivenessThreshold)
		}
	}
	if t.RetryDelay > 0 {
		s.cfg.RetryDelay = t.RetryDelay
		if s.cfg.RetryMaxDelay < t.RetryDelay {
			s.cfg.RetryMaxDelay = t.RetryDelay
		}
	}
	if t.MaxAttempts > 0 {
		s.cfg.MaxAttempts = t.MaxAttempts
	}
	s.logger.Info("session retuned",
		log.Duration("liveness_threshold", s.cfg.LivenessThreshold),
		log.Duration("retry_delay", s.cfg.RetryDelay),
		log.Int("max_attempts", s.cfg.MaxAttempts),
	)
}

// Config returns a copy of the current configuration.
func (s *Session) Config() Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

// Wait blocks until the receive loops and reconnection worker have exited,
// typically after Disconnect. Returns lifecycle.ErrShutdownTimeout on timeout.
func (s *Session) Wait(timeout time.Duration) error {
	return s.lc.WaitWithTimeout(timeout)
}
