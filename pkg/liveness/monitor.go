// Package liveness detects a silent peer.
//
// A Monitor records when the last meaningful message arrived and checks on a
// fixed period whether the silence has grown past a threshold. It only
// detects; the owner decides what recovery means.
package liveness

import (
	"sync"
	"time"
)

// Defaults for Config fields left zero.
const (
	DefaultThreshold = 5 * time.Second
	DefaultInterval  = time.Second
)

// Config tunes a Monitor.
type Config struct {
	// Threshold is the longest silence tolerated.
	Threshold time.Duration

	// Interval is the check period.
	Interval time.Duration

	// CountHeartbeats makes messages observed as heartbeats count as
	// meaningful traffic.
	CountHeartbeats bool

	// Now overrides the clock in tests.
	Now func() time.Time
}

// LostFunc is called once the threshold is exceeded. It runs on the monitor
// goroutine and must not block or call Stop.
type LostFunc func(silence time.Duration)

// Monitor tracks the last meaningful message time.
type Monitor struct {
	mu              sync.Mutex
	last            time.Time
	heartbeats      uint64
	threshold       time.Duration
	interval        time.Duration
	countHeartbeats bool
	now             func() time.Time
	onLost          LostFunc

	fired   bool
	running bool
	stop    chan struct{}
	done    chan struct{}
}

// NewMonitor creates a stopped monitor.
func NewMonitor(cfg Config, onLost LostFunc) *Monitor {
	if cfg.Threshold <= 0 {
		cfg.Threshold = DefaultThreshold
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Monitor{
		last:            cfg.Now(),
		threshold:       cfg.Threshold,
		interval:        cfg.Interval,
		countHeartbeats: cfg.CountHeartbeats,
		now:             cfg.Now,
		onLost:          onLost,
	}
}

// Observe records an inbound message. heartbeat marks traffic that does not
// prove the peer is alive unless CountHeartbeats is set.
func (m *Monitor) Observe(heartbeat bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if heartbeat {
		m.heartbeats++
		if !m.countHeartbeats {
			return
		}
	}
	m.last = m.now()
}

// Touch records a meaningful message.
func (m *Monitor) Touch() { m.Observe(false) }

// LastMeaningful returns when the last meaningful message arrived.
func (m *Monitor) LastMeaningful() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last
}

// Heartbeats returns the number of heartbeats observed.
func (m *Monitor) Heartbeats() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.heartbeats
}

// SetThreshold changes the tolerated silence for subsequent checks.
func (m *Monitor) SetThreshold(d time.Duration) {
	if d <= 0 {
		return
	}
	m.mu.Lock()
	m.threshold = d
	m.mu.Unlock()
}

// Threshold returns the tolerated silence.
func (m *Monitor) Threshold() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.threshold
}

// Check evaluates the silence once and fires the lost callback if it is
// exceeded and has not fired since the last Start.
func (m *Monitor) Check() bool {
	m.mu.Lock()
	silence := m.now().Sub(m.last)
	lost := silence > m.threshold && !m.fired
	if lost {
		m.fired = true
	}
	onLost := m.onLost
	m.mu.Unlock()

	if lost && onLost != nil {
		onLost(silence)
	}
	return lost
}

// Start resets the timestamp and begins periodic checks. Starting a running
// monitor is a no-op.
func (m *Monitor) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return
	}
	m.running = true
	m.fired = false
	m.last = m.now()
	m.stop = make(chan struct{})
	m.done = make(chan struct{})
	go m.loop(m.interval, m.stop, m.done)
}

func (m *Monitor) loop(interval time.Duration, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			m.Check()
		}
	}
}

// Stop ends periodic checks and waits for the check goroutine to exit. It is
// safe to call repeatedly.
func (m *Monitor) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	stop, done := m.stop, m.done
	m.mu.Unlock()

	close(stop)
	<-done
}

// Running reports whether periodic checks are active.
func (m *Monitor) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}
