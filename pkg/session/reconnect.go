package session

import (
	"context"
	"fmt"

	"github.com/cardlink/cardlink/pkg/lifecycle"
	"github.com/cardlink/cardlink/pkg/log"
	"github.com/cardlink/cardlink/pkg/protocol"
	"github.com/cardlink/cardlink/pkg/transport"
)

// lost is the single entry to recovery. Only the caller that moves the
// session from Connected to LivenessLost for the current generation starts a
// worker; every other trigger is ignored. It may run on the monitor
// goroutine, so the stale monitor is stopped by the worker, not here.
func (s *Session) lost(gen uint64, cause error) {
	s.mu.Lock()
	if gen != s.gen || !s.lc.CompareAndTransition(lifecycle.StateConnected, lifecycle.StateLivenessLost, cause.Error()) {
		s.mu.Unlock()
		return
	}
	tr, mon := s.detachLocked()
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.mu.Unlock()

	s.metrics.LivenessLost()
	s.logger.Warn("connection lost", log.Err(cause))

	s.lc.Go(func() {
		defer cancel()
		teardown(tr, mon)
		s.reconnect(ctx, cause)
	})
}

// reconnect redials until an attempt succeeds, MaxAttempts are spent or ctx
// is cancelled by Disconnect.
func (s *Session) reconnect(ctx context.Context, cause error) {
	s.mu.Lock()
	if !s.lc.CompareAndTransition(lifecycle.StateLivenessLost, lifecycle.StateReconnecting, "reconnecting") {
		s.mu.Unlock()
		return
	}
	cfg := s.cfg
	s.mu.Unlock()

	backoff := lifecycle.NewBackoff(cfg.RetryDelay, cfg.RetryMaxDelay, cfg.RetryMultiplier)
	lastErr := cause
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if err := backoff.Wait(ctx); err != nil {
			s.logger.Debug("reconnection cancelled", log.Int("attempt", attempt))
			return
		}

		logger := s.logger.With(log.Int("attempt", attempt))
		s.metrics.ReconnectAttempt()
		s.publish(Event{Kind: EventReconnectAttempt, Attempt: attempt})

		tr, err := s.open(ctx, cfg)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			lastErr = err
			logger.Warn("reconnect attempt failed", log.Err(err))
			continue
		}

		resumed, err := s.resume(tr, cfg)
		if err != nil {
			lastErr = err
			logger.Warn("re-entry failed", log.Err(err))
			continue
		}
		if !resumed {
			return
		}

		s.metrics.Reconnected()
		s.publish(Event{Kind: EventReconnected, Attempt: attempt})
		logger.Info("reconnected", log.String("conn_id", tr.ID()))
		return
	}

	s.fail(cfg.MaxAttempts, lastErr)
}

// resume makes tr the live transport. The re-entry frame is written before
// the receive loop starts and before Send can observe Connected. It reports
// false without error when the session left Reconnecting meanwhile.
func (s *Session) resume(tr *transport.Transport, cfg Config) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.lc.Is(lifecycle.StateReconnecting) {
		_ = tr.Close()
		return false, nil
	}

	if cfg.ReentryAction != "" {
		frame, err := protocol.Encode(cfg.ReentryAction, cfg.Username)
		if err == nil {
			err = tr.WriteLine(frame)
		}
		if err != nil {
			_ = tr.Close()
			return false, &SendError{Action: cfg.ReentryAction, Err: err}
		}
		s.metrics.FrameSent(string(cfg.ReentryAction))
	}

	s.attachLocked(tr)
	s.cancel = nil
	_ = s.lc.TransitionTo(lifecycle.StateConnected, "reconnected")
	return true, nil
}

func (s *Session) fail(attempts int, lastErr error) {
	err := fmt.Errorf("%w after %d attempts: %v", ErrPermanentlyFailed, attempts, lastErr)

	s.mu.Lock()
	failed := s.lc.CompareAndTransition(lifecycle.StateReconnecting, lifecycle.StatePermanentlyFailed, "max attempts exhausted")
	if failed {
		s.cancel = nil
	}
	s.mu.Unlock()
	if !failed {
		return
	}

	s.metrics.PermanentFailure()
	s.logger.Error("reconnection gave up", log.Int("attempts", attempts), log.Err(lastErr))
	s.publish(Event{Kind: EventPermanentFailure, Attempt: attempts, Err: err})
	if s.notifier != nil {
		s.notifier.NotifyFailure(err)
	}
}
