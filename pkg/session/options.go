package session

import (
	"github.com/cardlink/cardlink/pkg/log"
	"github.com/cardlink/cardlink/pkg/metrics"
	"github.com/cardlink/cardlink/pkg/transport"
)

// Option configures optional behavior of a Session.
type Option func(*options)

type options struct {
	logger      log.Logger
	dialer      transport.Dialer
	notifier    Notifier
	metrics     *metrics.Collector
	eventBuffer int
}

func defaultOptions() options {
	return options{
		logger:      log.NewNoopLogger(),
		eventBuffer: DefaultEventBuffer,
	}
}

// WithLogger sets a custom logger for structured logging.
// If not provided, a no-op logger is used (no output).
func WithLogger(logger log.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithDialer replaces the TCP dialer, mainly for tests.
func WithDialer(d transport.Dialer) Option {
	return func(o *options) {
		o.dialer = d
	}
}

// WithNotifier sets the sink told about PermanentlyFailed.
func WithNotifier(n Notifier) Option {
	return func(o *options) {
		o.notifier = n
	}
}

// WithMetrics records session activity in c.
func WithMetrics(c *metrics.Collector) Option {
	return func(o *options) {
		o.metrics = c
	}
}

// WithEventBuffer sets the capacity of the Events channel.
func WithEventBuffer(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.eventBuffer = n
		}
	}
}
