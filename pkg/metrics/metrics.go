// Package metrics exposes prometheus collectors for a card game session.
//
// All Collector methods are safe to call on a nil *Collector, so library code
// can record unconditionally and callers opt in by passing a collector.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Config configures the collectors.
type Config struct {
	// Namespace is the metrics namespace (default: "cardlink").
	Namespace string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// Option configures the collectors.
type Option func(*Config)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) Option {
	return func(c *Config) {
		c.Namespace = namespace
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) Option {
	return func(c *Config) {
		c.ConstLabels = labels
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) Option {
	return func(c *Config) {
		c.Registry = registry
	}
}

func defaultConfig() Config {
	return Config{
		Namespace: "cardlink",
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Collector holds the session metrics.
type Collector struct {
	framesSent       *prometheus.CounterVec
	framesReceived   *prometheus.CounterVec
	malformedFrames  prometheus.Counter
	sendDropped      *prometheus.CounterVec
	livenessLost     prometheus.Counter
	reconnectAttempt prometheus.Counter
	reconnects       prometheus.Counter
	permanentFails   prometheus.Counter
	connectionState  *prometheus.GaugeVec
}

// New registers the collectors and returns them.
// It panics if a metric with the same name is already registered.
func New(opts ...Option) *Collector {
	config := defaultConfig()
	for _, opt := range opts {
		opt(&config)
	}
	factory := promauto.With(config.Registry)

	return &Collector{
		framesSent: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Name:        "frames_sent_total",
			Help:        "Total number of frames written to the server",
			ConstLabels: config.ConstLabels,
		}, []string{"action"}),

		framesReceived: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Name:        "frames_received_total",
			Help:        "Total number of inbound messages by event kind",
			ConstLabels: config.ConstLabels,
		}, []string{"kind"}),

		malformedFrames: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Name:        "malformed_frames_total",
			Help:        "Total number of inbound lines that failed to parse",
			ConstLabels: config.ConstLabels,
		}),

		sendDropped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Name:        "send_dropped_total",
			Help:        "Total number of outbound actions dropped by reason",
			ConstLabels: config.ConstLabels,
		}, []string{"reason"}),

		livenessLost: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Name:        "liveness_lost_total",
			Help:        "Total number of times the connection was presumed dead",
			ConstLabels: config.ConstLabels,
		}),

		reconnectAttempt: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Name:        "reconnect_attempts_total",
			Help:        "Total number of reconnection dial attempts",
			ConstLabels: config.ConstLabels,
		}),

		reconnects: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Name:        "reconnects_total",
			Help:        "Total number of successful reconnections",
			ConstLabels: config.ConstLabels,
		}),

		permanentFails: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Name:        "permanent_failures_total",
			Help:        "Total number of sessions that exhausted reconnection attempts",
			ConstLabels: config.ConstLabels,
		}),

		connectionState: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Name:        "connection_state",
			Help:        "1 for the current connection state, 0 for all others",
			ConstLabels: config.ConstLabels,
		}, []string{"state"}),
	}
}

// FrameSent records a frame written for action.
func (c *Collector) FrameSent(action string) {
	if c == nil {
		return
	}
	c.framesSent.WithLabelValues(action).Inc()
}

// FrameReceived records an inbound message of the given event kind.
func (c *Collector) FrameReceived(kind string) {
	if c == nil {
		return
	}
	c.framesReceived.WithLabelValues(kind).Inc()
}

// MalformedFrame records an inbound line that could not be parsed.
func (c *Collector) MalformedFrame() {
	if c == nil {
		return
	}
	c.malformedFrames.Inc()
}

// SendDropped records an outbound action that was not written.
func (c *Collector) SendDropped(reason string) {
	if c == nil {
		return
	}
	c.sendDropped.WithLabelValues(reason).Inc()
}

// LivenessLost records a loss of liveness.
func (c *Collector) LivenessLost() {
	if c == nil {
		return
	}
	c.livenessLost.Inc()
}

// ReconnectAttempt records one dial attempt by the reconnection worker.
func (c *Collector) ReconnectAttempt() {
	if c == nil {
		return
	}
	c.reconnectAttempt.Inc()
}

// Reconnected records a successful reconnection.
func (c *Collector) Reconnected() {
	if c == nil {
		return
	}
	c.reconnects.Inc()
}

// PermanentFailure records a session giving up on reconnection.
func (c *Collector) PermanentFailure() {
	if c == nil {
		return
	}
	c.permanentFails.Inc()
}

// SetState marks current as the active state; every name in all is reset to 0.
func (c *Collector) SetState(current string, all []string) {
	if c == nil {
		return
	}
	for _, s := range all {
		c.connectionState.WithLabelValues(s).Set(0)
	}
	c.connectionState.WithLabelValues(current).Set(1)
}
