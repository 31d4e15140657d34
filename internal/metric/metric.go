// Package metric holds the Prometheus instrumentation for the relay pipeline.
package metric

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles the counters touched by the pipeline. A nil *Metrics is
// valid and records nothing, which keeps tests free of registry setup.
type Metrics struct {
	ItemsReceived   prometheus.Counter
	ItemsDropped    prometheus.Counter
	PostsDispatched prometheus.Counter
	DispatchErrors  prometheus.Counter
	Reconnects      prometheus.Counter
	UnfurlErrors    prometheus.Counter
}

// New creates the relay metrics and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ItemsReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "relay_items_received_total",
			Help: "Stream items received, valid or not.",
		}),
		ItemsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "relay_items_dropped_total",
			Help: "Items dropped by validation before filtering.",
		}),
		PostsDispatched: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "relay_posts_dispatched_total",
			Help: "Posts handed to the dispatcher, per destination.",
		}),
		DispatchErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "relay_dispatch_errors_total",
			Help: "Dispatch attempts that returned an error.",
		}),
		Reconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "relay_stream_reconnects_total",
			Help: "Reconnection attempts scheduled after a disconnect.",
		}),
		UnfurlErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "relay_unfurl_errors_total",
			Help: "Link unfurl lookups that failed.",
		}),
	}
	reg.MustRegister(
		m.ItemsReceived,
		m.ItemsDropped,
		m.PostsDispatched,
		m.DispatchErrors,
		m.Reconnects,
		m.UnfurlErrors,
	)
	return m
}

// IncItemsReceived increments the received counter.
func (m *Metrics) IncItemsReceived() {
	if m != nil {
		m.ItemsReceived.Inc()
	}
}

// IncItemsDropped increments the dropped counter.
func (m *Metrics) IncItemsDropped() {
	if m != nil {
		m.ItemsDropped.Inc()
	}
}

// IncPostsDispatched increments the dispatched counter.
func (m *Metrics) IncPostsDispatched() {
	if m != nil {
		m.PostsDispatched.Inc()
	}
}

// IncDispatchErrors increments the dispatch error counter.
func (m *Metrics) IncDispatchErrors() {
	if m != nil {
		m.DispatchErrors.Inc()
	}
}

// IncReconnects increments the reconnect counter.
func (m *Metrics) IncReconnects() {
	if m != nil {
		m.Reconnects.Inc()
	}
}

// IncUnfurlErrors increments the unfurl error counter.
func (m *Metrics) IncUnfurlErrors() {
	if m != nil {
		m.UnfurlErrors.Inc()
	}
}
