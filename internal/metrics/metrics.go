// Package metrics provides Prometheus metrics for the bot.
//
// All Record/Set methods are safe to call on a nil *Metrics, so packages can
// take an optional metrics sink without guarding every call site.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the bot.
type Metrics struct {
	FramesReceived   *prometheus.CounterVec
	HeartbeatsSent   prometheus.Counter
	HeartbeatAcks    prometheus.Counter
	SessionState     prometheus.Gauge
	LastSequence     prometheus.Gauge
	HandlerRuns      *prometheus.CounterVec
	RESTRequests     *prometheus.CounterVec
	RESTDuration     *prometheus.HistogramVec
	SiteFetches      *prometheus.CounterVec
	ContestsCached   *prometheus.GaugeVec
	CommandsExecuted *prometheus.CounterVec

	registry *prometheus.Registry
}

// New creates and registers all metrics.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		FramesReceived: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cpbot_gateway_frames_received_total",
				Help: "Gateway frames received by opcode.",
			},
			[]string{"op"},
		),
		HeartbeatsSent: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cpbot_gateway_heartbeats_sent_total",
				Help: "Heartbeat frames sent to the gateway.",
			},
		),
		HeartbeatAcks: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cpbot_gateway_heartbeat_acks_total",
				Help: "Heartbeat acknowledgements received from the gateway.",
			},
		),
		SessionState: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "cpbot_gateway_session_state",
				Help: "Current session state (0=disconnected .. 5=closed).",
			},
		),
		LastSequence: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "cpbot_gateway_last_sequence",
				Help: "Highest dispatch sequence number seen.",
			},
		),
		HandlerRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cpbot_dispatch_handler_runs_total",
				Help: "Dispatch handler invocations by event and result.",
			},
			[]string{"event", "result"},
		),
		RESTRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cpbot_rest_requests_total",
				Help: "REST API requests by method and status code.",
			},
			[]string{"method", "status"},
		),
		RESTDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "cpbot_rest_request_duration_seconds",
				Help:    "REST API request duration by method.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method"},
		),
		SiteFetches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cpbot_site_fetches_total",
				Help: "Contest site fetches by site, kind and result.",
			},
			[]string{"site", "kind", "result"},
		),
		ContestsCached: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "cpbot_contests_cached",
				Help: "Future contests currently cached per site.",
			},
			[]string{"site"},
		),
		CommandsExecuted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cpbot_commands_total",
				Help: "Bot commands by name and result.",
			},
			[]string{"command", "result"},
		),
		registry: reg,
	}

	reg.MustRegister(m.FramesReceived)
	reg.MustRegister(m.HeartbeatsSent)
	reg.MustRegister(m.HeartbeatAcks)
	reg.MustRegister(m.SessionState)
	reg.MustRegister(m.LastSequence)
	reg.MustRegister(m.HandlerRuns)
	reg.MustRegister(m.RESTRequests)
	reg.MustRegister(m.RESTDuration)
	reg.MustRegister(m.SiteFetches)
	reg.MustRegister(m.ContestsCached)
	reg.MustRegister(m.CommandsExecuted)

	return m
}

// Handler returns an http.Handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordFrame counts a received gateway frame.
func (m *Metrics) RecordFrame(op string) {
	if m == nil {
		return
	}
	m.FramesReceived.WithLabelValues(op).Inc()
}

// RecordHeartbeat counts a sent heartbeat.
func (m *Metrics) RecordHeartbeat() {
	if m == nil {
		return
	}
	m.HeartbeatsSent.Inc()
}

// RecordHeartbeatAck counts a received heartbeat acknowledgement.
func (m *Metrics) RecordHeartbeatAck() {
	if m == nil {
		return
	}
	m.HeartbeatAcks.Inc()
}

// SetSessionState records the session state ordinal.
func (m *Metrics) SetSessionState(state int) {
	if m == nil {
		return
	}
	m.SessionState.Set(float64(state))
}

// SetLastSequence records the highest sequence number seen.
func (m *Metrics) SetLastSequence(seq int64) {
	if m == nil {
		return
	}
	m.LastSequence.Set(float64(seq))
}

// RecordHandler counts a dispatch handler outcome ("ok", "error", "panic").
func (m *Metrics) RecordHandler(event, result string) {
	if m == nil {
		return
	}
	m.HandlerRuns.WithLabelValues(event, result).Inc()
}

// RecordREST counts a REST request and observes its duration.
func (m *Metrics) RecordREST(method, status string, seconds float64) {
	if m == nil {
		return
	}
	m.RESTRequests.WithLabelValues(method, status).Inc()
	m.RESTDuration.WithLabelValues(method).Observe(seconds)
}

// RecordSiteFetch counts a site fetch ("contests" or "profile").
func (m *Metrics) RecordSiteFetch(site, kind, result string) {
	if m == nil {
		return
	}
	m.SiteFetches.WithLabelValues(site, kind, result).Inc()
}

// SetContests records the number of cached contests for a site.
func (m *Metrics) SetContests(site string, count int) {
	if m == nil {
		return
	}
	m.ContestsCached.WithLabelValues(site).Set(float64(count))
}

// RecordCommand counts a bot command outcome.
func (m *Metrics) RecordCommand(command, result string) {
	if m == nil {
		return
	}
	m.CommandsExecuted.WithLabelValues(command, result).Inc()
}
