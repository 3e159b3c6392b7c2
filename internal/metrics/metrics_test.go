package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_New(t *testing.T) {
	m := New()
	assert.NotNil(t, m.FramesReceived)
	assert.NotNil(t, m.HeartbeatsSent)
	assert.NotNil(t, m.HandlerRuns)
	assert.NotNil(t, m.RESTRequests)
	assert.NotNil(t, m.ContestsCached)
}

func TestMetrics_RecordFrame(t *testing.T) {
	m := New()
	m.RecordFrame("dispatch")
	m.RecordFrame("dispatch")
	m.RecordFrame("hello")

	body := getMetricsBody(t, m)
	assert.Contains(t, body, `cpbot_gateway_frames_received_total{op="dispatch"} 2`)
	assert.Contains(t, body, `cpbot_gateway_frames_received_total{op="hello"} 1`)
}

func TestMetrics_Heartbeats(t *testing.T) {
	m := New()
	m.RecordHeartbeat()
	m.RecordHeartbeat()
	m.RecordHeartbeatAck()

	body := getMetricsBody(t, m)
	assert.Contains(t, body, "cpbot_gateway_heartbeats_sent_total 2")
	assert.Contains(t, body, "cpbot_gateway_heartbeat_acks_total 1")
}

func TestMetrics_Gauges(t *testing.T) {
	m := New()
	m.SetSessionState(4)
	m.SetLastSequence(42)
	m.SetContests("cf", 7)

	body := getMetricsBody(t, m)
	assert.Contains(t, body, "cpbot_gateway_session_state 4")
	assert.Contains(t, body, "cpbot_gateway_last_sequence 42")
	assert.Contains(t, body, `cpbot_contests_cached{site="cf"} 7`)
}

func TestMetrics_RecordHandler(t *testing.T) {
	m := New()
	m.RecordHandler("MESSAGE_CREATE", "ok")
	m.RecordHandler("MESSAGE_CREATE", "panic")

	body := getMetricsBody(t, m)
	assert.Contains(t, body, `cpbot_dispatch_handler_runs_total{event="MESSAGE_CREATE",result="ok"} 1`)
	assert.Contains(t, body, `cpbot_dispatch_handler_runs_total{event="MESSAGE_CREATE",result="panic"} 1`)
}

func TestMetrics_RecordREST(t *testing.T) {
	m := New()
	m.RecordREST("POST", "200", 0.12)

	body := getMetricsBody(t, m)
	assert.Contains(t, body, `cpbot_rest_requests_total{method="POST",status="200"} 1`)
	assert.Contains(t, body, "cpbot_rest_request_duration_seconds")
}

func TestMetrics_RecordSiteFetchAndCommand(t *testing.T) {
	m := New()
	m.RecordSiteFetch("at", "contests", "ok")
	m.RecordCommand("next", "ok")

	body := getMetricsBody(t, m)
	assert.Contains(t, body, `cpbot_site_fetches_total{kind="contests",result="ok",site="at"} 1`)
	assert.Contains(t, body, `cpbot_commands_total{command="next",result="ok"} 1`)
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordFrame("hello")
		m.RecordHeartbeat()
		m.RecordHeartbeatAck()
		m.SetSessionState(1)
		m.SetLastSequence(1)
		m.RecordHandler("READY", "ok")
		m.RecordREST("GET", "200", 0)
		m.RecordSiteFetch("cf", "profile", "error")
		m.SetContests("cf", 0)
		m.RecordCommand("beep", "ok")
	})
}

func getMetricsBody(t *testing.T, m *Metrics) string {
	t.Helper()
	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(body)
}
