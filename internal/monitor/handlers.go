package monitor

import (
	"encoding/json"
	"net/http"
	"time"
)

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status  string `json:"status"`
	Session string `json:"session,omitempty"`
}

// Status is the body of GET /status.
type Status struct {
	Version   string        `json:"version"`
	StartedAt time.Time     `json:"startedAt"`
	Session   SessionStatus `json:"session"`
	Users     int           `json:"users"`
	Channels  int           `json:"channels"`
	Sites     []SiteStatus  `json:"sites"`
}

// SessionStatus describes the gateway session.
type SessionStatus struct {
	State          string     `json:"state"`
	Ready          bool       `json:"ready"`
	ConnID         string     `json:"connId,omitempty"`
	SessionID      string     `json:"sessionId,omitempty"`
	LastSequence   *int64     `json:"lastSequence,omitempty"`
	ConnectedSince *time.Time `json:"connectedSince,omitempty"`
	HeartbeatsSent int64      `json:"heartbeatsSent"`
}

// SiteStatus describes one contest site.
type SiteStatus struct {
	Tag         string     `json:"tag"`
	Name        string     `json:"name"`
	Contests    int        `json:"contests"`
	LastFetched *time.Time `json:"lastFetched,omitempty"`
	Breaker     string     `json:"breaker,omitempty"`
}

func (s *Server) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /status", s.handleStatus)
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics.Handler())
	}

	// Catch-all for unknown routes
	mux.HandleFunc("/", handleNotFound)
}

// handleHealth answers 200 while the gateway session is ready and 503
// otherwise.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	st := s.status()
	code, resp := http.StatusOK, HealthResponse{Status: "ok", Session: st.Session.State}
	if !st.Session.Ready {
		code, resp.Status = http.StatusServiceUnavailable, "degraded"
	}
	writeJSON(w, code, resp)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.status())
}

// handleNotFound returns a 404 for unknown routes.
func handleNotFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, map[string]string{
		"error": "not found",
		"path":  r.URL.Path,
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
