package http

import (
	"context"
	"fmt"
	"net/http"

	"claimlens/internal/analytics"
	"claimlens/internal/core"
	"claimlens/internal/log"
)

// QueryResponse echoes the applied selection next to the four views.
type QueryResponse struct {
	Selection  core.FilterSelection `json:"selection"`
	RangeLabel string               `json:"range_label"`
	analytics.Result
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(map[string]string{"status": "ok"}).Write(w)
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		if err := s.ready(r.Context()); err != nil {
			log.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed", log.FieldError, err)
			ErrorResponse(http.StatusServiceUnavailable, CodeNotReady, "not ready").Write(w)
			return
		}
	}
	NewJSONResponse().Body(map[string]string{"status": "ready"}).Write(w)
}

func (s *Server) handleSelection(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		MethodNotAllowedError("GET, HEAD").Write(w)
		return
	}
	NewJSONResponse().Body(s.svc.Selection()).Write(w)
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var (
		sel core.FilterSelection
		err error
	)
	switch r.Method {
	case http.MethodGet, http.MethodHead:
		sel, err = ParseSelectionQuery(r.URL.Query(), s.defaults)
	case http.MethodPost:
		sel, err = ParseSelectionBody(w, r, s.defaults)
	default:
		MethodNotAllowedError("GET, HEAD, POST").Write(w)
		return
	}
	if err != nil {
		ErrorFor(err).Write(w)
		return
	}

	res, err := s.svc.Query(r.Context(), sel)
	if err != nil {
		s.writeQueryError(r.Context(), w, err)
		return
	}

	label, err := s.svc.RangeLabel(sel.MinOrdinal, sel.MaxOrdinal)
	if err != nil {
		s.writeQueryError(r.Context(), w, err)
		return
	}

	NewJSONResponse().Body(QueryResponse{
		Selection:  sel,
		RangeLabel: label,
		Result:     res,
	}).Write(w)
}

func (s *Server) writeQueryError(ctx context.Context, w http.ResponseWriter, err error) {
	if !core.IsSelectionError(err) {
		log.NewStructuredLogger(log.FromContext(ctx)).
			LogError(ctx, "Query failed", err, log.ComponentHTTP, log.OpQuery, nil)
	}
	ErrorFor(err).Write(w)
}

// handleMetrics serves the counters in the Prometheus text format.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		MethodNotAllowedError("GET, HEAD").Write(w)
		return
	}
	m := s.GetMetrics()

	metrics := []struct {
		name, help, kind string
		value            any
	}{
		{"http_requests_total", "Total number of HTTP requests", "counter", m.Requests.TotalRequests},
		{"http_request_duration_avg_seconds", "Average HTTP response time", "gauge", m.Requests.AverageResponseTime.Seconds()},
		{"queries_total", "Queries answered", "counter", m.Queries.Answered},
		{"queries_empty_total", "Queries answered with every view empty", "counter", m.Queries.Empty},
		{"queries_rejected_total", "Queries rejected for an invalid selection", "counter", m.Queries.Rejected},
		{"queries_failed_total", "Queries that failed or timed out", "counter", m.Queries.Failed},
		{"rate_limit_allowed_total", "Requests allowed by the rate limiter", "counter", m.RateLimit.Allowed},
		{"rate_limit_rejected_total", "Requests rejected by the rate limiter", "counter", m.RateLimit.Rejected},
		{"active_rate_limit_clients", "Currently tracked rate limit clients", "gauge", m.RateLimit.ClientCount},
		{"rate_limit_client_evictions_total", "Clients evicted from the full rate limit table", "counter", m.RateLimit.Evictions},
		{"suspicious_requests_total", "Total suspicious requests detected", "counter", m.Security.SuspiciousRequests},
		{"invalid_ip_attempts_total", "Requests with an unparseable client address", "counter", m.Security.InvalidIPAttempts},
		{"uptime_seconds", "Application uptime in seconds", "gauge", int64(m.Uptime.Seconds())},
	}

	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodHead {
		return
	}
	for _, mt := range metrics {
		fmt.Fprintf(w, "# HELP %s %s\n", mt.name, mt.help)
		fmt.Fprintf(w, "# TYPE %s %s\n", mt.name, mt.kind)
		fmt.Fprintf(w, "%s %v\n\n", mt.name, mt.value)
	}
}
