package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/services"
)

// pageData is shared by every full page.
type pageData struct {
	Active   string
	Currency string
	Codes    []string
}

func (s *Server) page(ctx context.Context, active string) pageData {
	cur := s.deps.Reconciler.Current()
	return pageData{Active: active, Currency: cur, Codes: s.codes(ctx, cur)}
}

// codes lists the selectable currencies, keeping the default first.
func (s *Server) codes(ctx context.Context, current string) []string {
	if s.deps.Codes == nil {
		return []string{current}
	}
	all := s.deps.Codes.Codes(ctx)
	out := make([]string, 0, len(all)+1)
	out = append(out, current)
	for _, c := range all {
		if c != current {
			out = append(out, c)
		}
	}
	return out
}

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.appMetrics.startedAt).Round(time.Second).String(),
	})
}

// handleReady checks templates and the database.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]any)

	if len(s.pages) == 0 {
		checks["templates"] = "failed: templates not loaded"
		status, httpStatus = "not_ready", http.StatusServiceUnavailable
	} else {
		checks["templates"] = "ok"
	}

	switch {
	case s.deps.DB == nil:
		checks["database"] = "not_configured"
		status, httpStatus = "not_ready", http.StatusServiceUnavailable
	default:
		if err := s.deps.DB.Ping(ctx); err != nil {
			checks["database"] = fmt.Sprintf("failed: %v", err)
			status, httpStatus = "not_ready", http.StatusServiceUnavailable
		} else {
			checks["database"] = "ok"
		}
	}

	checks["rate_limiter"] = map[string]any{
		"active_clients": s.rateLimiter.ActiveClients(),
		"status":         "ok",
	}
	if s.deps.Reconciler != nil {
		checks["default_currency"] = s.deps.Reconciler.Current()
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}

// handleMetrics exposes counters in Prometheus text format.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	sec := s.securityDetector.GetMetrics()
	rl := s.rateLimiter.GetMetrics()
	tr := s.traceMiddleware.GetMetrics()

	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
	w.WriteHeader(http.StatusOK)

	metric := func(name, kind, help string, value any) {
		fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s %s\n%s %v\n\n", name, help, name, kind, name, value)
	}
	metric("http_requests_total", "counter", "Total number of HTTP requests", tr.TotalRequests)
	metric("http_server_errors_total", "counter", "Responses with a 5xx status", tr.ServerErrors)
	metric("http_response_time_avg_microseconds", "gauge", "Average response time", tr.AverageResponseTime)
	metric("transactions_created_total", "counter", "Transactions created from the web UI", atomic.LoadInt64(&s.appMetrics.transactions))
	metric("import_rows_total", "counter", "Rows imported from uploaded files", atomic.LoadInt64(&s.appMetrics.imported))
	metric("report_exports_total", "counter", "Report exports served", atomic.LoadInt64(&s.appMetrics.exports))
	metric("currency_reconciliations_total", "counter", "Default currency changes", atomic.LoadInt64(&s.appMetrics.reconciled))
	metric("rate_limit_hits_total", "counter", "Requests rejected by the rate limiter", rl.TotalHits)
	metric("active_rate_limit_clients", "gauge", "Currently tracked rate limit clients", rl.ClientCount)
	metric("suspicious_requests_total", "counter", "Suspicious requests detected", sec.SuspiciousRequests)
	metric("blocked_requests_total", "counter", "Requests refused by the security filter", sec.BlockedRequests)
	metric("uptime_seconds", "gauge", "Application uptime in seconds", fmt.Sprintf("%.0f", time.Since(s.appMetrics.startedAt).Seconds()))
}

type homePage struct {
	pageData
	services.Overview
	Today string
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	ov, err := s.deps.Reports.Overview(r.Context())
	if err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Failed to load overview", log.FieldError, err)
		http.Error(w, "failed to load transactions", http.StatusInternalServerError)
		return
	}

	s.render(w, r, "home", homePage{
		pageData: s.page(r.Context(), "home"),
		Overview: ov,
		Today:    core.Today().String(),
	})
}
