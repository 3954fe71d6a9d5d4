package trace

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestMiddlewareAssignsRequestID(t *testing.T) {
	m := NewMiddleware(nil)
	var seen string
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
		w.WriteHeader(http.StatusCreated)
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	if !strings.HasPrefix(seen, "req_") {
		t.Errorf("request id = %q", seen)
	}
	if rr.Header().Get(RequestIDHeader) != seen {
		t.Errorf("response header = %q, want %q", rr.Header().Get(RequestIDHeader), seen)
	}
}

func TestMiddlewareKeepsUpstreamID(t *testing.T) {
	m := NewMiddleware(nil)
	var seen string
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = FromRequest(r)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	h.ServeHTTP(httptest.NewRecorder(), req)
	if seen != "abc-123" {
		t.Errorf("upstream id not kept: %q", seen)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "bad id with spaces")
	h.ServeHTTP(httptest.NewRecorder(), req)
	if seen == "bad id with spaces" {
		t.Error("invalid upstream id should be replaced")
	}
}

func TestMetrics(t *testing.T) {
	m := NewMiddleware(nil)
	ok := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	fail := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))

	ok.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	fail.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	got := m.GetMetrics()
	if got.TotalRequests != 2 {
		t.Errorf("total = %d", got.TotalRequests)
	}
	if got.ServerErrors != 1 {
		t.Errorf("server errors = %d", got.ServerErrors)
	}
}
