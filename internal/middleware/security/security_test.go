package security

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestSuspicious(t *testing.T) {
	d := NewDetector()
	tests := []struct {
		name   string
		method string
		target string
		ua     string
		want   bool
	}{
		{"plain page", http.MethodGet, "/budget", "Mozilla/5.0", false},
		{"report query", http.MethodGet, "/report?filter_type=amount&amount=12.5", "Mozilla/5.0", false},
		{"path traversal", http.MethodGet, "/static/../../etc/passwd", "", true},
		{"dotenv probe", http.MethodGet, "/.env", "", true},
		{"scanner agent", http.MethodGet, "/", "sqlmap/1.7", true},
		{"trace method", "TRACE", "/", "", true},
		{"sql in query", http.MethodGet, "/report?x=1%20union%20select", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(tt.method, tt.target, nil)
			r.Header.Set("User-Agent", tt.ua)
			if got := d.Suspicious(r) != ""; got != tt.want {
				t.Errorf("Suspicious = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestExtractClientIP(t *testing.T) {
	d := NewDetector()

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "203.0.113.7:5555"
	r.Header.Set("X-Forwarded-For", "198.51.100.1")
	if got := d.ExtractClientIP(r); got != "203.0.113.7" {
		t.Errorf("untrusted peer forwarded header honoured: %s", got)
	}

	r.RemoteAddr = "10.1.2.3:5555"
	r.Header.Set("X-Forwarded-For", "198.51.100.1, 10.1.2.3")
	if got := d.ExtractClientIP(r); got != "198.51.100.1" {
		t.Errorf("trusted proxy: got %s", got)
	}

	r.Header.Del("X-Forwarded-For")
	r.Header.Set("X-Real-IP", "198.51.100.9")
	if got := d.ExtractClientIP(r); got != "198.51.100.9" {
		t.Errorf("X-Real-IP: got %s", got)
	}

	if err := d.AddTrustedProxy("not-a-cidr"); err == nil {
		t.Error("expected error for bad CIDR")
	}
}

func TestMiddlewareBlocksTrace(t *testing.T) {
	d := NewDetector()
	h := d.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest("TRACE", "/", nil))
	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("TRACE status = %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/.git/config", nil))
	if rr.Code != http.StatusOK {
		t.Errorf("suspicious GET should pass through, got %d", rr.Code)
	}

	m := d.GetMetrics()
	if m.SuspiciousRequests != 2 || m.BlockedRequests != 1 {
		t.Errorf("metrics = %+v", m)
	}
}

func TestHeadersMiddleware(t *testing.T) {
	h := NewHeadersMiddleware(DefaultHeadersConfig()).Middleware(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	if got := rr.Header().Get("X-Frame-Options"); got != "DENY" {
		t.Errorf("X-Frame-Options = %q", got)
	}
	if !strings.Contains(rr.Header().Get("Content-Security-Policy"), "https://unpkg.com") {
		t.Error("CSP should allow htmx from unpkg")
	}
	if rr.Header().Get("Strict-Transport-Security") != "" {
		t.Error("HSTS must not be sent over plain HTTP")
	}
}
