package ratelimit

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"claimlens/internal/log"
)

func newTestLimiter(perMinute, maxClients int) *Limiter {
	return NewLimiter(Config{RequestsPerMinute: perMinute, MaxClients: maxClients},
		log.New(log.Config{Format: "text", Output: io.Discard}))
}

func TestLimiterAllow(t *testing.T) {
	rl := newTestLimiter(3, 10)
	for i := 0; i < 3; i++ {
		if !rl.Allow("1.2.3.4") {
			t.Fatalf("request %d rejected", i+1)
		}
	}
	if rl.Allow("1.2.3.4") {
		t.Error("fourth request allowed")
	}
	if !rl.Allow("5.6.7.8") {
		t.Error("other client rejected")
	}

	m := rl.GetMetrics()
	if m.Allowed != 4 || m.Rejected != 1 || m.ClientCount != 2 {
		t.Errorf("GetMetrics() = %+v", m)
	}
}

func TestLimiterBoundsClients(t *testing.T) {
	rl := newTestLimiter(1, 2)
	rl.Allow("a")
	rl.Allow("b")
	rl.Allow("c")
	if got := rl.ActiveClients(); got != 2 {
		t.Errorf("ActiveClients() = %d, want 2", got)
	}
	if m := rl.GetMetrics(); m.Evictions != 1 || m.ClientCount != 2 {
		t.Errorf("GetMetrics() = %+v, want 1 eviction", m)
	}
}

func TestLimiterDefaults(t *testing.T) {
	rl := NewLimiter(Config{}, nil)
	if rl.requestsPerMinute != 120 {
		t.Errorf("requestsPerMinute = %d, want 120", rl.requestsPerMinute)
	}
	if rl.Cleaner() == nil {
		t.Error("Cleaner() returned nil")
	}
}

func TestMiddleware(t *testing.T) {
	rl := newTestLimiter(1, 10)
	h := rl.Middleware(func(r *http.Request) string { return "client" }, nil)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) }))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("first request status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second request status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") != "60" {
		t.Errorf("Retry-After = %q", rec.Header().Get("Retry-After"))
	}
}
