package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestTimingMiddleware(t *testing.T) {
	h := TimingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	pt := w.Header().Get("X-Process-Time")
	if pt == "" {
		t.Fatal("X-Process-Time header missing")
	}
	if !strings.HasSuffix(pt, "ms") {
		t.Errorf("X-Process-Time = %q, want a millisecond value", pt)
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	mw := RateLimitMiddleware(4, time.Minute) // burst of 2 per IP
	h := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	send := func(addr string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/alerts/unread", nil)
		req.RemoteAddr = addr
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		return w
	}

	for i := 0; i < 2; i++ {
		if w := send("10.0.0.1:4000"); w.Code != http.StatusOK {
			t.Fatalf("request %d status = %d, want 200", i+1, w.Code)
		}
	}

	w := send("10.0.0.1:4000")
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("status after burst = %d, want 429", w.Code)
	}
	if ra := w.Header().Get("Retry-After"); ra != "60" {
		t.Errorf("Retry-After = %q, want 60", ra)
	}
	if !strings.Contains(w.Body.String(), "RATE_LIMITED") {
		t.Errorf("body = %q, want RATE_LIMITED code", w.Body.String())
	}

	// Another client is unaffected, host-only addresses included.
	if w := send("10.0.0.2"); w.Code != http.StatusOK {
		t.Errorf("other client status = %d, want 200", w.Code)
	}
}
