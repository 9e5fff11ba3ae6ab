package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRateLimit_AllowsThenBlocks(t *testing.T) {
	clk := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	l := newLimiter(1, 2, 10*time.Minute)
	l.now = clk.now
	h := rateLimit(l)(okHandler())

	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "1.2.3.4:1234"

	for i := 0; i < 2; i++ {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		if rr.Code != 200 {
			t.Fatalf("want 200 got %d", rr.Code)
		}
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != 429 {
		t.Fatalf("want 429 got %d", rr.Code)
	}

	clk.t = clk.t.Add(1100 * time.Millisecond)
	rr2 := httptest.NewRecorder()
	h.ServeHTTP(rr2, req)
	if rr2.Code != 200 {
		t.Fatalf("want 200 after refill got %d", rr2.Code)
	}
}

func TestRateLimit_KeyedByAPIKeyBeforeIP(t *testing.T) {
	l := newLimiter(1, 1, 10*time.Minute)
	l.now = (&fakeClock{t: time.Unix(1_700_000_000, 0)}).now
	h := rateLimit(l)(okHandler())

	send := func(key string) int {
		req := httptest.NewRequest("POST", "/v1/heartbeat", nil)
		req.RemoteAddr = "10.0.0.1:5555"
		if key != "" {
			req.Header.Set("X-API-Key", key)
		}
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		return rr.Code
	}

	// Same IP, three distinct clients: each gets its own bucket.
	for _, k := range []string{"alpha", "beta", ""} {
		if code := send(k); code != 200 {
			t.Fatalf("first request for %q: want 200 got %d", k, code)
		}
	}
	if code := send("alpha"); code != 429 {
		t.Fatalf("second request for alpha: want 429 got %d", code)
	}
}

func TestRateLimit_EvictsIdleBuckets(t *testing.T) {
	clk := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	l := newLimiter(1, 1, time.Minute)
	l.now = clk.now

	l.allow("ip:1.1.1.1")
	l.allow("ip:2.2.2.2")
	if n := l.size(); n != 2 {
		t.Fatalf("want 2 buckets, got %d", n)
	}

	clk.t = clk.t.Add(2 * time.Minute)
	l.allow("ip:3.3.3.3")
	if n := l.size(); n != 1 {
		t.Fatalf("idle buckets should be evicted, got %d", n)
	}
}

func TestRateLimit_DisabledPassesThrough(t *testing.T) {
	h := RateLimit(0, 0)(okHandler())
	for i := 0; i < 50; i++ {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest("GET", "/", nil))
		if rr.Code != 200 {
			t.Fatalf("want 200 got %d", rr.Code)
		}
	}
}
