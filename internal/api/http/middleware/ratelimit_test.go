package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimit_Handler(t *testing.T) {
	l := NewRateLimit(1, 2)
	fixed := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return fixed }

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	h := l.Handler(next)

	call := func(remote string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
		req.RemoteAddr = remote
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusOK, call("10.0.0.1:1000").Code)
	assert.Equal(t, http.StatusOK, call("10.0.0.1:1001").Code)

	limited := call("10.0.0.1:1002")
	assert.Equal(t, http.StatusTooManyRequests, limited.Code)
	assert.Equal(t, "1", limited.Header().Get("Retry-After"))
	assert.JSONEq(t, `{"error":"Too Many Requests"}`, limited.Body.String())

	assert.Equal(t, http.StatusOK, call("10.0.0.2:1000").Code, "other clients keep their own bucket")

	fixed = fixed.Add(time.Second)
	assert.Equal(t, http.StatusOK, call("10.0.0.1:1003").Code, "bucket refills over time")
}

func TestRateLimit_SweepsIdleVisitors(t *testing.T) {
	l := NewRateLimit(5, 5)
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }
	l.lastSweep = now

	assert.True(t, l.allow("10.0.0.1"))
	assert.Len(t, l.visitors, 1)

	now = now.Add(l.idleTTL + time.Second)
	assert.True(t, l.allow("10.0.0.2"))
	assert.Len(t, l.visitors, 1)
	_, kept := l.visitors["10.0.0.2"]
	assert.True(t, kept)
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.1:5555"
	assert.Equal(t, "192.0.2.1", clientIP(req))

	req.RemoteAddr = "192.0.2.1"
	assert.Equal(t, "192.0.2.1", clientIP(req))
}
