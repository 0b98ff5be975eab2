package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(rate.Limit(2), 2)
	defer rl.Stop()

	handler := rl.Limit(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	makeRequest := func(ip string) int {
		req := httptest.NewRequest("GET", "/", nil)
		req.RemoteAddr = ip + ":1234"
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		return w.Code
	}

	ip := "192.168.1.1"
	assert.Equal(t, http.StatusOK, makeRequest(ip))
	assert.Equal(t, http.StatusOK, makeRequest(ip))
	// burst exhausted
	assert.Equal(t, http.StatusTooManyRequests, makeRequest(ip))

	assert.Equal(t, http.StatusOK, makeRequest("192.168.1.2"), "other clients keep their own budget")
}

func TestRateLimiterEvictsIdleVisitors(t *testing.T) {
	rl := NewRateLimiter(rate.Limit(1), 1)
	defer rl.Stop()

	rl.getVisitor("10.0.0.1")
	rl.evict(time.Now())
	assert.Len(t, rl.visitors, 1)

	rl.evict(time.Now().Add(visitorTTL + time.Second))
	assert.Empty(t, rl.visitors)
}

func TestLoggingMiddlewareRequestID(t *testing.T) {
	var seen string
	router := mux.NewRouter()
	router.Use(LoggingMiddleware)
	router.HandleFunc("/api/items/{id}", func(w http.ResponseWriter, r *http.Request) {
		seen = RequestID(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/api/items/1", nil))
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.NotEmpty(t, seen)
	assert.Equal(t, seen, rec.Header().Get(RequestIDHeader))

	req := httptest.NewRequest("GET", "/api/items/2", nil)
	req.Header.Set(RequestIDHeader, "caller-supplied")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, "caller-supplied", seen)
}
