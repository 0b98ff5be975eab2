package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/zjoart/go-invest-ledger/pkg/id"
	"github.com/zjoart/go-invest-ledger/pkg/logger"
	"github.com/zjoart/go-invest-ledger/pkg/metrics"
)

type requestIDKey struct{}

const RequestIDHeader = "X-Request-ID"

// RequestID returns the id assigned to the request by LoggingMiddleware.
func RequestID(ctx context.Context) string {
	rid, _ := ctx.Value(requestIDKey{}).(string)
	return rid
}

func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		rid := r.Header.Get(RequestIDHeader)
		if rid == "" {
			rid = id.NewULID()
		}
		w.Header().Set(RequestIDHeader, rid)
		r = r.WithContext(context.WithValue(r.Context(), requestIDKey{}, rid))

		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rw, r)

		duration := time.Since(start)
		route := routeTemplate(r)
		metrics.HTTPRequestDuration.
			WithLabelValues(r.Method, route, strconv.Itoa(rw.status)).
			Observe(duration.Seconds())

		logger.Info("Request completed", logger.Fields{
			logger.RequestIDKey: rid,
			"method":            r.Method,
			"path":              r.URL.Path,
			"route":             route,
			"status":            rw.status,
			"duration":          duration.String(),
			"remote":            r.RemoteAddr,
		})
	})
}

// routeTemplate keeps metric cardinality bounded by labelling with the mux
// pattern instead of the raw path.
func routeTemplate(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return "unmatched"
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}
