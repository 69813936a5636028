package httpapi

import (
	"context"
	"net/http"
	"regexp"
	"time"

	"github.com/dmitrijs2005/visitdesk/internal/common"
	"github.com/dmitrijs2005/visitdesk/internal/logging"
	"github.com/dmitrijs2005/visitdesk/internal/netx"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

const maxRequestIDLength = 128

var validRequestID = regexp.MustCompile(`^[a-zA-Z0-9._-]+$`)

// RequestIDFrom returns the request id stored by RequestID.
func RequestIDFrom(ctx context.Context) string {
	return netx.RequestID(ctx)
}

// RequestID keeps a well-formed inbound X-Request-ID or generates one. The
// id is forwarded on backend calls made with the request context.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(common.RequestIDHeaderName)
		if id == "" || len(id) > maxRequestIDLength || !validRequestID.MatchString(id) {
			id = uuid.NewString()
		}
		w.Header().Set(common.RequestIDHeaderName, id)
		next.ServeHTTP(w, r.WithContext(netx.WithRequestID(r.Context(), id)))
	})
}

// LatencyObserver records per-route latency.
type LatencyObserver interface {
	ObserveEndpointLatency(endpoint string, d time.Duration)
}

// AccessLog logs every request and reports its latency by route pattern.
func AccessLog(logger logging.Logger, obs LatencyObserver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			d := time.Since(start)

			route := r.URL.Path
			if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
				route = rc.RoutePattern()
			}
			if obs != nil {
				obs.ObserveEndpointLatency(route, d)
			}
			logger.Info(r.Context(), "request",
				"method", r.Method,
				"route", route,
				"status", ww.Status(),
				"duration_ms", d.Milliseconds(),
				"request_id", RequestIDFrom(r.Context()),
			)
		})
	}
}
