package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/iho/gardenledger/internal/infrastructure/metrics"
)

// MetricsMiddleware records HTTP metrics.
type MetricsMiddleware struct {
	metrics *metrics.Metrics
}

// NewMetricsMiddleware creates a new MetricsMiddleware.
func NewMetricsMiddleware(m *metrics.Metrics) *MetricsMiddleware {
	return &MetricsMiddleware{metrics: m}
}

// Wrap wraps an http.Handler with request counting and timing.
func (m *MetricsMiddleware) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		m.metrics.HTTPInFlight.Inc()
		defer m.metrics.HTTPInFlight.Dec()

		// Wrap response writer to capture status code
		wrapped := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		duration := time.Since(start).Seconds()
		path := normalizePath(r.URL.Path)

		m.metrics.HTTPRequests.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.statusCode)).Inc()
		m.metrics.HTTPDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}

// normalizePath replaces account names and draft ids with placeholders to
// keep label cardinality bounded.
//
//	/api/v1/accounts/Cash/entries     -> /api/v1/accounts/:name/entries
//	/api/v1/journals/drafts/01H.../commit -> /api/v1/journals/drafts/:id/commit
func normalizePath(path string) string {
	for _, p := range []struct{ prefix, placeholder string }{
		{"/api/v1/accounts/", ":name"},
		{"/api/v1/journals/drafts/", ":id"},
	} {
		rest, ok := strings.CutPrefix(path, p.prefix)
		if !ok || rest == "" {
			continue
		}

		suffix := ""
		if i := strings.IndexByte(rest, '/'); i >= 0 {
			suffix = rest[i:]
		}

		return p.prefix + p.placeholder + suffix
	}

	return path
}
