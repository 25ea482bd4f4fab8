package metrics

import (
	"net/http"
	"strings"
	"time"
)

// responseWriter wraps http.ResponseWriter to capture status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// HTTPMiddleware returns middleware that records HTTP metrics.
func HTTPMiddleware(reg *Registry) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reg.InFlightInc()
			defer reg.InFlightDec()

			start := time.Now()

			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(rw, r)

			duration := time.Since(start).Seconds()
			reg.RecordRequest(r.Method, PathLabel(r.URL.Path), rw.statusCode, duration)
		})
	}
}

// PathLabel collapses stock codes in a path so per-code routes share one label:
// /stock/market-data/600519 -> /stock/market-data/{code}.
func PathLabel(path string) string {
	segments := strings.Split(path, "/")
	for i, s := range segments {
		if isStockCode(s) {
			segments[i] = "{code}"
		}
	}
	return strings.Join(segments, "/")
}

func isStockCode(s string) bool {
	if len(s) == 0 || len(s) > 8 {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
