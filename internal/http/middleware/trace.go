package middleware

import (
	"log"
	"net/http"
	"time"
)

// statusRecorder captures the status code written by downstream handlers so
// the access log can include it.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Trace writes one access-log line per request: correlation id, method,
// route, response status and latency.
func Trace(logger *log.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if logger == nil {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(recorder, r)
			logger.Printf(
				"http request_id=%s method=%s path=%s status=%d duration_ms=%d",
				GetRequestID(r.Context()), r.Method, r.URL.Path, recorder.status,
				time.Since(start).Milliseconds(),
			)
		})
	}
}
