package daemon

import (
	"net/http"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/goccy/go-json"

	"tunecrawl/internal/api"
	"tunecrawl/internal/logging"
)

// requestIDWithLogging assigns a request id and copies it into the logging
// context so handler logs carry correlation_id.
func requestIDWithLogging() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		withLogging := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := chimiddleware.GetReqID(r.Context())
			if id != "" {
				w.Header().Set(chimiddleware.RequestIDHeader, id)
				r = r.WithContext(logging.WithRequestID(r.Context(), id))
			}
			next.ServeHTTP(w, r)
		})
		return chimiddleware.RequestID(withLogging)
	}
}

// crawlLimiter bounds on-demand crawls per client IP. A non-positive limit
// disables it.
func crawlLimiter(perMinute int) func(http.Handler) http.Handler {
	if perMinute <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	return httprate.Limit(perMinute, time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_ = json.NewEncoder(w).Encode(api.MessageResponse{
				Message: "crawl rate limit exceeded; try again later",
				Error:   http.StatusText(http.StatusTooManyRequests),
			})
		}),
	)
}
