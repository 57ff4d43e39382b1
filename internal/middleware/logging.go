// Package middleware holds the HTTP middleware shared by the router.
//
// WHAT IS MIDDLEWARE?
// A middleware wraps an http.Handler and returns another one. It can act
// before the wrapped handler runs, after it returns, or instead of it:
//
//	func Example(next http.Handler) http.Handler {
//	    return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
//	        // before
//	        next.ServeHTTP(w, r)
//	        // after
//	    })
//	}
//
// chi applies them in the order given to Use, so the first one registered
// sees the request first and the response last. The server installs
// request IDs and panic recovery from chi, then Logger and Metrics from
// here. RateLimit is mounted only on the login and register form posts.
package middleware

import (
	"log/slog"
	"net/http"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// responseWriter records the status code and byte count of a response.
//
// http.ResponseWriter has no getter for the status once WriteHeader has
// been called, so Logger and Metrics hand the handler this wrapper and
// read the values back afterwards.
type responseWriter struct {
	http.ResponseWriter       // embedded: every method we don't override passes through
	statusCode          int   // 200 unless the handler says otherwise
	written             int64 // body bytes
	wroteHeader         bool  // first WriteHeader wins, like net/http
}

func wrap(w http.ResponseWriter) *responseWriter {
	return &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.statusCode = code
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	rw.wroteHeader = true
	n, err := rw.ResponseWriter.Write(b)
	rw.written += int64(n)
	return n, err
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// Logger logs one line per request through slog.
//
// The level follows the status: 5xx at error, 4xx at warn, the rest at
// info. Every line carries the chi request ID, so a failure logged deep
// in a service can be matched to the request that caused it:
//
//	level=WARN msg="request completed" request_id=host/abc-000001 method=POST path=/login status=401 ...
func Logger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := wrap(w)

			next.ServeHTTP(wrapped, r)

			level := slog.LevelInfo
			switch {
			case wrapped.statusCode >= 500:
				level = slog.LevelError
			case wrapped.statusCode >= 400:
				level = slog.LevelWarn
			}

			logger.LogAttrs(r.Context(), level, "request completed",
				slog.String("request_id", chimiddleware.GetReqID(r.Context())),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", wrapped.statusCode),
				slog.Duration("duration", time.Since(start)),
				slog.Int64("bytes", wrapped.written),
				slog.String("remote", r.RemoteAddr),
			)
		})
	}
}
