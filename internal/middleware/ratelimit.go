package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	sredis "github.com/ulule/limiter/v3/drivers/store/redis"

	"github.com/sakif/item-catalog/internal/metrics"
)

const limiterPrefix = "catalog:ratelimit"

// NewLimiter builds a limiter from a formatted rate such as "10-M". With a
// nil client the counters live in process memory, otherwise in Redis.
func NewLimiter(rate string, rdb *redis.Client) (*limiter.Limiter, error) {
	r, err := limiter.NewRateFromFormatted(rate)
	if err != nil {
		return nil, fmt.Errorf("middleware: parsing rate %q: %w", rate, err)
	}

	var store limiter.Store
	if rdb == nil {
		store = memory.NewStoreWithOptions(limiter.StoreOptions{Prefix: limiterPrefix})
	} else {
		store, err = sredis.NewStoreWithOptions(rdb, limiter.StoreOptions{Prefix: limiterPrefix})
		if err != nil {
			return nil, fmt.Errorf("middleware: creating redis limiter store: %w", err)
		}
	}

	return limiter.New(store, r), nil
}

// RateLimit rejects requests from an IP that exceeded l's rate with 429.
// Only non-safe methods count, so re-rendering a form is never limited.
// It expects chi's RealIP middleware to have set r.RemoteAddr.
func RateLimit(l *limiter.Limiter, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet || r.Method == http.MethodHead {
				next.ServeHTTP(w, r)
				return
			}

			ip := l.GetIPKey(r)
			lctx, err := l.Get(r.Context(), ip)
			if err != nil {
				logger.Error("failed to get rate limit context",
					slog.String("ip", ip),
					slog.String("error", err.Error()),
				)
				http.Error(w, "Internal server error during rate limit check", http.StatusInternalServerError)
				return
			}

			h := w.Header()
			h.Set("X-RateLimit-Limit", strconv.FormatInt(lctx.Limit, 10))
			h.Set("X-RateLimit-Remaining", strconv.FormatInt(lctx.Remaining, 10))
			h.Set("X-RateLimit-Reset", strconv.FormatInt(lctx.Reset, 10))

			if lctx.Reached {
				metrics.RateLimited.Inc()
				logger.Warn("rate limit exceeded",
					slog.String("ip", ip),
					slog.String("path", r.URL.Path),
					slog.Int64("limit", lctx.Limit),
				)
				http.Error(w, "Too many requests. Please try again later.", http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
