package ratelimit

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	sredis "github.com/ulule/limiter/v3/drivers/store/redis"

	"github.com/noah-isme/backend-market/internal/common"
)

// Config describes how to derive a rate limit key and thresholds.
type Config struct {
	// Rate uses the limiter format "<limit>-<period>", e.g. "120-M" or "10-S".
	Rate string
	Key  func(*http.Request) string
}

// Handler enforces rate limits before delegating to the next handler.
type Handler struct {
	limiter *limiter.Limiter
	key     func(*http.Request) string
	OnError func(error)
}

// NewRedisStore returns a limiter store shared by every API instance.
func NewRedisStore(client *redis.Client, prefix string) (limiter.Store, error) {
	store, err := sredis.NewStoreWithOptions(client, limiter.StoreOptions{Prefix: prefix})
	if err != nil {
		return nil, fmt.Errorf("rate limit store: %w", err)
	}
	return store, nil
}

// NewMemoryStore returns a process-local limiter store.
func NewMemoryStore() limiter.Store {
	return memory.NewStore()
}

// New builds a Handler. Requests are keyed by client IP unless cfg.Key is set.
func New(store limiter.Store, cfg Config) (*Handler, error) {
	rate, err := limiter.NewRateFromFormatted(cfg.Rate)
	if err != nil {
		return nil, fmt.Errorf("parse rate %q: %w", cfg.Rate, err)
	}
	key := cfg.Key
	if key == nil {
		key = common.ClientIP
	}
	return &Handler{limiter: limiter.New(store, rate), key: key}, nil
}

// Middleware implements the http.Handler middleware interface. Store errors
// let the request through.
func (h *Handler) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		lctx, err := h.limiter.Get(r.Context(), h.key(r))
		if err != nil {
			if h.OnError != nil {
				h.OnError(err)
			}
			next.ServeHTTP(w, r)
			return
		}

		headers := w.Header()
		headers.Set("X-RateLimit-Limit", strconv.FormatInt(lctx.Limit, 10))
		headers.Set("X-RateLimit-Remaining", strconv.FormatInt(lctx.Remaining, 10))
		headers.Set("X-RateLimit-Reset", strconv.FormatInt(lctx.Reset, 10))

		if lctx.Reached {
			retryAfter := int64(time.Until(time.Unix(lctx.Reset, 0)).Seconds())
			if retryAfter < 0 {
				retryAfter = 0
			}
			headers.Set("Retry-After", strconv.FormatInt(retryAfter, 10))
			common.JSONError(w, http.StatusTooManyRequests, "RATE_LIMITED", "rate limit exceeded", nil)
			return
		}

		next.ServeHTTP(w, r)
	})
}
