package app

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	limiter "github.com/ulule/limiter/v3"

	"github.com/noah-isme/backend-market/internal/config"
	"github.com/noah-isme/backend-market/internal/health"
	"github.com/noah-isme/backend-market/internal/lineitems"
	"github.com/noah-isme/backend-market/internal/listing"
	"github.com/noah-isme/backend-market/internal/obs"
	"github.com/noah-isme/backend-market/internal/ratelimit"
	"github.com/noah-isme/backend-market/internal/security"
	"github.com/noah-isme/backend-market/internal/transaction"
)

// Dependencies enumerates the services the HTTP router is wired from.
type Dependencies struct {
	Config          *config.Config
	Logger          zerolog.Logger
	Listings        listing.Store
	LimiterStore    limiter.Store
	MetricsRegistry *prometheus.Registry
	Checks          map[string]health.Check
	TracingEnabled  bool
}

// Engine returns the pricing engine for the configured commission rate.
func Engine(cfg *config.Config) lineitems.Engine {
	return lineitems.Engine{ProviderCommission: lineitems.PercentOf(cfg.ProviderCommissionPercent)}
}

// NewRouter builds the API router.
func NewRouter(deps Dependencies) (http.Handler, error) {
	cfg := deps.Config
	if cfg == nil {
		return nil, errors.New("app: config is required")
	}
	if deps.Listings == nil {
		return nil, errors.New("app: listing store is required")
	}
	store := deps.LimiterStore
	if store == nil {
		store = ratelimit.NewMemoryStore()
	}
	limit, err := ratelimit.New(store, ratelimit.Config{Rate: cfg.RateLimit})
	if err != nil {
		return nil, err
	}
	limit.OnError = func(err error) {
		deps.Logger.Warn().Err(err).Msg("rate limit store unavailable")
	}

	var pricing *obs.PricingMetrics
	var httpMetrics *obs.HTTPMetrics
	if cfg.MetricsEnabled && deps.MetricsRegistry != nil {
		pricing = obs.NewPricingMetrics(cfg.MetricsNamespace, deps.MetricsRegistry)
		httpMetrics = obs.NewHTTPMetrics(cfg.MetricsNamespace, nil, deps.MetricsRegistry)
	}

	svc := &transaction.Service{
		Listings: deps.Listings,
		Engine:   Engine(cfg),
		Metrics:  pricing,
		Logger:   deps.Logger,
	}
	txHandler := transaction.NewHandler(svc)
	healthHandler := health.Handler{Checks: deps.Checks, Timeout: 500 * time.Millisecond}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(obs.RoutePatternMiddleware)
	if deps.TracingEnabled {
		r.Use(obs.TracingMiddleware)
	}
	r.Use(obs.HTTPObs{Metrics: httpMetrics}.Middleware)
	r.Use(obs.RequestLogger{Logger: deps.Logger}.Middleware)
	r.Use(security.Headers{HSTSMaxAge: hstsMaxAge(cfg)}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins(cfg),
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After"},
		MaxAge:         300,
	}))

	if httpMetrics != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.MetricsRegistry, promhttp.HandlerOpts{}))
	}
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	r.Route("/api/v1", func(v chi.Router) {
		v.Use(limit.Middleware)
		v.Use(security.BodyLimit{Max: cfg.BodyLimitBytes}.Middleware)
		v.Post("/transaction-line-items", txHandler.LineItems)
		v.Post("/line-items/quote", txHandler.Quote)
	})
	return r, nil
}

func allowedOrigins(cfg *config.Config) []string {
	if len(cfg.CORSAllowedOrigins) == 0 {
		return []string{"*"}
	}
	return cfg.CORSAllowedOrigins
}

func hstsMaxAge(cfg *config.Config) int {
	if cfg.AppEnv == "production" {
		return 31536000
	}
	return 0
}
