package app_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-market/internal/app"
	"github.com/noah-isme/backend-market/internal/config"
	"github.com/noah-isme/backend-market/internal/health"
	"github.com/noah-isme/backend-market/internal/lineitems"
	"github.com/noah-isme/backend-market/internal/listing"
	"github.com/noah-isme/backend-market/internal/money"
	"github.com/noah-isme/backend-market/internal/ratelimit"
)

var cabinID = uuid.MustParse("9d4c3f4e-1b7a-4f0e-8f5e-2a6b7c8d9e01")

func testConfig() *config.Config {
	return &config.Config{
		AppEnv:                    "test",
		ProviderCommissionPercent: -25,
		RateLimit:                 "3-M",
		BodyLimitBytes:            1024,
		MetricsEnabled:            true,
		MetricsNamespace:          "market",
	}
}

func newRouter(t *testing.T, cfg *config.Config, checks map[string]health.Check) http.Handler {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	store, err := ratelimit.NewRedisStore(client, "test:ratelimit")
	require.NoError(t, err)

	router, err := app.NewRouter(app.Dependencies{
		Config: cfg,
		Logger: zerolog.Nop(),
		Listings: listing.NewMemoryStore(listing.Snapshot{
			ID:       cabinID,
			Price:    money.Money{Amount: 8000, Currency: "EUR"},
			UnitType: lineitems.UnitDay,
		}),
		LimiterStore:    store,
		MetricsRegistry: prometheus.NewRegistry(),
		Checks:          checks,
	})
	require.NoError(t, err)
	return router
}

func lineItemsRequest() *http.Request {
	body := `{"listingId":"` + cabinID.String() + `","orderData":{"bookingStart":"2024-06-01T00:00:00Z","bookingEnd":"2024-06-03T00:00:00Z"}}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/transaction-line-items", strings.NewReader(body))
	req.RemoteAddr = "203.0.113.10:4000"
	return req
}

func TestRouterPricesAndExportsMetrics(t *testing.T) {
	router := newRouter(t, testConfig(), nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, lineItemsRequest())
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Contains(t, rec.Body.String(), `"code":"line-item/day"`)
	require.Equal(t, "3", rec.Header().Get("X-RateLimit-Limit"))
	require.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))

	metrics := httptest.NewRecorder()
	router.ServeHTTP(metrics, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, metrics.Code)
	body, err := io.ReadAll(metrics.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), `market_line_items_built_total{result="ok",unit_type="day"} 1`)
	require.Contains(t, string(body), `market_http_requests_total`)
}

func TestRouterRateLimitsPricingRoutes(t *testing.T) {
	router := newRouter(t, testConfig(), nil)
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, lineItemsRequest())
		require.Equal(t, http.StatusOK, rec.Code)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, lineItemsRequest())
	require.Equal(t, http.StatusTooManyRequests, rec.Code)

	live := httptest.NewRecorder()
	router.ServeHTTP(live, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	require.Equal(t, http.StatusOK, live.Code)
}

func TestRouterRejectsOversizedBodies(t *testing.T) {
	router := newRouter(t, testConfig(), nil)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/line-items/quote", strings.NewReader(strings.Repeat(" ", 2048)))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestRouterReadinessReportsChecks(t *testing.T) {
	router := newRouter(t, testConfig(), map[string]health.Check{
		"db":    func(context.Context) error { return nil },
		"redis": func(context.Context) error { return errors.New("dial tcp: refused") },
	})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.JSONEq(t, `{"db":"ok","redis":"dial tcp: refused"}`, rec.Body.String())
}

func TestNewRouterValidatesDependencies(t *testing.T) {
	_, err := app.NewRouter(app.Dependencies{})
	require.Error(t, err)

	cfg := testConfig()
	cfg.RateLimit = "lots"
	_, err = app.NewRouter(app.Dependencies{Config: cfg, Listings: listing.NewMemoryStore()})
	require.Error(t, err)
}

func TestEngineUsesConfiguredCommission(t *testing.T) {
	cfg := testConfig()
	cfg.ProviderCommissionPercent = -12.5
	require.Equal(t, lineitems.Percent(-1250), app.Engine(cfg).ProviderCommission)
}
