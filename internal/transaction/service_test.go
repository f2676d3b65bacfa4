package transaction_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-market/internal/common"
	"github.com/noah-isme/backend-market/internal/lineitems"
	"github.com/noah-isme/backend-market/internal/listing"
	"github.com/noah-isme/backend-market/internal/money"
	"github.com/noah-isme/backend-market/internal/obs"
	"github.com/noah-isme/backend-market/internal/transaction"
)

var (
	nightlyID = uuid.MustParse("0b6a9d9e-4d1f-4a51-9d59-0e7c1f3b2a01")
	itemID    = uuid.MustParse("0b6a9d9e-4d1f-4a51-9d59-0e7c1f3b2a02")
)

func int64Ptr(v int64) *int64 { return &v }
func intPtr(v int) *int       { return &v }

func at(t *testing.T, value string) *time.Time {
	t.Helper()
	parsed, err := time.Parse(time.RFC3339, value)
	require.NoError(t, err)
	return &parsed
}

func newService(t *testing.T) (*transaction.Service, *obs.PricingMetrics) {
	t.Helper()
	metrics := obs.NewPricingMetrics("market", prometheus.NewRegistry())
	store := listing.NewMemoryStore(
		listing.Snapshot{
			ID:       nightlyID,
			Title:    "Sauna cabin",
			Price:    money.Money{Amount: 5000, Currency: "EUR"},
			UnitType: lineitems.UnitNight,
		},
		listing.Snapshot{
			ID:                                     itemID,
			Title:                                  "Canoe paddle",
			Price:                                  money.Money{Amount: 1000, Currency: "EUR"},
			UnitType:                               lineitems.UnitItem,
			ShippingPriceInSubunitsOneItem:         int64Ptr(500),
			ShippingPriceInSubunitsAdditionalItems: int64Ptr(200),
		},
	)
	return &transaction.Service{
		Listings: store,
		Engine:   lineitems.Default,
		Metrics:  metrics,
		Logger:   zerolog.Nop(),
	}, metrics
}

func TestServiceLineItemsNightly(t *testing.T) {
	svc, metrics := newService(t)
	result, err := svc.LineItems(context.Background(), nightlyID, transaction.OrderData{
		BookingStart: at(t, "2024-01-01T00:00:00Z"),
		BookingEnd:   at(t, "2024-01-04T00:00:00Z"),
	})
	require.NoError(t, err)
	require.NotNil(t, result.ListingID)
	require.Equal(t, nightlyID, *result.ListingID)
	require.Len(t, result.LineItems, 2)

	base := result.LineItems[0]
	require.Equal(t, "line-item/night", base.Code)
	require.Equal(t, 3, *base.Quantity)
	require.Equal(t, int64(15000), base.LineTotal.Amount)

	commission := result.LineItems[1]
	require.Equal(t, lineitems.CodeProviderCommission, commission.Code)
	require.Equal(t, int64(-3750), commission.LineTotal.Amount)
	require.False(t, commission.Reversal)

	require.Equal(t, money.Money{Amount: 15000, Currency: "EUR"}, result.PayinTotal)
	require.Equal(t, money.Money{Amount: 11250, Currency: "EUR"}, result.PayoutTotal)

	require.Equal(t, 1.0, testutil.ToFloat64(metrics.ListingLookup.WithLabelValues("ok")))
	require.Equal(t, 1.0, testutil.ToFloat64(metrics.LineItemsBuilt.WithLabelValues("night", "ok")))
}

func TestServiceLineItemsShippedItem(t *testing.T) {
	svc, _ := newService(t)
	result, err := svc.LineItems(context.Background(), itemID, transaction.OrderData{
		StockReservationQuantity: intPtr(2),
		DeliveryMethod:           "shipping",
	})
	require.NoError(t, err)
	require.Len(t, result.LineItems, 3)
	require.Equal(t, lineitems.CodeShippingFee, result.LineItems[1].Code)
	require.Equal(t, int64(700), result.LineItems[1].LineTotal.Amount)
	require.Equal(t, int64(-500), result.LineItems[2].LineTotal.Amount)
	require.Equal(t, int64(2700), result.PayinTotal.Amount)
	require.Equal(t, int64(2200), result.PayoutTotal.Amount)
}

func TestServiceLineItemsUnknownListing(t *testing.T) {
	svc, metrics := newService(t)
	_, err := svc.LineItems(context.Background(), uuid.New(), transaction.OrderData{})

	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, "LISTING_NOT_FOUND", appErr.Code)
	require.Equal(t, http.StatusNotFound, appErr.HTTPStatus)
	require.ErrorIs(t, err, listing.ErrNotFound)
	require.Equal(t, 1.0, testutil.ToFloat64(metrics.ListingLookup.WithLabelValues("not_found")))
}

type failingStore struct{}

func (failingStore) Get(context.Context, uuid.UUID) (listing.Snapshot, error) {
	return listing.Snapshot{}, errors.New("connection reset")
}

func TestServiceLineItemsStoreFailureIsNotAppError(t *testing.T) {
	svc := &transaction.Service{Listings: failingStore{}, Engine: lineitems.Default}
	_, err := svc.LineItems(context.Background(), nightlyID, transaction.OrderData{})
	require.Error(t, err)
	require.False(t, common.IsAppError(err))
}

type unavailableStore struct{}

func (unavailableStore) Get(context.Context, uuid.UUID) (listing.Snapshot, error) {
	return listing.Snapshot{}, listing.ErrUnavailable
}

func TestServiceLineItemsStoreUnavailable(t *testing.T) {
	svc := &transaction.Service{Listings: unavailableStore{}, Engine: lineitems.Default}
	_, err := svc.LineItems(context.Background(), nightlyID, transaction.OrderData{})

	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, "LISTING_STORE_UNAVAILABLE", appErr.Code)
	require.Equal(t, http.StatusServiceUnavailable, appErr.HTTPStatus)
}

func TestServiceMissingQuantity(t *testing.T) {
	svc, metrics := newService(t)
	_, err := svc.LineItems(context.Background(), nightlyID, transaction.OrderData{
		BookingStart: at(t, "2024-01-01T00:00:00Z"),
	})

	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, "MISSING_QUANTITY", appErr.Code)
	require.Equal(t, http.StatusBadRequest, appErr.HTTPStatus)
	require.Equal(t, map[string]any{"fields": []string{"bookingEnd"}}, appErr.Details)
	require.ErrorIs(t, err, lineitems.ErrMissingQuantity)
	require.Equal(t, 1.0, testutil.ToFloat64(metrics.LineItemsBuilt.WithLabelValues("night", "missing_quantity")))
}

func TestServiceQuoteUnsupportedUnitType(t *testing.T) {
	svc, _ := newService(t)
	_, err := svc.Quote(context.Background(), listing.Snapshot{
		Price:    money.Money{Amount: 100, Currency: "EUR"},
		UnitType: "week",
	}, transaction.OrderData{})

	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, "UNSUPPORTED_UNIT_TYPE", appErr.Code)
	require.Equal(t, http.StatusUnprocessableEntity, appErr.HTTPStatus)
	require.ErrorIs(t, err, lineitems.ErrUnsupportedUnitType)
}

func TestServiceQuoteHourlyWithCustomCommission(t *testing.T) {
	svc, _ := newService(t)
	svc.Engine = lineitems.Engine{ProviderCommission: lineitems.PercentOf(-10)}

	result, err := svc.Quote(context.Background(), listing.Snapshot{
		Price:    money.Money{Amount: 2000, Currency: "USD"},
		UnitType: lineitems.UnitHour,
	}, transaction.OrderData{
		BookingStart: at(t, "2024-03-01T10:00:00Z"),
		BookingEnd:   at(t, "2024-03-01T12:30:00Z"),
	})
	require.NoError(t, err)
	require.Nil(t, result.ListingID)
	require.Equal(t, 3, *result.LineItems[0].Quantity)
	require.Equal(t, int64(6000), result.PayinTotal.Amount)
	require.Equal(t, int64(5400), result.PayoutTotal.Amount)
}

func TestServiceQuoteRejectsAmountOverflow(t *testing.T) {
	svc, metrics := newService(t)
	_, err := svc.Quote(context.Background(), listing.Snapshot{
		Price:    money.Money{Amount: 100_000_000_000_000, Currency: "USD"},
		UnitType: lineitems.UnitItem,
	}, transaction.OrderData{StockReservationQuantity: intPtr(100_000)})

	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, "AMOUNT_OUT_OF_RANGE", appErr.Code)
	require.Equal(t, http.StatusUnprocessableEntity, appErr.HTTPStatus)
	require.ErrorIs(t, err, money.ErrAmountOverflow)
	require.Equal(t, 1.0, testutil.ToFloat64(metrics.LineItemsBuilt.WithLabelValues("item", "amount_out_of_range")))
}

func TestServiceQuoteBoundsUnitTypeLabel(t *testing.T) {
	svc, metrics := newService(t)
	for _, unit := range []lineitems.UnitType{"week", "fortnight", "decade"} {
		_, err := svc.Quote(context.Background(), listing.Snapshot{
			Price:    money.Money{Amount: 100, Currency: "EUR"},
			UnitType: unit,
		}, transaction.OrderData{})
		require.ErrorIs(t, err, lineitems.ErrUnsupportedUnitType)
	}
	require.Equal(t, 1, testutil.CollectAndCount(metrics.LineItemsBuilt))
	require.Equal(t, 3.0, testutil.ToFloat64(metrics.LineItemsBuilt.WithLabelValues("unknown", "unsupported_unit_type")))
}
