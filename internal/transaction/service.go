package transaction

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/noah-isme/backend-market/internal/common"
	"github.com/noah-isme/backend-market/internal/lineitems"
	"github.com/noah-isme/backend-market/internal/listing"
	"github.com/noah-isme/backend-market/internal/money"
	"github.com/noah-isme/backend-market/internal/obs"
)

// OrderData is the customer's order as sent by the storefront.
type OrderData struct {
	BookingStart             *time.Time `json:"bookingStart,omitempty"`
	BookingEnd               *time.Time `json:"bookingEnd,omitempty"`
	BookingDisplayEnd        *time.Time `json:"bookingDisplayEnd,omitempty"`
	StockReservationQuantity *int       `json:"stockReservationQuantity,omitempty" validate:"omitempty,lte=100000"`
	DeliveryMethod           string     `json:"deliveryMethod,omitempty" validate:"omitempty,oneof=shipping pickup none"`
}

// Params converts the order data to the pricing engine input.
func (o OrderData) Params() lineitems.OrderParams {
	return lineitems.OrderParams{
		BookingStart:             o.BookingStart,
		BookingEnd:               o.BookingEnd,
		BookingDisplayEnd:        o.BookingDisplayEnd,
		StockReservationQuantity: o.StockReservationQuantity,
		DeliveryMethod:           lineitems.DeliveryMethod(o.DeliveryMethod),
	}
}

// Result is a priced order ready to be shown or attached to a transaction.
type Result struct {
	ListingID   *uuid.UUID                `json:"listingId,omitempty"`
	LineItems   []lineitems.ValidLineItem `json:"lineItems"`
	PayinTotal  money.Money               `json:"payinTotal"`
	PayoutTotal money.Money               `json:"payoutTotal"`
}

// Service prices transactions from listing snapshots.
type Service struct {
	Listings listing.Store
	Engine   lineitems.Engine
	Metrics  *obs.PricingMetrics
	Logger   zerolog.Logger
}

// LineItems loads the listing and prices the order against it.
func (s *Service) LineItems(ctx context.Context, listingID uuid.UUID, order OrderData) (Result, error) {
	if s.Listings == nil {
		return Result{}, errors.New("listing store not configured")
	}
	snap, err := s.Listings.Get(ctx, listingID)
	if err != nil {
		if errors.Is(err, listing.ErrNotFound) {
			s.Metrics.ObserveLookup("not_found")
			return Result{}, common.NotFound("LISTING_NOT_FOUND", "listing not found", err)
		}
		if errors.Is(err, listing.ErrUnavailable) {
			s.Metrics.ObserveLookup("unavailable")
			return Result{}, common.NewAppError("LISTING_STORE_UNAVAILABLE", "listing store temporarily unavailable", http.StatusServiceUnavailable, err)
		}
		s.Metrics.ObserveLookup("error")
		return Result{}, fmt.Errorf("load listing %s: %w", listingID, err)
	}
	s.Metrics.ObserveLookup("ok")

	result, err := s.price(ctx, snap.PriceInfo(), order)
	if err != nil {
		return Result{}, err
	}
	result.ListingID = &snap.ID
	return result, nil
}

// Quote prices the order against an inline listing snapshot.
func (s *Service) Quote(ctx context.Context, snap listing.Snapshot, order OrderData) (Result, error) {
	return s.price(ctx, snap.PriceInfo(), order)
}

func (s *Service) price(ctx context.Context, info lineitems.ListingPriceInfo, order OrderData) (Result, error) {
	_, span := otel.Tracer("transaction").Start(ctx, "transaction.line_items")
	defer span.End()
	unitType := string(info.UnitType)
	span.SetAttributes(attribute.String("listing.unit_type", unitType))
	// Quotes carry caller-supplied unit types; keep the metric label bounded.
	metricUnit := unitType
	if !info.UnitType.Valid() {
		metricUnit = "unknown"
	}

	result, err := s.assemble(info, order)
	if err != nil {
		appErr := classify(err)
		s.Metrics.ObserveBuild(metricUnit, strings.ToLower(appErr.Code), 0)
		span.RecordError(err)
		span.SetStatus(codes.Error, appErr.Code)
		s.Logger.Warn().Err(err).Str("unit_type", unitType).Str("code", appErr.Code).Msg("reject line items")
		return Result{}, appErr
	}

	quantity := *result.LineItems[0].Quantity
	s.Metrics.ObserveBuild(metricUnit, "ok", quantity)
	span.SetAttributes(
		attribute.Int("line_items.count", len(result.LineItems)),
		attribute.Int("line_items.quantity", quantity),
	)
	s.Logger.Debug().
		Str("unit_type", unitType).
		Int("quantity", quantity).
		Int64("payin_total", result.PayinTotal.Amount).
		Int64("payout_total", result.PayoutTotal.Amount).
		Str("currency", result.PayinTotal.Currency).
		Msg("priced line items")

	return result, nil
}

func (s *Service) assemble(info lineitems.ListingPriceInfo, order OrderData) (Result, error) {
	items, err := s.Engine.Build(info, order.Params())
	if err != nil {
		return Result{}, err
	}
	valid, err := lineitems.ConstructValid(items)
	if err != nil {
		return Result{}, fmt.Errorf("construct line items: %w", err)
	}
	payin, err := lineitems.TotalFor(items, lineitems.Customer)
	if err != nil {
		return Result{}, fmt.Errorf("payin total: %w", err)
	}
	payout, err := lineitems.TotalFor(items, lineitems.Provider)
	if err != nil {
		return Result{}, fmt.Errorf("payout total: %w", err)
	}
	return Result{LineItems: valid, PayinTotal: payin, PayoutTotal: payout}, nil
}

// classify maps engine failures to client-facing errors.
func classify(err error) *common.AppError {
	var qerr *lineitems.QuantityError
	switch {
	case errors.As(err, &qerr):
		appErr := common.BadRequest("MISSING_QUANTITY", err.Error(), err)
		if len(qerr.Fields) > 0 {
			appErr = appErr.WithDetails(map[string]any{"fields": qerr.Fields})
		}
		return appErr
	case errors.Is(err, lineitems.ErrMissingQuantity):
		return common.BadRequest("MISSING_QUANTITY", err.Error(), err)
	case errors.Is(err, lineitems.ErrUnsupportedUnitType):
		return common.NewAppError("UNSUPPORTED_UNIT_TYPE", err.Error(), http.StatusUnprocessableEntity, err)
	case errors.Is(err, money.ErrAmountOverflow):
		return common.NewAppError("AMOUNT_OUT_OF_RANGE", "order total exceeds the supported amount range", http.StatusUnprocessableEntity, err)
	case errors.Is(err, lineitems.ErrInvalidListingPrice), errors.Is(err, money.ErrCurrencyMismatch):
		return common.NewAppError("INVALID_LISTING", err.Error(), http.StatusUnprocessableEntity, err)
	default:
		return common.NewAppError("INTERNAL", "could not price line items", http.StatusInternalServerError, err)
	}
}
