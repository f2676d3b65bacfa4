package transaction

import (
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"strings"

	validator "github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/noah-isme/backend-market/internal/common"
	"github.com/noah-isme/backend-market/internal/lineitems"
	"github.com/noah-isme/backend-market/internal/listing"
	"github.com/noah-isme/backend-market/internal/money"
)

// LineItemsRequest is the body of POST /api/v1/transaction-line-items.
type LineItemsRequest struct {
	ListingID string    `json:"listingId" validate:"required,uuid"`
	OrderData OrderData `json:"orderData"`
}

// QuoteListing is an inline listing used by the quote endpoint.
type QuoteListing struct {
	Title                                  string     `json:"title,omitempty"`
	Price                                  QuotePrice `json:"price"`
	UnitType                               string     `json:"unitType" validate:"required"`
	ShippingPriceInSubunitsOneItem         *int64     `json:"shippingPriceInSubunitsOneItem,omitempty" validate:"omitempty,gte=0"`
	ShippingPriceInSubunitsAdditionalItems *int64     `json:"shippingPriceInSubunitsAdditionalItems,omitempty" validate:"omitempty,gte=0"`
}

type QuotePrice struct {
	Amount   int64  `json:"amount" validate:"gte=0"`
	Currency string `json:"currency" validate:"required,len=3"`
}

// QuoteRequest is the body of POST /api/v1/line-items/quote.
type QuoteRequest struct {
	Listing   QuoteListing `json:"listing"`
	OrderData OrderData    `json:"orderData"`
}

// Snapshot converts the inline listing to a listing snapshot.
func (q QuoteListing) Snapshot() listing.Snapshot {
	return listing.Snapshot{
		Title:                                  q.Title,
		Price:                                  money.Money{Amount: q.Price.Amount, Currency: strings.ToUpper(q.Price.Currency)},
		UnitType:                               lineitems.UnitType(q.UnitType),
		ShippingPriceInSubunitsOneItem:         q.ShippingPriceInSubunitsOneItem,
		ShippingPriceInSubunitsAdditionalItems: q.ShippingPriceInSubunitsAdditionalItems,
	}
}

type Handler struct {
	Svc      *Service
	validate *validator.Validate
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc, validate: NewValidator()}
}

// NewValidator returns a validator that reports fields by their JSON names.
func NewValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// LineItems prices an order against a stored listing.
func (h *Handler) LineItems(w http.ResponseWriter, r *http.Request) {
	var req LineItemsRequest
	if !h.decode(w, r, &req) {
		return
	}
	listingID, err := uuid.Parse(req.ListingID)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION_FAILED", "invalid listing id", nil)
		return
	}

	result, err := h.Svc.LineItems(r.Context(), listingID, req.OrderData)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": result})
}

// Quote prices an order against an inline listing without loading it.
func (h *Handler) Quote(w http.ResponseWriter, r *http.Request) {
	var req QuoteRequest
	if !h.decode(w, r, &req) {
		return
	}

	result, err := h.Svc.Quote(r.Context(), req.Listing.Snapshot(), req.OrderData)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": result})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "transaction service not configured", nil)
		return false
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			common.JSONError(w, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "request body too large", nil)
			return false
		}
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid JSON body", err.Error())
		return false
	}
	v := h.validate
	if v == nil {
		v = NewValidator()
	}
	if err := v.Struct(dst); err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION_FAILED", "request validation failed", validationDetails(err))
		return false
	}
	return true
}

func validationDetails(err error) map[string]string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return map[string]string{"_": err.Error()}
	}
	details := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		key := fe.Namespace()
		if idx := strings.Index(key, "."); idx >= 0 {
			key = key[idx+1:]
		}
		if fe.Param() != "" {
			details[key] = fe.Tag() + "=" + fe.Param()
			continue
		}
		details[key] = fe.Tag()
	}
	return details
}
