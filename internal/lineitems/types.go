// Package lineitems prices a transaction from a listing snapshot and the
// customer's order parameters. Everything in this package is pure: no I/O, no
// shared state, identical input always yields identical line items.
package lineitems

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/noah-isme/backend-market/internal/money"
)

// UnitType is the billing granularity of a listing.
type UnitType string

const (
	UnitDay   UnitType = "day"
	UnitNight UnitType = "night"
	UnitHour  UnitType = "hour"
	UnitItem  UnitType = "item"
)

// Valid reports whether the unit type is one the engine can price.
func (u UnitType) Valid() bool {
	switch u {
	case UnitDay, UnitNight, UnitHour, UnitItem:
		return true
	default:
		return false
	}
}

// Code returns the base line-item code for the unit type, e.g. "line-item/night".
func (u UnitType) Code() string {
	return codePrefix + string(u)
}

// DeliveryMethod is how an item purchase reaches the customer.
type DeliveryMethod string

const (
	DeliveryShipping DeliveryMethod = "shipping"
	DeliveryPickup   DeliveryMethod = "pickup"
	DeliveryNone     DeliveryMethod = "none"
)

// Party is a transaction participant a line item is included for.
type Party string

const (
	Customer Party = "customer"
	Provider Party = "provider"
)

const (
	codePrefix = "line-item/"

	CodeShippingFee        = "line-item/shipping-fee"
	CodePickupFee          = "line-item/pickup-fee"
	CodeProviderCommission = "line-item/provider-commission"

	// MaxCodeLength is the longest line-item code accepted by the transaction backend.
	MaxCodeLength = 64
	// MaxLineItems is the largest line-item collection a transaction may carry.
	MaxLineItems = 50
)

// Percent is a percentage in basis points: -2500 is -25%, 1550 is 15.5%.
type Percent int64

// PercentOf converts a decimal percentage such as -25 or 15.5 to basis points.
func PercentOf(value float64) Percent {
	return Percent(math.Round(value * 100))
}

// Float returns the percentage as a decimal number of percent.
func (p Percent) Float() float64 {
	return float64(p) / 100
}

func (p Percent) String() string {
	return strconv.FormatFloat(p.Float(), 'f', -1, 64) + "%"
}

// MarshalJSON renders the percentage as a plain number of percent.
func (p Percent) MarshalJSON() ([]byte, error) {
	return []byte(strconv.FormatFloat(p.Float(), 'f', -1, 64)), nil
}

// UnmarshalJSON accepts a plain number of percent.
func (p *Percent) UnmarshalJSON(data []byte) error {
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("percentage: %w", err)
	}
	*p = PercentOf(v)
	return nil
}

// LineItem is one priced row of an order breakdown. Exactly one of Quantity
// or Percentage is set.
type LineItem struct {
	Code       string      `json:"code"`
	UnitPrice  money.Money `json:"unitPrice"`
	Quantity   *int        `json:"quantity,omitempty"`
	Percentage *Percent    `json:"percentage,omitempty"`
	IncludeFor []Party     `json:"includeFor"`
}

// Includes reports whether the line item counts towards the given party's total.
func (li LineItem) Includes(party Party) bool {
	for _, p := range li.IncludeFor {
		if p == party {
			return true
		}
	}
	return false
}

// ListingPriceInfo is the part of a listing snapshot the engine prices from.
type ListingPriceInfo struct {
	UnitPrice                    money.Money
	UnitType                     UnitType
	ShippingPriceOneItem         *money.Money
	ShippingPriceAdditionalItems *money.Money
}

// OrderParams carries the customer's order data. Which fields are read
// depends on the listing's unit type:
//
//	day, night: BookingStart, BookingEnd
//	hour:       BookingStart, BookingEnd, BookingDisplayEnd (overrides BookingEnd)
//	item:       StockReservationQuantity, DeliveryMethod
type OrderParams struct {
	BookingStart             *time.Time
	BookingEnd               *time.Time
	BookingDisplayEnd        *time.Time
	StockReservationQuantity *int
	DeliveryMethod           DeliveryMethod
}

func intPtr(v int) *int { return &v }

func percentPtr(v Percent) *Percent { return &v }
