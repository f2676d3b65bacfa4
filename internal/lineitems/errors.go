package lineitems

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrMissingQuantity is returned when the order data cannot yield a positive quantity.
	ErrMissingQuantity = errors.New("line items: transaction should contain quantity information")
	// ErrUnsupportedUnitType is returned for listings whose unit type the engine does not price.
	ErrUnsupportedUnitType = errors.New("line items: unsupported unit type")
	// ErrInvalidListingPrice is returned when the listing has no usable unit price.
	ErrInvalidListingPrice = errors.New("line items: listing price is invalid")
	// ErrInvalidLineItem is returned by ConstructValid when a line item breaks the collection invariants.
	ErrInvalidLineItem = errors.New("line items: invalid line item")
)

// QuantityError describes why a quantity could not be resolved for a unit type.
type QuantityError struct {
	UnitType UnitType
	Fields   []string
	Reason   string
}

// Error implements the error interface.
func (e *QuantityError) Error() string {
	var b strings.Builder
	b.WriteString(ErrMissingQuantity.Error())
	fmt.Fprintf(&b, " for %s", e.UnitType.Code())
	if len(e.Fields) > 0 {
		fmt.Fprintf(&b, ": missing %s", strings.Join(e.Fields, ", "))
	}
	if e.Reason != "" {
		fmt.Fprintf(&b, ": %s", e.Reason)
	}
	return b.String()
}

// Is lets errors.Is match ErrMissingQuantity.
func (e *QuantityError) Is(target error) bool {
	return target == ErrMissingQuantity
}
