package lineitems

import (
	"fmt"

	"github.com/noah-isme/backend-market/internal/money"
)

// DeliveryKind distinguishes "no delivery line" from a free or priced one.
type DeliveryKind int

const (
	// NoDeliveryLine means the order carries no delivery line item.
	NoDeliveryLine DeliveryKind = iota
	// FreeDeliveryLine is an explicit zero-cost line, used for pickup.
	FreeDeliveryLine
	// PricedDeliveryLine is a shipping fee line.
	PricedDeliveryLine
)

// DeliveryFee is the outcome of pricing the delivery of an item order.
type DeliveryFee struct {
	Kind DeliveryKind
	Code string
	Fee  money.Money
}

// LineItems returns the delivery line item, if any.
func (d DeliveryFee) LineItems() []LineItem {
	if d.Kind == NoDeliveryLine {
		return nil
	}
	return []LineItem{{
		Code:       d.Code,
		UnitPrice:  d.Fee,
		Quantity:   intPtr(1),
		IncludeFor: []Party{Customer, Provider},
	}}
}

// ShippingFee prices shipping of quantity items: the one-item price for the
// first item plus the additional-item price for each further item. It returns
// false when no one-item price is configured, which means the listing does
// not charge for shipping at all.
func ShippingFee(oneItem, additionalItems *money.Money, currency string, quantity int) (money.Money, bool, error) {
	if oneItem == nil || oneItem.IsZero() || quantity <= 0 {
		return money.Money{}, false, nil
	}
	first := money.Money{Amount: oneItem.Amount, Currency: currency}
	if oneItem.Currency != "" && oneItem.Currency != currency {
		return money.Money{}, false, fmt.Errorf("shipping price one item: %w", money.ErrCurrencyMismatch)
	}
	if additionalItems == nil || quantity == 1 {
		return first, true, nil
	}
	if additionalItems.Currency != "" && additionalItems.Currency != currency {
		return money.Money{}, false, fmt.Errorf("shipping price additional items: %w", money.ErrCurrencyMismatch)
	}
	additional, err := money.Money{Amount: additionalItems.Amount, Currency: currency}.Multiply(int64(quantity - 1))
	if err != nil {
		return money.Money{}, false, fmt.Errorf("shipping price additional items: %w", err)
	}
	fee, err := first.Add(additional)
	if err != nil {
		return money.Money{}, false, err
	}
	return fee, true, nil
}

// ComputeDeliveryFee returns the delivery line outcome for an item order.
// Shipping without a configured price produces no line; pickup always
// produces a zero-cost line in the listing currency.
func ComputeDeliveryFee(method DeliveryMethod, oneItem, additionalItems *money.Money, currency string, quantity int) (DeliveryFee, error) {
	switch method {
	case DeliveryShipping:
		fee, ok, err := ShippingFee(oneItem, additionalItems, currency, quantity)
		if err != nil {
			return DeliveryFee{}, err
		}
		if !ok {
			return DeliveryFee{Kind: NoDeliveryLine}, nil
		}
		return DeliveryFee{Kind: PricedDeliveryLine, Code: CodeShippingFee, Fee: fee}, nil
	case DeliveryPickup:
		return DeliveryFee{Kind: FreeDeliveryLine, Code: CodePickupFee, Fee: money.Zero(currency)}, nil
	default:
		return DeliveryFee{Kind: NoDeliveryLine}, nil
	}
}
