package lineitems

import "fmt"

// Engine builds transaction line items with a configured provider commission.
// The zero value charges no commission; use Default for the marketplace rate.
type Engine struct {
	ProviderCommission Percent
}

// Default is the engine with DefaultProviderCommission.
var Default = Engine{ProviderCommission: DefaultProviderCommission}

// Build prices the order with the default engine.
func Build(listing ListingPriceInfo, order OrderParams) ([]LineItem, error) {
	return Default.Build(listing, order)
}

// Build returns the line items for the order in display order: the base
// price first, unit-type specific extras (delivery) next and the provider
// commission last. It never returns a partial result, and fails with
// money.ErrAmountOverflow rather than returning totals that wrapped around.
func (e Engine) Build(listing ListingPriceInfo, order OrderParams) ([]LineItem, error) {
	unitType := listing.UnitType
	if !unitType.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedUnitType, string(unitType))
	}
	if listing.UnitPrice.Currency == "" {
		return nil, fmt.Errorf("%w: currency is missing", ErrInvalidListingPrice)
	}
	if listing.UnitPrice.Amount < 0 {
		return nil, fmt.Errorf("%w: unit price is negative", ErrInvalidListingPrice)
	}

	quantity, err := ResolveQuantity(unitType, order)
	if err != nil {
		return nil, err
	}

	var extras []LineItem
	if unitType == UnitItem {
		delivery, err := ComputeDeliveryFee(
			order.DeliveryMethod,
			listing.ShippingPriceOneItem,
			listing.ShippingPriceAdditionalItems,
			listing.UnitPrice.Currency,
			quantity,
		)
		if err != nil {
			return nil, err
		}
		extras = delivery.LineItems()
	}

	base := LineItem{
		Code:       unitType.Code(),
		UnitPrice:  listing.UnitPrice,
		Quantity:   intPtr(quantity),
		IncludeFor: []Party{Customer, Provider},
	}
	commission, err := ComputeCommission(base, e.ProviderCommission)
	if err != nil {
		return nil, err
	}

	items := make([]LineItem, 0, len(extras)+2)
	items = append(items, base)
	items = append(items, extras...)
	items = append(items, commission)
	return items, nil
}
