package lineitems

import (
	"fmt"
	"strings"

	"github.com/noah-isme/backend-market/internal/money"
)

// ValidLineItem is a line item with its derived total, as stored on a transaction.
type ValidLineItem struct {
	LineItem
	LineTotal money.Money `json:"lineTotal"`
	Reversal  bool        `json:"reversal"`
}

// LineTotal derives the total of a single line item: unitPrice * quantity for
// quantity lines, unitPrice * percentage / 100 for percentage lines. It fails
// with money.ErrAmountOverflow when the total does not fit in int64 subunits.
func LineTotal(item LineItem) (money.Money, error) {
	switch {
	case item.Percentage != nil:
		return item.UnitPrice.Percent(int64(*item.Percentage))
	case item.Quantity != nil:
		return item.UnitPrice.Multiply(int64(*item.Quantity))
	default:
		return money.Zero(item.UnitPrice.Currency), nil
	}
}

// Total sums the line totals of all items.
func Total(items []LineItem) (money.Money, error) {
	return sum(items, func(LineItem) bool { return true })
}

// TotalFor sums the line totals of items included for the party: the payin
// total for the customer and the payout total for the provider.
func TotalFor(items []LineItem, party Party) (money.Money, error) {
	return sum(items, func(li LineItem) bool { return li.Includes(party) })
}

func sum(items []LineItem, include func(LineItem) bool) (money.Money, error) {
	if len(items) == 0 {
		return money.Money{}, nil
	}
	total := money.Zero(items[0].UnitPrice.Currency)
	for _, item := range items {
		if !include(item) {
			continue
		}
		lineTotal, err := LineTotal(item)
		if err != nil {
			return money.Money{}, fmt.Errorf("sum %s: %w", item.Code, err)
		}
		next, err := total.Add(lineTotal)
		if err != nil {
			return money.Money{}, fmt.Errorf("sum %s: %w", item.Code, err)
		}
		total = next
	}
	return total, nil
}

// ConstructValid checks the collection invariants and attaches line totals.
func ConstructValid(items []LineItem) ([]ValidLineItem, error) {
	if len(items) > MaxLineItems {
		return nil, fmt.Errorf("%w: %d line items exceed the limit of %d", ErrInvalidLineItem, len(items), MaxLineItems)
	}
	out := make([]ValidLineItem, 0, len(items))
	var currency string
	for i, item := range items {
		if err := validate(item); err != nil {
			return nil, fmt.Errorf("line item %d: %w", i, err)
		}
		if i == 0 {
			currency = item.UnitPrice.Currency
		} else if item.UnitPrice.Currency != currency {
			return nil, fmt.Errorf("line item %d: %w", i, money.ErrCurrencyMismatch)
		}
		lineTotal, err := LineTotal(item)
		if err != nil {
			return nil, fmt.Errorf("line item %d: %w", i, err)
		}
		out = append(out, ValidLineItem{LineItem: item, LineTotal: lineTotal})
	}
	return out, nil
}

func validate(item LineItem) error {
	if !strings.HasPrefix(item.Code, codePrefix) || len(item.Code) == len(codePrefix) {
		return fmt.Errorf("%w: code %q must start with %q", ErrInvalidLineItem, item.Code, codePrefix)
	}
	if len(item.Code) > MaxCodeLength {
		return fmt.Errorf("%w: code %q is longer than %d characters", ErrInvalidLineItem, item.Code, MaxCodeLength)
	}
	if (item.Quantity == nil) == (item.Percentage == nil) {
		return fmt.Errorf("%w: %s must have either quantity or percentage", ErrInvalidLineItem, item.Code)
	}
	if item.Quantity != nil && *item.Quantity < 0 {
		return fmt.Errorf("%w: %s has a negative quantity", ErrInvalidLineItem, item.Code)
	}
	if len(item.IncludeFor) == 0 {
		return fmt.Errorf("%w: %s is not included for any party", ErrInvalidLineItem, item.Code)
	}
	for _, p := range item.IncludeFor {
		if p != Customer && p != Provider {
			return fmt.Errorf("%w: %s includes unknown party %q", ErrInvalidLineItem, item.Code, string(p))
		}
	}
	return nil
}
