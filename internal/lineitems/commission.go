package lineitems

import "fmt"

// DefaultProviderCommission is deducted from the provider's payout: -25%.
const DefaultProviderCommission Percent = -2500

// ComputeCommission builds the provider commission line from the base line
// item. Only the base price is commissioned; delivery fees pass through.
func ComputeCommission(base LineItem, percentage Percent) (LineItem, error) {
	baseTotal, err := LineTotal(base)
	if err != nil {
		return LineItem{}, fmt.Errorf("base price: %w", err)
	}
	commission := LineItem{
		Code:       CodeProviderCommission,
		UnitPrice:  baseTotal,
		Percentage: percentPtr(percentage),
		IncludeFor: []Party{Provider},
	}
	if _, err := LineTotal(commission); err != nil {
		return LineItem{}, fmt.Errorf("provider commission: %w", err)
	}
	return commission, nil
}
