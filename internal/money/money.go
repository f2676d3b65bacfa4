package money

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidCurrency is returned when the currency code is not a three letter ISO code.
	ErrInvalidCurrency = errors.New("money: invalid currency code")
	// ErrCurrencyMismatch is returned when arithmetic combines two different currencies.
	ErrCurrencyMismatch = errors.New("money: currency mismatch")
	// ErrAmountOverflow is returned when an amount no longer fits in int64 subunits.
	ErrAmountOverflow = errors.New("money: amount overflows int64 subunits")
)

// Money keeps amounts in integer subunits (cents, pence, yen) of a single currency.
type Money struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

// New constructs Money after normalising and validating the currency code.
func New(amount int64, currency string) (Money, error) {
	currency, err := NormalizeCurrency(currency)
	if err != nil {
		return Money{}, err
	}
	return Money{Amount: amount, Currency: currency}, nil
}

// Must creates Money and panics if validation fails; useful in tests and fixtures.
func Must(amount int64, currency string) Money {
	m, err := New(amount, currency)
	if err != nil {
		panic(err)
	}
	return m
}

// Zero returns a zero amount in the given currency. The currency is not validated.
func Zero(currency string) Money {
	return Money{Currency: currency}
}

// NormalizeCurrency upper-cases the code and checks it has three ASCII letters.
func NormalizeCurrency(currency string) (string, error) {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if len(currency) != 3 {
		return "", ErrInvalidCurrency
	}
	for _, r := range currency {
		if r < 'A' || r > 'Z' {
			return "", ErrInvalidCurrency
		}
	}
	return currency, nil
}

// Add adds two money values ensuring currencies match.
func (m Money) Add(other Money) (Money, error) {
	if err := m.ensureSameCurrency(other); err != nil {
		return Money{}, err
	}
	sum := m.Amount + other.Amount
	if (other.Amount > 0 && sum < m.Amount) || (other.Amount < 0 && sum > m.Amount) {
		return Money{}, fmt.Errorf("%w: %d + %d", ErrAmountOverflow, m.Amount, other.Amount)
	}
	return Money{Amount: sum, Currency: m.Currency}, nil
}

// Sub subtracts other from the receiver.
func (m Money) Sub(other Money) (Money, error) {
	if err := m.ensureSameCurrency(other); err != nil {
		return Money{}, err
	}
	diff := m.Amount - other.Amount
	if (other.Amount > 0 && diff > m.Amount) || (other.Amount < 0 && diff < m.Amount) {
		return Money{}, fmt.Errorf("%w: %d - %d", ErrAmountOverflow, m.Amount, other.Amount)
	}
	return Money{Amount: diff, Currency: m.Currency}, nil
}

// Neg returns the negated amount preserving currency.
func (m Money) Neg() Money {
	return Money{Amount: -m.Amount, Currency: m.Currency}
}

// Multiply multiplies the amount by the provided factor.
func (m Money) Multiply(times int64) (Money, error) {
	product, ok := mul(m.Amount, times)
	if !ok {
		return Money{}, fmt.Errorf("%w: %d * %d", ErrAmountOverflow, m.Amount, times)
	}
	return Money{Amount: product, Currency: m.Currency}, nil
}

// Percent applies a percentage expressed in basis points (1/100 of a percent).
// The result is rounded half away from zero to a whole subunit.
func (m Money) Percent(bps int64) (Money, error) {
	product, ok := mul(m.Amount, bps)
	if !ok {
		return Money{}, fmt.Errorf("%w: %d * %d bps", ErrAmountOverflow, m.Amount, bps)
	}
	quotient := product / 10000
	remainder := product % 10000
	if remainder < 0 {
		remainder = -remainder
	}
	if remainder*2 >= 10000 {
		if product < 0 {
			quotient--
		} else {
			quotient++
		}
	}
	return Money{Amount: quotient, Currency: m.Currency}, nil
}

// IsZero returns true if the amount equals zero.
func (m Money) IsZero() bool {
	return m.Amount == 0
}

// String renders the amount in subunits with its currency, e.g. "700 EUR".
func (m Money) String() string {
	return fmt.Sprintf("%d %s", m.Amount, m.Currency)
}

// mul reports false when a*b does not fit in int64.
func mul(a, b int64) (int64, bool) {
	if a == 0 || b == 0 {
		return 0, true
	}
	c := a * b
	if (c < 0) != ((a < 0) != (b < 0)) || c/b != a {
		return 0, false
	}
	return c, true
}

func (m Money) ensureSameCurrency(other Money) error {
	if m.Currency == "" || other.Currency == "" {
		return ErrInvalidCurrency
	}
	if m.Currency != other.Currency {
		return ErrCurrencyMismatch
	}
	return nil
}
