package money_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-market/internal/money"
)

func TestNewNormalizesCurrency(t *testing.T) {
	m, err := money.New(500, " eur ")
	require.NoError(t, err)
	require.Equal(t, money.Money{Amount: 500, Currency: "EUR"}, m)

	_, err = money.New(1, "EURO")
	require.ErrorIs(t, err, money.ErrInvalidCurrency)
	_, err = money.New(1, "E1R")
	require.ErrorIs(t, err, money.ErrInvalidCurrency)
}

func TestAddRejectsCurrencyMismatch(t *testing.T) {
	sum, err := money.Must(500, "USD").Add(money.Must(200, "USD"))
	require.NoError(t, err)
	require.Equal(t, int64(700), sum.Amount)

	_, err = money.Must(500, "USD").Add(money.Must(200, "EUR"))
	require.ErrorIs(t, err, money.ErrCurrencyMismatch)

	_, err = money.Must(500, "USD").Sub(money.Money{Amount: 1})
	require.ErrorIs(t, err, money.ErrInvalidCurrency)
}

func TestMultiplyAndNeg(t *testing.T) {
	m, err := money.Must(100, "USD").Multiply(3)
	require.NoError(t, err)
	require.Equal(t, int64(300), m.Amount)
	require.Equal(t, int64(-300), m.Neg().Amount)
	require.Equal(t, "USD", m.Neg().Currency)
	require.True(t, money.Zero("USD").IsZero())
}

func TestPercentRoundsHalfAwayFromZero(t *testing.T) {
	cases := []struct {
		amount int64
		bps    int64
		want   int64
	}{
		{amount: 2000, bps: -2500, want: -500},
		{amount: 1000, bps: 1550, want: 155},
		{amount: 10, bps: 500, want: 1},   // 0.5 rounds up
		{amount: 10, bps: -500, want: -1}, // -0.5 rounds down
		{amount: 3, bps: -2500, want: -1}, // -0.75
		{amount: 1, bps: 2500, want: 0},   // 0.25
	}
	for _, tc := range cases {
		got, err := money.Must(tc.amount, "EUR").Percent(tc.bps)
		require.NoError(t, err)
		require.Equal(t, tc.want, got.Amount, "amount=%d bps=%d", tc.amount, tc.bps)
		require.Equal(t, "EUR", got.Currency)
	}
}

func TestArithmeticRejectsOverflow(t *testing.T) {
	big := money.Must(100_000_000_000_000, "USD")

	_, err := big.Multiply(100_000)
	require.ErrorIs(t, err, money.ErrAmountOverflow)
	_, err = money.Must(math.MinInt64, "USD").Multiply(-1)
	require.ErrorIs(t, err, money.ErrAmountOverflow)
	_, err = money.Must(math.MaxInt64, "USD").Percent(-2500)
	require.ErrorIs(t, err, money.ErrAmountOverflow)
	_, err = money.Must(math.MaxInt64, "USD").Add(money.Must(1, "USD"))
	require.ErrorIs(t, err, money.ErrAmountOverflow)
	_, err = money.Must(math.MinInt64, "USD").Sub(money.Must(1, "USD"))
	require.ErrorIs(t, err, money.ErrAmountOverflow)

	m, err := money.Must(1, "USD").Multiply(math.MinInt64)
	require.NoError(t, err)
	require.Equal(t, int64(math.MinInt64), m.Amount)
	m, err = big.Multiply(90_000)
	require.NoError(t, err)
	require.Equal(t, int64(9_000_000_000_000_000_000), m.Amount)
}
