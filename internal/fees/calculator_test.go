package fees

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swiftdash/payments-service/internal/domain"
)

func tenPercent(t *testing.T) *Calculator {
	t.Helper()
	return NewCalculator(decimal.NewFromFloat(0.10), 50)
}

func TestCalculate(t *testing.T) {
	calc := tenPercent(t)

	tests := []struct {
		name         string
		amount       int64
		wantFee      int64
		wantEarnings int64
	}{
		{"round amount", 10000, 1000, 9000},
		{"rounds fee half up", 10005, 1001, 9004},
		{"minimum fee applies", 300, 50, 250},
		{"fee capped at amount", 30, 30, 0},
		{"one cent", 1, 1, 0},
		{"large amount", 12_345_678, 1_234_568, 11_111_110},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			split, err := calc.Calculate(tc.amount)
			require.NoError(t, err)
			assert.Equal(t, tc.wantFee, split.PlatformFee)
			assert.Equal(t, tc.wantEarnings, split.RiderEarnings)
		})
	}
}

func TestCalculateRejectsNonPositive(t *testing.T) {
	calc := tenPercent(t)

	for _, amount := range []int64{0, -1, -10000} {
		_, err := calc.Calculate(amount)
		require.ErrorIs(t, err, domain.ErrInvalidAmount)
	}
}

func TestSumInvariant(t *testing.T) {
	// fee + earnings must reconstruct the amount exactly for every input.
	calc := NewCalculator(decimal.NewFromFloat(0.0725), 35)

	for amount := int64(1); amount <= 25_000; amount++ {
		split, err := calc.Calculate(amount)
		require.NoError(t, err)
		require.Equal(t, amount, split.PlatformFee+split.RiderEarnings, "amount %d", amount)
		require.GreaterOrEqual(t, split.RiderEarnings, int64(0), "amount %d", amount)
	}
}

func TestFeeMonotonic(t *testing.T) {
	calc := tenPercent(t)

	var prev int64
	for amount := int64(1); amount <= 25_000; amount++ {
		split, err := calc.Calculate(amount)
		require.NoError(t, err)
		require.GreaterOrEqual(t, split.PlatformFee, prev, "amount %d", amount)
		prev = split.PlatformFee
	}
}
