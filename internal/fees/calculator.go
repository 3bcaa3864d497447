// Package fees computes the platform fee / rider earnings split for a gross
// payment amount. The split is exact: the fee is rounded, earnings are
// derived as amount minus fee, so the two always sum back to the amount.
package fees

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/swiftdash/payments-service/internal/domain"
)

type Split struct {
	PlatformFee   int64
	RiderEarnings int64
}

type Calculator struct {
	rate   decimal.Decimal
	minFee int64
}

// NewCalculator builds a calculator charging rate (e.g. 0.10 for 10%) of the
// gross amount, with a minimum fee in minor units. The fee never exceeds the
// amount itself.
func NewCalculator(rate decimal.Decimal, minFee int64) *Calculator {
	return &Calculator{rate: rate, minFee: minFee}
}

func (c *Calculator) Calculate(amount int64) (Split, error) {
	if amount <= 0 {
		return Split{}, fmt.Errorf("Calculate: %w", domain.ErrInvalidAmount)
	}

	fee := decimal.NewFromInt(amount).Mul(c.rate).Round(0).IntPart()
	if fee < c.minFee {
		fee = c.minFee
	}
	if fee > amount {
		fee = amount
	}

	return Split{PlatformFee: fee, RiderEarnings: amount - fee}, nil
}
