package checkout

import (
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/apperr"
)

const (
	// MaxInstallments is the largest number of credit card installments.
	MaxInstallments = 12
	// FreeInstallments is the largest count without a surcharge.
	FreeInstallments = 3
)

var (
	surchargeBase = decimal.RequireFromString("4.99")
	surchargeStep = decimal.RequireFromString("2.49")
)

// ErrInvalidInstallments is returned for an installment count outside 1..12.
var ErrInvalidInstallments = apperr.New(apperr.KindValidation, "installments must be between 1 and 12")

// Installment is the cost of paying a total in Count equal parts.
type Installment struct {
	Count int
	// SurchargePercent is zero for up to FreeInstallments installments.
	SurchargePercent decimal.Decimal
	// Total is the amount paid over all installments.
	Total decimal.Decimal
	// Value is the amount of each installment.
	Value decimal.Decimal
}

// HasSurcharge reports whether the installment adds interest.
func (i Installment) HasSurcharge() bool {
	return i.Count > FreeInstallments
}

// SurchargePercent returns the surcharge for n installments:
// 4.99 + 2.49*n percent above FreeInstallments, zero otherwise.
func SurchargePercent(n int) decimal.Decimal {
	if n <= FreeInstallments {
		return decimal.Zero
	}
	return surchargeBase.Add(surchargeStep.Mul(decimal.NewFromInt(int64(n))))
}

// InstallmentFor computes the plan for paying total in n installments.
func InstallmentFor(total decimal.Decimal, n int) (Installment, error) {
	if n < 1 || n > MaxInstallments {
		return Installment{}, ErrInvalidInstallments
	}
	rate := SurchargePercent(n)
	withSurcharge := total.Mul(hundred.Add(rate)).Div(hundred)
	return Installment{
		Count:            n,
		SurchargePercent: rate,
		Total:            withSurcharge,
		Value:            withSurcharge.Div(decimal.NewFromInt(int64(n))),
	}, nil
}

// Plan returns the installment options 1..MaxInstallments for total.
func Plan(total decimal.Decimal) []Installment {
	plan := make([]Installment, 0, MaxInstallments)
	for n := 1; n <= MaxInstallments; n++ {
		inst, _ := InstallmentFor(total, n)
		plan = append(plan, inst)
	}
	return plan
}
