// Package checkout computes order totals and installment plans.
//
// All arithmetic is carried out on decimals at full precision. Rounding to
// cents (half away from zero) happens only when values are displayed or
// persisted.
package checkout

import (
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/apperr"
	"github.com/xenking/storefront/internal/domain/coupon"
)

// PaymentMethod is the way a customer pays for an order.
type PaymentMethod string

const (
	CreditCard PaymentMethod = "credit_card"
	Pix        PaymentMethod = "pix"
	Boleto     PaymentMethod = "boleto"
)

// Valid reports whether m is a supported payment method.
func (m PaymentMethod) Valid() bool {
	switch m {
	case CreditCard, Pix, Boleto:
		return true
	}
	return false
}

// ErrInvalidPaymentMethod is returned for an unsupported payment method.
var ErrInvalidPaymentMethod = apperr.New(apperr.KindValidation, "payment method must be one of credit_card, pix, boleto")

var (
	hundred = decimal.NewFromInt(100)
	// pixRate is the PIX discount rate applied to the subtotal.
	pixRate = decimal.RequireFromString("0.05")
)

// Line is a priced cart line.
type Line struct {
	UnitPrice decimal.Decimal
	Quantity  int
}

// Subtotal returns the sum of unit price times quantity over lines.
func Subtotal(lines []Line) decimal.Decimal {
	sum := decimal.Zero
	for _, l := range lines {
		sum = sum.Add(l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	return sum
}

// Input is what Compute needs to price a cart.
type Input struct {
	Subtotal decimal.Decimal
	Method   PaymentMethod
	// Coupon is nil when no coupon applies.
	Coupon *coupon.Applied
}

// Totals is the breakdown of an order's price.
type Totals struct {
	Subtotal       decimal.Decimal
	Shipping       decimal.Decimal
	PixDiscount    decimal.Decimal
	CouponDiscount decimal.Decimal
	DiscountTotal  decimal.Decimal
	Total          decimal.Decimal
}

// Compute prices a cart. Shipping is always free. The PIX and coupon
// discounts are both computed on the subtotal and add up; the total is not
// floored at zero.
func Compute(in Input) Totals {
	t := Totals{
		Subtotal:       in.Subtotal,
		Shipping:       decimal.Zero,
		PixDiscount:    decimal.Zero,
		CouponDiscount: decimal.Zero,
	}
	if in.Method == Pix {
		t.PixDiscount = in.Subtotal.Mul(pixRate)
	}
	if in.Coupon != nil {
		t.CouponDiscount = in.Subtotal.Mul(in.Coupon.DiscountPercent).Div(hundred)
	}
	t.DiscountTotal = t.PixDiscount.Add(t.CouponDiscount)
	t.Total = t.Subtotal.Add(t.Shipping).Sub(t.DiscountTotal)
	return t
}

// Rounded returns t with every amount rounded to cents.
func (t Totals) Rounded() Totals {
	return Totals{
		Subtotal:       Round(t.Subtotal),
		Shipping:       Round(t.Shipping),
		PixDiscount:    Round(t.PixDiscount),
		CouponDiscount: Round(t.CouponDiscount),
		DiscountTotal:  Round(t.DiscountTotal),
		Total:          Round(t.Total),
	}
}

// Round rounds d to cents, half away from zero.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}
