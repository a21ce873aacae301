package checkout

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/xenking/storefront/internal/domain/coupon"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func assertDec(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...any) {
	t.Helper()
	assert.True(t, dec(want).Equal(got), append([]any{"want %s, got %s", want, got.String()}, msgAndArgs...)...)
}

func applied(pct string) *coupon.Applied {
	return &coupon.Applied{Code: "TEST", DiscountPercent: dec(pct)}
}

func TestSubtotal(t *testing.T) {
	got := Subtotal([]Line{
		{UnitPrice: dec("49.90"), Quantity: 2},
		{UnitPrice: dec("0.10"), Quantity: 3},
	})
	assertDec(t, "100.10", got)
	assertDec(t, "0", Subtotal(nil))
}

func TestCompute(t *testing.T) {
	tests := []struct {
		name     string
		in       Input
		pix      string
		coupon   string
		discount string
		total    string
	}{
		{
			name:     "pix with coupon discounts add up",
			in:       Input{Subtotal: dec("100"), Method: Pix, Coupon: applied("20")},
			pix:      "5",
			coupon:   "20",
			discount: "25",
			total:    "75",
		},
		{
			name:     "credit card no coupon",
			in:       Input{Subtotal: dec("100"), Method: CreditCard},
			pix:      "0",
			coupon:   "0",
			discount: "0",
			total:    "100",
		},
		{
			name:     "zero percent coupon",
			in:       Input{Subtotal: dec("80"), Method: Boleto, Coupon: applied("0")},
			pix:      "0",
			coupon:   "0",
			discount: "0",
			total:    "80",
		},
		{
			name:     "full coupon leaves shipping only",
			in:       Input{Subtotal: dec("80"), Method: Boleto, Coupon: applied("100")},
			pix:      "0",
			coupon:   "80",
			discount: "80",
			total:    "0",
		},
		{
			name:     "full coupon with pix is not floored",
			in:       Input{Subtotal: dec("100"), Method: Pix, Coupon: applied("100")},
			pix:      "5",
			coupon:   "100",
			discount: "105",
			total:    "-5",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Compute(tt.in)
			assertDec(t, "0", got.Shipping)
			assertDec(t, tt.pix, got.PixDiscount)
			assertDec(t, tt.coupon, got.CouponDiscount)
			assertDec(t, tt.discount, got.DiscountTotal)
			assertDec(t, tt.total, got.Total)
			assert.True(t, got.Total.Equal(got.Subtotal.Add(got.Shipping).Sub(got.DiscountTotal)))
		})
	}
}

func TestTotals_Rounded(t *testing.T) {
	got := Compute(Input{Subtotal: dec("33.33"), Method: Pix, Coupon: applied("15")}).Rounded()

	assertDec(t, "1.67", got.PixDiscount) // 1.6665
	assertDec(t, "5.00", got.CouponDiscount)
	assertDec(t, "6.67", got.DiscountTotal) // 6.666
	assertDec(t, "26.66", got.Total)        // 26.664
}

func TestRound_HalfAwayFromZero(t *testing.T) {
	assertDec(t, "0.13", Round(dec("0.125")))
	assertDec(t, "-0.13", Round(dec("-0.125")))
	assertDec(t, "2.67", Round(dec("2.665")))
}

func TestPaymentMethod_Valid(t *testing.T) {
	assert.True(t, CreditCard.Valid())
	assert.True(t, Pix.Valid())
	assert.True(t, Boleto.Valid())
	assert.False(t, PaymentMethod("cash").Valid())
	assert.False(t, PaymentMethod("").Valid())
}
