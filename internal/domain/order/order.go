package order

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/apperr"
	"github.com/xenking/storefront/internal/domain/checkout"
	"github.com/xenking/storefront/internal/domain/coupon"
)

// ErrNotFound is returned when a requested order does not exist.
var ErrNotFound = apperr.New(apperr.KindNotFound, "order not found")

// Status is the lifecycle state of an order. Only StatusPending is set here;
// later transitions belong to payment and fulfilment systems.
type Status string

const StatusPending Status = "pending"

// Order is a placed customer order. Amounts are stored rounded to cents.
type Order struct {
	ID              string
	Status          Status
	Customer        Customer
	ShippingAddress Address
	Items           []Item
	PaymentMethod   checkout.PaymentMethod
	Installments    int

	Subtotal       decimal.Decimal
	Shipping       decimal.Decimal
	PixDiscount    decimal.Decimal
	CouponDiscount decimal.Decimal
	DiscountTotal  decimal.Decimal
	Total          decimal.Decimal

	// AppliedCoupon is the coupon snapshot taken at checkout, nil when no
	// coupon was used.
	AppliedCoupon *coupon.Applied
	CreatedAt     time.Time
}

// Customer holds the buyer's contact data.
type Customer struct {
	Name     string
	Email    string
	Phone    string
	Document string
}

// Address is a shipping address.
type Address struct {
	ZipCode      string
	Street       string
	Number       string
	Complement   string
	Neighborhood string
	City         string
	State        string
}

// Item is a single order line. Prices come from the client cart and are
// kept as submitted.
type Item struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
}

func lines(items []Item) []checkout.Line {
	out := make([]checkout.Line, len(items))
	for i, it := range items {
		out[i] = checkout.Line{UnitPrice: it.UnitPrice, Quantity: it.Quantity}
	}
	return out
}

// Repository defines persistence operations for orders.
type Repository interface {
	Create(ctx context.Context, order *Order) error
	// GetByID returns ErrNotFound when the order does not exist.
	GetByID(ctx context.Context, id string) (*Order, error)
}

// TxManager runs fn in a transaction. A nested call runs fn in a savepoint
// of the enclosing transaction.
type TxManager interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}
