// Package coupon implements promotional coupon lookup, redemption and
// administration.
package coupon

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/apperr"
)

var (
	// ErrNotFound is returned when no active coupon matches a code or ID.
	ErrNotFound = apperr.New(apperr.KindNotFound, "coupon not found")
	// ErrExpired is returned when a coupon's expiry instant has passed.
	ErrExpired = apperr.New(apperr.KindExpired, "coupon expired")
	// ErrUsageLimitReached is returned when a coupon has exhausted its allowed uses.
	ErrUsageLimitReached = apperr.New(apperr.KindLimitReached, "coupon usage limit reached")
	// ErrDuplicateCode is returned when creating a coupon whose code already exists.
	ErrDuplicateCode = apperr.New(apperr.KindConflict, "coupon code already exists")

	ErrEmptyCode         = apperr.New(apperr.KindValidation, "coupon code is required")
	ErrInvalidPercent    = apperr.New(apperr.KindValidation, "discount percent must be between 0 and 100")
	ErrInvalidUsageLimit = apperr.New(apperr.KindValidation, "usage limit must be greater than 0")
)

// MaxCodeLength bounds the length of a normalized coupon code.
const MaxCodeLength = 64

var hundred = decimal.NewFromInt(100)

// Coupon is a stored promotional code.
type Coupon struct {
	ID              string
	Code            string
	DiscountPercent decimal.Decimal
	// UsageLimit is nil for unlimited coupons.
	UsageLimit *int
	UsageCount int
	// ExpiresAt is nil for coupons that never expire.
	ExpiresAt *time.Time
	IsActive  bool
	CreatedAt time.Time
}

// Check reports why c cannot be consumed at now, or nil when it can.
func (c *Coupon) Check(now time.Time) error {
	switch {
	case !c.IsActive:
		return ErrNotFound
	case c.ExpiresAt != nil && c.ExpiresAt.Before(now):
		return ErrExpired
	case c.UsageLimit != nil && c.UsageCount >= *c.UsageLimit:
		return ErrUsageLimitReached
	}
	return nil
}

// Applied is the snapshot of a coupon attached to an order or quote.
type Applied struct {
	Code            string          `json:"code"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
}

// Applied returns the snapshot of c.
func (c *Coupon) Applied() *Applied {
	return &Applied{Code: c.Code, DiscountPercent: c.DiscountPercent}
}

// NormalizeCode upper-cases the ASCII letters of code. Other bytes are kept
// unchanged.
func NormalizeCode(code string) string {
	b := []byte(code)
	for i, c := range b {
		if c >= 'a' && c <= 'z' {
			b[i] = c - ('a' - 'A')
		}
	}
	return string(b)
}

// Repository persists coupons. Codes passed in are already normalized.
type Repository interface {
	// FindByCode returns the coupon with the given code regardless of its
	// active flag, or ErrNotFound.
	FindByCode(ctx context.Context, code string) (*Coupon, error)
	List(ctx context.Context) ([]Coupon, error)
	ListCodes(ctx context.Context) ([]string, error)
	// Create stores c, returning ErrDuplicateCode when the code is taken.
	Create(ctx context.Context, c *Coupon) error
	// Delete removes the coupon, returning ErrNotFound when absent.
	Delete(ctx context.Context, id string) error
	// SetActive sets the active flag, or flips it when active is nil, and
	// returns the resulting value.
	SetActive(ctx context.Context, id string, active *bool) (bool, error)
	// Redeem increments the usage count of an active, unexpired coupon with
	// remaining uses in a single conditional write. It returns the updated
	// coupon, or nil when no coupon satisfied the conditions.
	Redeem(ctx context.Context, code string, now time.Time) (*Coupon, error)
}

// Publisher announces successful coupon applications.
type Publisher interface {
	PublishCouponApplied(ctx context.Context, c *Coupon) error
}
