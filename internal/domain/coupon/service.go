package coupon

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/apperr"
)

// Service implements coupon validation, redemption and administration on top
// of a Repository.
type Service struct {
	repo      Repository
	filter    *CodeFilter
	publisher Publisher
	metrics   *Metrics
	now       func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithCodeFilter enables the known-code prefilter.
func WithCodeFilter(f *CodeFilter) Option {
	return func(s *Service) { s.filter = f }
}

// WithPublisher sets the publisher for coupon_applied events.
func WithPublisher(p Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

// WithMetrics sets the counters recording validation and redemption outcomes.
func WithMetrics(m *Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a Service backed by the given Repository.
func NewService(repo Repository, opts ...Option) *Service {
	s := &Service{repo: repo, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Validate checks that code names an active, unexpired coupon with remaining
// uses. It never modifies state.
func (s *Service) Validate(ctx context.Context, code string) (*Applied, error) {
	c, err := s.validate(ctx, NormalizeCode(code))
	s.metrics.recordValidation(ctx, err)
	if err != nil {
		return nil, err
	}
	return c.Applied(), nil
}

func (s *Service) validate(ctx context.Context, code string) (*Coupon, error) {
	if code == "" {
		return nil, ErrNotFound
	}
	miss := s.filter != nil && !s.filter.MayContain(code)
	c, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "lookup coupon")
	}
	if miss {
		// Written by another process since the last refresh.
		s.filter.Add(code)
		zctx.From(ctx).Debug("Coupon code filter miss for stored code", zap.String("code", code))
	}
	if err := c.Check(s.now()); err != nil {
		return nil, err
	}
	return c, nil
}

// Redeem consumes one use of the coupon. Eligibility is re-checked by the
// conditional write, so two concurrent redemptions of a coupon with one use
// left cannot both succeed. When called inside a transaction the increment
// commits or rolls back with it.
func (s *Service) Redeem(ctx context.Context, code string) (*Coupon, error) {
	c, err := s.redeem(ctx, NormalizeCode(code))
	s.metrics.recordRedemption(ctx, err)
	return c, err
}

func (s *Service) redeem(ctx context.Context, code string) (*Coupon, error) {
	if code == "" {
		return nil, ErrNotFound
	}
	now := s.now()
	c, err := s.repo.Redeem(ctx, code, now)
	if err != nil {
		return nil, errors.Wrap(err, "redeem coupon")
	}
	if c != nil {
		return c, nil
	}

	// Nothing matched: read the row back to report the reason.
	current, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "lookup coupon")
	}
	if err := current.Check(now); err != nil {
		return nil, err
	}
	// The coupon changed between the write and the read, e.g. it was
	// re-activated. Report the write as lost.
	return nil, ErrUsageLimitReached
}

// Apply redeems the coupon outside of an order and publishes a
// coupon_applied event.
func (s *Service) Apply(ctx context.Context, code string) (*Applied, error) {
	c, err := s.Redeem(ctx, code)
	if err != nil {
		return nil, err
	}
	s.Announce(ctx, c)
	return c.Applied(), nil
}

// Announce emits a coupon_applied event for c. Publishing is best effort:
// failures are logged and otherwise ignored.
func (s *Service) Announce(ctx context.Context, c *Coupon) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishCouponApplied(ctx, c); err != nil {
		zctx.From(ctx).Warn("Publish coupon_applied failed",
			zap.String("code", c.Code),
			zap.Error(err),
		)
	}
}

// CreateParams holds the input for creating a coupon.
type CreateParams struct {
	Code            string
	DiscountPercent decimal.Decimal
	UsageLimit      *int
	ExpiresAt       *time.Time
}

func (p CreateParams) validate() error {
	if strings.TrimSpace(p.Code) == "" {
		return ErrEmptyCode
	}
	if len(p.Code) > MaxCodeLength {
		return &InvalidFieldError{Field: "code", Reason: "must be at most 64 characters"}
	}
	if p.DiscountPercent.IsNegative() || p.DiscountPercent.GreaterThan(hundred) {
		return ErrInvalidPercent
	}
	if p.UsageLimit != nil && *p.UsageLimit <= 0 {
		return ErrInvalidUsageLimit
	}
	return nil
}

// Create stores a new coupon. The code is normalized before storage.
func (s *Service) Create(ctx context.Context, p CreateParams) (*Coupon, error) {
	p.Code = NormalizeCode(strings.TrimSpace(p.Code))
	if err := p.validate(); err != nil {
		return nil, err
	}

	c := &Coupon{
		ID:              uuid.New().String(),
		Code:            p.Code,
		DiscountPercent: p.DiscountPercent,
		UsageLimit:      p.UsageLimit,
		ExpiresAt:       p.ExpiresAt,
		IsActive:        true,
		CreatedAt:       s.now().UTC(),
	}
	if err := s.repo.Create(ctx, c); err != nil {
		if errors.Is(err, ErrDuplicateCode) {
			return nil, ErrDuplicateCode
		}
		return nil, errors.Wrap(err, "create coupon")
	}
	if s.filter != nil {
		s.filter.Add(c.Code)
	}

	zctx.From(ctx).Info("Coupon created",
		zap.String("id", c.ID),
		zap.String("code", c.Code),
		zap.String("discount_percent", c.DiscountPercent.String()),
	)
	return c, nil
}

// List returns all coupons, newest first.
func (s *Service) List(ctx context.Context) ([]Coupon, error) {
	list, err := s.repo.List(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list coupons")
	}
	return list, nil
}

// Delete removes a coupon permanently.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return errors.Wrap(err, "delete coupon")
	}
	return nil
}

// SetActive sets the active flag of a coupon, or flips it when active is nil.
func (s *Service) SetActive(ctx context.Context, id string, active *bool) (bool, error) {
	v, err := s.repo.SetActive(ctx, id, active)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, ErrNotFound
		}
		return false, errors.Wrap(err, "set coupon active")
	}
	return v, nil
}

// InvalidFieldError reports a coupon field that failed validation.
type InvalidFieldError struct {
	Field  string
	Reason string
}

func (e *InvalidFieldError) Error() string {
	return e.Field + " " + e.Reason
}

// ErrorKind implements apperr.Kinded.
func (e *InvalidFieldError) ErrorKind() apperr.Kind { return apperr.KindValidation }
