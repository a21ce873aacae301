package order

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/domain/checkout"
	"github.com/xenking/storefront/internal/domain/coupon"
	"github.com/xenking/storefront/internal/domain/pix"
)

// CouponService is the part of the coupon service used at checkout.
type CouponService interface {
	Validate(ctx context.Context, code string) (*coupon.Applied, error)
	Redeem(ctx context.Context, code string) (*coupon.Coupon, error)
	Announce(ctx context.Context, c *coupon.Coupon)
}

// PixGenerator builds PIX charges.
type PixGenerator interface {
	Generate(ctx context.Context, orderID string, amount decimal.Decimal) (*pix.Charge, error)
}

// Publisher announces placed orders to downstream consumers.
type Publisher interface {
	PublishOrderCreated(ctx context.Context, o *Order) error
}

// PlaceOrderRequest holds the input for placing an order.
type PlaceOrderRequest struct {
	Customer        Customer
	ShippingAddress Address
	Items           []Item
	PaymentMethod   checkout.PaymentMethod
	// Installments is 0 or 1 for non credit card methods.
	Installments int
	CouponCode   string
}

// PlaceOrderResult holds the output of a successfully placed order.
type PlaceOrderResult struct {
	Order *Order
	// Pix is set for PIX orders when the charge could be generated.
	Pix *pix.Charge
	// Installment is the selected credit card installment.
	Installment *checkout.Installment
}

// Service encapsulates order placement business logic.
type Service struct {
	coupons   CouponService
	orders    Repository
	tx        TxManager
	pix       PixGenerator
	publisher Publisher
	tracer    trace.Tracer
	now       func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithPublisher sets the order event publisher.
func WithPublisher(p Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

// WithTracerProvider sets the provider of the order placement spans.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *Service) { s.tracer = tp.Tracer("storefront/order") }
}

// NewService creates an order Service with the required domain dependencies.
func NewService(
	coupons CouponService,
	orders Repository,
	tx TxManager,
	pixGen PixGenerator,
	opts ...Option,
) *Service {
	s := &Service{
		coupons: coupons,
		orders:  orders,
		tx:      tx,
		pix:     pixGen,
		tracer:  noop.NewTracerProvider().Tracer(""),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// PlaceOrder validates the request, prices it, persists the order together
// with the coupon redemption, and for PIX orders generates the charge.
func (s *Service) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (_ *PlaceOrderResult, rerr error) {
	ctx, span := s.tracer.Start(ctx, "order.PlaceOrder",
		trace.WithAttributes(attribute.String("payment_method", string(req.PaymentMethod))),
	)
	defer func() {
		if rerr != nil {
			span.RecordError(rerr)
			span.SetStatus(codes.Error, rerr.Error())
		}
		span.End()
	}()

	if err := req.validate(); err != nil {
		return nil, err
	}

	// Business failures of the coupon surface before anything is written.
	var applied *coupon.Applied
	if code := strings.TrimSpace(req.CouponCode); code != "" {
		a, err := s.coupons.Validate(ctx, code)
		if err != nil {
			return nil, errors.Wrap(err, "validate coupon")
		}
		applied = a
	}

	totals := checkout.Compute(checkout.Input{
		Subtotal: checkout.Subtotal(lines(req.Items)),
		Method:   req.PaymentMethod,
		Coupon:   applied,
	}).Rounded()

	o := &Order{
		ID:              uuid.New().String(),
		Status:          StatusPending,
		Customer:        req.Customer,
		ShippingAddress: req.ShippingAddress,
		Items:           req.Items,
		PaymentMethod:   req.PaymentMethod,
		Installments:    req.Installments,
		Subtotal:        totals.Subtotal,
		Shipping:        totals.Shipping,
		PixDiscount:     totals.PixDiscount,
		CouponDiscount:  totals.CouponDiscount,
		DiscountTotal:   totals.DiscountTotal,
		Total:           totals.Total,
		AppliedCoupon:   applied,
		CreatedAt:       s.now().UTC(),
	}
	o.Customer.Document = DocumentDigits(o.Customer.Document)
	span.SetAttributes(attribute.String("order_id", o.ID))

	lg := zctx.From(ctx).With(zap.String("order_id", o.ID))

	var redeemed *coupon.Coupon
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if applied != nil {
			// A lost redemption race keeps the validated discount.
			err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
				c, err := s.coupons.Redeem(ctx, applied.Code)
				redeemed = c
				return err
			})
			if err != nil {
				lg.Warn("Coupon redemption failed, keeping validated discount",
					zap.String("code", applied.Code),
					zap.Error(err),
				)
			}
		}
		if err := s.orders.Create(ctx, o); err != nil {
			return errors.Wrap(err, "create order")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	lg.Info("Order placed",
		zap.String("payment_method", string(o.PaymentMethod)),
		zap.String("total", o.Total.StringFixed(2)),
	)

	res := &PlaceOrderResult{Order: o}
	if o.PaymentMethod == checkout.CreditCard {
		inst, err := checkout.InstallmentFor(o.Total, o.Installments)
		if err == nil {
			res.Installment = &inst
		}
	}
	if o.PaymentMethod == checkout.Pix {
		charge, err := s.pix.Generate(ctx, o.ID, o.Total)
		if err != nil {
			lg.Error("PIX generation failed", zap.Error(err))
		} else {
			res.Pix = charge
		}
	}

	if redeemed != nil {
		s.coupons.Announce(ctx, redeemed)
	}
	if s.publisher != nil {
		if err := s.publisher.PublishOrderCreated(ctx, o); err != nil {
			lg.Warn("Publish order_created failed", zap.Error(err))
		}
	}
	return res, nil
}

// Get returns a placed order.
func (s *Service) Get(ctx context.Context, id string) (*Order, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	o, err := s.orders.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "get order")
	}
	return o, nil
}

// GeneratePix builds a PIX charge for an existing order using its stored
// total.
func (s *Service) GeneratePix(ctx context.Context, id string) (*pix.Charge, error) {
	o, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	charge, err := s.pix.Generate(ctx, o.ID, o.Total)
	if err != nil {
		if errors.Is(err, pix.ErrInvalidAmount) {
			return nil, pix.ErrInvalidAmount
		}
		return nil, errors.Wrap(err, "generate pix")
	}
	return charge, nil
}

// QuoteRequest holds the input for pricing a cart without placing it.
type QuoteRequest struct {
	Items         []Item
	PaymentMethod checkout.PaymentMethod
	Installments  int
	CouponCode    string
}

// Quote is a read-only price breakdown.
type Quote struct {
	Totals        checkout.Totals
	AppliedCoupon *coupon.Applied
	// Installment is the selected installment for credit card quotes.
	Installment *checkout.Installment
	// Plan lists every installment option for credit card quotes.
	Plan []checkout.Installment
}

// Quote prices a cart the same way PlaceOrder does, without side effects.
func (s *Service) Quote(ctx context.Context, req QuoteRequest) (*Quote, error) {
	if err := validateItems(req.Items); err != nil {
		return nil, err
	}
	n, err := normalizeInstallments(req.PaymentMethod, req.Installments)
	if err != nil {
		return nil, err
	}

	var applied *coupon.Applied
	if code := strings.TrimSpace(req.CouponCode); code != "" {
		a, err := s.coupons.Validate(ctx, code)
		if err != nil {
			return nil, errors.Wrap(err, "validate coupon")
		}
		applied = a
	}

	q := &Quote{
		Totals: checkout.Compute(checkout.Input{
			Subtotal: checkout.Subtotal(lines(req.Items)),
			Method:   req.PaymentMethod,
			Coupon:   applied,
		}).Rounded(),
		AppliedCoupon: applied,
	}
	if req.PaymentMethod == checkout.CreditCard {
		inst, err := checkout.InstallmentFor(q.Totals.Total, n)
		if err != nil {
			return nil, err
		}
		q.Installment = &inst
		q.Plan = checkout.Plan(q.Totals.Total)
	}
	return q, nil
}
