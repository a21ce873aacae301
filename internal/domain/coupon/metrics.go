package coupon

import (
	"context"

	"github.com/go-faster/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics counts coupon validations and redemptions by outcome. A nil
// *Metrics records nothing.
type Metrics struct {
	validations metric.Int64Counter
	redemptions metric.Int64Counter
}

// NewMetrics registers the coupon counters on meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	validations, err := meter.Int64Counter("coupon.validations",
		metric.WithDescription("Coupon validation attempts by outcome"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "validations counter")
	}
	redemptions, err := meter.Int64Counter("coupon.redemptions",
		metric.WithDescription("Coupon redemption attempts by outcome"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "redemptions counter")
	}
	return &Metrics{validations: validations, redemptions: redemptions}, nil
}

func (m *Metrics) recordValidation(ctx context.Context, err error) {
	if m == nil {
		return
	}
	m.validations.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome(err))))
}

func (m *Metrics) recordRedemption(ctx context.Context, err error) {
	if m == nil {
		return
	}
	m.redemptions.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome(err))))
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrExpired):
		return "expired"
	case errors.Is(err, ErrUsageLimitReached):
		return "limit_reached"
	default:
		return "error"
	}
}
