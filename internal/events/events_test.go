package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/storefront/internal/domain/checkout"
	"github.com/xenking/storefront/internal/domain/coupon"
	"github.com/xenking/storefront/internal/domain/order"
)

// --- Mock implementations ---

type mockSQS struct {
	input *sqs.SendMessageInput
	err   error
}

func (m *mockSQS) SendMessage(_ context.Context, in *sqs.SendMessageInput, _ ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	m.input = in
	return &sqs.SendMessageOutput{}, m.err
}

type mockSNS struct {
	input *sns.PublishInput
	err   error
}

func (m *mockSNS) Publish(_ context.Context, in *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
	m.input = in
	return &sns.PublishOutput{}, m.err
}

// --- Tests ---

func TestPublisher_PublishOrderCreated(t *testing.T) {
	q := &mockSQS{}
	p := NewPublisher(q, "https://sqs.local/orders", nil, "")

	o := &order.Order{
		ID:            "0b5e",
		Status:        order.StatusPending,
		Customer:      order.Customer{Name: "Maria", Email: "maria@example.com"},
		PaymentMethod: checkout.Pix,
		Installments:  1,
		Subtotal:      decimal.NewFromInt(100),
		DiscountTotal: decimal.NewFromInt(25),
		Total:         decimal.NewFromInt(75),
		AppliedCoupon: &coupon.Applied{Code: "VERAO20", DiscountPercent: decimal.NewFromInt(20)},
		CreatedAt:     time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, p.PublishOrderCreated(context.Background(), o))

	require.NotNil(t, q.input)
	assert.Equal(t, "https://sqs.local/orders", *q.input.QueueUrl)
	assert.Equal(t, "order_created", *q.input.MessageAttributes["event_type"].StringValue)
	assert.Equal(t, "0b5e", *q.input.MessageAttributes["order_id"].StringValue)

	var body map[string]any
	require.NoError(t, json.Unmarshal([]byte(*q.input.MessageBody), &body))
	assert.Equal(t, "order_created", body["event_type"])
	assert.Equal(t, "75.00", body["total"])
	assert.Equal(t, "pix", body["payment_method"])
	assert.Equal(t, "VERAO20", body["coupon"].(map[string]any)["code"])
}

func TestPublisher_PublishCouponApplied(t *testing.T) {
	n := &mockSNS{}
	p := NewPublisher(nil, "", n, "arn:aws:sns:sa-east-1:000000000000:coupons")

	err := p.PublishCouponApplied(context.Background(), &coupon.Coupon{
		Code: "BEMVINDO10", DiscountPercent: decimal.NewFromInt(10), UsageCount: 1,
	})
	require.NoError(t, err)

	require.NotNil(t, n.input)
	var body CouponApplied
	require.NoError(t, json.Unmarshal([]byte(*n.input.Message), &body))
	assert.Equal(t, TypeCouponApplied, body.EventType)
	assert.Equal(t, "BEMVINDO10", body.Code)
	assert.Equal(t, "10", body.DiscountPercent)
	assert.Equal(t, 1, body.UsageCount)
}

func TestPublisher_Disabled(t *testing.T) {
	p := NewPublisher(nil, "", nil, "")
	require.NoError(t, p.PublishOrderCreated(context.Background(), &order.Order{}))
	require.NoError(t, p.PublishCouponApplied(context.Background(), &coupon.Coupon{}))
}

func TestPublisher_Errors(t *testing.T) {
	p := NewPublisher(&mockSQS{err: errors.New("throttled")}, "q", &mockSNS{err: errors.New("denied")}, "t")

	err := p.PublishOrderCreated(context.Background(), &order.Order{ID: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "send message")

	err = p.PublishCouponApplied(context.Background(), &coupon.Coupon{Code: "X"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sns publish")
}
