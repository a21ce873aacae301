// Package events publishes domain events to downstream consumers: order
// events to an SQS queue and coupon events to an SNS topic.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	snstypes "github.com/aws/aws-sdk-go-v2/service/sns/types"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/go-faster/errors"

	"github.com/xenking/storefront/internal/domain/coupon"
	"github.com/xenking/storefront/internal/domain/order"
	"github.com/xenking/storefront/pkg/httpmiddleware"
)

// Event types carried in the event_type attribute.
const (
	TypeOrderCreated  = "order_created"
	TypeCouponApplied = "coupon_applied"
)

// SQSAPI is the subset of the SQS client used for publishing.
type SQSAPI interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// SNSAPI is the subset of the SNS client used for publishing.
type SNSAPI interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// Publisher sends order events to SQS and coupon events to SNS. A nil
// client or empty destination disables that stream.
type Publisher struct {
	sqs      SQSAPI
	queueURL string
	sns      SNSAPI
	topicARN string
	now      func() time.Time
}

// NewPublisher returns a Publisher bound to a queue and a topic.
func NewPublisher(sqsClient SQSAPI, queueURL string, snsClient SNSAPI, topicARN string) *Publisher {
	return &Publisher{
		sqs:      sqsClient,
		queueURL: queueURL,
		sns:      snsClient,
		topicARN: topicARN,
		now:      time.Now,
	}
}

var (
	_ order.Publisher  = (*Publisher)(nil)
	_ coupon.Publisher = (*Publisher)(nil)
)

// OrderCreated is the body of an order_created message.
type OrderCreated struct {
	EventType     string          `json:"event_type"`
	OrderID       string          `json:"order_id"`
	Status        string          `json:"status"`
	PaymentMethod string          `json:"payment_method"`
	Installments  int             `json:"installments"`
	Customer      EventCustomer   `json:"customer"`
	Items         []order.Item    `json:"items"`
	Subtotal      string          `json:"subtotal"`
	DiscountTotal string          `json:"discount_total"`
	Total         string          `json:"total"`
	Coupon        *coupon.Applied `json:"coupon,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// EventCustomer is the customer contact forwarded to ERP and email systems.
type EventCustomer struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Document string `json:"document"`
}

// CouponApplied is the body of a coupon_applied message.
type CouponApplied struct {
	EventType       string    `json:"event_type"`
	Code            string    `json:"code"`
	DiscountPercent string    `json:"discount_percent"`
	UsageCount      int       `json:"usage_count"`
	Timestamp       time.Time `json:"timestamp"`
}

// PublishOrderCreated sends an order_created message to the order queue.
func (p *Publisher) PublishOrderCreated(ctx context.Context, o *order.Order) error {
	if p.sqs == nil || p.queueURL == "" {
		return nil
	}
	body, err := json.Marshal(OrderCreated{
		EventType:     TypeOrderCreated,
		OrderID:       o.ID,
		Status:        string(o.Status),
		PaymentMethod: string(o.PaymentMethod),
		Installments:  o.Installments,
		Customer: EventCustomer{
			Name:     o.Customer.Name,
			Email:    o.Customer.Email,
			Phone:    o.Customer.Phone,
			Document: o.Customer.Document,
		},
		Items:         o.Items,
		Subtotal:      o.Subtotal.StringFixed(2),
		DiscountTotal: o.DiscountTotal.StringFixed(2),
		Total:         o.Total.StringFixed(2),
		Coupon:        o.AppliedCoupon,
		CreatedAt:     o.CreatedAt,
	})
	if err != nil {
		return errors.Wrap(err, "marshal order_created")
	}

	attrs := map[string]sqstypes.MessageAttributeValue{
		"event_type": stringAttr(TypeOrderCreated),
		"order_id":   stringAttr(o.ID),
	}
	if id := httpmiddleware.RequestIDFromContext(ctx); id != "" {
		attrs["request_id"] = stringAttr(id)
	}

	_, err = p.sqs.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:          aws.String(p.queueURL),
		MessageBody:       aws.String(string(body)),
		MessageAttributes: attrs,
	})
	if err != nil {
		return errors.Wrap(err, "send message")
	}
	return nil
}

// PublishCouponApplied publishes a coupon_applied notification.
func (p *Publisher) PublishCouponApplied(ctx context.Context, c *coupon.Coupon) error {
	if p.sns == nil || p.topicARN == "" {
		return nil
	}
	body, err := json.Marshal(CouponApplied{
		EventType:       TypeCouponApplied,
		Code:            c.Code,
		DiscountPercent: c.DiscountPercent.String(),
		UsageCount:      c.UsageCount,
		Timestamp:       p.now().UTC(),
	})
	if err != nil {
		return errors.Wrap(err, "marshal coupon_applied")
	}

	_, err = p.sns.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(p.topicARN),
		Message:  aws.String(string(body)),
		MessageAttributes: map[string]snstypes.MessageAttributeValue{
			"event_type": {DataType: aws.String("String"), StringValue: aws.String(TypeCouponApplied)},
		},
	})
	if err != nil {
		return errors.Wrapf(err, "sns publish to %s", p.topicARN)
	}
	return nil
}

func stringAttr(v string) sqstypes.MessageAttributeValue {
	return sqstypes.MessageAttributeValue{DataType: aws.String("String"), StringValue: aws.String(v)}
}
