package events

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/go-faster/errors"
)

// Config selects the event destinations. Empty destinations disable
// publishing.
type Config struct {
	Region   string `default:"sa-east-1" usage:"AWS region of the event queue and topic"`
	Endpoint string `default:"" usage:"AWS endpoint override, e.g. LocalStack"`
	QueueURL string `default:"" usage:"SQS queue URL for order events"`
	TopicARN string `default:"" usage:"SNS topic ARN for coupon events"`
}

// Enabled reports whether any destination is configured.
func (c Config) Enabled() bool {
	return c.QueueURL != "" || c.TopicARN != ""
}

// NewFromConfig loads AWS credentials from the environment and builds a
// Publisher for cfg.
func NewFromConfig(ctx context.Context, cfg Config) (*Publisher, error) {
	if !cfg.Enabled() {
		return NewPublisher(nil, "", nil, ""), nil
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, errors.Wrap(err, "load aws config")
	}

	sqsClient := sqs.NewFromConfig(awsCfg, func(o *sqs.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	snsClient := sns.NewFromConfig(awsCfg, func(o *sns.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return NewPublisher(sqsClient, cfg.QueueURL, snsClient, cfg.TopicARN), nil
}
