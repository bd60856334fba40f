// Package events consumes storefront order events from SQS and mirrors them
// into the order tables, opening a credit when the checkout chose a plan.
package events

import (
	"context"
	"errors"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/cicilan/internal/auditcontext"
	"github.com/smallbiznis/cicilan/internal/config"
	creditdomain "github.com/smallbiznis/cicilan/internal/credit/domain"
	"github.com/smallbiznis/cicilan/internal/domainerr"
	orderdomain "github.com/smallbiznis/cicilan/internal/order/domain"
	"go.uber.org/zap"
)

const (
	maxMessages  = 10
	waitSeconds  = 20
	receiveDelay = 5 * time.Second
)

// SQSAPI is the part of the SQS client the consumer uses.
type SQSAPI interface {
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

type Consumer struct {
	client   SQSAPI
	queueURL string
	orders   orderdomain.Service
	credits  creditdomain.Service
	log      *zap.Logger
}

func NewConsumer(client SQSAPI, queueURL string, orders orderdomain.Service, credits creditdomain.Service, log *zap.Logger) *Consumer {
	return &Consumer{
		client:   client,
		queueURL: queueURL,
		orders:   orders,
		credits:  credits,
		log:      log.Named("order.events"),
	}
}

// NewSQSClient builds a client from static keys when given, otherwise from the
// default AWS credential chain.
func NewSQSClient(ctx context.Context, cfg config.SQSConfig) (*sqs.Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return sqs.NewFromConfig(awsCfg), nil
}

// Run polls until ctx is cancelled.
func (c *Consumer) Run(ctx context.Context) error {
	c.log.Info("order event consumer started", zap.String("queue_url", c.queueURL))
	for {
		if ctx.Err() != nil {
			c.log.Info("order event consumer stopped")
			return nil
		}
		if _, err := c.Poll(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.log.Warn("receive order events failed", zap.Error(err))
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(receiveDelay):
			}
		}
	}
}

// Poll receives one batch and returns how many messages were handled.
func (c *Consumer) Poll(ctx context.Context) (int, error) {
	out, err := c.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:            aws.String(c.queueURL),
		MaxNumberOfMessages: maxMessages,
		WaitTimeSeconds:     waitSeconds,
	})
	if err != nil {
		return 0, err
	}

	handled := 0
	for _, message := range out.Messages {
		messageID := aws.ToString(message.MessageId)
		err := c.Handle(ctx, aws.ToString(message.Body))
		if err != nil && !permanent(err) {
			// Left on the queue for redelivery.
			c.log.Warn("order event failed, will retry", zap.String("message_id", messageID), zap.Error(err))
			continue
		}
		if err != nil {
			c.log.Error("order event dropped", zap.String("message_id", messageID), zap.Error(err))
		}

		if _, err := c.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
			QueueUrl:      aws.String(c.queueURL),
			ReceiptHandle: message.ReceiptHandle,
		}); err != nil {
			c.log.Warn("delete order event failed", zap.String("message_id", messageID), zap.Error(err))
			continue
		}
		handled++
	}
	return handled, nil
}

var errMalformed = errors.New("malformed_event")

// Handle processes one message body.
func (c *Consumer) Handle(ctx context.Context, body string) error {
	env, err := ParseEnvelope(body)
	if err != nil {
		return errors.Join(errMalformed, err)
	}

	switch env.Topic() {
	case TopicOrderCreate:
	default:
		c.log.Debug("order event skipped", zap.String("topic", env.Topic()), zap.String("event_id", env.ID))
		return nil
	}

	shopifyOrder, err := DecodeOrder(env.Detail.Payload)
	if err != nil {
		return errors.Join(errMalformed, err)
	}

	ctx = auditcontext.WithActor(ctx, auditcontext.ActorSystem, "")
	order, created, err := c.orders.Ingest(ctx, IngestRequest(shopifyOrder))
	if err != nil {
		return err
	}
	c.log.Info("order mirrored",
		zap.String("order_id", order.ID.String()),
		zap.String("order_number", order.OrderNumber),
		zap.Bool("created", created),
	)

	rawPlan := PlanID(shopifyOrder)
	if rawPlan == "" {
		return nil
	}
	planID, err := snowflake.ParseString(rawPlan)
	if err != nil {
		c.log.Warn("order carries an invalid plan id", zap.String("order_id", order.ID.String()), zap.String("plan_id", rawPlan))
		return nil
	}

	credit, err := c.credits.Create(ctx, creditdomain.CreateRequest{
		OrderID:    order.ID,
		PlanID:     planID,
		CustomerID: order.CustomerID,
	})
	if errors.Is(err, creditdomain.ErrDuplicateCredit) {
		return nil
	}
	if err != nil {
		return err
	}
	c.log.Info("credit opened from checkout",
		zap.String("credit_id", credit.ID.String()),
		zap.String("order_id", order.ID.String()),
	)
	return nil
}

// permanent errors will fail the same way on redelivery.
func permanent(err error) bool {
	if errors.Is(err, errMalformed) {
		return true
	}
	_, ok := domainerr.KindOf(err)
	return ok
}
