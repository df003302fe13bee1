package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/yashrajoria/fulfillment-service/events"
	"github.com/yashrajoria/fulfillment-service/models"
	awspkg "github.com/yashrajoria/fulfillment-service/pkg/aws"
	"go.uber.org/zap"
)

// MessageSource delivers raw message bodies, e.g. an SQS consumer.
type MessageSource interface {
	StartPolling(ctx context.Context, handler awspkg.MessageHandler) error
}

// PaymentEventConsumer turns gateway callbacks into PaymentCompleted events
// on the bus. It accepts SQS bodies, raw or wrapped in an SNS envelope, and
// webhook payloads.
type PaymentEventConsumer struct {
	publisher events.Publisher
	logger    *zap.Logger
	now       func() time.Time
}

func NewPaymentEventConsumer(publisher events.Publisher, logger *zap.Logger) *PaymentEventConsumer {
	return &PaymentEventConsumer{publisher: publisher, logger: logger, now: time.Now}
}

func (c *PaymentEventConsumer) Run(ctx context.Context, src MessageSource) error {
	return src.StartPolling(ctx, c.HandleMessage)
}

// HandleMessage never asks for redelivery of a message it cannot parse.
func (c *PaymentEventConsumer) HandleMessage(ctx context.Context, body string) error {
	var envelope struct {
		Message string `json:"Message"`
	}
	if err := json.Unmarshal([]byte(body), &envelope); err == nil && envelope.Message != "" {
		body = envelope.Message
	}

	var evt models.PaymentEvent
	if err := json.Unmarshal([]byte(body), &evt); err != nil {
		c.logger.Error("invalid payment message", zap.Error(err))
		return nil
	}
	if err := c.Apply(ctx, evt); err != nil {
		c.logger.Error("payment message rejected", zap.String("type", evt.Type), zap.String("order_id", evt.OrderID), zap.Error(err))
	}
	return nil
}

// Apply validates evt and publishes the matching PaymentCompleted.
func (c *PaymentEventConsumer) Apply(ctx context.Context, evt models.PaymentEvent) error {
	orderID, err := uuid.Parse(evt.OrderID)
	if err != nil {
		return fmt.Errorf("invalid order_id %q: %w", evt.OrderID, models.ErrInvalidPayment)
	}

	var outcome events.PaymentOutcome
	switch evt.Type {
	case models.PaymentEventSucceeded:
		outcome = events.PaymentPaid
	case models.PaymentEventFailed:
		outcome = events.PaymentFailed
	case models.PaymentEventRefunded:
		outcome = events.PaymentRefunded
	default:
		return fmt.Errorf("unknown payment event type %q: %w", evt.Type, models.ErrInvalidPayment)
	}

	c.logger.Info("payment event received",
		zap.String("order_id", orderID.String()),
		zap.String("outcome", string(outcome)),
		zap.String("transaction_ref", evt.TransactionRef),
	)
	c.publisher.Publish(ctx, events.PaymentCompleted{
		OrderID:        orderID,
		Outcome:        outcome,
		TransactionRef: evt.TransactionRef,
		Amount:         evt.Amount,
		OccurredAt:     c.now().UTC(),
	})
	return nil
}
