package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/yashrajoria/fulfillment-service/events"
	awspkg "github.com/yashrajoria/fulfillment-service/pkg/aws"
	"github.com/yashrajoria/fulfillment-service/worker"
	"go.uber.org/zap"
)

const TaskRelayEvent = "event.relay"

// RelayEnvelope is the wire format of events leaving the process.
type RelayEnvelope struct {
	Type       string          `json:"type"`
	Key        string          `json:"key"`
	OccurredAt time.Time       `json:"occurred_at"`
	Data       json.RawMessage `json:"data"`
}

type KeyedPublisher interface {
	Publish(ctx context.Context, key string, value []byte) error
}

// EventRelay forwards committed domain events to Kafka and SNS through the
// task queue, so a broker outage never blocks a request.
type EventRelay struct {
	queue    worker.Queue
	kafka    KeyedPublisher
	sns      awspkg.SNSPublisher
	topicArn string
	logger   *zap.Logger
}

// NewEventRelay accepts nil for either sink.
func NewEventRelay(queue worker.Queue, kafka KeyedPublisher, sns awspkg.SNSPublisher, topicArn string, logger *zap.Logger) *EventRelay {
	return &EventRelay{queue: queue, kafka: kafka, sns: sns, topicArn: topicArn, logger: logger}
}

func (r *EventRelay) Enabled() bool {
	return r.kafka != nil || (r.sns != nil && r.topicArn != "")
}

func (r *EventRelay) Register(bus *events.Bus) {
	events.Subscribe(bus, "relay.order_created", relay[events.OrderCreated](r))
	events.Subscribe(bus, "relay.order_cancelled", relay[events.OrderCancelled](r))
	events.Subscribe(bus, "relay.order_status", relay[events.OrderStatusUpdated](r))
	events.Subscribe(bus, "relay.payment", relay[events.PaymentCompleted](r))
	events.Subscribe(bus, "relay.low_stock", relay[events.LowStockDetected](r))
	events.Subscribe(bus, "relay.review", relay[events.ReviewPosted](r))
}

func relay[E events.Event](r *EventRelay) func(ctx context.Context, e E) error {
	return func(ctx context.Context, e E) error {
		return r.forward(ctx, e)
	}
}

func (r *EventRelay) forward(ctx context.Context, e events.Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", e.EventName(), err)
	}
	key, at := eventKey(e)
	task, err := worker.NewTask(TaskRelayEvent, RelayEnvelope{Type: e.EventName(), Key: key, OccurredAt: at, Data: data})
	if err != nil {
		return err
	}
	if err := r.queue.Enqueue(ctx, task); err != nil {
		return fmt.Errorf("queue %s relay: %w", e.EventName(), err)
	}
	return nil
}

// HandleTask publishes one envelope to every configured sink. A failing
// sink fails the task so the pool retries it.
func (r *EventRelay) HandleTask(ctx context.Context, task worker.Task) error {
	var env RelayEnvelope
	if err := json.Unmarshal(task.Payload, &env); err != nil {
		r.logger.Error("bad relay payload", zap.String("task_id", task.ID), zap.Error(err))
		return nil
	}
	body, err := json.Marshal(env)
	if err != nil {
		return err
	}

	var errs []error
	if r.kafka != nil {
		if err := r.kafka.Publish(ctx, env.Key, body); err != nil {
			errs = append(errs, err)
		}
	}
	if r.sns != nil && r.topicArn != "" {
		if err := r.sns.Publish(ctx, r.topicArn, env.Type, body); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// eventKey picks the aggregate id so events of one order stay ordered on
// a partition.
func eventKey(e events.Event) (string, time.Time) {
	switch ev := e.(type) {
	case events.OrderCreated:
		return ev.OrderID.String(), ev.OccurredAt
	case events.OrderCancelled:
		return ev.OrderID.String(), ev.OccurredAt
	case events.OrderStatusUpdated:
		return ev.OrderID.String(), ev.OccurredAt
	case events.PaymentCompleted:
		return ev.OrderID.String(), ev.OccurredAt
	case events.LowStockDetected:
		return ev.VariantID.String(), ev.OccurredAt
	case events.ReviewPosted:
		return ev.ProductID.String(), ev.OccurredAt
	}
	return e.EventName(), time.Now().UTC()
}
