package services

import (
	"context"
	"time"

	"github.com/yashrajoria/fulfillment-service/events"
	awspkg "github.com/yashrajoria/fulfillment-service/pkg/aws"
	"go.uber.org/zap"
)

type CountRecorder interface {
	RecordCount(ctx context.Context, name string, dimensions map[string]string) error
}

// MetricsRecorder counts business events. Writes happen off the publishing
// goroutine with their own deadline.
type MetricsRecorder struct {
	metrics CountRecorder
	logger  *zap.Logger
	timeout time.Duration
}

func NewMetricsRecorder(metrics CountRecorder, logger *zap.Logger) *MetricsRecorder {
	return &MetricsRecorder{metrics: metrics, logger: logger, timeout: 5 * time.Second}
}

func (m *MetricsRecorder) Register(bus *events.Bus) {
	events.Subscribe(bus, "metrics.order_created", func(ctx context.Context, _ events.OrderCreated) error {
		m.count(ctx, awspkg.MetricOrdersCreated, nil)
		return nil
	})
	events.Subscribe(bus, "metrics.order_cancelled", func(ctx context.Context, _ events.OrderCancelled) error {
		m.count(ctx, awspkg.MetricOrdersCancelled, nil)
		return nil
	})
	events.Subscribe(bus, "metrics.order_status", func(ctx context.Context, e events.OrderStatusUpdated) error {
		m.count(ctx, awspkg.MetricOrderStatus, map[string]string{"Status": string(e.To)})
		return nil
	})
	events.Subscribe(bus, "metrics.payment", func(ctx context.Context, e events.PaymentCompleted) error {
		switch e.Outcome {
		case events.PaymentPaid:
			m.count(ctx, awspkg.MetricPaymentSucceeded, nil)
		case events.PaymentFailed:
			m.count(ctx, awspkg.MetricPaymentFailed, nil)
		case events.PaymentRefunded:
			m.count(ctx, awspkg.MetricPaymentRefunded, nil)
		}
		return nil
	})
	events.Subscribe(bus, "metrics.low_stock", func(ctx context.Context, e events.LowStockDetected) error {
		m.count(ctx, awspkg.MetricInventoryLow, map[string]string{"WarehouseID": e.WarehouseID.String()})
		return nil
	})
	events.Subscribe(bus, "metrics.review", func(ctx context.Context, _ events.ReviewPosted) error {
		m.count(ctx, awspkg.MetricReviewsPosted, nil)
		return nil
	})
}

func (m *MetricsRecorder) count(ctx context.Context, name string, dims map[string]string) {
	ctx = context.WithoutCancel(ctx)
	go func() {
		ctx, cancel := context.WithTimeout(ctx, m.timeout)
		defer cancel()
		if err := m.metrics.RecordCount(ctx, name, dims); err != nil {
			m.logger.Warn("failed to record metric", zap.String("metric", name), zap.Error(err))
		}
	}()
}
