package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/yashrajoria/fulfillment-service/events"
	"github.com/yashrajoria/fulfillment-service/models"
	"github.com/yashrajoria/fulfillment-service/repository"
	"github.com/yashrajoria/fulfillment-service/worker"
	"go.uber.org/zap"
)

// NotificationFanout turns domain events into notification jobs on the task
// queue. It never fails the publisher: enqueue errors are logged and dropped.
type NotificationFanout struct {
	queue    worker.Queue
	users    repository.UserRepository
	orders   repository.OrderRepository
	currency *CurrencyFormatter
	logger   *zap.Logger
}

func NewNotificationFanout(
	queue worker.Queue,
	users repository.UserRepository,
	orders repository.OrderRepository,
	currency *CurrencyFormatter,
	logger *zap.Logger,
) *NotificationFanout {
	return &NotificationFanout{queue: queue, users: users, orders: orders, currency: currency, logger: logger}
}

func (f *NotificationFanout) Register(bus *events.Bus) {
	events.Subscribe(bus, "notify.order_created", f.OnOrderCreated)
	events.Subscribe(bus, "notify.order_cancelled", f.OnOrderCancelled)
	events.Subscribe(bus, "notify.order_status", f.OnOrderStatusUpdated)
	events.Subscribe(bus, "notify.payment", f.OnPaymentCompleted)
	events.Subscribe(bus, "notify.low_stock", f.OnLowStock)
	events.Subscribe(bus, "notify.review", f.OnReviewPosted)
}

func (f *NotificationFanout) OnOrderCreated(ctx context.Context, e events.OrderCreated) error {
	data := models.JSONMap{"order_id": e.OrderID.String(), "order_number": e.OrderNumber}
	total := f.currency.Format(e.TotalAmount)

	f.enqueue(ctx, NotificationJob{
		UserID:  e.UserID,
		Title:   "Order placed",
		Content: fmt.Sprintf("Your order %s for %s has been placed.", e.OrderNumber, total),
		Type:    models.NotificationOrderCreated,
		Data:    data,
	})
	f.notifyStaff(ctx, models.PermissionManageOrders, NotificationJob{
		Title:   "New order",
		Content: fmt.Sprintf("Order %s was placed: %d item(s), %s.", e.OrderNumber, e.ItemCount, total),
		Type:    models.NotificationOrderCreated,
		Data:    data,
	})
	return nil
}

func (f *NotificationFanout) OnOrderCancelled(ctx context.Context, e events.OrderCancelled) error {
	data := models.JSONMap{"order_id": e.OrderID.String(), "order_number": e.OrderNumber, "reason": e.Reason}
	content := fmt.Sprintf("Order %s has been cancelled.", e.OrderNumber)
	if e.Reason != "" {
		content = fmt.Sprintf("Order %s has been cancelled: %s.", e.OrderNumber, e.Reason)
	}

	f.enqueue(ctx, NotificationJob{
		UserID:  e.UserID,
		Title:   "Order cancelled",
		Content: content,
		Type:    models.NotificationOrderCancelled,
		Data:    data,
	})
	f.notifyStaff(ctx, models.PermissionManageOrders, NotificationJob{
		Title:   "Order cancelled",
		Content: content,
		Type:    models.NotificationOrderCancelled,
		Data:    data,
	})
	return nil
}

func (f *NotificationFanout) OnOrderStatusUpdated(ctx context.Context, e events.OrderStatusUpdated) error {
	f.enqueue(ctx, NotificationJob{
		UserID:  e.UserID,
		Title:   "Order update",
		Content: fmt.Sprintf("Your order %s is now %s.", e.OrderNumber, e.To),
		Type:    models.NotificationOrderStatus,
		Data: models.JSONMap{
			"order_id":     e.OrderID.String(),
			"order_number": e.OrderNumber,
			"from":         string(e.From),
			"to":           string(e.To),
		},
	})
	return nil
}

// OnPaymentCompleted looks the order up to find its owner; payment events
// only carry the order id.
func (f *NotificationFanout) OnPaymentCompleted(ctx context.Context, e events.PaymentCompleted) error {
	order, err := f.orders.FindByID(ctx, e.OrderID)
	if err != nil {
		f.logger.Warn("payment notification skipped", zap.String("order_id", e.OrderID.String()), zap.Error(err))
		return nil
	}
	amount := e.Amount
	if amount == 0 {
		amount = order.TotalAmount
	}

	job := NotificationJob{
		UserID: order.UserID,
		Data: models.JSONMap{
			"order_id":        order.ID.String(),
			"order_number":    order.OrderNumber,
			"transaction_ref": e.TransactionRef,
		},
	}
	switch e.Outcome {
	case events.PaymentPaid:
		job.Title = "Payment received"
		job.Content = fmt.Sprintf("We received %s for order %s.", f.currency.Format(amount), order.OrderNumber)
		job.Type = models.NotificationPaymentPaid
	case events.PaymentFailed:
		job.Title = "Payment failed"
		job.Content = fmt.Sprintf("Payment for order %s did not go through.", order.OrderNumber)
		job.Type = models.NotificationPaymentFailed
	case events.PaymentRefunded:
		job.Title = "Payment refunded"
		job.Content = fmt.Sprintf("%s has been refunded for order %s.", f.currency.Format(amount), order.OrderNumber)
		job.Type = models.NotificationPaymentRefund
	default:
		return nil
	}
	f.enqueue(ctx, job)
	return nil
}

func (f *NotificationFanout) OnLowStock(ctx context.Context, e events.LowStockDetected) error {
	f.notifyStaff(ctx, models.PermissionManageInventory, NotificationJob{
		Title: "Low stock",
		Content: fmt.Sprintf("Variant %s in warehouse %s is down to %d (threshold %d).",
			e.VariantID, e.WarehouseID, e.Quantity, e.Threshold),
		Type: models.NotificationLowStock,
		Data: models.JSONMap{
			"stock_id":     e.StockID.String(),
			"variant_id":   e.VariantID.String(),
			"warehouse_id": e.WarehouseID.String(),
			"quantity":     e.Quantity,
		},
	})
	return nil
}

func (f *NotificationFanout) OnReviewPosted(ctx context.Context, e events.ReviewPosted) error {
	f.notifyStaff(ctx, models.PermissionManageReviews, NotificationJob{
		Title:   "New review",
		Content: fmt.Sprintf("A %d-star review was posted for product %s.", e.Rating, e.ProductID),
		Type:    models.NotificationReviewPosted,
		Data: models.JSONMap{
			"review_id":  e.ReviewID.String(),
			"product_id": e.ProductID.String(),
		},
	})
	return nil
}

// notifyStaff sends job to every user whose role grants permission.
func (f *NotificationFanout) notifyStaff(ctx context.Context, permission string, job NotificationJob) {
	staff, err := f.users.FindByPermission(ctx, permission)
	if err != nil {
		f.logger.Warn("staff lookup failed", zap.String("permission", permission), zap.Error(err))
		return
	}
	for _, u := range staff {
		j := job
		j.UserID = u.ID
		f.enqueue(ctx, j)
	}
}

func (f *NotificationFanout) enqueue(ctx context.Context, job NotificationJob) {
	if job.UserID == uuid.Nil {
		return
	}
	task, err := worker.NewTask(TaskSendNotification, job)
	if err == nil {
		err = f.queue.Enqueue(ctx, task)
	}
	if err != nil {
		f.logger.Warn("notification not queued",
			zap.String("type", job.Type),
			zap.String("user_id", job.UserID.String()),
			zap.Error(err),
		)
	}
}
