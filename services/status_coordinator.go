package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/yashrajoria/fulfillment-service/events"
	"github.com/yashrajoria/fulfillment-service/models"
	"github.com/yashrajoria/fulfillment-service/repository"
	"go.uber.org/zap"
)

// StatusCoordinator keeps payment, order and shipping status consistent by
// reacting to events. Every handler is safe to run more than once for the
// same event.
type StatusCoordinator struct {
	tx       repository.Transactor
	orders   repository.OrderRepository
	payments repository.PaymentRepository
	shipping repository.ShippingRepository
	stock    StockRestorer
	logger   *zap.Logger
	now      func() time.Time
}

// StockRestorer credits stock back to the warehouse it was allocated from.
type StockRestorer interface {
	Restore(ctx context.Context, variantID uuid.UUID, qty int, warehouseID uuid.UUID, reason string) error
}

func NewStatusCoordinator(
	tx repository.Transactor,
	orders repository.OrderRepository,
	payments repository.PaymentRepository,
	shipping repository.ShippingRepository,
	stock StockRestorer,
	logger *zap.Logger,
) *StatusCoordinator {
	return &StatusCoordinator{tx: tx, orders: orders, payments: payments, shipping: shipping, stock: stock, logger: logger, now: time.Now}
}

func (c *StatusCoordinator) Register(bus *events.Bus) {
	events.Subscribe(bus, "status.payment", c.HandlePaymentCompleted)
	events.Subscribe(bus, "status.shipping", c.HandleOrderStatusUpdated)
}

func (c *StatusCoordinator) HandlePaymentCompleted(ctx context.Context, e events.PaymentCompleted) error {
	return c.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		order, err := c.orders.LockByID(ctx, e.OrderID)
		if err != nil {
			return fmt.Errorf("lock order %s: %w", e.OrderID, err)
		}
		payment, err := c.paymentFor(ctx, order)
		if err != nil {
			return err
		}

		now := c.now().UTC()
		switch e.Outcome {
		case events.PaymentPaid:
			// a late success never revives a refunded order
			if order.PaymentStatus == models.PaymentStatusPaid || order.PaymentStatus == models.PaymentStatusRefunded {
				return nil
			}
			order.PaymentStatus = models.PaymentStatusPaid
			if order.Status == models.OrderStatusPending {
				order.Status = models.OrderStatusProcessing
			}
			payment.Status = models.PaymentStatusPaid
			payment.PaidAt = &now
			if e.TransactionRef != "" {
				payment.TransactionRef = e.TransactionRef
			}

		case events.PaymentFailed:
			switch order.PaymentStatus {
			case models.PaymentStatusPaid, models.PaymentStatusRefunded, models.PaymentStatusFailed:
				return nil
			}
			order.PaymentStatus = models.PaymentStatusFailed
			payment.Status = models.PaymentStatusFailed
			payment.FailedAt = &now

		case events.PaymentRefunded:
			if order.PaymentStatus == models.PaymentStatusRefunded {
				return nil
			}
			// unshipped goods go back on the shelf; shipped ones do not
			if order.Status == models.OrderStatusPending || order.Status == models.OrderStatusProcessing {
				reason := "order " + order.OrderNumber + " refunded"
				for _, item := range order.Items {
					if err := c.stock.Restore(ctx, item.VariantID, item.Quantity, item.WarehouseID, reason); err != nil {
						return fmt.Errorf("restore stock for item %s: %w", item.ID, err)
					}
				}
			}
			// refunds override the transition table, even from DELIVERED
			order.PaymentStatus = models.PaymentStatusRefunded
			order.ForceCancel(now, "payment refunded")
			payment.Status = models.PaymentStatusRefunded
			payment.RefundedAt = &now
			if e.TransactionRef != "" {
				payment.TransactionRef = e.TransactionRef
			}

		default:
			return fmt.Errorf("unknown payment outcome %q", e.Outcome)
		}

		if err := c.orders.Save(ctx, order); err != nil {
			return fmt.Errorf("save order: %w", err)
		}
		if err := c.payments.Save(ctx, payment); err != nil {
			return fmt.Errorf("save payment: %w", err)
		}

		c.logger.Info("payment status applied",
			zap.String("order_id", order.ID.String()),
			zap.String("outcome", string(e.Outcome)),
			zap.String("status", string(order.Status)),
		)
		return nil
	})
}

func (c *StatusCoordinator) HandleOrderStatusUpdated(ctx context.Context, e events.OrderStatusUpdated) error {
	switch e.To {
	case models.OrderStatusShipping:
		return c.markShipped(ctx, e.OrderID)
	case models.OrderStatusDelivered:
		return c.markDelivered(ctx, e.OrderID)
	}
	return nil
}

func (c *StatusCoordinator) markShipped(ctx context.Context, orderID uuid.UUID) error {
	return c.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		order, err := c.orders.LockByID(ctx, orderID)
		if err != nil {
			return fmt.Errorf("lock order %s: %w", orderID, err)
		}
		if order.Status == models.OrderStatusCancelled {
			return nil
		}

		shipment, isNew, err := c.shipmentFor(ctx, order)
		if err != nil {
			return err
		}
		now := c.now().UTC()
		if shipment.TrackingNumber == "" {
			shipment.TrackingNumber = trackingNumber()
		}
		if shipment.ShippedAt == nil {
			shipment.ShippedAt = &now
		}
		if shipment.Status != models.ShippingStatusDelivered {
			shipment.Status = models.ShippingStatusShipped
		}
		if err := c.saveShipment(ctx, shipment, isNew); err != nil {
			return err
		}

		if order.ShippingStatus != models.ShippingStatusDelivered {
			order.ShippingStatus = models.ShippingStatusShipped
		}
		return c.orders.Save(ctx, order)
	})
}

func (c *StatusCoordinator) markDelivered(ctx context.Context, orderID uuid.UUID) error {
	return c.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		order, err := c.orders.LockByID(ctx, orderID)
		if err != nil {
			return fmt.Errorf("lock order %s: %w", orderID, err)
		}
		if order.Status == models.OrderStatusCancelled {
			return nil
		}

		shipment, isNew, err := c.shipmentFor(ctx, order)
		if err != nil {
			return err
		}
		now := c.now().UTC()
		if shipment.TrackingNumber == "" {
			shipment.TrackingNumber = trackingNumber()
		}
		if shipment.ShippedAt == nil {
			shipment.ShippedAt = &now
		}
		if shipment.DeliveredAt == nil {
			shipment.DeliveredAt = &now
		}
		shipment.Status = models.ShippingStatusDelivered
		if err := c.saveShipment(ctx, shipment, isNew); err != nil {
			return err
		}

		order.ShippingStatus = models.ShippingStatusDelivered
		if order.CompletedAt == nil {
			order.CompletedAt = &now
		}
		return c.orders.Save(ctx, order)
	})
}

// paymentFor returns the order's payment row, creating one for orders that
// predate payment rows.
func (c *StatusCoordinator) paymentFor(ctx context.Context, order *models.Order) (*models.Payment, error) {
	payment, err := c.payments.FindByOrderID(ctx, order.ID)
	if err == nil {
		return payment, nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return nil, fmt.Errorf("load payment: %w", err)
	}
	payment = &models.Payment{
		OrderID: order.ID,
		Amount:  order.TotalAmount,
		Method:  order.PaymentMethod,
		Status:  order.PaymentStatus,
	}
	if err := c.payments.Create(ctx, payment); err != nil {
		return nil, fmt.Errorf("create payment: %w", err)
	}
	return payment, nil
}

func (c *StatusCoordinator) shipmentFor(ctx context.Context, order *models.Order) (*models.Shipping, bool, error) {
	shipment, err := c.shipping.FindByOrderID(ctx, order.ID)
	if err == nil {
		return shipment, false, nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return nil, false, fmt.Errorf("load shipping: %w", err)
	}
	return &models.Shipping{
		OrderID:        order.ID,
		ConsigneeName:  order.Address.RecipientName,
		ConsigneePhone: order.Address.Phone,
		Address:        order.Address,
	}, true, nil
}

func (c *StatusCoordinator) saveShipment(ctx context.Context, shipment *models.Shipping, isNew bool) error {
	if isNew {
		if err := c.shipping.Create(ctx, shipment); err != nil {
			return fmt.Errorf("create shipping: %w", err)
		}
		return nil
	}
	if err := c.shipping.Save(ctx, shipment); err != nil {
		return fmt.Errorf("save shipping: %w", err)
	}
	return nil
}

func trackingNumber() string {
	id := strings.ReplaceAll(uuid.New().String(), "-", "")
	return "TRK" + strings.ToUpper(id[:12])
}
