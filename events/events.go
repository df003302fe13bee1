package events

import (
	"time"

	"github.com/google/uuid"
	"github.com/yashrajoria/fulfillment-service/models"
)

// Event is a domain fact published on the Bus.
type Event interface {
	EventName() string
}

const (
	NameOrderCreated       = "order.created"
	NameOrderCancelled     = "order.cancelled"
	NameOrderStatusUpdated = "order.status_updated"
	NamePaymentCompleted   = "payment.completed"
	NameLowStockDetected   = "inventory.low_stock"
	NameReviewPosted       = "review.posted"
)

type OrderCreated struct {
	OrderID     uuid.UUID `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	UserID      uuid.UUID `json:"user_id"`
	TotalAmount int64     `json:"total_amount"`
	ItemCount   int       `json:"item_count"`
	OccurredAt  time.Time `json:"occurred_at"`
}

func (OrderCreated) EventName() string { return NameOrderCreated }

type OrderCancelled struct {
	OrderID     uuid.UUID `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	UserID      uuid.UUID `json:"user_id"`
	Reason      string    `json:"reason,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
}

func (OrderCancelled) EventName() string { return NameOrderCancelled }

type OrderStatusUpdated struct {
	OrderID     uuid.UUID          `json:"order_id"`
	OrderNumber string             `json:"order_number"`
	UserID      uuid.UUID          `json:"user_id"`
	From        models.OrderStatus `json:"from"`
	To          models.OrderStatus `json:"to"`
	OccurredAt  time.Time          `json:"occurred_at"`
}

func (OrderStatusUpdated) EventName() string { return NameOrderStatusUpdated }

type PaymentOutcome string

const (
	PaymentPaid     PaymentOutcome = "paid"
	PaymentFailed   PaymentOutcome = "failed"
	PaymentRefunded PaymentOutcome = "refunded"
)

type PaymentCompleted struct {
	OrderID        uuid.UUID      `json:"order_id"`
	Outcome        PaymentOutcome `json:"outcome"`
	TransactionRef string         `json:"transaction_ref,omitempty"`
	Amount         int64          `json:"amount,omitempty"`
	OccurredAt     time.Time      `json:"occurred_at"`
}

func (PaymentCompleted) EventName() string { return NamePaymentCompleted }

type LowStockDetected struct {
	StockID     uuid.UUID `json:"stock_id"`
	WarehouseID uuid.UUID `json:"warehouse_id"`
	VariantID   uuid.UUID `json:"variant_id"`
	Quantity    int       `json:"quantity"`
	Threshold   int       `json:"threshold"`
	OccurredAt  time.Time `json:"occurred_at"`
}

func (LowStockDetected) EventName() string { return NameLowStockDetected }

type ReviewPosted struct {
	ReviewID   uuid.UUID `json:"review_id"`
	ProductID  uuid.UUID `json:"product_id"`
	UserID     uuid.UUID `json:"user_id"`
	Rating     int       `json:"rating"`
	OccurredAt time.Time `json:"occurred_at"`
}

func (ReviewPosted) EventName() string { return NameReviewPosted }
