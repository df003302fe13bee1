package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// AddressSnapshot is the shipping address copied onto an order at creation time.
type AddressSnapshot struct {
	RecipientName string `json:"recipient_name"`
	Phone         string `json:"phone"`
	Line1         string `json:"line1"`
	Line2         string `json:"line2,omitempty"`
	City          string `json:"city"`
	Province      string `json:"province"`
	PostalCode    string `json:"postal_code"`
	Country       string `json:"country"`
}

func (a AddressSnapshot) Value() (driver.Value, error) {
	return json.Marshal(a)
}

func (a *AddressSnapshot) Scan(value interface{}) error {
	return scanJSON(value, a)
}

// OrderItemSnapshot freezes the product data shown for an order line.
type OrderItemSnapshot struct {
	Name  string `json:"name"`
	SKU   string `json:"sku"`
	Image string `json:"image,omitempty"`
}

func (s OrderItemSnapshot) Value() (driver.Value, error) {
	return json.Marshal(s)
}

func (s *OrderItemSnapshot) Scan(value interface{}) error {
	return scanJSON(value, s)
}

func scanJSON(value interface{}, dst interface{}) error {
	switch v := value.(type) {
	case nil:
		return nil
	case []byte:
		return json.Unmarshal(v, dst)
	case string:
		return json.Unmarshal([]byte(v), dst)
	default:
		return errors.New("unsupported snapshot column type")
	}
}

type Order struct {
	ID             uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrderNumber    string          `gorm:"uniqueIndex;not null" json:"order_number"`
	UserID         uuid.UUID       `gorm:"type:uuid;not null;index" json:"user_id"`
	Status         OrderStatus     `gorm:"type:varchar(20);not null;default:'PENDING';index" json:"status"`
	PaymentStatus  PaymentStatus   `gorm:"type:varchar(20);not null;default:'UNPAID'" json:"payment_status"`
	PaymentMethod  string          `gorm:"type:varchar(30)" json:"payment_method"`
	ShippingStatus string          `gorm:"type:varchar(30);not null;default:'pending'" json:"shipping_status"`
	SubtotalAmount int64           `gorm:"not null;default:0" json:"subtotal_amount"`
	DiscountAmount int64           `gorm:"not null;default:0" json:"discount_amount"`
	TotalAmount    int64           `gorm:"not null;default:0;check:chk_orders_total_amount,total_amount >= 0" json:"total_amount"`
	VoucherCode    string          `json:"voucher_code,omitempty"`
	Note           string          `json:"note,omitempty"`
	Address        AddressSnapshot `gorm:"type:jsonb;not null" json:"address"`
	CancelReason   string          `json:"cancel_reason,omitempty"`
	CanceledAt     *time.Time      `json:"canceled_at,omitempty"`
	CompletedAt    *time.Time      `json:"completed_at,omitempty"`
	CreatedAt      time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
	Items          []OrderItem     `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items,omitempty"`
	Payment        *Payment        `gorm:"foreignKey:OrderID" json:"payment,omitempty"`
	Shipping       *Shipping       `gorm:"foreignKey:OrderID" json:"shipping,omitempty"`
}

// ForceCancel moves the order to CANCELLED without consulting the transition
// table. Only the refund path uses it.
func (o *Order) ForceCancel(at time.Time, reason string) {
	o.Status = OrderStatusCancelled
	o.ShippingStatus = ShippingStatusCancelled
	if o.CanceledAt == nil {
		o.CanceledAt = &at
	}
	if o.CancelReason == "" {
		o.CancelReason = reason
	}
}

// OrderItem is written once when the order is created. WarehouseID is the
// warehouse that was debited and is where cancellation restores stock.
type OrderItem struct {
	ID          uuid.UUID         `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrderID     uuid.UUID         `gorm:"type:uuid;not null;index" json:"order_id"`
	VariantID   uuid.UUID         `gorm:"type:uuid;not null" json:"variant_id"`
	WarehouseID uuid.UUID         `gorm:"type:uuid;not null" json:"warehouse_id"`
	Quantity    int               `gorm:"not null" json:"quantity"`
	UnitPrice   int64             `gorm:"not null" json:"unit_price"`
	Subtotal    int64             `gorm:"not null" json:"subtotal"`
	Snapshot    OrderItemSnapshot `gorm:"type:jsonb;not null" json:"snapshot"`
	CreatedAt   time.Time         `gorm:"autoCreateTime" json:"created_at"`
}

type Address struct {
	ID            uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID        uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	RecipientName string    `gorm:"not null" json:"recipient_name"`
	Phone         string    `json:"phone"`
	Line1         string    `gorm:"not null" json:"line1"`
	Line2         string    `json:"line2,omitempty"`
	City          string    `json:"city"`
	Province      string    `json:"province"`
	PostalCode    string    `json:"postal_code"`
	Country       string    `json:"country"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// Snapshot copies the address fields for storage on an order.
func (a *Address) Snapshot() AddressSnapshot {
	return AddressSnapshot{
		RecipientName: a.RecipientName,
		Phone:         a.Phone,
		Line1:         a.Line1,
		Line2:         a.Line2,
		City:          a.City,
		Province:      a.Province,
		PostalCode:    a.PostalCode,
		Country:       a.Country,
	}
}

type OrderSource string

const (
	OrderSourceCart   OrderSource = "cart"
	OrderSourceBuyNow OrderSource = "buy_now"
)

type OrderLineInput struct {
	VariantID uuid.UUID `json:"variant_id" binding:"required"`
	Quantity  int       `json:"quantity" binding:"required,min=1"`
}

type CreateOrderRequest struct {
	AddressID     uuid.UUID        `json:"address_id" binding:"required"`
	Source        OrderSource      `json:"source" binding:"required,oneof=cart buy_now"`
	CartItemIDs   []uuid.UUID      `json:"cart_item_ids,omitempty"`
	Items         []OrderLineInput `json:"items,omitempty" binding:"omitempty,dive"`
	VoucherCode   string           `json:"voucher_code,omitempty"`
	PaymentMethod string           `json:"payment_method,omitempty"`
	Note          string           `json:"note,omitempty"`
}

type UpdateOrderStatusRequest struct {
	Status OrderStatus `json:"status" binding:"required"`
}

type CancelOrderRequest struct {
	Reason string `json:"reason"`
}
