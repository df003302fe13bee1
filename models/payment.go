package models

import (
	"time"

	"github.com/google/uuid"
)

type Payment struct {
	ID             uuid.UUID     `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrderID        uuid.UUID     `gorm:"type:uuid;not null;uniqueIndex" json:"order_id"`
	Amount         int64         `gorm:"not null" json:"amount"`
	Method         string        `gorm:"type:varchar(30)" json:"method"`
	Status         PaymentStatus `gorm:"type:varchar(20);not null;default:'UNPAID'" json:"status"`
	TransactionRef string        `json:"transaction_ref,omitempty"`
	PaidAt         *time.Time    `json:"paid_at,omitempty"`
	FailedAt       *time.Time    `json:"failed_at,omitempty"`
	RefundedAt     *time.Time    `json:"refunded_at,omitempty"`
	CreatedAt      time.Time     `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time     `gorm:"autoUpdateTime" json:"updated_at"`
}

// PaymentEvent is the gateway callback payload, delivered over SQS
// (optionally wrapped in an SNS envelope) or the webhook endpoint.
type PaymentEvent struct {
	Type           string `json:"type"`
	OrderID        string `json:"order_id"`
	TransactionRef string `json:"transaction_ref,omitempty"`
	Amount         int64  `json:"amount,omitempty"`
}

const (
	PaymentEventSucceeded = "payment_succeeded"
	PaymentEventFailed    = "payment_failed"
	PaymentEventRefunded  = "payment_refunded"
)

type Shipping struct {
	ID             uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrderID        uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex" json:"order_id"`
	ConsigneeName  string          `json:"consignee_name"`
	ConsigneePhone string          `json:"consignee_phone"`
	Address        AddressSnapshot `gorm:"type:jsonb;not null" json:"address"`
	TrackingNumber string          `gorm:"index" json:"tracking_number"`
	Carrier        string          `json:"carrier"`
	Status         string          `gorm:"type:varchar(30);not null" json:"status"`
	ShippedAt      *time.Time      `json:"shipped_at,omitempty"`
	DeliveredAt    *time.Time      `json:"delivered_at,omitempty"`
	CreatedAt      time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}
