package models

import (
	"time"

	"github.com/google/uuid"
)

type VoucherType string

const (
	VoucherTypePercentage VoucherType = "percentage"
	VoucherTypeFlat       VoucherType = "flat"
)

type Voucher struct {
	ID            uuid.UUID   `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Code          string      `gorm:"uniqueIndex;not null" json:"code"`
	Type          VoucherType `gorm:"type:varchar(20);not null" json:"type"`
	Value         int64       `gorm:"not null" json:"value"`
	MaxDiscount   int64       `gorm:"not null;default:0" json:"max_discount"`
	MinOrderValue int64       `gorm:"not null;default:0" json:"min_order_value"`
	UsageLimit    int         `gorm:"not null;default:0" json:"usage_limit"`
	UsedCount     int         `gorm:"not null;default:0" json:"used_count"`
	StartsAt      *time.Time  `json:"starts_at,omitempty"`
	ExpiresAt     time.Time   `gorm:"not null" json:"expires_at"`
	Active        bool        `gorm:"not null;default:true" json:"active"`
	CreatedAt     time.Time   `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time   `gorm:"autoUpdateTime" json:"updated_at"`
}

// VoucherResult is the discount a voucher grants for a given cart total.
type VoucherResult struct {
	Code           string `json:"code"`
	DiscountAmount int64  `json:"discount_amount"`
}
