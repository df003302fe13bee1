package models

import (
	"time"

	"github.com/google/uuid"
)

type Cart struct {
	ID              uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID          uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex" json:"user_id"`
	VoucherCode     *string    `json:"voucher_code,omitempty"`
	VoucherDiscount int64      `gorm:"not null;default:0" json:"voucher_discount"`
	CreatedAt       time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
	Items           []CartItem `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE" json:"items"`
}

// CartItem keeps the price seen when the line was added; pricing always
// uses the live variant price.
type CartItem struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	CartID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_cart_item_variant" json:"cart_id"`
	VariantID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_cart_item_variant" json:"variant_id"`
	Quantity  int       `gorm:"not null" json:"quantity"`
	Price     int64     `gorm:"not null" json:"price"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// CartLine is a priced cart item as returned to clients.
type CartLine struct {
	ItemID    uuid.UUID `json:"item_id"`
	VariantID uuid.UUID `json:"variant_id"`
	SKU       string    `json:"sku"`
	Name      string    `json:"name"`
	Image     string    `json:"image,omitempty"`
	Quantity  int       `json:"quantity"`
	UnitPrice int64     `json:"unit_price"`
	Subtotal  int64     `json:"subtotal"`
}

type CartView struct {
	CartID          uuid.UUID  `json:"cart_id"`
	Items           []CartLine `json:"items"`
	Subtotal        int64      `json:"subtotal"`
	VoucherCode     string     `json:"voucher_code,omitempty"`
	VoucherDiscount int64      `json:"voucher_discount"`
	Total           int64      `json:"total"`
	// Removed lists items dropped because their product is no longer sold.
	Removed []uuid.UUID `json:"removed,omitempty"`
}

type AddCartItemRequest struct {
	VariantID uuid.UUID `json:"variant_id" binding:"required"`
	Quantity  int       `json:"quantity" binding:"required,min=1"`
}

type UpdateCartItemRequest struct {
	Quantity int `json:"quantity" binding:"min=0"`
}

type ApplyVoucherRequest struct {
	Code string `json:"code" binding:"required"`
}
