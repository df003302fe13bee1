package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	RoleAdmin    = "admin"
	RoleStaff    = "staff"
	RoleCustomer = "customer"
)

const (
	PermissionManageOrders    = "manage_orders"
	PermissionManageInventory = "manage_inventory"
	PermissionManageReviews   = "manage_reviews"
)

type User struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name      string    `json:"name"`
	Email     string    `gorm:"uniqueIndex;not null" json:"email"`
	Role      string    `gorm:"type:varchar(20);not null;default:'customer';index" json:"role"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// RolePermission grants a permission to every user holding Role.
type RolePermission struct {
	Role       string `gorm:"primaryKey;type:varchar(20)" json:"role"`
	Permission string `gorm:"primaryKey;type:varchar(50)" json:"permission"`
}

type Notification struct {
	ID        uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID    uuid.UUID  `gorm:"type:uuid;not null;index" json:"user_id"`
	Title     string     `gorm:"not null" json:"title"`
	Content   string     `gorm:"not null" json:"content"`
	Type      string     `gorm:"type:varchar(40);not null;index" json:"type"`
	Data      JSONMap    `gorm:"type:jsonb" json:"data,omitempty"`
	ReadAt    *time.Time `json:"read_at,omitempty"`
	CreatedAt time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
}

const (
	NotificationOrderCreated   = "order_created"
	NotificationOrderCancelled = "order_cancelled"
	NotificationOrderStatus    = "order_status"
	NotificationPaymentPaid    = "payment_paid"
	NotificationPaymentFailed  = "payment_failed"
	NotificationPaymentRefund  = "payment_refunded"
	NotificationLowStock       = "low_stock"
	NotificationReviewPosted   = "review_posted"
)
