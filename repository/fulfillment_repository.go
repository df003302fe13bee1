package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/yashrajoria/fulfillment-service/models"
	"gorm.io/gorm"
)

type PaymentRepository interface {
	Create(ctx context.Context, payment *models.Payment) error
	FindByOrderID(ctx context.Context, orderID uuid.UUID) (*models.Payment, error)
	Save(ctx context.Context, payment *models.Payment) error
}

type ShippingRepository interface {
	Create(ctx context.Context, shipping *models.Shipping) error
	FindByOrderID(ctx context.Context, orderID uuid.UUID) (*models.Shipping, error)
	Save(ctx context.Context, shipping *models.Shipping) error
}

type AddressRepository interface {
	// FindByID returns the address only if it belongs to userID.
	FindByID(ctx context.Context, userID, id uuid.UUID) (*models.Address, error)
}

type GormPaymentRepository struct {
	db *gorm.DB
}

func NewGormPaymentRepository(db *gorm.DB) PaymentRepository {
	return &GormPaymentRepository{db: db}
}

func (r *GormPaymentRepository) Create(ctx context.Context, payment *models.Payment) error {
	return conn(ctx, r.db).Create(payment).Error
}

func (r *GormPaymentRepository) FindByOrderID(ctx context.Context, orderID uuid.UUID) (*models.Payment, error) {
	var payment models.Payment
	if err := conn(ctx, r.db).Where("order_id = ?", orderID).Take(&payment).Error; err != nil {
		return nil, notFound(err)
	}
	return &payment, nil
}

func (r *GormPaymentRepository) Save(ctx context.Context, payment *models.Payment) error {
	return conn(ctx, r.db).Save(payment).Error
}

type GormShippingRepository struct {
	db *gorm.DB
}

func NewGormShippingRepository(db *gorm.DB) ShippingRepository {
	return &GormShippingRepository{db: db}
}

func (r *GormShippingRepository) Create(ctx context.Context, shipping *models.Shipping) error {
	return conn(ctx, r.db).Create(shipping).Error
}

func (r *GormShippingRepository) FindByOrderID(ctx context.Context, orderID uuid.UUID) (*models.Shipping, error) {
	var shipping models.Shipping
	if err := conn(ctx, r.db).Where("order_id = ?", orderID).Take(&shipping).Error; err != nil {
		return nil, notFound(err)
	}
	return &shipping, nil
}

func (r *GormShippingRepository) Save(ctx context.Context, shipping *models.Shipping) error {
	return conn(ctx, r.db).Save(shipping).Error
}

type GormAddressRepository struct {
	db *gorm.DB
}

func NewGormAddressRepository(db *gorm.DB) AddressRepository {
	return &GormAddressRepository{db: db}
}

func (r *GormAddressRepository) FindByID(ctx context.Context, userID, id uuid.UUID) (*models.Address, error) {
	var address models.Address
	err := conn(ctx, r.db).
		Where("id = ? AND user_id = ?", id, userID).
		Take(&address).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &address, nil
}
