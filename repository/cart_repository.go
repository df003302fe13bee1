package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/yashrajoria/fulfillment-service/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CartRepository interface {
	// GetOrCreate returns the user's cart with its items, creating an empty
	// cart on first use.
	GetOrCreate(ctx context.Context, userID uuid.UUID) (*models.Cart, error)
	SaveItem(ctx context.Context, item *models.CartItem) error
	DeleteItems(ctx context.Context, cartID uuid.UUID, itemIDs []uuid.UUID) error
	UpdateVoucher(ctx context.Context, cartID uuid.UUID, code *string, discount int64) error
}

type GormCartRepository struct {
	db *gorm.DB
}

func NewGormCartRepository(db *gorm.DB) CartRepository {
	return &GormCartRepository{db: db}
}

func (r *GormCartRepository) GetOrCreate(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	db := conn(ctx, r.db)

	var cart models.Cart
	err := db.Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Where("user_id = ?", userID).
		Take(&cart).Error
	if err == nil {
		return &cart, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	cart = models.Cart{UserID: userID}
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&cart).Error; err != nil {
		return nil, err
	}
	if cart.ID == uuid.Nil {
		// lost a creation race; read the winner
		if err := db.Where("user_id = ?", userID).Take(&cart).Error; err != nil {
			return nil, err
		}
	}
	return &cart, nil
}

func (r *GormCartRepository) SaveItem(ctx context.Context, item *models.CartItem) error {
	return conn(ctx, r.db).Save(item).Error
}

func (r *GormCartRepository) DeleteItems(ctx context.Context, cartID uuid.UUID, itemIDs []uuid.UUID) error {
	if len(itemIDs) == 0 {
		return nil
	}
	return conn(ctx, r.db).
		Where("cart_id = ? AND id IN ?", cartID, itemIDs).
		Delete(&models.CartItem{}).Error
}

func (r *GormCartRepository) UpdateVoucher(ctx context.Context, cartID uuid.UUID, code *string, discount int64) error {
	return conn(ctx, r.db).
		Model(&models.Cart{}).
		Where("id = ?", cartID).
		Updates(map[string]interface{}{
			"voucher_code":     code,
			"voucher_discount": discount,
		}).Error
}
