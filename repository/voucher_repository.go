package repository

import (
	"context"
	"strings"

	"github.com/yashrajoria/fulfillment-service/models"
	"gorm.io/gorm"
)

type VoucherRepository interface {
	Create(ctx context.Context, voucher *models.Voucher) error
	// FindByCode looks up an active voucher, ignoring case.
	FindByCode(ctx context.Context, code string) (*models.Voucher, error)
	// IncrementUsedCount consumes one use and reports false once the usage
	// limit is exhausted.
	IncrementUsedCount(ctx context.Context, code string) (bool, error)
}

type GormVoucherRepository struct {
	db *gorm.DB
}

func NewGormVoucherRepository(db *gorm.DB) VoucherRepository {
	return &GormVoucherRepository{db: db}
}

func (r *GormVoucherRepository) Create(ctx context.Context, voucher *models.Voucher) error {
	return conn(ctx, r.db).Create(voucher).Error
}

func (r *GormVoucherRepository) FindByCode(ctx context.Context, code string) (*models.Voucher, error) {
	var voucher models.Voucher
	err := conn(ctx, r.db).
		Where("LOWER(code) = ? AND active = ?", strings.ToLower(code), true).
		Take(&voucher).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &voucher, nil
}

func (r *GormVoucherRepository) IncrementUsedCount(ctx context.Context, code string) (bool, error) {
	result := conn(ctx, r.db).
		Model(&models.Voucher{}).
		Where("LOWER(code) = ? AND (usage_limit = 0 OR used_count < usage_limit)", strings.ToLower(code)).
		UpdateColumn("used_count", gorm.Expr("used_count + 1"))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}
