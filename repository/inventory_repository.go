package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/yashrajoria/fulfillment-service/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// InventoryRepository reads and writes stock rows and their audit log.
// Lock* methods take a row lock and must run inside a transaction.
type InventoryRepository interface {
	// LockLargest locks the row holding the most stock of variantID among
	// rows with at least minQty, lowest warehouse id first on ties.
	LockLargest(ctx context.Context, variantID uuid.UUID, minQty int) (*models.InventoryStock, error)
	LockByID(ctx context.Context, id uuid.UUID) (*models.InventoryStock, error)
	LockByWarehouse(ctx context.Context, variantID, warehouseID uuid.UUID) (*models.InventoryStock, error)
	// CreateIfAbsent inserts stock unless a row for its (warehouse, variant)
	// already exists and reports whether it inserted.
	CreateIfAbsent(ctx context.Context, stock *models.InventoryStock) (bool, error)
	// Decrement subtracts qty only while quantity stays non-negative and
	// reports whether the row changed.
	Decrement(ctx context.Context, id uuid.UUID, qty int) (bool, error)
	Update(ctx context.Context, stock *models.InventoryStock) error
	ListByVariant(ctx context.Context, variantID uuid.UUID) ([]models.InventoryStock, error)
	SumByVariant(ctx context.Context, variantID uuid.UUID) (int, error)
	AppendLog(ctx context.Context, entry *models.InventoryLog) error
	ListLogs(ctx context.Context, filter models.InventoryLogFilter) ([]models.InventoryLog, int64, error)
}

type GormInventoryRepository struct {
	db *gorm.DB
}

func NewGormInventoryRepository(db *gorm.DB) InventoryRepository {
	return &GormInventoryRepository{db: db}
}

func (r *GormInventoryRepository) LockLargest(ctx context.Context, variantID uuid.UUID, minQty int) (*models.InventoryStock, error) {
	var stock models.InventoryStock
	err := conn(ctx, r.db).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("variant_id = ? AND quantity >= ?", variantID, minQty).
		Order("quantity DESC").
		Order("warehouse_id ASC").
		Take(&stock).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &stock, nil
}

func (r *GormInventoryRepository) LockByID(ctx context.Context, id uuid.UUID) (*models.InventoryStock, error) {
	var stock models.InventoryStock
	err := conn(ctx, r.db).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		Take(&stock).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &stock, nil
}

func (r *GormInventoryRepository) LockByWarehouse(ctx context.Context, variantID, warehouseID uuid.UUID) (*models.InventoryStock, error) {
	var stock models.InventoryStock
	err := conn(ctx, r.db).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("variant_id = ? AND warehouse_id = ?", variantID, warehouseID).
		Take(&stock).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &stock, nil
}

func (r *GormInventoryRepository) CreateIfAbsent(ctx context.Context, stock *models.InventoryStock) (bool, error) {
	result := conn(ctx, r.db).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "warehouse_id"}, {Name: "variant_id"}},
			DoNothing: true,
		}).
		Create(stock)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *GormInventoryRepository) Decrement(ctx context.Context, id uuid.UUID, qty int) (bool, error) {
	result := conn(ctx, r.db).
		Model(&models.InventoryStock{}).
		Where("id = ? AND quantity >= ?", id, qty).
		Updates(map[string]interface{}{
			"quantity":   gorm.Expr("quantity - ?", qty),
			"updated_at": gorm.Expr("NOW()"),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *GormInventoryRepository) Update(ctx context.Context, stock *models.InventoryStock) error {
	return conn(ctx, r.db).
		Model(stock).
		Select("quantity", "min_threshold", "updated_at").
		Updates(stock).Error
}

func (r *GormInventoryRepository) ListByVariant(ctx context.Context, variantID uuid.UUID) ([]models.InventoryStock, error) {
	var stocks []models.InventoryStock
	err := conn(ctx, r.db).
		Where("variant_id = ?", variantID).
		Order("warehouse_id ASC").
		Find(&stocks).Error
	return stocks, err
}

func (r *GormInventoryRepository) SumByVariant(ctx context.Context, variantID uuid.UUID) (int, error) {
	var total int
	err := conn(ctx, r.db).
		Model(&models.InventoryStock{}).
		Select("COALESCE(SUM(quantity), 0)").
		Where("variant_id = ?", variantID).
		Scan(&total).Error
	return total, err
}

func (r *GormInventoryRepository) AppendLog(ctx context.Context, entry *models.InventoryLog) error {
	return conn(ctx, r.db).Create(entry).Error
}

func (r *GormInventoryRepository) ListLogs(ctx context.Context, filter models.InventoryLogFilter) ([]models.InventoryLog, int64, error) {
	var logs []models.InventoryLog
	var total int64

	if filter.PageSize < 1 {
		filter.PageSize = 20
	}
	if filter.PageSize > 100 {
		filter.PageSize = 100
	}
	if filter.Page < 1 {
		filter.Page = 1
	}

	query := conn(ctx, r.db).Model(&models.InventoryLog{})
	if filter.VariantID != uuid.Nil {
		query = query.Where("variant_id = ?", filter.VariantID)
	}
	if filter.WarehouseID != uuid.Nil {
		query = query.Where("warehouse_id = ?", filter.WarehouseID)
	}
	if filter.Type != "" {
		query = query.Where("type = ?", filter.Type)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (filter.Page - 1) * filter.PageSize
	err := query.Order("created_at DESC").
		Limit(filter.PageSize).
		Offset(offset).
		Find(&logs).Error
	return logs, total, err
}

// notFound maps gorm's missing-row error onto the domain sentinel.
func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.ErrNotFound
	}
	return err
}
