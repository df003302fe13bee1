package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/yashrajoria/fulfillment-service/models"
	"gorm.io/gorm"
)

// CatalogRepository loads live variant data, including soft-deleted products.
type CatalogRepository interface {
	FindVariant(ctx context.Context, id uuid.UUID) (*models.ProductVariant, error)
	FindVariants(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.ProductVariant, error)
	FindProduct(ctx context.Context, id uuid.UUID) (*models.Product, error)
	CreateReview(ctx context.Context, review *models.Review) error
}

type GormCatalogRepository struct {
	db *gorm.DB
}

func NewGormCatalogRepository(db *gorm.DB) CatalogRepository {
	return &GormCatalogRepository{db: db}
}

func (r *GormCatalogRepository) FindVariant(ctx context.Context, id uuid.UUID) (*models.ProductVariant, error) {
	var variant models.ProductVariant
	err := conn(ctx, r.db).
		Preload("Product", func(db *gorm.DB) *gorm.DB { return db.Unscoped() }).
		Where("id = ?", id).
		Take(&variant).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &variant, nil
}

func (r *GormCatalogRepository) FindVariants(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.ProductVariant, error) {
	out := make(map[uuid.UUID]models.ProductVariant, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	var variants []models.ProductVariant
	err := conn(ctx, r.db).
		Preload("Product", func(db *gorm.DB) *gorm.DB { return db.Unscoped() }).
		Where("id IN ?", ids).
		Find(&variants).Error
	if err != nil {
		return nil, err
	}
	for _, v := range variants {
		out[v.ID] = v
	}
	return out, nil
}

func (r *GormCatalogRepository) FindProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := conn(ctx, r.db).Where("id = ?", id).Take(&product).Error; err != nil {
		return nil, notFound(err)
	}
	return &product, nil
}

func (r *GormCatalogRepository) CreateReview(ctx context.Context, review *models.Review) error {
	return conn(ctx, r.db).Create(review).Error
}
