package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/yashrajoria/fulfillment-service/models"
	"gorm.io/gorm"
)

type UserRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	// FindByPermission returns every user whose role grants permission.
	FindByPermission(ctx context.Context, permission string) ([]models.User, error)
}

type GormUserRepository struct {
	db *gorm.DB
}

func NewGormUserRepository(db *gorm.DB) UserRepository {
	return &GormUserRepository{db: db}
}

func (r *GormUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := conn(ctx, r.db).Where("id = ?", id).Take(&user).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

func (r *GormUserRepository) FindByPermission(ctx context.Context, permission string) ([]models.User, error) {
	var users []models.User
	err := conn(ctx, r.db).
		Joins("JOIN role_permissions rp ON rp.role = users.role").
		Where("rp.permission = ?", permission).
		Order("users.created_at ASC").
		Find(&users).Error
	return users, err
}

type NotificationRepository interface {
	Create(ctx context.Context, n *models.Notification) error
	ListByUser(ctx context.Context, userID uuid.UUID, page, limit int) ([]models.Notification, int64, error)
	MarkRead(ctx context.Context, userID, id uuid.UUID) error
}

type GormNotificationRepository struct {
	db *gorm.DB
}

func NewGormNotificationRepository(db *gorm.DB) NotificationRepository {
	return &GormNotificationRepository{db: db}
}

func (r *GormNotificationRepository) Create(ctx context.Context, n *models.Notification) error {
	return conn(ctx, r.db).Create(n).Error
}

func (r *GormNotificationRepository) ListByUser(ctx context.Context, userID uuid.UUID, page, limit int) ([]models.Notification, int64, error) {
	var items []models.Notification
	var total int64

	query := conn(ctx, r.db).Model(&models.Notification{}).Where("user_id = ?", userID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	err := query.Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&items).Error
	return items, total, err
}

func (r *GormNotificationRepository) MarkRead(ctx context.Context, userID, id uuid.UUID) error {
	result := conn(ctx, r.db).
		Model(&models.Notification{}).
		Where("id = ? AND user_id = ? AND read_at IS NULL", id, userID).
		Update("read_at", gorm.Expr("NOW()"))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return models.ErrNotFound
	}
	return nil
}
