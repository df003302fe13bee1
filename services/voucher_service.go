package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/yashrajoria/fulfillment-service/models"
	"github.com/yashrajoria/fulfillment-service/repository"
	"go.uber.org/zap"
)

// VoucherService validates discount codes. Check never consumes a use;
// Redeem does, and runs inside the order transaction.
type VoucherService interface {
	Check(ctx context.Context, code string, userID uuid.UUID, cartTotal int64) (*models.VoucherResult, error)
	Redeem(ctx context.Context, code string) error
}

type voucherServiceImpl struct {
	repo   repository.VoucherRepository
	logger *zap.Logger
	now    func() time.Time
}

func NewVoucherService(repo repository.VoucherRepository, logger *zap.Logger) VoucherService {
	return &voucherServiceImpl{repo: repo, logger: logger, now: time.Now}
}

func (s *voucherServiceImpl) Check(ctx context.Context, code string, userID uuid.UUID, cartTotal int64) (*models.VoucherResult, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, models.ErrVoucherInvalid
	}

	v, err := s.repo.FindByCode(ctx, code)
	if errors.Is(err, models.ErrNotFound) {
		return nil, fmt.Errorf("voucher %q not found: %w", code, models.ErrVoucherInvalid)
	}
	if err != nil {
		return nil, err
	}

	now := s.now()
	if now.After(v.ExpiresAt) {
		return nil, fmt.Errorf("voucher %q expired: %w", v.Code, models.ErrVoucherExpired)
	}
	if v.StartsAt != nil && now.Before(*v.StartsAt) {
		return nil, fmt.Errorf("voucher %q not yet active: %w", v.Code, models.ErrVoucherInvalid)
	}
	if v.UsageLimit > 0 && v.UsedCount >= v.UsageLimit {
		return nil, fmt.Errorf("voucher %q usage limit reached: %w", v.Code, models.ErrVoucherInvalid)
	}
	if cartTotal < v.MinOrderValue {
		return nil, fmt.Errorf("voucher %q needs a minimum order of %d: %w", v.Code, v.MinOrderValue, models.ErrVoucherInvalid)
	}

	var discount int64
	switch v.Type {
	case models.VoucherTypePercentage:
		discount = cartTotal * v.Value / 100
	case models.VoucherTypeFlat:
		discount = v.Value
	default:
		return nil, fmt.Errorf("voucher %q has unknown type %q: %w", v.Code, v.Type, models.ErrVoucherInvalid)
	}
	if v.MaxDiscount > 0 && discount > v.MaxDiscount {
		discount = v.MaxDiscount
	}
	if discount > cartTotal {
		discount = cartTotal
	}

	s.logger.Debug("voucher checked",
		zap.String("code", v.Code),
		zap.String("user_id", userID.String()),
		zap.Int64("discount", discount),
	)
	return &models.VoucherResult{Code: v.Code, DiscountAmount: discount}, nil
}

func (s *voucherServiceImpl) Redeem(ctx context.Context, code string) error {
	ok, err := s.repo.IncrementUsedCount(ctx, code)
	if err != nil {
		return fmt.Errorf("redeem voucher: %w", err)
	}
	if !ok {
		return fmt.Errorf("voucher %q usage limit reached: %w", code, models.ErrVoucherInvalid)
	}
	return nil
}
