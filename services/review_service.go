package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/yashrajoria/fulfillment-service/events"
	"github.com/yashrajoria/fulfillment-service/models"
	"github.com/yashrajoria/fulfillment-service/repository"
	"go.uber.org/zap"
)

type ReviewService interface {
	Create(ctx context.Context, userID, productID uuid.UUID, req models.CreateReviewRequest) (*models.Review, error)
}

type reviewServiceImpl struct {
	tx        repository.Transactor
	catalog   repository.CatalogRepository
	publisher events.Publisher
	logger    *zap.Logger
}

func NewReviewService(tx repository.Transactor, catalog repository.CatalogRepository, publisher events.Publisher, logger *zap.Logger) ReviewService {
	return &reviewServiceImpl{tx: tx, catalog: catalog, publisher: publisher, logger: logger}
}

func (s *reviewServiceImpl) Create(ctx context.Context, userID, productID uuid.UUID, req models.CreateReviewRequest) (*models.Review, error) {
	if req.Rating < 1 || req.Rating > 5 {
		return nil, models.ErrInvalidRating
	}

	review := &models.Review{ProductID: productID, UserID: userID, Rating: req.Rating, Comment: req.Comment}
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.catalog.FindProduct(ctx, productID); err != nil {
			return err
		}
		if err := s.catalog.CreateReview(ctx, review); err != nil {
			return fmt.Errorf("create review: %w", err)
		}
		posted := events.ReviewPosted{
			ReviewID:   review.ID,
			ProductID:  productID,
			UserID:     userID,
			Rating:     review.Rating,
			OccurredAt: time.Now().UTC(),
		}
		s.tx.AfterCommit(ctx, func(ctx context.Context) {
			s.publisher.Publish(ctx, posted)
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("review posted", zap.String("review_id", review.ID.String()), zap.String("product_id", productID.String()))
	return review, nil
}
