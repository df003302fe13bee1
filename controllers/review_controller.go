package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	apperrors "github.com/yashrajoria/fulfillment-service/common/errors"
	"github.com/yashrajoria/fulfillment-service/middleware"
	"github.com/yashrajoria/fulfillment-service/models"
	"github.com/yashrajoria/fulfillment-service/services"
)

type ReviewController struct {
	reviewService services.ReviewService
}

func NewReviewController(reviewService services.ReviewService) *ReviewController {
	return &ReviewController{reviewService: reviewService}
}

// CreateReview handles POST /products/:id/reviews.
func (rc *ReviewController) CreateReview(ctx *gin.Context) {
	userID, err := middleware.GetUserID(ctx)
	if err != nil {
		apperrors.Abort(ctx, apperrors.ErrUnauthorized)
		return
	}
	productID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		apperrors.Abort(ctx, apperrors.BadRequest(err))
		return
	}
	var req models.CreateReviewRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		apperrors.Abort(ctx, apperrors.BadRequest(err))
		return
	}

	review, err := rc.reviewService.Create(ctx.Request.Context(), userID, productID, req)
	if err != nil {
		apperrors.Abort(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, gin.H{"review": review})
}
