package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	apperrors "github.com/yashrajoria/fulfillment-service/common/errors"
	"github.com/yashrajoria/fulfillment-service/middleware"
	"github.com/yashrajoria/fulfillment-service/services"
)

type NotificationController struct {
	notificationService services.NotificationService
}

func NewNotificationController(notificationService services.NotificationService) *NotificationController {
	return &NotificationController{notificationService: notificationService}
}

// GetNotifications handles GET /notifications.
func (nc *NotificationController) GetNotifications(ctx *gin.Context) {
	userID, err := middleware.GetUserID(ctx)
	if err != nil {
		apperrors.Abort(ctx, apperrors.ErrUnauthorized)
		return
	}
	page, limit := parsePaginationParams(ctx)

	notifications, total, err := nc.notificationService.List(ctx.Request.Context(), userID, page, limit)
	if err != nil {
		apperrors.Abort(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"notifications": notifications, "meta": pageMeta(page, limit, total)})
}

// MarkRead handles PATCH /notifications/:id/read.
func (nc *NotificationController) MarkRead(ctx *gin.Context) {
	userID, err := middleware.GetUserID(ctx)
	if err != nil {
		apperrors.Abort(ctx, apperrors.ErrUnauthorized)
		return
	}
	id, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		apperrors.Abort(ctx, apperrors.BadRequest(err))
		return
	}

	if err := nc.notificationService.MarkRead(ctx.Request.Context(), userID, id); err != nil {
		apperrors.Abort(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"message": "Notification marked as read"})
}
