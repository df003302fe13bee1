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

// OrderController serves both the customer order routes and the admin
// order routes.
type OrderController struct {
	orderService services.OrderService
}

func NewOrderController(orderService services.OrderService) *OrderController {
	return &OrderController{orderService: orderService}
}

// CreateOrder handles POST /orders.
func (oc *OrderController) CreateOrder(ctx *gin.Context) {
	userID, err := middleware.GetUserID(ctx)
	if err != nil {
		apperrors.Abort(ctx, apperrors.ErrUnauthorized)
		return
	}
	var req models.CreateOrderRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		apperrors.Abort(ctx, apperrors.BadRequest(err))
		return
	}

	order, err := oc.orderService.Create(ctx.Request.Context(), userID, req)
	if err != nil {
		apperrors.Abort(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, gin.H{"order": order})
}

// GetOrders handles GET /orders for the caller.
func (oc *OrderController) GetOrders(ctx *gin.Context) {
	userID, err := middleware.GetUserID(ctx)
	if err != nil {
		apperrors.Abort(ctx, apperrors.ErrUnauthorized)
		return
	}
	page, limit := parsePaginationParams(ctx)

	orders, total, err := oc.orderService.ListForUser(ctx.Request.Context(), userID, page, limit)
	if err != nil {
		apperrors.Abort(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"orders": orders, "meta": pageMeta(page, limit, total)})
}

// GetOrderByID handles GET /orders/:id. Orders of other users are reported
// as not found.
func (oc *OrderController) GetOrderByID(ctx *gin.Context) {
	userID, err := middleware.GetUserID(ctx)
	if err != nil {
		apperrors.Abort(ctx, apperrors.ErrUnauthorized)
		return
	}
	orderID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		apperrors.Abort(ctx, apperrors.BadRequest(err))
		return
	}

	order, err := oc.orderService.GetForUser(ctx.Request.Context(), userID, orderID)
	if err != nil {
		apperrors.Abort(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"order": order})
}

// CancelOrder handles POST /orders/:id/cancel.
func (oc *OrderController) CancelOrder(ctx *gin.Context) {
	userID, err := middleware.GetUserID(ctx)
	if err != nil {
		apperrors.Abort(ctx, apperrors.ErrUnauthorized)
		return
	}
	orderID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		apperrors.Abort(ctx, apperrors.BadRequest(err))
		return
	}
	var req models.CancelOrderRequest
	// the body is optional
	_ = ctx.ShouldBindJSON(&req)

	order, err := oc.orderService.CancelForUser(ctx.Request.Context(), userID, orderID, req.Reason)
	if err != nil {
		apperrors.Abort(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"order": order})
}

// GetAllOrders handles GET /admin/orders.
func (oc *OrderController) GetAllOrders(ctx *gin.Context) {
	page, limit := parsePaginationParams(ctx)

	orders, total, err := oc.orderService.ListAll(ctx.Request.Context(), page, limit)
	if err != nil {
		apperrors.Abort(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"orders": orders, "meta": pageMeta(page, limit, total)})
}

// AdminGetOrder handles GET /admin/orders/:id.
func (oc *OrderController) AdminGetOrder(ctx *gin.Context) {
	orderID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		apperrors.Abort(ctx, apperrors.BadRequest(err))
		return
	}

	order, err := oc.orderService.Get(ctx.Request.Context(), orderID)
	if err != nil {
		apperrors.Abort(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"order": order})
}

// UpdateOrderStatus handles PATCH /admin/orders/:id/status.
func (oc *OrderController) UpdateOrderStatus(ctx *gin.Context) {
	orderID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		apperrors.Abort(ctx, apperrors.BadRequest(err))
		return
	}
	var req models.UpdateOrderStatusRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		apperrors.Abort(ctx, apperrors.BadRequest(err))
		return
	}

	order, err := oc.orderService.UpdateStatus(ctx.Request.Context(), orderID, req.Status)
	if err != nil {
		apperrors.Abort(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"order": order})
}

// AdminCancelOrder handles POST /admin/orders/:id/cancel.
func (oc *OrderController) AdminCancelOrder(ctx *gin.Context) {
	orderID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		apperrors.Abort(ctx, apperrors.BadRequest(err))
		return
	}
	var req models.CancelOrderRequest
	_ = ctx.ShouldBindJSON(&req)

	order, err := oc.orderService.Cancel(ctx.Request.Context(), orderID, req.Reason)
	if err != nil {
		apperrors.Abort(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"order": order})
}
