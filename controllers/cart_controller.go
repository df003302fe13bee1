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

// CartController handles HTTP requests for the caller's cart.
type CartController struct {
	cartService services.CartService
}

func NewCartController(cartService services.CartService) *CartController {
	return &CartController{cartService: cartService}
}

// GetCart handles GET /cart.
func (cc *CartController) GetCart(ctx *gin.Context) {
	userID, err := middleware.GetUserID(ctx)
	if err != nil {
		apperrors.Abort(ctx, apperrors.ErrUnauthorized)
		return
	}

	view, err := cc.cartService.GetMyCart(ctx.Request.Context(), userID)
	if err != nil {
		apperrors.Abort(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, view)
}

// AddItem handles POST /cart/items.
func (cc *CartController) AddItem(ctx *gin.Context) {
	userID, err := middleware.GetUserID(ctx)
	if err != nil {
		apperrors.Abort(ctx, apperrors.ErrUnauthorized)
		return
	}
	var req models.AddCartItemRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		apperrors.Abort(ctx, apperrors.BadRequest(err))
		return
	}

	view, err := cc.cartService.AddToCart(ctx.Request.Context(), userID, req.VariantID, req.Quantity)
	if err != nil {
		apperrors.Abort(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, view)
}

// UpdateItem handles PATCH /cart/items/:id. A quantity of zero removes the item.
func (cc *CartController) UpdateItem(ctx *gin.Context) {
	userID, err := middleware.GetUserID(ctx)
	if err != nil {
		apperrors.Abort(ctx, apperrors.ErrUnauthorized)
		return
	}
	itemID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		apperrors.Abort(ctx, apperrors.BadRequest(err))
		return
	}
	var req models.UpdateCartItemRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		apperrors.Abort(ctx, apperrors.BadRequest(err))
		return
	}

	view, err := cc.cartService.UpdateItem(ctx.Request.Context(), userID, itemID, req.Quantity)
	if err != nil {
		apperrors.Abort(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, view)
}

// RemoveItem handles DELETE /cart/items/:id.
func (cc *CartController) RemoveItem(ctx *gin.Context) {
	userID, err := middleware.GetUserID(ctx)
	if err != nil {
		apperrors.Abort(ctx, apperrors.ErrUnauthorized)
		return
	}
	itemID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		apperrors.Abort(ctx, apperrors.BadRequest(err))
		return
	}

	view, err := cc.cartService.RemoveItem(ctx.Request.Context(), userID, itemID)
	if err != nil {
		apperrors.Abort(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, view)
}

// ApplyVoucher handles POST /cart/voucher.
func (cc *CartController) ApplyVoucher(ctx *gin.Context) {
	userID, err := middleware.GetUserID(ctx)
	if err != nil {
		apperrors.Abort(ctx, apperrors.ErrUnauthorized)
		return
	}
	var req models.ApplyVoucherRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		apperrors.Abort(ctx, apperrors.BadRequest(err))
		return
	}

	view, err := cc.cartService.ApplyVoucher(ctx.Request.Context(), userID, req.Code)
	if err != nil {
		apperrors.Abort(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, view)
}

// RemoveVoucher handles DELETE /cart/voucher.
func (cc *CartController) RemoveVoucher(ctx *gin.Context) {
	userID, err := middleware.GetUserID(ctx)
	if err != nil {
		apperrors.Abort(ctx, apperrors.ErrUnauthorized)
		return
	}

	view, err := cc.cartService.RemoveVoucher(ctx.Request.Context(), userID)
	if err != nil {
		apperrors.Abort(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, view)
}

// ClearCart handles DELETE /cart.
func (cc *CartController) ClearCart(ctx *gin.Context) {
	userID, err := middleware.GetUserID(ctx)
	if err != nil {
		apperrors.Abort(ctx, apperrors.ErrUnauthorized)
		return
	}

	if err := cc.cartService.Clear(ctx.Request.Context(), userID); err != nil {
		apperrors.Abort(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"message": "Cart cleared"})
}
