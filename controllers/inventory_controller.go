package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	apperrors "github.com/yashrajoria/fulfillment-service/common/errors"
	"github.com/yashrajoria/fulfillment-service/models"
	"github.com/yashrajoria/fulfillment-service/services"
)

// InventoryController exposes the stock ledger to staff.
type InventoryController struct {
	stockService services.StockService
}

func NewInventoryController(stockService services.StockService) *InventoryController {
	return &InventoryController{stockService: stockService}
}

// GetVariantStock handles GET /admin/inventory/variants/:variant_id.
func (ic *InventoryController) GetVariantStock(ctx *gin.Context) {
	variantID, err := uuid.Parse(ctx.Param("variant_id"))
	if err != nil {
		apperrors.Abort(ctx, apperrors.BadRequest(err))
		return
	}

	levels, err := ic.stockService.Levels(ctx.Request.Context(), variantID)
	if err != nil {
		apperrors.Abort(ctx, err)
		return
	}
	total := 0
	for _, l := range levels {
		total += l.Quantity
	}
	ctx.JSON(http.StatusOK, gin.H{"variant_id": variantID, "total": total, "levels": levels})
}

// AdjustStock handles PATCH /admin/inventory/stocks/:id.
func (ic *InventoryController) AdjustStock(ctx *gin.Context) {
	stockID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		apperrors.Abort(ctx, apperrors.BadRequest(err))
		return
	}
	var req models.AdjustStockRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		apperrors.Abort(ctx, apperrors.BadRequest(err))
		return
	}

	stock, err := ic.stockService.Adjust(ctx.Request.Context(), stockID, req.Delta, req.Reason)
	if err != nil {
		apperrors.Abort(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"stock": stock})
}

// UpsertStock handles PUT /admin/inventory/stocks.
func (ic *InventoryController) UpsertStock(ctx *gin.Context) {
	var req models.UpsertStockRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		apperrors.Abort(ctx, apperrors.BadRequest(err))
		return
	}

	stock, err := ic.stockService.Upsert(ctx.Request.Context(), req.VariantID, req.WarehouseID, req.Quantity, req.MinThreshold, req.Reason)
	if err != nil {
		apperrors.Abort(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"stock": stock})
}

// SyncStock handles PUT /admin/inventory/variants/:variant_id and replaces
// the levels of every listed warehouse.
func (ic *InventoryController) SyncStock(ctx *gin.Context) {
	variantID, err := uuid.Parse(ctx.Param("variant_id"))
	if err != nil {
		apperrors.Abort(ctx, apperrors.BadRequest(err))
		return
	}
	var req models.SyncStockRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		apperrors.Abort(ctx, apperrors.BadRequest(err))
		return
	}

	stocks, err := ic.stockService.Sync(ctx.Request.Context(), variantID, req.Levels, req.Reason)
	if err != nil {
		apperrors.Abort(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"levels": stocks})
}

// TransferStock handles POST /admin/inventory/transfers.
func (ic *InventoryController) TransferStock(ctx *gin.Context) {
	var req models.TransferStockRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		apperrors.Abort(ctx, apperrors.BadRequest(err))
		return
	}

	if err := ic.stockService.Transfer(ctx.Request.Context(), req.VariantID, req.From, req.To, req.Quantity, req.Reason); err != nil {
		apperrors.Abort(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"message": "Stock transferred"})
}

// GetHistory handles GET /admin/inventory/logs.
func (ic *InventoryController) GetHistory(ctx *gin.Context) {
	page, limit := parsePaginationParams(ctx)
	filter := models.InventoryLogFilter{
		Type:     models.InventoryLogType(ctx.Query("type")),
		Page:     page,
		PageSize: limit,
	}
	if raw := ctx.Query("variant_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			apperrors.Abort(ctx, apperrors.BadRequest(err))
			return
		}
		filter.VariantID = id
	}
	if raw := ctx.Query("warehouse_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			apperrors.Abort(ctx, apperrors.BadRequest(err))
			return
		}
		filter.WarehouseID = id
	}

	logs, total, err := ic.stockService.History(ctx.Request.Context(), filter)
	if err != nil {
		apperrors.Abort(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"logs": logs, "meta": pageMeta(page, limit, total)})
}
