package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/yashrajoria/fulfillment-service/events"
	"github.com/yashrajoria/fulfillment-service/models"
	"github.com/yashrajoria/fulfillment-service/repository"
	"go.uber.org/zap"
)

// StockService is the inventory surface used by the saga, the cart and
// the admin handlers.
type StockService interface {
	Allocate(ctx context.Context, variantID uuid.UUID, qty int, reason string) (uuid.UUID, error)
	Restore(ctx context.Context, variantID uuid.UUID, qty int, warehouseID uuid.UUID, reason string) error
	Adjust(ctx context.Context, stockID uuid.UUID, delta int, reason string) (*models.InventoryStock, error)
	Upsert(ctx context.Context, variantID, warehouseID uuid.UUID, quantity int, threshold *int, reason string) (*models.InventoryStock, error)
	Sync(ctx context.Context, variantID uuid.UUID, levels []models.StockLevel, reason string) ([]models.InventoryStock, error)
	Transfer(ctx context.Context, variantID, fromWarehouse, toWarehouse uuid.UUID, qty int, reason string) error
	AggregateStock(ctx context.Context, variantID uuid.UUID) (int, error)
	Levels(ctx context.Context, variantID uuid.UUID) ([]models.InventoryStock, error)
	History(ctx context.Context, filter models.InventoryLogFilter) ([]models.InventoryLog, int64, error)
}

// StockAllocator debits and credits per-warehouse stock. Every mutation
// locks its row, runs inside a transaction and appends one audit entry per
// changed row.
type StockAllocator struct {
	tx        repository.Transactor
	repo      repository.InventoryRepository
	publisher events.Publisher
	logger    *zap.Logger
}

func NewStockAllocator(tx repository.Transactor, repo repository.InventoryRepository, publisher events.Publisher, logger *zap.Logger) *StockAllocator {
	return &StockAllocator{tx: tx, repo: repo, publisher: publisher, logger: logger}
}

// Allocate debits qty from the single warehouse holding the most stock of
// the variant. Stock is never combined across warehouses.
func (a *StockAllocator) Allocate(ctx context.Context, variantID uuid.UUID, qty int, reason string) (uuid.UUID, error) {
	if qty <= 0 {
		return uuid.Nil, models.ErrInvalidQuantity
	}

	var warehouseID uuid.UUID
	err := a.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		stock, err := a.repo.LockLargest(ctx, variantID, qty)
		if errors.Is(err, models.ErrNotFound) {
			return &models.OutOfStockError{VariantID: variantID, Requested: qty}
		}
		if err != nil {
			return fmt.Errorf("lock stock: %w", err)
		}

		applied, err := a.repo.Decrement(ctx, stock.ID, qty)
		if err != nil {
			return fmt.Errorf("decrement stock: %w", err)
		}
		if !applied {
			return &models.OutOfStockError{VariantID: variantID, Requested: qty}
		}

		warehouseID = stock.WarehouseID
		return a.appendLog(ctx, stock, stock.Quantity-qty, models.InventoryLogAllocation, reason)
	})
	if err != nil {
		return uuid.Nil, err
	}

	a.logger.Debug("stock allocated",
		zap.String("variant_id", variantID.String()),
		zap.String("warehouse_id", warehouseID.String()),
		zap.Int("qty", qty),
	)
	return warehouseID, nil
}

// Restore credits qty back to exactly warehouseID, creating the row if needed.
func (a *StockAllocator) Restore(ctx context.Context, variantID uuid.UUID, qty int, warehouseID uuid.UUID, reason string) error {
	if qty <= 0 {
		return models.ErrInvalidQuantity
	}

	return a.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		stock, created, err := a.lockOrCreate(ctx, variantID, warehouseID, qty)
		if err != nil {
			return err
		}
		if created {
			return a.appendLog(ctx, stock, qty, models.InventoryLogRestore, reason)
		}

		previous := *stock
		newQty := stock.Quantity + qty
		if err := a.setQuantity(ctx, stock, newQty); err != nil {
			return err
		}
		return a.appendLog(ctx, &previous, newQty, models.InventoryLogRestore, reason)
	})
}

// Adjust applies a signed delta to one stock row. It never lets quantity go
// below zero and raises LowStockDetected once the result is at or under the
// row's threshold.
func (a *StockAllocator) Adjust(ctx context.Context, stockID uuid.UUID, delta int, reason string) (*models.InventoryStock, error) {
	if delta == 0 {
		return nil, models.ErrInvalidQuantity
	}

	var result models.InventoryStock
	err := a.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		stock, err := a.repo.LockByID(ctx, stockID)
		if err != nil {
			return err
		}

		newQty := stock.Quantity + delta
		if newQty < 0 {
			return &models.InsufficientStockError{Available: stock.Quantity, Requested: -delta}
		}

		previous := *stock
		if err := a.setQuantity(ctx, stock, newQty); err != nil {
			return err
		}
		if err := a.appendLog(ctx, &previous, newQty, models.InventoryLogAdjustment, reason); err != nil {
			return err
		}

		if newQty <= stock.Threshold() {
			low := events.LowStockDetected{
				StockID:     stock.ID,
				WarehouseID: stock.WarehouseID,
				VariantID:   stock.VariantID,
				Quantity:    newQty,
				Threshold:   stock.Threshold(),
				OccurredAt:  time.Now().UTC(),
			}
			a.tx.AfterCommit(ctx, func(ctx context.Context) {
				a.publisher.Publish(ctx, low)
			})
		}
		result = *stock
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// Upsert hard-sets the quantity of one (variant, warehouse) row.
func (a *StockAllocator) Upsert(ctx context.Context, variantID, warehouseID uuid.UUID, quantity int, threshold *int, reason string) (*models.InventoryStock, error) {
	if quantity < 0 {
		return nil, models.ErrInvalidQuantity
	}

	var result *models.InventoryStock
	err := a.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		stock, err := a.hardSet(ctx, variantID, warehouseID, quantity, threshold, models.InventoryLogStocktake, reason)
		result = stock
		return err
	})
	return result, err
}

// Sync applies a batch of hard-set levels for one variant in one transaction.
func (a *StockAllocator) Sync(ctx context.Context, variantID uuid.UUID, levels []models.StockLevel, reason string) ([]models.InventoryStock, error) {
	seen := make(map[uuid.UUID]bool, len(levels))
	for _, l := range levels {
		if l.Quantity < 0 {
			return nil, models.ErrInvalidQuantity
		}
		if seen[l.WarehouseID] {
			return nil, fmt.Errorf("duplicate warehouse %s in sync: %w", l.WarehouseID, models.ErrInvalidQuantity)
		}
		seen[l.WarehouseID] = true
	}

	out := make([]models.InventoryStock, 0, len(levels))
	err := a.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		for _, l := range levels {
			stock, err := a.hardSet(ctx, variantID, l.WarehouseID, l.Quantity, l.MinThreshold, models.InventoryLogSync, reason)
			if err != nil {
				return err
			}
			out = append(out, *stock)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Transfer moves qty between two warehouses, logging an export and an import.
func (a *StockAllocator) Transfer(ctx context.Context, variantID, fromWarehouse, toWarehouse uuid.UUID, qty int, reason string) error {
	if qty <= 0 || fromWarehouse == toWarehouse {
		return models.ErrInvalidQuantity
	}

	return a.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		src, err := a.repo.LockByWarehouse(ctx, variantID, fromWarehouse)
		if err != nil {
			return err
		}
		if src.Quantity < qty {
			return &models.InsufficientStockError{Available: src.Quantity, Requested: qty}
		}
		srcPrev := *src
		if err := a.setQuantity(ctx, src, src.Quantity-qty); err != nil {
			return err
		}
		if err := a.appendLog(ctx, &srcPrev, src.Quantity, models.InventoryLogExport, reason); err != nil {
			return err
		}

		dst, created, err := a.lockOrCreate(ctx, variantID, toWarehouse, qty)
		if err != nil {
			return err
		}
		if created {
			return a.appendLog(ctx, dst, qty, models.InventoryLogImport, reason)
		}
		dstPrev := *dst
		if err := a.setQuantity(ctx, dst, dst.Quantity+qty); err != nil {
			return err
		}
		return a.appendLog(ctx, &dstPrev, dst.Quantity, models.InventoryLogImport, reason)
	})
}

// AggregateStock sums the variant's quantity across all warehouses.
func (a *StockAllocator) AggregateStock(ctx context.Context, variantID uuid.UUID) (int, error) {
	return a.repo.SumByVariant(ctx, variantID)
}

func (a *StockAllocator) Levels(ctx context.Context, variantID uuid.UUID) ([]models.InventoryStock, error) {
	return a.repo.ListByVariant(ctx, variantID)
}

func (a *StockAllocator) History(ctx context.Context, filter models.InventoryLogFilter) ([]models.InventoryLog, int64, error) {
	return a.repo.ListLogs(ctx, filter)
}

// hardSet must run inside a transaction. It writes a log entry only when
// the quantity actually changes.
func (a *StockAllocator) hardSet(ctx context.Context, variantID, warehouseID uuid.UUID, quantity int, threshold *int, logType models.InventoryLogType, reason string) (*models.InventoryStock, error) {
	stock, created, err := a.lockOrInsert(ctx, &models.InventoryStock{
		VariantID:    variantID,
		WarehouseID:  warehouseID,
		Quantity:     quantity,
		MinThreshold: threshold,
	})
	if err != nil {
		return nil, err
	}
	if created {
		if quantity != 0 {
			prev := *stock
			prev.Quantity = 0
			if err := a.appendLog(ctx, &prev, quantity, logType, reason); err != nil {
				return nil, err
			}
		}
		return stock, nil
	}

	previous := *stock
	if threshold != nil {
		stock.MinThreshold = threshold
	}
	if stock.Quantity == quantity && threshold == nil {
		return stock, nil
	}
	stock.Quantity = quantity
	if err := a.repo.Update(ctx, stock); err != nil {
		return nil, fmt.Errorf("update stock: %w", err)
	}
	if previous.Quantity != quantity {
		if err := a.appendLog(ctx, &previous, quantity, logType, reason); err != nil {
			return nil, err
		}
	}
	return stock, nil
}

// lockOrCreate locks the row for (variant, warehouse) or creates it holding
// initialQty. created reports which happened; a created row comes back with
// quantity zero so the caller can log the diff against it.
func (a *StockAllocator) lockOrCreate(ctx context.Context, variantID, warehouseID uuid.UUID, initialQty int) (*models.InventoryStock, bool, error) {
	stock, created, err := a.lockOrInsert(ctx, &models.InventoryStock{VariantID: variantID, WarehouseID: warehouseID, Quantity: initialQty})
	if err != nil || !created {
		return stock, false, err
	}
	empty := *stock
	empty.Quantity = 0
	return &empty, true, nil
}

// lockOrInsert locks the existing row for fresh's (variant, warehouse) or
// inserts fresh. A concurrent insert of the same row makes ours a no-op, in
// which case the winner's row is locked instead.
func (a *StockAllocator) lockOrInsert(ctx context.Context, fresh *models.InventoryStock) (*models.InventoryStock, bool, error) {
	stock, err := a.repo.LockByWarehouse(ctx, fresh.VariantID, fresh.WarehouseID)
	if err == nil {
		return stock, false, nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return nil, false, err
	}

	created, err := a.repo.CreateIfAbsent(ctx, fresh)
	if err != nil {
		return nil, false, fmt.Errorf("create stock: %w", err)
	}
	if created {
		return fresh, true, nil
	}
	stock, err = a.repo.LockByWarehouse(ctx, fresh.VariantID, fresh.WarehouseID)
	if err != nil {
		return nil, false, fmt.Errorf("lock stock after insert race: %w", err)
	}
	return stock, false, nil
}

func (a *StockAllocator) setQuantity(ctx context.Context, stock *models.InventoryStock, qty int) error {
	stock.Quantity = qty
	if err := a.repo.Update(ctx, stock); err != nil {
		return fmt.Errorf("update stock: %w", err)
	}
	return nil
}

// appendLog records a change from before.Quantity to newQty.
func (a *StockAllocator) appendLog(ctx context.Context, before *models.InventoryStock, newQty int, logType models.InventoryLogType, reason string) error {
	entry := &models.InventoryLog{
		WarehouseID:      before.WarehouseID,
		VariantID:        before.VariantID,
		UserID:           actorFrom(ctx),
		PreviousQuantity: before.Quantity,
		NewQuantity:      newQty,
		QuantityChange:   newQty - before.Quantity,
		Type:             logType,
		Reason:           reason,
	}
	if err := a.repo.AppendLog(ctx, entry); err != nil {
		return fmt.Errorf("append inventory log: %w", err)
	}
	return nil
}
