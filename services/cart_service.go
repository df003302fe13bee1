package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/yashrajoria/fulfillment-service/models"
	"github.com/yashrajoria/fulfillment-service/repository"
	"go.uber.org/zap"
)

type CartService interface {
	GetMyCart(ctx context.Context, userID uuid.UUID) (*models.CartView, error)
	AddToCart(ctx context.Context, userID, variantID uuid.UUID, qty int) (*models.CartView, error)
	UpdateItem(ctx context.Context, userID, itemID uuid.UUID, qty int) (*models.CartView, error)
	RemoveItem(ctx context.Context, userID, itemID uuid.UUID) (*models.CartView, error)
	ApplyVoucher(ctx context.Context, userID uuid.UUID, code string) (*models.CartView, error)
	RemoveVoucher(ctx context.Context, userID uuid.UUID) (*models.CartView, error)
	Clear(ctx context.Context, userID uuid.UUID) error
}

// StockReader is the part of StockService the cart needs for its pre-check.
type StockReader interface {
	AggregateStock(ctx context.Context, variantID uuid.UUID) (int, error)
}

// CartPricingEngine prices carts from live variant data on every read.
// The price captured on a cart item is informational only.
type CartPricingEngine struct {
	carts    repository.CartRepository
	catalog  repository.CatalogRepository
	stock    StockReader
	vouchers VoucherService
	logger   *zap.Logger
}

func NewCartPricingEngine(
	carts repository.CartRepository,
	catalog repository.CatalogRepository,
	stock StockReader,
	vouchers VoucherService,
	logger *zap.Logger,
) *CartPricingEngine {
	return &CartPricingEngine{carts: carts, catalog: catalog, stock: stock, vouchers: vouchers, logger: logger}
}

// GetMyCart drops items whose product is no longer sold, prices the rest at
// the live variant price and re-validates the voucher against the new
// subtotal. An invalid or expired voucher is cleared without an error.
func (e *CartPricingEngine) GetMyCart(ctx context.Context, userID uuid.UUID) (*models.CartView, error) {
	cart, err := e.carts.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}

	view, err := e.price(ctx, cart)
	if err != nil {
		return nil, err
	}
	if cart.VoucherCode == nil {
		return view, nil
	}

	code := *cart.VoucherCode
	res, err := e.vouchers.Check(ctx, code, userID, view.Subtotal)
	switch {
	case err == nil:
		if res.DiscountAmount != cart.VoucherDiscount || res.Code != code {
			if uerr := e.carts.UpdateVoucher(ctx, cart.ID, &res.Code, res.DiscountAmount); uerr != nil {
				e.logger.Warn("failed to refresh cart voucher", zap.String("cart_id", cart.ID.String()), zap.Error(uerr))
			}
		}
		view.VoucherCode = res.Code
		view.VoucherDiscount = res.DiscountAmount
	case errors.Is(err, models.ErrVoucherInvalid) || errors.Is(err, models.ErrVoucherExpired):
		e.logger.Info("clearing cart voucher", zap.String("cart_id", cart.ID.String()), zap.String("code", code), zap.Error(err))
		if uerr := e.carts.UpdateVoucher(ctx, cart.ID, nil, 0); uerr != nil {
			e.logger.Warn("failed to clear cart voucher", zap.String("cart_id", cart.ID.String()), zap.Error(uerr))
		}
	default:
		// keep the code, skip the discount for this read
		e.logger.Warn("voucher check failed", zap.String("code", code), zap.Error(err))
		view.VoucherCode = code
	}

	view.Total = clampTotal(view.Subtotal, view.VoucherDiscount)
	return view, nil
}

func (e *CartPricingEngine) AddToCart(ctx context.Context, userID, variantID uuid.UUID, qty int) (*models.CartView, error) {
	if qty <= 0 {
		return nil, models.ErrInvalidQuantity
	}

	variant, err := e.catalog.FindVariant(ctx, variantID)
	if err != nil {
		return nil, err
	}
	if !variant.Product.Purchasable() {
		return nil, models.ErrProductUnavailable
	}

	cart, err := e.carts.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}

	item := findItemByVariant(cart, variantID)
	if item == nil {
		item = &models.CartItem{CartID: cart.ID, VariantID: variantID}
	}
	requested := item.Quantity + qty
	if err := e.checkStock(ctx, variantID, requested); err != nil {
		return nil, err
	}

	item.Quantity = requested
	item.Price = variant.Price
	if err := e.carts.SaveItem(ctx, item); err != nil {
		return nil, fmt.Errorf("save cart item: %w", err)
	}
	return e.GetMyCart(ctx, userID)
}

// UpdateItem sets a line's quantity; zero removes the line.
func (e *CartPricingEngine) UpdateItem(ctx context.Context, userID, itemID uuid.UUID, qty int) (*models.CartView, error) {
	if qty < 0 {
		return nil, models.ErrInvalidQuantity
	}
	if qty == 0 {
		return e.RemoveItem(ctx, userID, itemID)
	}

	cart, err := e.carts.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}
	item := findItem(cart, itemID)
	if item == nil {
		return nil, models.ErrNotFound
	}
	if err := e.checkStock(ctx, item.VariantID, qty); err != nil {
		return nil, err
	}

	item.Quantity = qty
	if err := e.carts.SaveItem(ctx, item); err != nil {
		return nil, fmt.Errorf("save cart item: %w", err)
	}
	return e.GetMyCart(ctx, userID)
}

func (e *CartPricingEngine) RemoveItem(ctx context.Context, userID, itemID uuid.UUID) (*models.CartView, error) {
	cart, err := e.carts.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}
	if findItem(cart, itemID) == nil {
		return nil, models.ErrNotFound
	}
	if err := e.carts.DeleteItems(ctx, cart.ID, []uuid.UUID{itemID}); err != nil {
		return nil, fmt.Errorf("delete cart item: %w", err)
	}
	return e.GetMyCart(ctx, userID)
}

// ApplyVoucher attaches a code to the cart. Unlike reads, voucher errors
// are returned to the caller here.
func (e *CartPricingEngine) ApplyVoucher(ctx context.Context, userID uuid.UUID, code string) (*models.CartView, error) {
	cart, err := e.carts.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}
	view, err := e.price(ctx, cart)
	if err != nil {
		return nil, err
	}

	res, err := e.vouchers.Check(ctx, code, userID, view.Subtotal)
	if err != nil {
		return nil, err
	}
	if err := e.carts.UpdateVoucher(ctx, cart.ID, &res.Code, res.DiscountAmount); err != nil {
		return nil, fmt.Errorf("save cart voucher: %w", err)
	}

	view.VoucherCode = res.Code
	view.VoucherDiscount = res.DiscountAmount
	view.Total = clampTotal(view.Subtotal, view.VoucherDiscount)
	return view, nil
}

func (e *CartPricingEngine) RemoveVoucher(ctx context.Context, userID uuid.UUID) (*models.CartView, error) {
	cart, err := e.carts.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}
	if err := e.carts.UpdateVoucher(ctx, cart.ID, nil, 0); err != nil {
		return nil, fmt.Errorf("clear cart voucher: %w", err)
	}
	return e.price(ctx, cart)
}

// Clear empties the cart and drops its voucher.
func (e *CartPricingEngine) Clear(ctx context.Context, userID uuid.UUID) error {
	cart, err := e.carts.GetOrCreate(ctx, userID)
	if err != nil {
		return fmt.Errorf("load cart: %w", err)
	}
	if len(cart.Items) > 0 {
		ids := make([]uuid.UUID, 0, len(cart.Items))
		for _, it := range cart.Items {
			ids = append(ids, it.ID)
		}
		if err := e.carts.DeleteItems(ctx, cart.ID, ids); err != nil {
			return fmt.Errorf("clear cart items: %w", err)
		}
	}
	return e.carts.UpdateVoucher(ctx, cart.ID, nil, 0)
}

// price builds the voucher-free view of cart and deletes lines whose
// product can no longer be bought.
func (e *CartPricingEngine) price(ctx context.Context, cart *models.Cart) (*models.CartView, error) {
	ids := make([]uuid.UUID, 0, len(cart.Items))
	for _, it := range cart.Items {
		ids = append(ids, it.VariantID)
	}
	variants, err := e.catalog.FindVariants(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load variants: %w", err)
	}

	view := &models.CartView{CartID: cart.ID, Items: make([]models.CartLine, 0, len(cart.Items))}
	for _, it := range cart.Items {
		v, ok := variants[it.VariantID]
		if !ok || !v.Product.Purchasable() {
			view.Removed = append(view.Removed, it.ID)
			continue
		}
		line := models.CartLine{
			ItemID:    it.ID,
			VariantID: v.ID,
			SKU:       v.SKU,
			Name:      v.DisplayName(),
			Image:     v.Image,
			Quantity:  it.Quantity,
			UnitPrice: v.Price,
			Subtotal:  v.Price * int64(it.Quantity),
		}
		view.Items = append(view.Items, line)
		view.Subtotal += line.Subtotal
	}

	if len(view.Removed) > 0 {
		if err := e.carts.DeleteItems(ctx, cart.ID, view.Removed); err != nil {
			e.logger.Warn("failed to prune unavailable cart items", zap.String("cart_id", cart.ID.String()), zap.Error(err))
		}
	}

	view.Total = view.Subtotal
	return view, nil
}

func (e *CartPricingEngine) checkStock(ctx context.Context, variantID uuid.UUID, requested int) error {
	available, err := e.stock.AggregateStock(ctx, variantID)
	if err != nil {
		return fmt.Errorf("read stock: %w", err)
	}
	if requested > available {
		return &models.InsufficientStockError{Available: available, Requested: requested}
	}
	return nil
}

func clampTotal(subtotal, discount int64) int64 {
	if discount > subtotal {
		return 0
	}
	return subtotal - discount
}

func findItem(cart *models.Cart, itemID uuid.UUID) *models.CartItem {
	for i := range cart.Items {
		if cart.Items[i].ID == itemID {
			return &cart.Items[i]
		}
	}
	return nil
}

func findItemByVariant(cart *models.Cart, variantID uuid.UUID) *models.CartItem {
	for i := range cart.Items {
		if cart.Items[i].VariantID == variantID {
			return &cart.Items[i]
		}
	}
	return nil
}
