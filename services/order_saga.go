package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/yashrajoria/fulfillment-service/events"
	"github.com/yashrajoria/fulfillment-service/models"
	"github.com/yashrajoria/fulfillment-service/repository"
	"go.uber.org/zap"
)

type OrderService interface {
	Create(ctx context.Context, userID uuid.UUID, req models.CreateOrderRequest) (*models.Order, error)
	Cancel(ctx context.Context, orderID uuid.UUID, reason string) (*models.Order, error)
	CancelForUser(ctx context.Context, userID, orderID uuid.UUID, reason string) (*models.Order, error)
	UpdateStatus(ctx context.Context, orderID uuid.UUID, status models.OrderStatus) (*models.Order, error)
	Get(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	GetForUser(ctx context.Context, userID, orderID uuid.UUID) (*models.Order, error)
	ListForUser(ctx context.Context, userID uuid.UUID, page, limit int) ([]models.Order, int64, error)
	ListAll(ctx context.Context, page, limit int) ([]models.Order, int64, error)
}

// OrderDeps groups the collaborators of the order saga.
type OrderDeps struct {
	Tx        repository.Transactor
	Orders    repository.OrderRepository
	Payments  repository.PaymentRepository
	Addresses repository.AddressRepository
	Carts     repository.CartRepository
	Catalog   repository.CatalogRepository
	Stock     StockService
	Vouchers  VoucherService
	Publisher events.Publisher
}

// OrderSaga writes an order, its allocations and its payment row in a
// single transaction and announces the result only after commit.
type OrderSaga struct {
	deps   OrderDeps
	logger *zap.Logger
	now    func() time.Time
}

func NewOrderSaga(deps OrderDeps, logger *zap.Logger) *OrderSaga {
	return &OrderSaga{deps: deps, logger: logger, now: time.Now}
}

type orderLine struct {
	cartItemID uuid.UUID
	variantID  uuid.UUID
	quantity   int
}

// Create builds an order from the cart or a buy-now list. Any failure,
// including the first unsatisfiable line, rolls back every allocation.
func (s *OrderSaga) Create(ctx context.Context, userID uuid.UUID, req models.CreateOrderRequest) (*models.Order, error) {
	var order *models.Order
	err := s.deps.Tx.WithinTransaction(ctx, func(ctx context.Context) error {
		address, err := s.deps.Addresses.FindByID(ctx, userID, req.AddressID)
		if err != nil {
			return fmt.Errorf("resolve address: %w", err)
		}

		var cart *models.Cart
		var lines []orderLine
		switch req.Source {
		case models.OrderSourceCart:
			cart, err = s.deps.Carts.GetOrCreate(ctx, userID)
			if err != nil {
				return fmt.Errorf("load cart: %w", err)
			}
			lines, err = cartLines(cart, req.CartItemIDs)
		case models.OrderSourceBuyNow:
			lines, err = buyNowLines(req.Items)
		default:
			err = fmt.Errorf("unknown order source %q: %w", req.Source, models.ErrEmptyOrder)
		}
		if err != nil {
			return err
		}

		ids := make([]uuid.UUID, 0, len(lines))
		for _, l := range lines {
			ids = append(ids, l.variantID)
		}
		variants, err := s.deps.Catalog.FindVariants(ctx, ids)
		if err != nil {
			return fmt.Errorf("load variants: %w", err)
		}
		for _, l := range lines {
			v, ok := variants[l.variantID]
			if !ok {
				return fmt.Errorf("variant %s: %w", l.variantID, models.ErrNotFound)
			}
			if !v.Product.Purchasable() {
				return fmt.Errorf("%s: %w", v.SKU, models.ErrProductUnavailable)
			}
		}

		order = &models.Order{
			OrderNumber:    s.orderNumber(),
			UserID:         userID,
			Status:         models.OrderStatusPending,
			PaymentStatus:  models.PaymentStatusUnpaid,
			PaymentMethod:  req.PaymentMethod,
			ShippingStatus: models.ShippingStatusPending,
			Note:           req.Note,
			Address:        address.Snapshot(),
		}
		if err := s.deps.Orders.Create(ctx, order); err != nil {
			return fmt.Errorf("create order: %w", err)
		}

		reason := "order " + order.OrderNumber
		items := make([]models.OrderItem, 0, len(lines))
		var subtotal int64
		for _, l := range lines {
			v := variants[l.variantID]
			warehouseID, err := s.deps.Stock.Allocate(ctx, l.variantID, l.quantity, reason)
			if err != nil {
				var oos *models.OutOfStockError
				if errors.As(err, &oos) {
					oos.SKU = v.SKU
				}
				return err
			}
			item := models.OrderItem{
				OrderID:     order.ID,
				VariantID:   v.ID,
				WarehouseID: warehouseID,
				Quantity:    l.quantity,
				UnitPrice:   v.Price,
				Subtotal:    v.Price * int64(l.quantity),
				Snapshot:    models.OrderItemSnapshot{Name: v.DisplayName(), SKU: v.SKU, Image: v.Image},
			}
			subtotal += item.Subtotal
			items = append(items, item)
		}
		if err := s.deps.Orders.CreateItems(ctx, items); err != nil {
			return fmt.Errorf("create order items: %w", err)
		}
		order.Items = items

		code := strings.TrimSpace(req.VoucherCode)
		if code == "" && cart != nil && cart.VoucherCode != nil {
			code = *cart.VoucherCode
		}
		var discount int64
		if code != "" {
			res, err := s.deps.Vouchers.Check(ctx, code, userID, subtotal)
			if err != nil {
				return err
			}
			if err := s.deps.Vouchers.Redeem(ctx, res.Code); err != nil {
				return err
			}
			order.VoucherCode = res.Code
			discount = res.DiscountAmount
		}
		if discount > subtotal {
			discount = subtotal
		}
		order.SubtotalAmount = subtotal
		order.DiscountAmount = discount
		order.TotalAmount = subtotal - discount
		if err := s.deps.Orders.Save(ctx, order); err != nil {
			return fmt.Errorf("save order totals: %w", err)
		}

		payment := &models.Payment{
			OrderID: order.ID,
			Amount:  order.TotalAmount,
			Method:  req.PaymentMethod,
			Status:  models.PaymentStatusUnpaid,
		}
		if err := s.deps.Payments.Create(ctx, payment); err != nil {
			return fmt.Errorf("create payment: %w", err)
		}
		order.Payment = payment

		if cart != nil {
			purchased := make([]uuid.UUID, 0, len(lines))
			for _, l := range lines {
				purchased = append(purchased, l.cartItemID)
			}
			if err := s.deps.Carts.DeleteItems(ctx, cart.ID, purchased); err != nil {
				return fmt.Errorf("clear purchased cart items: %w", err)
			}
			if err := s.deps.Carts.UpdateVoucher(ctx, cart.ID, nil, 0); err != nil {
				return fmt.Errorf("clear cart voucher: %w", err)
			}
		}

		created := events.OrderCreated{
			OrderID:     order.ID,
			OrderNumber: order.OrderNumber,
			UserID:      order.UserID,
			TotalAmount: order.TotalAmount,
			ItemCount:   len(items),
			OccurredAt:  s.now().UTC(),
		}
		s.deps.Tx.AfterCommit(ctx, func(ctx context.Context) {
			s.deps.Publisher.Publish(ctx, created)
		})
		return nil
	})
	if err != nil {
		s.logger.Warn("order creation failed", zap.String("user_id", userID.String()), zap.Error(err))
		return nil, err
	}

	s.logger.Info("order created",
		zap.String("order_id", order.ID.String()),
		zap.String("order_number", order.OrderNumber),
		zap.Int64("total", order.TotalAmount),
	)
	return order, nil
}

// Cancel restores every line to the warehouse it was taken from. Cancelling
// an already cancelled order is a no-op.
func (s *OrderSaga) Cancel(ctx context.Context, orderID uuid.UUID, reason string) (*models.Order, error) {
	var order *models.Order
	err := s.deps.Tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		order, err = s.deps.Orders.LockByID(ctx, orderID)
		if err != nil {
			return err
		}
		if order.Status == models.OrderStatusCancelled {
			return nil
		}
		if !order.Status.CanTransitionTo(models.OrderStatusCancelled) {
			return &models.StateConflictError{From: order.Status, To: models.OrderStatusCancelled}
		}

		restoreReason := "order " + order.OrderNumber + " cancelled"
		for _, item := range order.Items {
			if err := s.deps.Stock.Restore(ctx, item.VariantID, item.Quantity, item.WarehouseID, restoreReason); err != nil {
				return fmt.Errorf("restore stock for item %s: %w", item.ID, err)
			}
		}

		now := s.now().UTC()
		order.Status = models.OrderStatusCancelled
		order.ShippingStatus = models.ShippingStatusCancelled
		order.CanceledAt = &now
		order.CancelReason = reason
		if err := s.deps.Orders.Save(ctx, order); err != nil {
			return fmt.Errorf("save order: %w", err)
		}

		cancelled := events.OrderCancelled{
			OrderID:     order.ID,
			OrderNumber: order.OrderNumber,
			UserID:      order.UserID,
			Reason:      reason,
			OccurredAt:  now,
		}
		s.deps.Tx.AfterCommit(ctx, func(ctx context.Context) {
			s.deps.Publisher.Publish(ctx, cancelled)
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (s *OrderSaga) CancelForUser(ctx context.Context, userID, orderID uuid.UUID, reason string) (*models.Order, error) {
	if _, err := s.GetForUser(ctx, userID, orderID); err != nil {
		return nil, err
	}
	return s.Cancel(ctx, orderID, reason)
}

// UpdateStatus moves an order along the transition table. Moving to
// CANCELLED goes through Cancel so stock is restored.
func (s *OrderSaga) UpdateStatus(ctx context.Context, orderID uuid.UUID, status models.OrderStatus) (*models.Order, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%q: %w", status, models.ErrInvalidStatus)
	}
	if status == models.OrderStatusCancelled {
		return s.Cancel(ctx, orderID, "cancelled by staff")
	}

	var order *models.Order
	err := s.deps.Tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		order, err = s.deps.Orders.LockByID(ctx, orderID)
		if err != nil {
			return err
		}
		from := order.Status
		if !from.CanTransitionTo(status) {
			return &models.StateConflictError{From: from, To: status}
		}
		if from == status {
			return nil
		}

		order.Status = status
		if err := s.deps.Orders.Save(ctx, order); err != nil {
			return fmt.Errorf("save order: %w", err)
		}

		updated := events.OrderStatusUpdated{
			OrderID:     order.ID,
			OrderNumber: order.OrderNumber,
			UserID:      order.UserID,
			From:        from,
			To:          status,
			OccurredAt:  s.now().UTC(),
		}
		s.deps.Tx.AfterCommit(ctx, func(ctx context.Context) {
			s.deps.Publisher.Publish(ctx, updated)
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (s *OrderSaga) Get(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	return s.deps.Orders.FindByID(ctx, orderID)
}

// GetForUser hides orders owned by someone else behind ErrNotFound.
func (s *OrderSaga) GetForUser(ctx context.Context, userID, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.deps.Orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, models.ErrNotFound
	}
	return order, nil
}

func (s *OrderSaga) ListForUser(ctx context.Context, userID uuid.UUID, page, limit int) ([]models.Order, int64, error) {
	return s.deps.Orders.FindByUserID(ctx, userID, page, limit)
}

func (s *OrderSaga) ListAll(ctx context.Context, page, limit int) ([]models.Order, int64, error) {
	return s.deps.Orders.FindAll(ctx, page, limit)
}

func (s *OrderSaga) orderNumber() string {
	suffix := strings.ToUpper(uuid.New().String()[:8])
	return "ORD-" + s.now().UTC().Format("20060102-150405") + "-" + suffix
}

// cartLines picks the requested cart items, or all of them when ids is
// empty. Each cart item is picked at most once.
func cartLines(cart *models.Cart, ids []uuid.UUID) ([]orderLine, error) {
	var picked []models.CartItem
	if len(ids) == 0 {
		picked = cart.Items
	} else {
		seen := make(map[uuid.UUID]bool, len(ids))
		for _, id := range ids {
			if seen[id] {
				continue
			}
			seen[id] = true
			item := findItem(cart, id)
			if item == nil {
				return nil, fmt.Errorf("cart item %s: %w", id, models.ErrNotFound)
			}
			picked = append(picked, *item)
		}
	}
	if len(picked) == 0 {
		return nil, models.ErrEmptyOrder
	}

	lines := make([]orderLine, 0, len(picked))
	for _, it := range picked {
		lines = append(lines, orderLine{cartItemID: it.ID, variantID: it.VariantID, quantity: it.Quantity})
	}
	return lines, nil
}

// buyNowLines merges repeated variants into a single line.
func buyNowLines(items []models.OrderLineInput) ([]orderLine, error) {
	if len(items) == 0 {
		return nil, models.ErrEmptyOrder
	}
	index := make(map[uuid.UUID]int, len(items))
	lines := make([]orderLine, 0, len(items))
	for _, in := range items {
		if in.Quantity <= 0 {
			return nil, models.ErrInvalidQuantity
		}
		if i, ok := index[in.VariantID]; ok {
			lines[i].quantity += in.Quantity
			continue
		}
		index[in.VariantID] = len(lines)
		lines = append(lines, orderLine{variantID: in.VariantID, quantity: in.Quantity})
	}
	return lines, nil
}
