package services_test

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yashrajoria/fulfillment-service/events"
	"github.com/yashrajoria/fulfillment-service/models"
)

func buyNow(addressID uuid.UUID, lines ...models.OrderLineInput) models.CreateOrderRequest {
	return models.CreateOrderRequest{
		AddressID:     addressID,
		Source:        models.OrderSourceBuyNow,
		Items:         lines,
		PaymentMethod: "card",
	}
}

func TestCreate_FailedSecondLineRollsBackFirst(t *testing.T) {
	f := newFixture(t)
	first := f.addVariant("FIRST", 1000)
	second := f.addVariant("SECOND", 2000)
	firstRow := f.addStock(first.ID, uuid.New(), 5)
	secondRow := f.addStock(second.ID, uuid.New(), 1)

	_, err := f.saga.Create(context.Background(), f.userID, buyNow(f.addressID,
		models.OrderLineInput{VariantID: first.ID, Quantity: 2},
		models.OrderLineInput{VariantID: second.ID, Quantity: 2},
	))
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrOutOfStock)

	var oos *models.OutOfStockError
	require.ErrorAs(t, err, &oos)
	assert.Equal(t, "SECOND", oos.SKU)

	assert.Equal(t, 5, f.quantity(firstRow.ID))
	assert.Equal(t, 1, f.quantity(secondRow.ID))
	assert.Empty(t, f.db.orders)
	assert.Empty(t, f.db.orderItems)
	assert.Empty(t, f.db.payments)
	assert.Empty(t, f.db.logs)
	assert.Empty(t, f.pub.events)
	assert.Equal(t, 1, f.tx.rollbacks)
}

func TestCreate_ItemWriteFailureRestoresStock(t *testing.T) {
	f := newFixture(t)
	v := f.addVariant("WRITE", 1000)
	row := f.addStock(v.ID, uuid.New(), 9)
	f.db.failOrderItems = true

	_, err := f.saga.Create(context.Background(), f.userID, buyNow(f.addressID,
		models.OrderLineInput{VariantID: v.ID, Quantity: 3},
	))
	assert.ErrorIs(t, err, errTest)
	assert.Equal(t, 9, f.quantity(row.ID))
	assert.Empty(t, f.db.orders)
}

func TestCreate_FromCartWithVoucher(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	phone := f.addVariant("PHONE", 100000)
	whA, whB := orderedWarehouses()
	f.addStock(phone.ID, whA, 3)
	f.addStock(phone.ID, whB, 10)
	f.addVoucher(models.Voucher{Code: "FIFTYK", Type: models.VoucherTypeFlat, Value: 50000})

	_, err := f.cart.AddToCart(ctx, f.userID, phone.ID, 2)
	require.NoError(t, err)
	_, err = f.cart.ApplyVoucher(ctx, f.userID, "FIFTYK")
	require.NoError(t, err)

	order, err := f.saga.Create(ctx, f.userID, models.CreateOrderRequest{
		AddressID:     f.addressID,
		Source:        models.OrderSourceCart,
		PaymentMethod: "upi",
	})
	require.NoError(t, err)

	assert.Equal(t, models.OrderStatusPending, order.Status)
	assert.Equal(t, models.PaymentStatusUnpaid, order.PaymentStatus)
	assert.Equal(t, models.ShippingStatusPending, order.ShippingStatus)
	assert.Equal(t, int64(200000), order.SubtotalAmount)
	assert.Equal(t, int64(50000), order.DiscountAmount)
	assert.Equal(t, int64(150000), order.TotalAmount)
	assert.Equal(t, "FIFTYK", order.VoucherCode)
	assert.True(t, strings.HasPrefix(order.OrderNumber, "ORD-"))
	assert.Equal(t, "Asha Rao", order.Address.RecipientName)

	require.Len(t, order.Items, 1)
	item := order.Items[0]
	assert.Equal(t, whB, item.WarehouseID)
	assert.Equal(t, "PHONE", item.Snapshot.SKU)
	assert.Equal(t, int64(100000), item.UnitPrice)

	payment := f.db.payments[order.ID]
	assert.Equal(t, models.PaymentStatusUnpaid, payment.Status)
	assert.Equal(t, int64(150000), payment.Amount)

	assert.Equal(t, 1, f.db.vouchers["fiftyk"].UsedCount)
	assert.Empty(t, f.db.cartItems)
	assert.Nil(t, f.db.carts[f.userID].VoucherCode)
	assert.Equal(t, 11, f.totalStock(phone.ID))

	require.Equal(t, []string{events.NameOrderCreated}, f.pub.names())
	created := f.pub.events[0].(events.OrderCreated)
	assert.Equal(t, order.ID, created.OrderID)
	assert.Equal(t, int64(150000), created.TotalAmount)
}

func TestCreate_CartSubsetKeepsOtherItems(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.addVariant("A", 100)
	b := f.addVariant("B", 200)
	f.addStock(a.ID, uuid.New(), 10)
	f.addStock(b.ID, uuid.New(), 10)

	_, err := f.cart.AddToCart(ctx, f.userID, a.ID, 1)
	require.NoError(t, err)
	view, err := f.cart.AddToCart(ctx, f.userID, b.ID, 2)
	require.NoError(t, err)

	var itemB uuid.UUID
	for _, line := range view.Items {
		if line.VariantID == b.ID {
			itemB = line.ItemID
		}
	}

	order, err := f.saga.Create(ctx, f.userID, models.CreateOrderRequest{
		AddressID:   f.addressID,
		Source:      models.OrderSourceCart,
		CartItemIDs: []uuid.UUID{itemB},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(400), order.TotalAmount)

	require.Len(t, f.db.cartItems, 1)
	for _, it := range f.db.cartItems {
		assert.Equal(t, a.ID, it.VariantID)
	}
}

func TestCreate_CartSubsetIgnoresRepeatedIDs(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	v := f.addVariant("TWICE", 100)
	row := f.addStock(v.ID, uuid.New(), 10)

	view, err := f.cart.AddToCart(ctx, f.userID, v.ID, 2)
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	itemID := view.Items[0].ItemID

	order, err := f.saga.Create(ctx, f.userID, models.CreateOrderRequest{
		AddressID:   f.addressID,
		Source:      models.OrderSourceCart,
		CartItemIDs: []uuid.UUID{itemID, itemID},
	})
	require.NoError(t, err)
	require.Len(t, order.Items, 1)
	assert.Equal(t, 2, order.Items[0].Quantity)
	assert.Equal(t, int64(200), order.TotalAmount)
	assert.Equal(t, 8, f.quantity(row.ID))
	assert.Empty(t, f.db.cartItems)
}

func TestCreate_BuyNowMergesRepeatedVariants(t *testing.T) {
	f := newFixture(t)
	v := f.addVariant("DUP", 250)
	row := f.addStock(v.ID, uuid.New(), 3)

	order, err := f.saga.Create(context.Background(), f.userID, buyNow(f.addressID,
		models.OrderLineInput{VariantID: v.ID, Quantity: 1},
		models.OrderLineInput{VariantID: v.ID, Quantity: 2},
	))
	require.NoError(t, err)
	require.Len(t, order.Items, 1)
	assert.Equal(t, 3, order.Items[0].Quantity)
	assert.Equal(t, int64(750), order.TotalAmount)
	assert.Equal(t, 0, f.quantity(row.ID))
}

func TestCreate_RejectsBadInput(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	v := f.addVariant("IN", 100)
	f.addStock(v.ID, uuid.New(), 5)

	_, err := f.saga.Create(ctx, f.userID, models.CreateOrderRequest{AddressID: f.addressID, Source: models.OrderSourceCart})
	assert.ErrorIs(t, err, models.ErrEmptyOrder)

	_, err = f.saga.Create(ctx, f.userID, buyNow(uuid.New(), models.OrderLineInput{VariantID: v.ID, Quantity: 1}))
	assert.ErrorIs(t, err, models.ErrNotFound)

	_, err = f.saga.Create(ctx, f.userID, buyNow(f.addressID, models.OrderLineInput{VariantID: uuid.New(), Quantity: 1}))
	assert.ErrorIs(t, err, models.ErrNotFound)

	_, err = f.saga.Create(ctx, f.userID, buyNow(f.addressID, models.OrderLineInput{VariantID: v.ID, Quantity: 0}))
	assert.ErrorIs(t, err, models.ErrInvalidQuantity)

	v.Product.IsActive = false
	f.db.variants[v.ID] = v
	_, err = f.saga.Create(ctx, f.userID, buyNow(f.addressID, models.OrderLineInput{VariantID: v.ID, Quantity: 1}))
	assert.ErrorIs(t, err, models.ErrProductUnavailable)

	assert.Empty(t, f.db.orders)
}

func TestCreate_VoucherBelowMinimumFailsOrder(t *testing.T) {
	f := newFixture(t)
	v := f.addVariant("CHEAP", 100)
	row := f.addStock(v.ID, uuid.New(), 5)
	f.addVoucher(models.Voucher{Code: "BIGSPEND", Type: models.VoucherTypeFlat, Value: 50, MinOrderValue: 10000})

	req := buyNow(f.addressID, models.OrderLineInput{VariantID: v.ID, Quantity: 1})
	req.VoucherCode = "BIGSPEND"
	_, err := f.saga.Create(context.Background(), f.userID, req)
	assert.ErrorIs(t, err, models.ErrVoucherInvalid)
	assert.Equal(t, 5, f.quantity(row.ID))
	assert.Equal(t, 0, f.db.vouchers["bigspend"].UsedCount)
}

func TestCancel_RestoresToCapturedWarehouse(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	v := f.addVariant("BACK", 500)
	whA, whB := orderedWarehouses()
	a := f.addStock(v.ID, whA, 5)
	b := f.addStock(v.ID, whB, 10)

	order, err := f.saga.Create(ctx, f.userID, buyNow(f.addressID, models.OrderLineInput{VariantID: v.ID, Quantity: 4}))
	require.NoError(t, err)
	assert.Equal(t, 6, f.quantity(b.ID))

	// warehouse A becomes the largest after the order was placed
	rowA := f.db.stocks[a.ID]
	rowA.Quantity = 50
	f.db.stocks[a.ID] = rowA

	cancelled, err := f.saga.Cancel(ctx, order.ID, "changed my mind")
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCancelled, cancelled.Status)
	assert.Equal(t, models.ShippingStatusCancelled, cancelled.ShippingStatus)
	assert.Equal(t, "changed my mind", cancelled.CancelReason)
	require.NotNil(t, cancelled.CanceledAt)

	assert.Equal(t, 50, f.quantity(a.ID))
	assert.Equal(t, 10, f.quantity(b.ID))

	last := f.db.logs[len(f.db.logs)-1]
	assert.Equal(t, models.InventoryLogRestore, last.Type)
	assert.Equal(t, whB, last.WarehouseID)

	assert.Equal(t, []string{events.NameOrderCreated, events.NameOrderCancelled}, f.pub.names())
}

func TestCancel_IsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	v := f.addVariant("TWICE", 500)
	row := f.addStock(v.ID, uuid.New(), 8)

	order, err := f.saga.Create(ctx, f.userID, buyNow(f.addressID, models.OrderLineInput{VariantID: v.ID, Quantity: 3}))
	require.NoError(t, err)

	_, err = f.saga.Cancel(ctx, order.ID, "first")
	require.NoError(t, err)
	again, err := f.saga.Cancel(ctx, order.ID, "second")
	require.NoError(t, err)

	assert.Equal(t, "first", again.CancelReason)
	assert.Equal(t, 8, f.quantity(row.ID))
	assert.Equal(t, []string{events.NameOrderCreated, events.NameOrderCancelled}, f.pub.names())
}

func TestCancel_ShippedOrderConflicts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	v := f.addVariant("SHIP", 500)
	row := f.addStock(v.ID, uuid.New(), 8)

	order, err := f.saga.Create(ctx, f.userID, buyNow(f.addressID, models.OrderLineInput{VariantID: v.ID, Quantity: 2}))
	require.NoError(t, err)
	_, err = f.saga.UpdateStatus(ctx, order.ID, models.OrderStatusShipping)
	require.NoError(t, err)

	_, err = f.saga.Cancel(ctx, order.ID, "too late")
	var conflict *models.StateConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, models.OrderStatusShipping, conflict.From)
	assert.ErrorIs(t, err, models.ErrOrderStateConflict)
	assert.Equal(t, 6, f.quantity(row.ID))
}

func TestUpdateStatus_PublishesOnlyOnChange(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	v := f.addVariant("STEP", 500)
	f.addStock(v.ID, uuid.New(), 8)

	order, err := f.saga.Create(ctx, f.userID, buyNow(f.addressID, models.OrderLineInput{VariantID: v.ID, Quantity: 1}))
	require.NoError(t, err)

	_, err = f.saga.UpdateStatus(ctx, order.ID, models.OrderStatusProcessing)
	require.NoError(t, err)
	_, err = f.saga.UpdateStatus(ctx, order.ID, models.OrderStatusProcessing)
	require.NoError(t, err)

	assert.Equal(t, []string{events.NameOrderCreated, events.NameOrderStatusUpdated}, f.pub.names())
	updated := f.pub.events[1].(events.OrderStatusUpdated)
	assert.Equal(t, models.OrderStatusPending, updated.From)
	assert.Equal(t, models.OrderStatusProcessing, updated.To)

	_, err = f.saga.UpdateStatus(ctx, order.ID, models.OrderStatusDelivered)
	assert.ErrorIs(t, err, models.ErrOrderStateConflict)

	_, err = f.saga.UpdateStatus(ctx, order.ID, "LOST")
	assert.ErrorIs(t, err, models.ErrInvalidStatus)
}

func TestUpdateStatus_CancelledRestoresStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	v := f.addVariant("STAFF", 500)
	row := f.addStock(v.ID, uuid.New(), 8)

	order, err := f.saga.Create(ctx, f.userID, buyNow(f.addressID, models.OrderLineInput{VariantID: v.ID, Quantity: 5}))
	require.NoError(t, err)

	cancelled, err := f.saga.UpdateStatus(ctx, order.ID, models.OrderStatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCancelled, cancelled.Status)
	assert.Equal(t, 8, f.quantity(row.ID))
}

func TestGetForUser_HidesOtherUsersOrders(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	v := f.addVariant("MINE", 500)
	f.addStock(v.ID, uuid.New(), 8)

	order, err := f.saga.Create(ctx, f.userID, buyNow(f.addressID, models.OrderLineInput{VariantID: v.ID, Quantity: 1}))
	require.NoError(t, err)

	got, err := f.saga.GetForUser(ctx, f.userID, order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.ID, got.ID)

	_, err = f.saga.GetForUser(ctx, uuid.New(), order.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)

	_, err = f.saga.CancelForUser(ctx, uuid.New(), order.ID, "not mine")
	assert.ErrorIs(t, err, models.ErrNotFound)

	mine, total, err := f.saga.ListForUser(ctx, f.userID, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Len(t, mine, 1)
}
