package services_test

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/yashrajoria/fulfillment-service/events"
	"github.com/yashrajoria/fulfillment-service/models"
	"github.com/yashrajoria/fulfillment-service/services"
	"go.uber.org/zap"
)

// fixture wires every service against one memDB.
type fixture struct {
	db  *memDB
	tx  *memTransactor
	pub *recordingPublisher

	inventory *memInventoryRepo
	catalog   *memCatalogRepo
	carts     *memCartRepo
	orders    *memOrderRepo
	payments  *memPaymentRepo
	shipping  *memShippingRepo

	stock    *services.StockAllocator
	vouchers services.VoucherService
	cart     *services.CartPricingEngine
	saga     *services.OrderSaga

	userID    uuid.UUID
	addressID uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := zap.NewNop()

	db := newMemDB()
	f := &fixture{
		db:        db,
		tx:        &memTransactor{db: db},
		pub:       &recordingPublisher{},
		inventory: &memInventoryRepo{db: db},
		catalog:   &memCatalogRepo{db: db},
		carts:     &memCartRepo{db: db},
		orders:    &memOrderRepo{db: db},
		payments:  &memPaymentRepo{db: db},
		shipping:  &memShippingRepo{db: db},
		userID:    uuid.New(),
	}

	f.stock = services.NewStockAllocator(f.tx, f.inventory, f.pub, logger)
	f.vouchers = services.NewVoucherService(&memVoucherRepo{db: db}, logger)
	f.cart = services.NewCartPricingEngine(f.carts, f.catalog, f.stock, f.vouchers, logger)
	f.saga = f.newSaga(f.pub)

	address := models.Address{
		ID:            uuid.New(),
		UserID:        f.userID,
		RecipientName: "Asha Rao",
		Phone:         "+91-98000-00000",
		Line1:         "12 MG Road",
		City:          "Bengaluru",
		Country:       "IN",
	}
	db.addresses[address.ID] = address
	f.addressID = address.ID
	return f
}

// newSaga builds an order saga over the fixture's stores that publishes to pub.
func (f *fixture) newSaga(pub events.Publisher) *services.OrderSaga {
	return services.NewOrderSaga(services.OrderDeps{
		Tx:        f.tx,
		Orders:    f.orders,
		Payments:  f.payments,
		Addresses: &memAddressRepo{db: f.db},
		Carts:     f.carts,
		Catalog:   f.catalog,
		Stock:     f.stock,
		Vouchers:  f.vouchers,
		Publisher: pub,
	}, zap.NewNop())
}

func (f *fixture) newCoordinator() *services.StatusCoordinator {
	return services.NewStatusCoordinator(f.tx, f.orders, f.payments, f.shipping, f.stock, zap.NewNop())
}

func (f *fixture) addVariant(sku string, price int64) models.ProductVariant {
	productID := uuid.New()
	v := models.ProductVariant{
		ID:        uuid.New(),
		ProductID: productID,
		SKU:       sku,
		Price:     price,
		Product:   models.Product{ID: productID, Name: "Product " + sku, IsActive: true},
	}
	f.db.variants[v.ID] = v
	return v
}

func (f *fixture) addStock(variantID, warehouseID uuid.UUID, qty int) models.InventoryStock {
	s := models.InventoryStock{ID: uuid.New(), VariantID: variantID, WarehouseID: warehouseID, Quantity: qty}
	f.db.stocks[s.ID] = s
	return s
}

func (f *fixture) addVoucher(v models.Voucher) {
	if v.ExpiresAt.IsZero() {
		v.ExpiresAt = time.Now().Add(24 * time.Hour)
	}
	v.Active = true
	v.ID = uuid.New()
	f.db.vouchers[strings.ToLower(v.Code)] = v
}

func (f *fixture) quantity(stockID uuid.UUID) int {
	return f.db.stocks[stockID].Quantity
}

func (f *fixture) totalStock(variantID uuid.UUID) int {
	total := 0
	for _, s := range f.db.stocks {
		if s.VariantID == variantID {
			total += s.Quantity
		}
	}
	return total
}

// orderedWarehouses returns two fresh warehouse ids with a < b.
func orderedWarehouses() (uuid.UUID, uuid.UUID) {
	a, b := uuid.New(), uuid.New()
	if b.String() < a.String() {
		a, b = b, a
	}
	return a, b
}
