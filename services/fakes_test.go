package services_test

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/yashrajoria/fulfillment-service/events"
	"github.com/yashrajoria/fulfillment-service/models"
	"github.com/yashrajoria/fulfillment-service/worker"
)

// --- In-memory database ---
//
// memDB stands in for Postgres. A transaction holds mu for its whole
// duration, which serializes writers the way row locks do, and restores a
// snapshot on rollback. Calls made outside a transaction take mu per call.

type memDB struct {
	mu sync.Mutex

	stocks        map[uuid.UUID]models.InventoryStock
	logs          []models.InventoryLog
	variants      map[uuid.UUID]models.ProductVariant
	carts         map[uuid.UUID]models.Cart // by user id
	cartItems     map[uuid.UUID]models.CartItem
	vouchers      map[string]models.Voucher // by lower-case code
	orders        map[uuid.UUID]models.Order
	orderItems    map[uuid.UUID][]models.OrderItem
	payments      map[uuid.UUID]models.Payment // by order id
	shipments     map[uuid.UUID]models.Shipping
	addresses     map[uuid.UUID]models.Address
	users         map[uuid.UUID]models.User
	permissions   map[string][]string // role -> permissions
	notifications []models.Notification
	reviews       []models.Review

	failOrderItems bool
}

func newMemDB() *memDB {
	return &memDB{
		stocks:      map[uuid.UUID]models.InventoryStock{},
		variants:    map[uuid.UUID]models.ProductVariant{},
		carts:       map[uuid.UUID]models.Cart{},
		cartItems:   map[uuid.UUID]models.CartItem{},
		vouchers:    map[string]models.Voucher{},
		orders:      map[uuid.UUID]models.Order{},
		orderItems:  map[uuid.UUID][]models.OrderItem{},
		payments:    map[uuid.UUID]models.Payment{},
		shipments:   map[uuid.UUID]models.Shipping{},
		addresses:   map[uuid.UUID]models.Address{},
		users:       map[uuid.UUID]models.User{},
		permissions: map[string][]string{},
	}
}

type memSnapshot struct {
	stocks        map[uuid.UUID]models.InventoryStock
	logs          []models.InventoryLog
	carts         map[uuid.UUID]models.Cart
	cartItems     map[uuid.UUID]models.CartItem
	vouchers      map[string]models.Voucher
	orders        map[uuid.UUID]models.Order
	orderItems    map[uuid.UUID][]models.OrderItem
	payments      map[uuid.UUID]models.Payment
	shipments     map[uuid.UUID]models.Shipping
	notifications []models.Notification
	reviews       []models.Review
}

func copyMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (db *memDB) snapshot() memSnapshot {
	return memSnapshot{
		stocks:        copyMap(db.stocks),
		logs:          append([]models.InventoryLog(nil), db.logs...),
		carts:         copyMap(db.carts),
		cartItems:     copyMap(db.cartItems),
		vouchers:      copyMap(db.vouchers),
		orders:        copyMap(db.orders),
		orderItems:    copyMap(db.orderItems),
		payments:      copyMap(db.payments),
		shipments:     copyMap(db.shipments),
		notifications: append([]models.Notification(nil), db.notifications...),
		reviews:       append([]models.Review(nil), db.reviews...),
	}
}

func (db *memDB) restore(s memSnapshot) {
	db.stocks = s.stocks
	db.logs = s.logs
	db.carts = s.carts
	db.cartItems = s.cartItems
	db.vouchers = s.vouchers
	db.orders = s.orders
	db.orderItems = s.orderItems
	db.payments = s.payments
	db.shipments = s.shipments
	db.notifications = s.notifications
	db.reviews = s.reviews
}

type memTxKey struct{}

type memTxState struct {
	hooks []func(ctx context.Context)
}

// guard locks db unless ctx is inside a transaction that already holds it.
func (db *memDB) guard(ctx context.Context) func() {
	if _, ok := ctx.Value(memTxKey{}).(*memTxState); ok {
		return func() {}
	}
	db.mu.Lock()
	return db.mu.Unlock
}

// --- Transactor ---

type memTransactor struct {
	db        *memDB
	commits   int
	rollbacks int
}

func (t *memTransactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(memTxKey{}).(*memTxState); ok {
		return fn(ctx)
	}

	t.db.mu.Lock()
	snap := t.db.snapshot()
	state := &memTxState{}
	err := fn(context.WithValue(ctx, memTxKey{}, state))
	if err != nil {
		t.db.restore(snap)
		t.rollbacks++
		t.db.mu.Unlock()
		return err
	}
	t.commits++
	t.db.mu.Unlock()

	for _, hook := range state.hooks {
		hook(ctx)
	}
	return nil
}

func (t *memTransactor) AfterCommit(ctx context.Context, fn func(ctx context.Context)) {
	if state, ok := ctx.Value(memTxKey{}).(*memTxState); ok {
		state.hooks = append(state.hooks, fn)
		return
	}
	fn(ctx)
}

// --- Inventory ---

type memInventoryRepo struct{ db *memDB }

func (r *memInventoryRepo) LockLargest(ctx context.Context, variantID uuid.UUID, minQty int) (*models.InventoryStock, error) {
	defer r.db.guard(ctx)()
	var best *models.InventoryStock
	for _, s := range r.db.stocks {
		if s.VariantID != variantID || s.Quantity < minQty {
			continue
		}
		s := s
		if best == nil || s.Quantity > best.Quantity ||
			(s.Quantity == best.Quantity && s.WarehouseID.String() < best.WarehouseID.String()) {
			best = &s
		}
	}
	if best == nil {
		return nil, models.ErrNotFound
	}
	return best, nil
}

func (r *memInventoryRepo) LockByID(ctx context.Context, id uuid.UUID) (*models.InventoryStock, error) {
	defer r.db.guard(ctx)()
	s, ok := r.db.stocks[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &s, nil
}

func (r *memInventoryRepo) LockByWarehouse(ctx context.Context, variantID, warehouseID uuid.UUID) (*models.InventoryStock, error) {
	defer r.db.guard(ctx)()
	for _, s := range r.db.stocks {
		if s.VariantID == variantID && s.WarehouseID == warehouseID {
			s := s
			return &s, nil
		}
	}
	return nil, models.ErrNotFound
}

func (r *memInventoryRepo) CreateIfAbsent(ctx context.Context, stock *models.InventoryStock) (bool, error) {
	defer r.db.guard(ctx)()
	for _, s := range r.db.stocks {
		if s.VariantID == stock.VariantID && s.WarehouseID == stock.WarehouseID {
			return false, nil
		}
	}
	if stock.ID == uuid.Nil {
		stock.ID = uuid.New()
	}
	r.db.stocks[stock.ID] = *stock
	return true, nil
}

func (r *memInventoryRepo) Decrement(ctx context.Context, id uuid.UUID, qty int) (bool, error) {
	defer r.db.guard(ctx)()
	s, ok := r.db.stocks[id]
	if !ok || s.Quantity < qty {
		return false, nil
	}
	s.Quantity -= qty
	r.db.stocks[id] = s
	return true, nil
}

func (r *memInventoryRepo) Update(ctx context.Context, stock *models.InventoryStock) error {
	defer r.db.guard(ctx)()
	if stock.Quantity < 0 {
		panic("negative stock written")
	}
	r.db.stocks[stock.ID] = *stock
	return nil
}

func (r *memInventoryRepo) ListByVariant(ctx context.Context, variantID uuid.UUID) ([]models.InventoryStock, error) {
	defer r.db.guard(ctx)()
	var out []models.InventoryStock
	for _, s := range r.db.stocks {
		if s.VariantID == variantID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].WarehouseID.String() < out[j].WarehouseID.String() })
	return out, nil
}

func (r *memInventoryRepo) SumByVariant(ctx context.Context, variantID uuid.UUID) (int, error) {
	defer r.db.guard(ctx)()
	total := 0
	for _, s := range r.db.stocks {
		if s.VariantID == variantID {
			total += s.Quantity
		}
	}
	return total, nil
}

func (r *memInventoryRepo) AppendLog(ctx context.Context, entry *models.InventoryLog) error {
	defer r.db.guard(ctx)()
	entry.ID = uuid.New()
	r.db.logs = append(r.db.logs, *entry)
	return nil
}

func (r *memInventoryRepo) ListLogs(ctx context.Context, filter models.InventoryLogFilter) ([]models.InventoryLog, int64, error) {
	defer r.db.guard(ctx)()
	var out []models.InventoryLog
	for _, l := range r.db.logs {
		if filter.VariantID != uuid.Nil && l.VariantID != filter.VariantID {
			continue
		}
		if filter.Type != "" && l.Type != filter.Type {
			continue
		}
		out = append(out, l)
	}
	return out, int64(len(out)), nil
}

// --- Catalog ---

type memCatalogRepo struct{ db *memDB }

func (r *memCatalogRepo) FindVariant(ctx context.Context, id uuid.UUID) (*models.ProductVariant, error) {
	defer r.db.guard(ctx)()
	v, ok := r.db.variants[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &v, nil
}

func (r *memCatalogRepo) FindVariants(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.ProductVariant, error) {
	defer r.db.guard(ctx)()
	out := make(map[uuid.UUID]models.ProductVariant, len(ids))
	for _, id := range ids {
		if v, ok := r.db.variants[id]; ok {
			out[id] = v
		}
	}
	return out, nil
}

func (r *memCatalogRepo) FindProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	defer r.db.guard(ctx)()
	for _, v := range r.db.variants {
		if v.ProductID == id {
			p := v.Product
			return &p, nil
		}
	}
	return nil, models.ErrNotFound
}

func (r *memCatalogRepo) CreateReview(ctx context.Context, review *models.Review) error {
	defer r.db.guard(ctx)()
	review.ID = uuid.New()
	r.db.reviews = append(r.db.reviews, *review)
	return nil
}

// --- Cart ---

type memCartRepo struct{ db *memDB }

func (r *memCartRepo) GetOrCreate(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	defer r.db.guard(ctx)()
	cart, ok := r.db.carts[userID]
	if !ok {
		cart = models.Cart{ID: uuid.New(), UserID: userID}
		r.db.carts[userID] = cart
	}
	cart.Items = nil
	for _, it := range r.db.cartItems {
		if it.CartID == cart.ID {
			cart.Items = append(cart.Items, it)
		}
	}
	sort.Slice(cart.Items, func(i, j int) bool { return cart.Items[i].CreatedAt.Before(cart.Items[j].CreatedAt) })
	return &cart, nil
}

func (r *memCartRepo) SaveItem(ctx context.Context, item *models.CartItem) error {
	defer r.db.guard(ctx)()
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
		item.CreatedAt = time.Now()
	}
	r.db.cartItems[item.ID] = *item
	return nil
}

func (r *memCartRepo) DeleteItems(ctx context.Context, cartID uuid.UUID, itemIDs []uuid.UUID) error {
	defer r.db.guard(ctx)()
	for _, id := range itemIDs {
		if it, ok := r.db.cartItems[id]; ok && it.CartID == cartID {
			delete(r.db.cartItems, id)
		}
	}
	return nil
}

func (r *memCartRepo) UpdateVoucher(ctx context.Context, cartID uuid.UUID, code *string, discount int64) error {
	defer r.db.guard(ctx)()
	for userID, c := range r.db.carts {
		if c.ID == cartID {
			c.VoucherCode = code
			c.VoucherDiscount = discount
			r.db.carts[userID] = c
			return nil
		}
	}
	return models.ErrNotFound
}

// --- Vouchers ---

type memVoucherRepo struct{ db *memDB }

func (r *memVoucherRepo) Create(ctx context.Context, v *models.Voucher) error {
	defer r.db.guard(ctx)()
	v.ID = uuid.New()
	r.db.vouchers[strings.ToLower(v.Code)] = *v
	return nil
}

func (r *memVoucherRepo) FindByCode(ctx context.Context, code string) (*models.Voucher, error) {
	defer r.db.guard(ctx)()
	v, ok := r.db.vouchers[strings.ToLower(code)]
	if !ok || !v.Active {
		return nil, models.ErrNotFound
	}
	return &v, nil
}

func (r *memVoucherRepo) IncrementUsedCount(ctx context.Context, code string) (bool, error) {
	defer r.db.guard(ctx)()
	key := strings.ToLower(code)
	v, ok := r.db.vouchers[key]
	if !ok || (v.UsageLimit > 0 && v.UsedCount >= v.UsageLimit) {
		return false, nil
	}
	v.UsedCount++
	r.db.vouchers[key] = v
	return true, nil
}

// --- Orders ---

type memOrderRepo struct{ db *memDB }

func (r *memOrderRepo) Create(ctx context.Context, order *models.Order) error {
	defer r.db.guard(ctx)()
	order.ID = uuid.New()
	order.CreatedAt = time.Now()
	stored := *order
	stored.Items, stored.Payment, stored.Shipping = nil, nil, nil
	r.db.orders[order.ID] = stored
	return nil
}

func (r *memOrderRepo) CreateItems(ctx context.Context, items []models.OrderItem) error {
	defer r.db.guard(ctx)()
	if r.db.failOrderItems {
		return errTest
	}
	for i := range items {
		items[i].ID = uuid.New()
		r.db.orderItems[items[i].OrderID] = append(r.db.orderItems[items[i].OrderID], items[i])
	}
	return nil
}

func (r *memOrderRepo) load(id uuid.UUID) (*models.Order, error) {
	o, ok := r.db.orders[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	o.Items = append([]models.OrderItem(nil), r.db.orderItems[id]...)
	return &o, nil
}

func (r *memOrderRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	defer r.db.guard(ctx)()
	o, err := r.load(id)
	if err != nil {
		return nil, err
	}
	if p, ok := r.db.payments[id]; ok {
		o.Payment = &p
	}
	if s, ok := r.db.shipments[id]; ok {
		o.Shipping = &s
	}
	return o, nil
}

func (r *memOrderRepo) LockByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	defer r.db.guard(ctx)()
	return r.load(id)
}

func (r *memOrderRepo) Save(ctx context.Context, order *models.Order) error {
	defer r.db.guard(ctx)()
	if order.TotalAmount < 0 {
		panic("negative order total written")
	}
	stored := *order
	stored.Items, stored.Payment, stored.Shipping = nil, nil, nil
	r.db.orders[order.ID] = stored
	return nil
}

func (r *memOrderRepo) list(match func(models.Order) bool) ([]models.Order, int64, error) {
	var out []models.Order
	for _, o := range r.db.orders {
		if match(o) {
			out = append(out, o)
		}
	}
	return out, int64(len(out)), nil
}

func (r *memOrderRepo) FindByUserID(ctx context.Context, userID uuid.UUID, _, _ int) ([]models.Order, int64, error) {
	defer r.db.guard(ctx)()
	return r.list(func(o models.Order) bool { return o.UserID == userID })
}

func (r *memOrderRepo) FindAll(ctx context.Context, _, _ int) ([]models.Order, int64, error) {
	defer r.db.guard(ctx)()
	return r.list(func(models.Order) bool { return true })
}

// --- Payments, shipping, addresses ---

type memPaymentRepo struct{ db *memDB }

func (r *memPaymentRepo) Create(ctx context.Context, p *models.Payment) error {
	defer r.db.guard(ctx)()
	p.ID = uuid.New()
	r.db.payments[p.OrderID] = *p
	return nil
}

func (r *memPaymentRepo) FindByOrderID(ctx context.Context, orderID uuid.UUID) (*models.Payment, error) {
	defer r.db.guard(ctx)()
	p, ok := r.db.payments[orderID]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &p, nil
}

func (r *memPaymentRepo) Save(ctx context.Context, p *models.Payment) error {
	defer r.db.guard(ctx)()
	r.db.payments[p.OrderID] = *p
	return nil
}

type memShippingRepo struct{ db *memDB }

func (r *memShippingRepo) Create(ctx context.Context, s *models.Shipping) error {
	defer r.db.guard(ctx)()
	s.ID = uuid.New()
	r.db.shipments[s.OrderID] = *s
	return nil
}

func (r *memShippingRepo) FindByOrderID(ctx context.Context, orderID uuid.UUID) (*models.Shipping, error) {
	defer r.db.guard(ctx)()
	s, ok := r.db.shipments[orderID]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &s, nil
}

func (r *memShippingRepo) Save(ctx context.Context, s *models.Shipping) error {
	defer r.db.guard(ctx)()
	r.db.shipments[s.OrderID] = *s
	return nil
}

type memAddressRepo struct{ db *memDB }

func (r *memAddressRepo) FindByID(ctx context.Context, userID, id uuid.UUID) (*models.Address, error) {
	defer r.db.guard(ctx)()
	a, ok := r.db.addresses[id]
	if !ok || a.UserID != userID {
		return nil, models.ErrNotFound
	}
	return &a, nil
}

// --- Users and notifications ---

type memUserRepo struct{ db *memDB }

func (r *memUserRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	defer r.db.guard(ctx)()
	u, ok := r.db.users[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &u, nil
}

func (r *memUserRepo) FindByPermission(ctx context.Context, permission string) ([]models.User, error) {
	defer r.db.guard(ctx)()
	var out []models.User
	for _, u := range r.db.users {
		for _, p := range r.db.permissions[u.Role] {
			if p == permission {
				out = append(out, u)
				break
			}
		}
	}
	return out, nil
}

type memNotificationRepo struct{ db *memDB }

func (r *memNotificationRepo) Create(ctx context.Context, n *models.Notification) error {
	defer r.db.guard(ctx)()
	n.ID = uuid.New()
	r.db.notifications = append(r.db.notifications, *n)
	return nil
}

func (r *memNotificationRepo) ListByUser(ctx context.Context, userID uuid.UUID, _, _ int) ([]models.Notification, int64, error) {
	defer r.db.guard(ctx)()
	var out []models.Notification
	for _, n := range r.db.notifications {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out, int64(len(out)), nil
}

func (r *memNotificationRepo) MarkRead(ctx context.Context, userID, id uuid.UUID) error {
	defer r.db.guard(ctx)()
	for i, n := range r.db.notifications {
		if n.ID == id && n.UserID == userID && n.ReadAt == nil {
			now := time.Now()
			r.db.notifications[i].ReadAt = &now
			return nil
		}
	}
	return models.ErrNotFound
}

// --- Event capture ---

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
}

func (p *recordingPublisher) names() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.EventName())
	}
	return out
}

// recordingQueue keeps every task it is given.
type recordingQueue struct {
	mu    sync.Mutex
	tasks []worker.Task
	err   error
}

func (q *recordingQueue) Enqueue(_ context.Context, task worker.Task) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.tasks = append(q.tasks, task)
	return nil
}

func (q *recordingQueue) Dequeue(ctx context.Context) (worker.Task, error) {
	<-ctx.Done()
	return worker.Task{}, ctx.Err()
}

type testError string

func (e testError) Error() string { return string(e) }

const errTest = testError("injected failure")
