package service

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/foodville/marketplace-api/internal/access"
	"github.com/foodville/marketplace-api/internal/asset"
	"github.com/foodville/marketplace-api/internal/model"
	"github.com/foodville/marketplace-api/internal/notify"
	"github.com/foodville/marketplace-api/internal/repository"
)

// memDB backs every mock repository so joins behave like the real schema.
type memDB struct {
	users      map[uuid.UUID]*model.User
	groups     map[uuid.UUID]map[string]bool
	stores     map[uuid.UUID]*model.Store
	categories map[uuid.UUID]*model.Category
	products   map[uuid.UUID]*model.Product
	carts      map[uuid.UUID]*model.Cart
	items      map[uuid.UUID]*model.CartItem
	orders     map[uuid.UUID]*model.Order
	feedbacks  map[uuid.UUID]*model.Feedback
	seq        int
}

func newMemDB() *memDB {
	return &memDB{
		users:      map[uuid.UUID]*model.User{},
		groups:     map[uuid.UUID]map[string]bool{},
		stores:     map[uuid.UUID]*model.Store{},
		categories: map[uuid.UUID]*model.Category{},
		products:   map[uuid.UUID]*model.Product{},
		carts:      map[uuid.UUID]*model.Cart{},
		items:      map[uuid.UUID]*model.CartItem{},
		orders:     map[uuid.UUID]*model.Order{},
		feedbacks:  map[uuid.UUID]*model.Feedback{},
	}
}

// tick returns strictly increasing timestamps for ordering.
func (db *memDB) tick() time.Time {
	db.seq++
	return time.Date(2024, 1, 1, 0, 0, db.seq, 0, time.UTC)
}

type fakeTx struct{}

func (fakeTx) InTx(ctx context.Context, fn func(ctx context.Context) error) error { return fn(ctx) }

// --- users ---

type mockUserRepo struct{ db *memDB }

func (m *mockUserRepo) Create(_ context.Context, user *model.User) error {
	for _, u := range m.db.users {
		if strings.EqualFold(u.Email, user.Email) {
			return &repository.ConstraintError{Constraint: repository.ConstraintUserEmail}
		}
	}
	user.ID = uuid.New()
	user.CreatedAt = m.db.tick()
	m.db.users[user.ID] = user
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	return m.db.users[id], nil
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	for _, u := range m.db.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return nil, nil
}

func (m *mockUserRepo) Update(_ context.Context, user *model.User) error {
	if _, ok := m.db.users[user.ID]; !ok {
		return pgx.ErrNoRows
	}
	m.db.users[user.ID] = user
	return nil
}

func (m *mockUserRepo) GroupNames(_ context.Context, userID uuid.UUID) ([]string, error) {
	var names []string
	for g := range m.db.groups[userID] {
		names = append(names, g)
	}
	sort.Strings(names)
	return names, nil
}

func (m *mockUserRepo) AddToGroup(_ context.Context, userID uuid.UUID, group string) error {
	if m.db.groups[userID] == nil {
		m.db.groups[userID] = map[string]bool{}
	}
	m.db.groups[userID][group] = true
	return nil
}

func (m *mockUserRepo) RemoveFromGroup(_ context.Context, userID uuid.UUID, group string) error {
	delete(m.db.groups[userID], group)
	return nil
}

// --- stores ---

type mockStoreRepo struct{ db *memDB }

func (m *mockStoreRepo) enrich(s *model.Store) *model.Store {
	out := *s
	out.ProductCount = 0
	for _, p := range m.db.products {
		if p.StoreID == s.ID {
			out.ProductCount++
		}
	}
	if u := m.db.users[s.UserID]; u != nil {
		out.OwnerName = u.FullName()
	}
	return &out
}

func (m *mockStoreRepo) Create(_ context.Context, store *model.Store) error {
	for _, s := range m.db.stores {
		switch {
		case s.UserID == store.UserID:
			return &repository.ConstraintError{Constraint: repository.ConstraintStoreUser}
		case s.Name == store.Name:
			return &repository.ConstraintError{Constraint: repository.ConstraintStoreName}
		case s.Email == store.Email:
			return &repository.ConstraintError{Constraint: repository.ConstraintStoreEmail}
		}
	}
	if store.Image == "" {
		store.Image = model.DefaultStoreImage
	}
	store.ID = uuid.New()
	store.Address.ID = uuid.New()
	store.CreatedAt = m.db.tick()
	copied := *store
	m.db.stores[store.ID] = &copied
	return nil
}

func (m *mockStoreRepo) GetByID(_ context.Context, id uuid.UUID) (*model.Store, error) {
	s, ok := m.db.stores[id]
	if !ok {
		return nil, nil
	}
	return m.enrich(s), nil
}

func (m *mockStoreRepo) GetByUserID(_ context.Context, userID uuid.UUID) (*model.Store, error) {
	for _, s := range m.db.stores {
		if s.UserID == userID {
			return m.enrich(s), nil
		}
	}
	return nil, nil
}

func (m *mockStoreRepo) List(_ context.Context, filter repository.StoreFilter) ([]model.Store, error) {
	var stores []model.Store
	for _, s := range m.db.stores {
		e := m.enrich(s)
		if filter.LiveOnly && !e.IsLive {
			continue
		}
		if filter.WithProducts && e.ProductCount == 0 {
			continue
		}
		if filter.ExcludeOwnerID != uuid.Nil && e.UserID == filter.ExcludeOwnerID {
			continue
		}
		stores = append(stores, *e)
	}
	sort.Slice(stores, func(i, j int) bool { return stores[i].Name < stores[j].Name })
	return stores, nil
}

func (m *mockStoreRepo) Update(_ context.Context, store *model.Store) error {
	if _, ok := m.db.stores[store.ID]; !ok {
		return pgx.ErrNoRows
	}
	copied := *store
	m.db.stores[store.ID] = &copied
	return nil
}

func (m *mockStoreRepo) UpdateImage(_ context.Context, id uuid.UUID, image string) error {
	s, ok := m.db.stores[id]
	if !ok {
		return pgx.ErrNoRows
	}
	s.Image = image
	return nil
}

func (m *mockStoreRepo) Delete(_ context.Context, id uuid.UUID) (*model.Store, error) {
	s, ok := m.db.stores[id]
	if !ok {
		return nil, nil
	}
	for _, o := range m.db.orders {
		if o.StoreID == id {
			return nil, &repository.ConstraintError{Constraint: repository.ConstraintOrderStore}
		}
	}
	delete(m.db.stores, id)
	for pid, p := range m.db.products {
		if p.StoreID == id {
			delete(m.db.products, pid)
		}
	}
	return s, nil
}

func (m *mockStoreRepo) CountProducts(_ context.Context, id uuid.UUID) (int, error) {
	n := 0
	for _, p := range m.db.products {
		if p.StoreID == id {
			n++
		}
	}
	return n, nil
}

// --- categories ---

type mockCategoryRepo struct{ db *memDB }

func (m *mockCategoryRepo) Create(_ context.Context, category *model.Category) error {
	for _, c := range m.db.categories {
		if c.StoreID == category.StoreID && strings.EqualFold(c.Name, category.Name) {
			return &repository.ConstraintError{Constraint: repository.ConstraintCategoryName}
		}
	}
	category.ID = uuid.New()
	category.CreatedAt = m.db.tick()
	copied := *category
	m.db.categories[category.ID] = &copied
	return nil
}

func (m *mockCategoryRepo) GetByID(_ context.Context, id uuid.UUID) (*model.Category, error) {
	c, ok := m.db.categories[id]
	if !ok {
		return nil, nil
	}
	copied := *c
	return &copied, nil
}

func (m *mockCategoryRepo) List(_ context.Context, storeID uuid.UUID) ([]model.Category, error) {
	var categories []model.Category
	for _, c := range m.db.categories {
		if storeID == uuid.Nil || c.StoreID == storeID {
			categories = append(categories, *c)
		}
	}
	sort.Slice(categories, func(i, j int) bool { return categories[i].Name < categories[j].Name })
	return categories, nil
}

func (m *mockCategoryRepo) Update(_ context.Context, category *model.Category) error {
	for _, c := range m.db.categories {
		if c.ID != category.ID && c.StoreID == category.StoreID && strings.EqualFold(c.Name, category.Name) {
			return &repository.ConstraintError{Constraint: repository.ConstraintCategoryName}
		}
	}
	if _, ok := m.db.categories[category.ID]; !ok {
		return pgx.ErrNoRows
	}
	copied := *category
	m.db.categories[category.ID] = &copied
	return nil
}

func (m *mockCategoryRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := m.db.categories[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(m.db.categories, id)
	return nil
}

// --- products ---

type mockProductRepo struct{ db *memDB }

func (m *mockProductRepo) duplicate(product *model.Product) bool {
	for _, p := range m.db.products {
		if p.ID != product.ID && p.StoreID == product.StoreID && strings.EqualFold(p.Name, product.Name) {
			return true
		}
	}
	return false
}

func (m *mockProductRepo) Create(_ context.Context, product *model.Product) error {
	if m.duplicate(product) {
		return &repository.ConstraintError{Constraint: repository.ConstraintProductName}
	}
	if product.Image == "" {
		product.Image = model.DefaultProductImage
	}
	product.ID = uuid.New()
	product.CreatedAt = m.db.tick()
	copied := *product
	m.db.products[product.ID] = &copied
	return nil
}

func (m *mockProductRepo) GetByID(_ context.Context, id uuid.UUID) (*model.Product, error) {
	p, ok := m.db.products[id]
	if !ok {
		return nil, nil
	}
	copied := *p
	if s := m.db.stores[p.StoreID]; s != nil {
		copied.StoreName = s.Name
	}
	if c := m.db.categories[p.CategoryID]; c != nil {
		copied.CategoryName = c.Name
	}
	return &copied, nil
}

func (m *mockProductRepo) List(_ context.Context, filter repository.ProductFilter) ([]model.Product, int, error) {
	var products []model.Product
	for _, p := range m.db.products {
		if filter.StoreID != uuid.Nil && p.StoreID != filter.StoreID {
			continue
		}
		if filter.CategoryID != uuid.Nil && p.CategoryID != filter.CategoryID {
			continue
		}
		if filter.Search != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(filter.Search)) {
			continue
		}
		products = append(products, *p)
	}
	sort.Slice(products, func(i, j int) bool { return products[i].Name < products[j].Name })
	total := len(products)
	if filter.Offset > len(products) {
		filter.Offset = len(products)
	}
	products = products[filter.Offset:]
	if filter.Limit > 0 && filter.Limit < len(products) {
		products = products[:filter.Limit]
	}
	return products, total, nil
}

func (m *mockProductRepo) Update(_ context.Context, product *model.Product) error {
	if _, ok := m.db.products[product.ID]; !ok {
		return pgx.ErrNoRows
	}
	if m.duplicate(product) {
		return &repository.ConstraintError{Constraint: repository.ConstraintProductName}
	}
	copied := *product
	m.db.products[product.ID] = &copied
	return nil
}

func (m *mockProductRepo) UpdateImage(_ context.Context, id uuid.UUID, image string) error {
	p, ok := m.db.products[id]
	if !ok {
		return pgx.ErrNoRows
	}
	p.Image = image
	return nil
}

func (m *mockProductRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := m.db.products[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(m.db.products, id)
	for iid, item := range m.db.items {
		if item.ProductID == id {
			delete(m.db.items, iid)
		}
	}
	return nil
}

// --- carts ---

type mockCartRepo struct {
	db    *memDB
	locks int
}

func (m *mockCartRepo) Create(_ context.Context, cart *model.Cart) error {
	cart.ID = uuid.New()
	m.db.carts[cart.ID] = cart
	return nil
}

func (m *mockCartRepo) GetByUserID(_ context.Context, userID uuid.UUID) (*model.Cart, error) {
	for _, c := range m.db.carts {
		if c.UserID == userID {
			return c, nil
		}
	}
	return nil, nil
}

func (m *mockCartRepo) LockByUserID(ctx context.Context, userID uuid.UUID) (*model.Cart, error) {
	m.locks++
	return m.GetByUserID(ctx, userID)
}

func (m *mockCartRepo) join(item *model.CartItem) model.CartItem {
	out := *item
	out.UserID = m.db.carts[item.CartID].UserID
	if p := m.db.products[item.ProductID]; p != nil {
		out.Product = model.CartProduct{
			Name: p.Name, Price: p.Price, Image: p.Image, IsAvailable: p.IsAvailable, StoreID: p.StoreID,
		}
		if s := m.db.stores[p.StoreID]; s != nil {
			out.Product.StoreName = s.Name
		}
	}
	return out
}

func (m *mockCartRepo) ListItems(_ context.Context, cartID uuid.UUID) ([]model.CartItem, error) {
	var items []model.CartItem
	for _, item := range m.db.items {
		if item.CartID == cartID {
			items = append(items, m.join(item))
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].CreatedAt.After(items[j].CreatedAt) })
	return items, nil
}

func (m *mockCartRepo) GetItem(_ context.Context, itemID uuid.UUID) (*model.CartItem, error) {
	item, ok := m.db.items[itemID]
	if !ok {
		return nil, nil
	}
	joined := m.join(item)
	return &joined, nil
}

func (m *mockCartRepo) UpsertItem(_ context.Context, item *model.CartItem) error {
	for _, existing := range m.db.items {
		if existing.CartID == item.CartID && existing.ProductID == item.ProductID {
			if existing.Quantity+item.Quantity > maxCartQuantity {
				return &repository.ConstraintError{Constraint: repository.ConstraintCartItemQuantity}
			}
			existing.Quantity += item.Quantity
			item.ID = existing.ID
			item.Quantity = existing.Quantity
			return nil
		}
	}
	item.ID = uuid.New()
	item.CreatedAt = m.db.tick()
	copied := *item
	m.db.items[item.ID] = &copied
	return nil
}

func (m *mockCartRepo) UpdateItemQuantity(_ context.Context, itemID uuid.UUID, quantity int) error {
	item, ok := m.db.items[itemID]
	if !ok {
		return pgx.ErrNoRows
	}
	item.Quantity = quantity
	return nil
}

func (m *mockCartRepo) DeleteItem(_ context.Context, itemID uuid.UUID) error {
	if _, ok := m.db.items[itemID]; !ok {
		return pgx.ErrNoRows
	}
	delete(m.db.items, itemID)
	return nil
}

func (m *mockCartRepo) Clear(_ context.Context, cartID uuid.UUID) error {
	for id, item := range m.db.items {
		if item.CartID == cartID {
			delete(m.db.items, id)
		}
	}
	return nil
}

// --- orders ---

type mockOrderRepo struct{ db *memDB }

func (m *mockOrderRepo) Create(_ context.Context, order *model.Order) error {
	order.ID = uuid.New()
	if order.Status == "" {
		order.Status = model.OrderStatusNew
	}
	order.CreatedAt = m.db.tick()
	copied := *order
	copied.Items = nil
	m.db.orders[order.ID] = &copied
	return nil
}

func (m *mockOrderRepo) CreateItems(_ context.Context, orderID uuid.UUID, items []model.OrderItem) error {
	o := m.db.orders[orderID]
	for i := range items {
		items[i].ID = uuid.New()
		items[i].OrderID = orderID
		o.Items = append(o.Items, items[i])
	}
	return nil
}

func (m *mockOrderRepo) join(o *model.Order) model.Order {
	out := *o
	if s := m.db.stores[o.StoreID]; s != nil {
		out.Store = model.OrderStore{
			Name: s.Name, City: s.Address.City, Image: s.Image, DeliveryFee: s.DeliveryFee, OwnerID: s.UserID,
		}
	}
	if u := m.db.users[o.CustomerID]; u != nil {
		out.Customer = model.OrderCustomer{Email: u.Email, FirstName: u.FirstName, LastName: u.LastName, Address: u.Address}
	}
	out.Feedbacks = nil
	out.HasSubmittedFeedback = false
	for _, f := range m.db.feedbacks {
		if f.OrderID == o.ID {
			out.Feedbacks = append(out.Feedbacks, *f)
			if f.CustomerID == o.CustomerID {
				out.HasSubmittedFeedback = true
			}
		}
	}
	return out
}

func (m *mockOrderRepo) GetByID(_ context.Context, id uuid.UUID) (*model.Order, error) {
	o, ok := m.db.orders[id]
	if !ok {
		return nil, nil
	}
	joined := m.join(o)
	return &joined, nil
}

func (m *mockOrderRepo) list(keep func(*model.Order) bool) []model.Order {
	var orders []model.Order
	for _, o := range m.db.orders {
		if keep(o) {
			orders = append(orders, m.join(o))
		}
	}
	sort.Slice(orders, func(i, j int) bool { return orders[i].CreatedAt.After(orders[j].CreatedAt) })
	return orders
}

func (m *mockOrderRepo) ListByCustomer(_ context.Context, customerID uuid.UUID) ([]model.Order, error) {
	return m.list(func(o *model.Order) bool { return o.CustomerID == customerID }), nil
}

func (m *mockOrderRepo) ListByStore(_ context.Context, storeID uuid.UUID) ([]model.Order, error) {
	return m.list(func(o *model.Order) bool { return o.StoreID == storeID }), nil
}

func (m *mockOrderRepo) UpdateStatus(_ context.Context, id uuid.UUID, status model.OrderStatus) error {
	o, ok := m.db.orders[id]
	if !ok {
		return pgx.ErrNoRows
	}
	o.Status = status
	return nil
}

// --- feedback ---

type mockFeedbackRepo struct{ db *memDB }

func (m *mockFeedbackRepo) Create(_ context.Context, feedback *model.Feedback) error {
	for _, f := range m.db.feedbacks {
		if f.OrderID == feedback.OrderID && f.CustomerID == feedback.CustomerID {
			return &repository.ConstraintError{Constraint: repository.ConstraintFeedbackPerCustomer}
		}
	}
	feedback.ID = uuid.New()
	feedback.CreatedAt = m.db.tick()
	copied := *feedback
	m.db.feedbacks[feedback.ID] = &copied
	return nil
}

func (m *mockFeedbackRepo) ListByStore(_ context.Context, storeID uuid.UUID) ([]model.Feedback, error) {
	var out []model.Feedback
	for _, f := range m.db.feedbacks {
		if o := m.db.orders[f.OrderID]; o != nil && o.StoreID == storeID {
			out = append(out, *f)
		}
	}
	return out, nil
}

func (m *mockFeedbackRepo) ListAll(_ context.Context) ([]model.Feedback, error) {
	var out []model.Feedback
	for _, f := range m.db.feedbacks {
		out = append(out, *f)
	}
	return out, nil
}

// --- notifications and idempotency ---

type recordingNotifier struct {
	placed  []notify.OrderEvent
	changed []notify.OrderEvent
	err     error
}

func (r *recordingNotifier) OrderPlaced(_ context.Context, e notify.OrderEvent) error {
	r.placed = append(r.placed, e)
	return r.err
}

func (r *recordingNotifier) OrderStatusChanged(_ context.Context, e notify.OrderEvent) error {
	r.changed = append(r.changed, e)
	return r.err
}

type memGuard struct {
	keys map[string]string
}

func newMemGuard() *memGuard { return &memGuard{keys: map[string]string{}} }

func (g *memGuard) Begin(_ context.Context, userID uuid.UUID, key string) (uuid.UUID, error) {
	k := checkoutKey(userID, key)
	v, ok := g.keys[k]
	if !ok {
		g.keys[k] = checkoutPending
		return uuid.Nil, nil
	}
	if v == checkoutPending {
		return uuid.Nil, ErrCheckoutInProgress
	}
	return uuid.MustParse(v), nil
}

func (g *memGuard) Complete(_ context.Context, userID uuid.UUID, key string, orderID uuid.UUID) error {
	g.keys[checkoutKey(userID, key)] = orderID.String()
	return nil
}

func (g *memGuard) Abort(_ context.Context, userID uuid.UUID, key string) error {
	delete(g.keys, checkoutKey(userID, key))
	return nil
}

// --- fixtures ---

var fixedNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

func discardLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

// env wires every service over one memDB.
type env struct {
	db       *memDB
	logs     *bytes.Buffer
	media    *asset.LocalStorage
	users    *mockUserRepo
	carts    *mockCartRepo
	notifier *recordingNotifier
	guard    *memGuard

	accounts   *AccountService
	stores     *StoreService
	categories *CategoryService
	products   *ProductService
	cart       *CartService
	orders     *OrderService
	feedback   *FeedbackService
}

// roleHook mirrors the access.RoleSync observer without a cache. events
// records the hook calls, interleaved with commits when a recordingTx is used.
type roleHook struct {
	users  *mockUserRepo
	events *[]string
}

func (h roleHook) record(event string) {
	if h.events != nil {
		*h.events = append(*h.events, event)
	}
}

func (h roleHook) StoreCreated(ctx context.Context, store *model.Store) error {
	h.record("created")
	return h.users.AddToGroup(ctx, store.UserID, access.StoreOwner)
}

func (h roleHook) StoreDeleted(ctx context.Context, store *model.Store) error {
	h.record("deleted")
	return h.users.RemoveFromGroup(ctx, store.UserID, access.StoreOwner)
}

func (h roleHook) StoreCommitted(context.Context, *model.Store) {
	h.record("committed")
}

// recordingTx runs fn directly and logs "commit" when it succeeds.
type recordingTx struct{ events *[]string }

func (tx recordingTx) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := fn(ctx); err != nil {
		*tx.events = append(*tx.events, "rollback")
		return err
	}
	*tx.events = append(*tx.events, "commit")
	return nil
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db := newMemDB()
	e := &env{
		db:       db,
		logs:     &bytes.Buffer{},
		media:    asset.NewLocalStorage(t.TempDir(), "http://media.test/media", 1<<20),
		users:    &mockUserRepo{db: db},
		carts:    &mockCartRepo{db: db},
		notifier: &recordingNotifier{},
		guard:    newMemGuard(),
	}
	storeRepo := &mockStoreRepo{db: db}
	categoryRepo := &mockCategoryRepo{db: db}
	productRepo := &mockProductRepo{db: db}
	orderRepo := &mockOrderRepo{db: db}
	log := slog.New(slog.NewTextHandler(e.logs, nil))

	e.accounts = NewAccountService(e.users, e.carts, fakeTx{}, "test-secret", time.Hour, fixedClock)
	e.stores = NewStoreService(storeRepo, fakeTx{}, roleHook{users: e.users}, e.media, fixedClock, log)
	e.categories = NewCategoryService(categoryRepo, storeRepo)
	e.products = NewProductService(productRepo, categoryRepo, storeRepo, e.media, nil, time.Minute, log)
	e.cart = NewCartService(e.carts, productRepo, fakeTx{}, e.media)
	e.orders = NewOrderService(orderRepo, e.carts, storeRepo, fakeTx{}, e.guard, e.notifier, e.media, fixedClock, log)
	e.feedback = NewFeedbackService(&mockFeedbackRepo{db: db}, orderRepo, storeRepo)
	return e
}

// customer creates a user with a cart and returns their principal.
func (e *env) customer(t *testing.T, email string) access.Principal {
	t.Helper()
	user := &model.User{Email: email, Username: email, FirstName: "Maria", LastName: "Santos", Address: "Cebu City"}
	if err := e.users.Create(context.Background(), user); err != nil {
		t.Fatal(err)
	}
	if err := e.carts.Create(context.Background(), &model.Cart{UserID: user.ID}); err != nil {
		t.Fatal(err)
	}
	return e.principal(user.ID)
}

func (e *env) staff(t *testing.T) access.Principal {
	t.Helper()
	p := e.customer(t, "admin@example.com")
	e.db.users[p.UserID].IsStaff = true
	return e.principal(p.UserID)
}

// principal resolves the current groups of userID, like the middleware does.
func (e *env) principal(userID uuid.UUID) access.Principal {
	u := e.db.users[userID]
	groups, _ := e.users.GroupNames(context.Background(), userID)
	return access.NewPrincipal(userID, u.Email, u.IsStaff, groups)
}

type seededStore struct {
	owner    access.Principal
	store    *model.Store
	category *model.Category
}

// seedStore creates a store owned by a new user, with one category.
func (e *env) seedStore(t *testing.T, name string, fee string) seededStore {
	t.Helper()
	owner := e.customer(t, strings.ToLower(name)+"@owner.test")
	store := &model.Store{
		UserID: owner.UserID, Name: name, Email: strings.ToLower(name) + "@store.test", MobileNumber: "09171234567",
		DeliveryFee: decimal.RequireFromString(fee), OpeningTime: model.NewTimeOfDay(8, 0, 0),
		ClosingTime: model.NewTimeOfDay(20, 0, 0), Address: model.Address{City: "Cebu", Province: "Cebu"},
	}
	ctx := context.Background()
	if err := (&mockStoreRepo{db: e.db}).Create(ctx, store); err != nil {
		t.Fatal(err)
	}
	if err := e.users.AddToGroup(ctx, owner.UserID, access.StoreOwner); err != nil {
		t.Fatal(err)
	}
	category := &model.Category{StoreID: store.ID, Name: "Meals"}
	if err := (&mockCategoryRepo{db: e.db}).Create(ctx, category); err != nil {
		t.Fatal(err)
	}
	return seededStore{owner: e.principal(owner.UserID), store: store, category: category}
}

func (e *env) seedProduct(t *testing.T, s seededStore, name, price string) *model.Product {
	t.Helper()
	product := &model.Product{
		StoreID: s.store.ID, CategoryID: s.category.ID, Name: name,
		Price: decimal.RequireFromString(price), IsAvailable: true,
	}
	if err := (&mockProductRepo{db: e.db}).Create(context.Background(), product); err != nil {
		t.Fatal(err)
	}
	return product
}
