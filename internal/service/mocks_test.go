package service

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fjod/storefront/internal/cache"
	"github.com/fjod/storefront/internal/domain"
	"github.com/shopspring/decimal"
)

type mockCartRepository struct {
	m        sync.Mutex
	carts    map[string]*domain.Cart
	nextItem int64
	getCalls atomic.Int32
	err      error
}

func newMockCartRepository() *mockCartRepository {
	return &mockCartRepository{carts: map[string]*domain.Cart{}}
}

func (m *mockCartRepository) CreateCart(_ context.Context, cartID string, createdAt time.Time) (*domain.Cart, error) {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	m.carts[cartID] = &domain.Cart{ID: cartID, Items: []domain.CartItem{}, CreatedAt: createdAt}
	return m.carts[cartID], nil
}

func (m *mockCartRepository) CartExists(_ context.Context, cartID string) (bool, error) {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return false, m.err
	}
	_, ok := m.carts[cartID]
	return ok, nil
}

func (m *mockCartRepository) GetCart(_ context.Context, cartID string) (*domain.Cart, error) {
	m.getCalls.Add(1)
	time.Sleep(10 * time.Millisecond)
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	cart, ok := m.carts[cartID]
	if !ok {
		return nil, domain.ErrCartNotFound
	}
	return cart, nil
}

func (m *mockCartRepository) AddItem(_ context.Context, cartID string, productID int64, quantity int) (*domain.CartItem, error) {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	cart := m.carts[cartID]
	for i := range cart.Items {
		if cart.Items[i].Product.ID == productID {
			cart.Items[i].Quantity += quantity
			item := cart.Items[i]
			return &item, nil
		}
	}
	m.nextItem++
	item := domain.CartItem{
		ID:       m.nextItem,
		CartID:   cartID,
		Product:  domain.ProductSummary{ID: productID, UnitPrice: decimal.NewFromInt(10)},
		Quantity: quantity,
	}
	cart.Items = append(cart.Items, item)
	return &item, nil
}

func (m *mockCartRepository) UpdateItemQuantity(_ context.Context, cartID string, itemID int64, quantity int) (*domain.CartItem, error) {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	for i := range m.carts[cartID].Items {
		if m.carts[cartID].Items[i].ID == itemID {
			m.carts[cartID].Items[i].Quantity = quantity
			item := m.carts[cartID].Items[i]
			return &item, nil
		}
	}
	return nil, domain.ErrItemNotFound
}

func (m *mockCartRepository) RemoveItem(_ context.Context, cartID string, itemID int64) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return m.err
	}
	items := m.carts[cartID].Items
	for i := range items {
		if items[i].ID == itemID {
			m.carts[cartID].Items = append(items[:i], items[i+1:]...)
			return nil
		}
	}
	return domain.ErrItemNotFound
}

func (m *mockCartRepository) DeleteCart(_ context.Context, cartID string) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return m.err
	}
	if _, ok := m.carts[cartID]; !ok {
		return domain.ErrCartNotFound
	}
	delete(m.carts, cartID)
	return nil
}

type mockCatalog struct {
	products map[int64]decimal.Decimal
}

func (m *mockCatalog) ProductExists(_ context.Context, productID int64) (bool, error) {
	_, ok := m.products[productID]
	return ok, nil
}

func (m *mockCatalog) GetUnitPrice(_ context.Context, productID int64) (decimal.Decimal, error) {
	price, ok := m.products[productID]
	if !ok {
		return decimal.Zero, domain.ErrProductNotFound
	}
	return price, nil
}

type mockOrderRepository struct {
	m          sync.Mutex
	customers  map[string]*domain.Customer
	orders     map[int64]*domain.Order
	placeCalls int
	placeErr   error
	lastCartID string
	onPlace    func(cartID string)
}

func newMockOrderRepository() *mockOrderRepository {
	return &mockOrderRepository{
		customers: map[string]*domain.Customer{},
		orders:    map[int64]*domain.Order{},
	}
}

func (m *mockOrderRepository) GetOrCreateCustomer(_ context.Context, userID string) (*domain.Customer, error) {
	m.m.Lock()
	defer m.m.Unlock()
	return m.customer(userID), nil
}

func (m *mockOrderRepository) customer(userID string) *domain.Customer {
	if c, ok := m.customers[userID]; ok {
		return c
	}
	c := &domain.Customer{ID: int64(len(m.customers) + 1), UserID: userID, Membership: domain.MembershipBronze}
	m.customers[userID] = c
	return c
}

func (m *mockOrderRepository) PlaceOrder(_ context.Context, cartID, userID string, placedAt time.Time) (*domain.Order, error) {
	m.m.Lock()
	defer m.m.Unlock()
	m.placeCalls++
	m.lastCartID = cartID
	if m.placeErr != nil {
		return nil, m.placeErr
	}
	order := &domain.Order{
		ID:            int64(len(m.orders) + 1),
		CustomerID:    m.customer(userID).ID,
		PlacedAt:      placedAt,
		PaymentStatus: domain.PaymentStatusPending,
		Items: []domain.OrderItem{
			{ID: 1, Product: domain.ProductSummary{ID: 1}, UnitPrice: decimal.NewFromInt(10), Quantity: 2},
		},
	}
	m.orders[order.ID] = order
	if m.onPlace != nil {
		m.onPlace(cartID)
	}
	return order, nil
}

func (m *mockOrderRepository) GetOrder(_ context.Context, orderID int64) (*domain.Order, error) {
	m.m.Lock()
	defer m.m.Unlock()
	order, ok := m.orders[orderID]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	return order, nil
}

func (m *mockOrderRepository) ListOrdersByCustomer(_ context.Context, customerID int64) ([]*domain.Order, error) {
	m.m.Lock()
	defer m.m.Unlock()
	var out []*domain.Order
	for _, o := range m.orders {
		if o.CustomerID == customerID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (m *mockOrderRepository) UpdatePaymentStatus(_ context.Context, orderID int64, status domain.PaymentStatus) (*domain.Order, error) {
	m.m.Lock()
	defer m.m.Unlock()
	order, ok := m.orders[orderID]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	order.PaymentStatus = status
	return order, nil
}

type mockCache struct {
	m        sync.Mutex
	carts    map[string]*domain.Cart
	gone     map[string]bool
	deleted  []string
	setDelay time.Duration
}

func newMockCache() *mockCache {
	return &mockCache{carts: map[string]*domain.Cart{}, gone: map[string]bool{}}
}

func (m *mockCache) Get(_ context.Context, cartID string) (*domain.Cart, error) {
	m.m.Lock()
	defer m.m.Unlock()
	cart, ok := m.carts[cartID]
	if !ok {
		return nil, cache.ErrCacheMiss
	}
	return cart, nil
}

func (m *mockCache) Set(_ context.Context, cart *domain.Cart) error {
	m.m.Lock()
	delay := m.setDelay
	m.m.Unlock()
	time.Sleep(delay)

	m.m.Lock()
	defer m.m.Unlock()
	if m.gone[cart.ID] {
		return nil
	}
	m.carts[cart.ID] = cart
	return nil
}

func (m *mockCache) Delete(_ context.Context, cartID string) error {
	m.m.Lock()
	defer m.m.Unlock()
	delete(m.carts, cartID)
	m.deleted = append(m.deleted, cartID)
	return nil
}

func (m *mockCache) Tombstone(ctx context.Context, cartID string) error {
	m.m.Lock()
	m.gone[cartID] = true
	m.m.Unlock()
	return m.Delete(ctx, cartID)
}

func (m *mockCache) cached(cartID string) bool {
	m.m.Lock()
	defer m.m.Unlock()
	_, ok := m.carts[cartID]
	return ok
}

func (m *mockCache) wasDeleted(cartID string) bool {
	m.m.Lock()
	defer m.m.Unlock()
	for _, id := range m.deleted {
		if id == cartID {
			return true
		}
	}
	return false
}

func (m *mockCache) wasTombstoned(cartID string) bool {
	m.m.Lock()
	defer m.m.Unlock()
	return m.gone[cartID]
}

func (m *mockCache) resetDeletes() {
	m.m.Lock()
	defer m.m.Unlock()
	m.deleted = nil
}
