package repositories

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"inventory/internal/apperr"
	"inventory/internal/models"

	"github.com/google/uuid"
)

// table is an insertion-ordered map of records.
type table[T any] struct {
	rows  map[string]T
	order []string
}

func newTable[T any]() *table[T] {
	return &table[T]{rows: make(map[string]T)}
}

func (t *table[T]) get(id string) (T, bool) {
	row, ok := t.rows[id]
	return row, ok
}

func (t *table[T]) put(id string, row T) {
	if _, ok := t.rows[id]; !ok {
		t.order = append(t.order, id)
	}
	t.rows[id] = row
}

func (t *table[T]) remove(id string) bool {
	if _, ok := t.rows[id]; !ok {
		return false
	}
	delete(t.rows, id)
	for i, v := range t.order {
		if v == id {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
	return true
}

func (t *table[T]) list() []T {
	out := make([]T, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, t.rows[id])
	}
	return out
}

// MemoryStore is an in-memory backend. A single lock guards every table, so
// ledger operations are atomic with respect to all other calls.
type MemoryStore struct {
	mu        sync.RWMutex
	products  *table[models.Product]
	customers *table[models.Customer]
	purchases *table[models.Purchase]
	users     *table[models.User]
	now       func() time.Time
}

// NewMemoryStore creates an empty in-memory backend.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		products:  newTable[models.Product](),
		customers: newTable[models.Customer](),
		purchases: newTable[models.Purchase](),
		users:     newTable[models.User](),
		now:       time.Now,
	}
}

// Store exposes the memory backend through the repository interfaces.
func (s *MemoryStore) Store() *Store {
	return &Store{
		Products:  memoryProducts{s},
		Customers: memoryCustomers{s},
		Purchases: memoryPurchases{s},
		Users:     memoryUsers{s},
		Ledger:    memoryLedger{s},
	}
}

type memoryProducts struct{ s *MemoryStore }

func (r memoryProducts) GetAll(_ context.Context) ([]models.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.s.products.list(), nil
}

func (r memoryProducts) GetByID(_ context.Context, id string) (*models.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	p, ok := r.s.products.get(id)
	if !ok {
		return nil, apperr.NotFound("product", id)
	}
	return &p, nil
}

func (r memoryProducts) GetBySKU(_ context.Context, sku string) (*models.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, p := range r.s.products.list() {
		if p.SKU != nil && *p.SKU == sku {
			return &p, nil
		}
	}
	return nil, apperr.NotFound("product with SKU", sku)
}

func (r memoryProducts) Create(_ context.Context, product *models.Product) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if product.ID == "" {
		product.ID = uuid.New().String()
	}
	now := r.s.now()
	if product.CreatedAt.IsZero() {
		product.CreatedAt = now
	}
	product.UpdatedAt = now
	r.s.products.put(product.ID, *product)
	return nil
}

func (r memoryProducts) Update(_ context.Context, id string, in models.ProductInput) (*models.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.products.get(id)
	if !ok {
		return nil, apperr.NotFound("product", id)
	}
	in.ApplyTo(&p)
	if p.SKU != nil {
		for _, other := range r.s.products.rows {
			if other.ID != id && other.SKU != nil && *other.SKU == *p.SKU {
				return nil, fmt.Errorf("failed to update product: %w", apperr.ErrConflict)
			}
		}
	}
	p.UpdatedAt = r.s.now()
	r.s.products.put(id, p)
	return &p, nil
}

func (r memoryProducts) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.products.get(id); !ok {
		return apperr.NotFound("product", id)
	}
	if n := r.s.references(func(p models.Purchase) bool { return p.ProductID == id }); n > 0 {
		return referencedErr("product", id, n)
	}
	r.s.products.remove(id)
	return nil
}

type memoryCustomers struct{ s *MemoryStore }

func (r memoryCustomers) GetAll(_ context.Context) ([]models.Customer, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.s.customers.list(), nil
}

func (r memoryCustomers) GetByID(_ context.Context, id string) (*models.Customer, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	c, ok := r.s.customers.get(id)
	if !ok {
		return nil, apperr.NotFound("customer", id)
	}
	return &c, nil
}

func (r memoryCustomers) Create(_ context.Context, customer *models.Customer) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if customer.ID == "" {
		customer.ID = uuid.New().String()
	}
	now := r.s.now()
	customer.CreatedAt = now
	customer.UpdatedAt = now
	r.s.customers.put(customer.ID, *customer)
	return nil
}

func (r memoryCustomers) Update(_ context.Context, customer *models.Customer) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	existing, ok := r.s.customers.get(customer.ID)
	if !ok {
		return apperr.NotFound("customer", customer.ID)
	}
	customer.CreatedAt = existing.CreatedAt
	customer.UpdatedAt = r.s.now()
	r.s.customers.put(customer.ID, *customer)
	return nil
}

func (r memoryCustomers) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.customers.get(id); !ok {
		return apperr.NotFound("customer", id)
	}
	if n := r.s.references(func(p models.Purchase) bool { return p.CustomerID == id }); n > 0 {
		return referencedErr("customer", id, n)
	}
	r.s.customers.remove(id)
	return nil
}

type memoryPurchases struct{ s *MemoryStore }

func (r memoryPurchases) GetAll(_ context.Context) ([]models.Purchase, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.s.purchases.list(), nil
}

func (r memoryPurchases) GetByID(_ context.Context, id string) (*models.Purchase, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	p, ok := r.s.purchases.get(id)
	if !ok {
		return nil, apperr.NotFound("purchase", id)
	}
	return &p, nil
}

// references counts the purchases matching match. Callers hold mu.
func (s *MemoryStore) references(match func(models.Purchase) bool) int64 {
	var n int64
	for _, p := range s.purchases.rows {
		if match(p) {
			n++
		}
	}
	return n
}

type memoryUsers struct{ s *MemoryStore }

func (r memoryUsers) Create(_ context.Context, user *models.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users.rows {
		if strings.EqualFold(u.Email, user.Email) {
			return apperr.ErrConflict
		}
	}
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	now := r.s.now()
	user.CreatedAt = now
	user.UpdatedAt = now
	r.s.users.put(user.ID, *user)
	return nil
}

func (r memoryUsers) GetByEmail(_ context.Context, email string) (*models.User, error) {
	return r.find("email", email, func(u models.User) bool { return strings.EqualFold(u.Email, email) })
}

func (r memoryUsers) GetByID(_ context.Context, id string) (*models.User, error) {
	return r.find("ID", id, func(u models.User) bool { return u.ID == id })
}

func (r memoryUsers) GetByConfirmationToken(_ context.Context, token string) (*models.User, error) {
	return r.find("confirmation token", token, func(u models.User) bool {
		return token != "" && u.ConfirmationToken == token
	})
}

func (r memoryUsers) find(field, value string, match func(models.User) bool) (*models.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, u := range r.s.users.list() {
		if match(u) {
			return &u, nil
		}
	}
	return nil, apperr.NotFound("user with "+field, value)
}

func (r memoryUsers) Update(_ context.Context, user *models.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	existing, ok := r.s.users.get(user.ID)
	if !ok {
		return apperr.NotFound("user", user.ID)
	}
	user.CreatedAt = existing.CreatedAt
	user.UpdatedAt = r.s.now()
	r.s.users.put(user.ID, *user)
	return nil
}

type memoryLedger struct{ s *MemoryStore }

func (l memoryLedger) RecordPurchase(_ context.Context, purchase *models.Purchase) (*StockChange, error) {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()

	now := l.s.now()
	if _, ok := l.s.purchases.get(purchase.ID); ok && purchase.ID != "" {
		return nil, fmt.Errorf("%w: purchase %s already exists", apperr.ErrConflict, purchase.ID)
	}
	if _, ok := l.s.customers.get(purchase.CustomerID); !ok {
		return nil, apperr.NotFound("customer", purchase.CustomerID)
	}
	product, ok := l.s.products.get(purchase.ProductID)
	if !ok {
		return nil, apperr.NotFound("product", purchase.ProductID)
	}
	if err := preparePurchase(purchase, now); err != nil {
		return nil, err
	}
	if purchase.Quantity > product.Stock {
		return nil, &apperr.InsufficientStockError{ProductID: product.ID, Requested: purchase.Quantity, Available: product.Stock}
	}

	product.Stock -= purchase.Quantity
	product.UpdatedAt = now
	l.s.products.put(product.ID, product)
	l.s.purchases.put(purchase.ID, *purchase)

	return &StockChange{Purchase: *purchase, Stock: map[string]int{product.ID: product.Stock}}, nil
}

func (l memoryLedger) EditPurchase(_ context.Context, id string, change models.PurchaseChange) (*StockChange, error) {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()

	now := l.s.now()
	old, ok := l.s.purchases.get(id)
	if !ok {
		return nil, apperr.NotFound("purchase", id)
	}
	updated, err := applyChange(old, change, now)
	if err != nil {
		return nil, err
	}
	if _, ok := l.s.customers.get(updated.CustomerID); !ok {
		return nil, apperr.NotFound("customer", updated.CustomerID)
	}

	// Work on copies; nothing is written until both sides check out.
	staged := map[string]models.Product{}
	if p, ok := l.s.products.get(old.ProductID); ok {
		p.Stock += old.Quantity
		staged[p.ID] = p
	}
	target, ok := staged[updated.ProductID]
	if !ok {
		if target, ok = l.s.products.get(updated.ProductID); !ok {
			return nil, apperr.NotFound("product", updated.ProductID)
		}
	}
	if updated.Quantity > target.Stock {
		return nil, &apperr.InsufficientStockError{ProductID: target.ID, Requested: updated.Quantity, Available: target.Stock}
	}
	target.Stock -= updated.Quantity
	staged[target.ID] = target

	stock := make(map[string]int, len(staged))
	for pid, p := range staged {
		p.UpdatedAt = now
		l.s.products.put(pid, p)
		stock[pid] = p.Stock
	}
	l.s.purchases.put(id, updated)

	return &StockChange{Purchase: updated, Stock: stock}, nil
}

func (l memoryLedger) DeletePurchase(_ context.Context, id string) (*StockChange, error) {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()

	purchase, ok := l.s.purchases.get(id)
	if !ok {
		return nil, apperr.NotFound("purchase", id)
	}
	stock := map[string]int{}
	if p, ok := l.s.products.get(purchase.ProductID); ok {
		p.Stock += purchase.Quantity
		p.UpdatedAt = l.s.now()
		l.s.products.put(p.ID, p)
		stock[p.ID] = p.Stock
	}
	l.s.purchases.remove(id)

	return &StockChange{Purchase: purchase, Stock: stock}, nil
}
