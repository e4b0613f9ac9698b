package repositories

import (
	"context"

	"inventory/internal/models"
)

// ProductRepository defines the interface for product data access.
type ProductRepository interface {
	GetAll(ctx context.Context) ([]models.Product, error)
	GetByID(ctx context.Context, id string) (*models.Product, error)
	GetBySKU(ctx context.Context, sku string) (*models.Product, error)
	Create(ctx context.Context, product *models.Product) error
	// Update writes only the fields set in in and returns the stored
	// product. Stock moved by the ledger meanwhile is never overwritten
	// unless in sets it.
	Update(ctx context.Context, id string, in models.ProductInput) (*models.Product, error)
	// Delete fails with apperr.ErrConflict while purchases reference the
	// product.
	Delete(ctx context.Context, id string) error
}

// CustomerRepository defines the interface for customer data access.
type CustomerRepository interface {
	GetAll(ctx context.Context) ([]models.Customer, error)
	GetByID(ctx context.Context, id string) (*models.Customer, error)
	Create(ctx context.Context, customer *models.Customer) error
	Update(ctx context.Context, customer *models.Customer) error
	// Delete fails with apperr.ErrConflict while purchases reference the
	// customer.
	Delete(ctx context.Context, id string) error
}

// PurchaseRepository defines the read side of purchases. Writes go through
// the StockLedger so that stock and purchase records change together.
type PurchaseRepository interface {
	GetAll(ctx context.Context) ([]models.Purchase, error)
	GetByID(ctx context.Context, id string) (*models.Purchase, error)
}

// UserRepository defines the interface for user data access.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByConfirmationToken(ctx context.Context, token string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
}

// StockChange is the outcome of a ledger operation.
type StockChange struct {
	Purchase models.Purchase
	// Stock holds the resulting stock of every product the operation
	// touched, keyed by product ID.
	Stock map[string]int
}

// StockLedger applies purchase writes together with the stock adjustment
// they imply. Each call is all-or-nothing and never drives stock negative.
type StockLedger interface {
	// RecordPurchase decrements the product's stock by the purchase
	// quantity and stores the purchase.
	RecordPurchase(ctx context.Context, purchase *models.Purchase) (*StockChange, error)
	// EditPurchase returns the old quantity to the old product and takes
	// the new quantity from the (possibly different) new product.
	EditPurchase(ctx context.Context, id string, change models.PurchaseChange) (*StockChange, error)
	// DeletePurchase returns the quantity to the product and removes the
	// purchase.
	DeletePurchase(ctx context.Context, id string) (*StockChange, error)
}

// Store bundles the repositories of one backend.
type Store struct {
	Products  ProductRepository
	Customers CustomerRepository
	Purchases PurchaseRepository
	Users     UserRepository
	Ledger    StockLedger

	closeFn func(ctx context.Context) error
}

// Close releases the backend's resources.
func (s *Store) Close(ctx context.Context) error {
	if s.closeFn == nil {
		return nil
	}
	return s.closeFn(ctx)
}
