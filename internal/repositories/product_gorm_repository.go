package repositories

import (
	"context"
	"errors"
	"fmt"

	"inventory/internal/apperr"
	"inventory/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// NewGORMStore builds a Store on top of a GORM connection. The connection
// should be opened with TranslateError so duplicate keys surface as
// gorm.ErrDuplicatedKey.
func NewGORMStore(db *gorm.DB) *Store {
	return &Store{
		Products:  NewGORMProductRepository(db),
		Customers: NewGORMCustomerRepository(db),
		Purchases: NewGORMPurchaseRepository(db),
		Users:     NewGORMUserRepository(db),
		Ledger:    NewGORMStockLedger(db),
		closeFn: func(context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		},
	}
}

// AutoMigrate creates or updates the tables of every model.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.Product{}, &models.Customer{}, &models.Purchase{}, &models.User{}); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

// wrapWriteErr maps driver errors of an insert or update.
func wrapWriteErr(op string, err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("failed to %s: %w", op, apperr.ErrConflict)
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}

// GORMProductRepository is a GORM implementation of ProductRepository.
type GORMProductRepository struct {
	db *gorm.DB
}

// NewGORMProductRepository creates a new instance of GORMProductRepository.
func NewGORMProductRepository(db *gorm.DB) *GORMProductRepository {
	return &GORMProductRepository{
		db: db,
	}
}

// GetAll retrieves all products in insertion order.
func (r *GORMProductRepository) GetAll(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	if err := r.db.WithContext(ctx).Order("created_at, id").Find(&products).Error; err != nil {
		return nil, fmt.Errorf("failed to get all products: %w", err)
	}
	return products, nil
}

// GetByID retrieves a single product by its ID from the database.
func (r *GORMProductRepository) GetByID(ctx context.Context, id string) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("product", id)
		}
		return nil, fmt.Errorf("failed to get product by ID %s: %w", id, err)
	}
	return &product, nil
}

// GetBySKU retrieves a single product by its SKU.
func (r *GORMProductRepository) GetBySKU(ctx context.Context, sku string) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).First(&product, "sku = ?", sku).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("product with SKU", sku)
		}
		return nil, fmt.Errorf("failed to get product by SKU %s: %w", sku, err)
	}
	return &product, nil
}

// Create creates a new product in the database.
func (r *GORMProductRepository) Create(ctx context.Context, product *models.Product) error {
	if product.ID == "" {
		product.ID = uuid.New().String()
	}
	if err := r.db.WithContext(ctx).Create(product).Error; err != nil {
		return wrapWriteErr("create product", err)
	}
	return nil
}

// productColumns maps ProductInput field names to columns.
var productColumns = map[string]string{
	"name":        "name",
	"description": "description",
	"price":       "price",
	"category":    "category",
	"stock":       "stock",
	"imageUrl":    "image_url",
	"brand":       "brand",
	"rating":      "rating",
	"tags":        "tags",
	"sku":         "sku",
	"isActive":    "is_active",
}

// Update writes the columns set in in and nothing else, so a concurrent
// ledger write to stock survives a rename.
func (r *GORMProductRepository) Update(ctx context.Context, id string, in models.ProductInput) (*models.Product, error) {
	values := models.Product{ID: id}
	in.ApplyTo(&values)
	columns := []string{"updated_at"}
	for _, field := range in.Fields() {
		columns = append(columns, productColumns[field])
	}

	var product models.Product
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Select writes zero values of the chosen columns too.
		res := tx.Model(&values).Select(columns).Updates(&values)
		if res.Error != nil {
			return wrapWriteErr("update product", res.Error)
		}
		if res.RowsAffected == 0 {
			return apperr.NotFound("product", id)
		}
		if err := tx.First(&product, "id = ?", id).Error; err != nil {
			return fmt.Errorf("failed to reload product %s: %w", id, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// Delete deletes a product that no purchase references.
func (r *GORMProductRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return deleteUnreferenced(tx, &models.Product{}, "product", "product_id", id)
	})
}

// deleteUnreferenced counts the purchases pointing at id and deletes the row
// in the same transaction. The purchases foreign keys reject a reference
// that commits in between.
func deleteUnreferenced(tx *gorm.DB, model any, kind, column, id string) error {
	var n int64
	if err := tx.Model(&models.Purchase{}).Where(column+" = ?", id).Count(&n).Error; err != nil {
		return fmt.Errorf("failed to count purchases of %s %s: %w", kind, id, err)
	}
	if n > 0 {
		return referencedErr(kind, id, n)
	}
	res := tx.Delete(model, "id = ?", id)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrForeignKeyViolated) {
			return fmt.Errorf("%w: %s %s is referenced by a purchase", apperr.ErrConflict, kind, id)
		}
		return fmt.Errorf("failed to delete %s: %w", kind, res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound(kind, id)
	}
	return nil
}

// GORMCustomerRepository is a GORM implementation of CustomerRepository.
type GORMCustomerRepository struct {
	db *gorm.DB
}

// NewGORMCustomerRepository creates a new instance of GORMCustomerRepository.
func NewGORMCustomerRepository(db *gorm.DB) *GORMCustomerRepository {
	return &GORMCustomerRepository{db: db}
}

func (r *GORMCustomerRepository) GetAll(ctx context.Context) ([]models.Customer, error) {
	var customers []models.Customer
	if err := r.db.WithContext(ctx).Order("created_at, id").Find(&customers).Error; err != nil {
		return nil, fmt.Errorf("failed to get all customers: %w", err)
	}
	return customers, nil
}

func (r *GORMCustomerRepository) GetByID(ctx context.Context, id string) (*models.Customer, error) {
	var customer models.Customer
	if err := r.db.WithContext(ctx).First(&customer, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("customer", id)
		}
		return nil, fmt.Errorf("failed to get customer by ID %s: %w", id, err)
	}
	return &customer, nil
}

func (r *GORMCustomerRepository) Create(ctx context.Context, customer *models.Customer) error {
	if customer.ID == "" {
		customer.ID = uuid.New().String()
	}
	if err := r.db.WithContext(ctx).Create(customer).Error; err != nil {
		return wrapWriteErr("create customer", err)
	}
	return nil
}

func (r *GORMCustomerRepository) Update(ctx context.Context, customer *models.Customer) error {
	res := r.db.WithContext(ctx).Model(customer).Select("*").Omit("created_at").Updates(customer)
	if res.Error != nil {
		return wrapWriteErr("update customer", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("customer", customer.ID)
	}
	return nil
}

func (r *GORMCustomerRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return deleteUnreferenced(tx, &models.Customer{}, "customer", "customer_id", id)
	})
}

// GORMPurchaseRepository is the read side of purchases on GORM.
type GORMPurchaseRepository struct {
	db *gorm.DB
}

// NewGORMPurchaseRepository creates a new instance of GORMPurchaseRepository.
func NewGORMPurchaseRepository(db *gorm.DB) *GORMPurchaseRepository {
	return &GORMPurchaseRepository{db: db}
}

func (r *GORMPurchaseRepository) GetAll(ctx context.Context) ([]models.Purchase, error) {
	var purchases []models.Purchase
	if err := r.db.WithContext(ctx).Order("created_at, id").Find(&purchases).Error; err != nil {
		return nil, fmt.Errorf("failed to get all purchases: %w", err)
	}
	return purchases, nil
}

func (r *GORMPurchaseRepository) GetByID(ctx context.Context, id string) (*models.Purchase, error) {
	var purchase models.Purchase
	if err := r.db.WithContext(ctx).First(&purchase, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("purchase", id)
		}
		return nil, fmt.Errorf("failed to get purchase by ID %s: %w", id, err)
	}
	return &purchase, nil
}
