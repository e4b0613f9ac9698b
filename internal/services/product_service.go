package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"inventory/internal/access"
	"inventory/internal/apperr"
	"inventory/internal/cache"
	"inventory/internal/catalog"
	"inventory/internal/metrics"
	"inventory/internal/models"
	"inventory/internal/repositories"
)

// ProductService handles business logic related to products.
type ProductService struct {
	repo     repositories.ProductRepository
	cache    cache.ProductCache
	metrics  *metrics.Metrics
	lowStock int
}

// NewProductService creates a new ProductService. A nil cache disables
// caching; a nil m disables metrics.
func NewProductService(repo repositories.ProductRepository, c cache.ProductCache, m *metrics.Metrics, lowStockThreshold int) *ProductService {
	if c == nil {
		c = cache.Noop{}
	}
	return &ProductService{
		repo:     repo,
		cache:    c,
		metrics:  m,
		lowStock: lowStockThreshold,
	}
}

// all returns every product, from the snapshot cache when it holds one.
func (s *ProductService) all(ctx context.Context) ([]models.Product, error) {
	products, gen, ok := s.cache.Products(ctx)
	if ok {
		s.countCache("hit")
		return products, nil
	}
	s.countCache("miss")
	products, err := s.repo.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	// Filed under the generation seen before the read; a write that
	// invalidated meanwhile keeps this snapshot from being served.
	s.cache.StoreProducts(ctx, gen, products)
	return products, nil
}

func (s *ProductService) countCache(result string) {
	if s.metrics != nil {
		s.metrics.CacheRequests.WithLabelValues(result).Inc()
	}
}

// ListProducts returns the products matching q in the order q asks for.
func (s *ProductService) ListProducts(ctx context.Context, session models.Session, q catalog.Query) ([]models.Product, error) {
	if err := authorize(session, access.Products, access.View); err != nil {
		return nil, err
	}
	products, err := s.all(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return catalog.Apply(products, q), nil
}

// Stats summarises the whole product set.
func (s *ProductService) Stats(ctx context.Context, session models.Session) (models.ProductStats, error) {
	if err := authorize(session, access.Products, access.View); err != nil {
		return models.ProductStats{}, err
	}
	products, err := s.all(ctx)
	if err != nil {
		return models.ProductStats{}, fmt.Errorf("failed to compute product stats: %w", err)
	}
	return catalog.Stats(products, s.lowStock), nil
}

// GetProduct retrieves a single product by its ID.
func (s *ProductService) GetProduct(ctx context.Context, session models.Session, id string) (*models.Product, error) {
	if err := authorize(session, access.Products, access.View); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, id)
}

// CreateProduct applies the defaults to in, validates and stores it.
func (s *ProductService) CreateProduct(ctx context.Context, session models.Session, in models.ProductInput) (*models.Product, error) {
	if err := authorize(session, access.Products, access.Add); err != nil {
		return nil, err
	}
	product := in.NewProduct()
	if err := validateStruct(product); err != nil {
		return nil, err
	}
	if err := s.ensureUniqueSKU(ctx, product.SKU, ""); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, &product); err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}
	s.cache.Invalidate(ctx)
	log.Printf("Product %s created by %s", product.ID, session.Email)
	return &product, nil
}

// UpdateProduct applies the non-nil fields of in to the stored product. Only
// those fields are written; stock changes only when in.Stock is set.
func (s *ProductService) UpdateProduct(ctx context.Context, session models.Session, id string, in models.ProductInput) (*models.Product, error) {
	if err := authorize(session, access.Products, access.Edit); err != nil {
		return nil, err
	}
	merged, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	// merged is validated only and never written back.
	in.ApplyTo(merged)
	if err := validateStruct(merged); err != nil {
		return nil, err
	}
	if in.SKU != nil {
		if err := s.ensureUniqueSKU(ctx, merged.SKU, id); err != nil {
			return nil, err
		}
	}
	product, err := s.repo.Update(ctx, id, in)
	if err != nil {
		return nil, fmt.Errorf("failed to update product %s: %w", id, err)
	}
	s.cache.Invalidate(ctx)
	return product, nil
}

// DeleteProduct removes a product. Products still referenced by purchases
// cannot be deleted; the repository checks that atomically with the delete.
func (s *ProductService) DeleteProduct(ctx context.Context, session models.Session, id string) error {
	if err := authorize(session, access.Products, access.Delete); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.cache.Invalidate(ctx)
	log.Printf("Product %s deleted by %s", id, session.Email)
	return nil
}

func (s *ProductService) ensureUniqueSKU(ctx context.Context, sku *string, selfID string) error {
	if sku == nil {
		return nil
	}
	existing, err := s.repo.GetBySKU(ctx, *sku)
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return nil
	case err != nil:
		return fmt.Errorf("failed to look up SKU %s: %w", *sku, err)
	case existing.ID != selfID:
		return fmt.Errorf("%w: SKU %s is already used by product %s", apperr.ErrConflict, *sku, existing.ID)
	}
	return nil
}
