package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"inventory/internal/access"
	"inventory/internal/apperr"
	"inventory/internal/cache"
	"inventory/internal/events"
	"inventory/internal/metrics"
	"inventory/internal/models"
	"inventory/internal/repositories"
)

// PurchaseService records purchases through the stock ledger and announces
// the resulting stock movements.
type PurchaseService struct {
	store     *repositories.Store
	cache     cache.ProductCache
	publisher events.Publisher
	metrics   *metrics.Metrics
}

// NewPurchaseService creates a new PurchaseService. Nil collaborators other
// than store are replaced by no-ops.
func NewPurchaseService(store *repositories.Store, c cache.ProductCache, publisher events.Publisher, m *metrics.Metrics) *PurchaseService {
	if c == nil {
		c = cache.Noop{}
	}
	if publisher == nil {
		publisher = events.Noop{}
	}
	return &PurchaseService{store: store, cache: c, publisher: publisher, metrics: m}
}

// ListPurchases returns every purchase with its customer and product
// attached where they still exist.
func (s *PurchaseService) ListPurchases(ctx context.Context, session models.Session) ([]models.Purchase, error) {
	if err := authorize(session, access.Purchases, access.View); err != nil {
		return nil, err
	}
	purchases, err := s.store.Purchases.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list purchases: %w", err)
	}
	customers := map[string]*models.Customer{}
	products := map[string]*models.Product{}
	for i := range purchases {
		if err := s.populate(ctx, &purchases[i], customers, products); err != nil {
			return nil, err
		}
	}
	return purchases, nil
}

func (s *PurchaseService) GetPurchase(ctx context.Context, session models.Session, id string) (*models.Purchase, error) {
	if err := authorize(session, access.Purchases, access.View); err != nil {
		return nil, err
	}
	purchase, err := s.store.Purchases.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.populate(ctx, purchase, map[string]*models.Customer{}, map[string]*models.Product{}); err != nil {
		return nil, err
	}
	return purchase, nil
}

// RecordPurchase takes the quantity from the product's stock and stores the
// purchase. Both happen or neither does.
func (s *PurchaseService) RecordPurchase(ctx context.Context, session models.Session, in models.PurchaseInput) (*models.Purchase, error) {
	const op = "record"
	if err := authorize(session, access.Purchases, access.Add); err != nil {
		s.count(op, err)
		return nil, err
	}
	fields := map[string]string{}
	if in.CustomerID == nil || strings.TrimSpace(*in.CustomerID) == "" {
		fields["customerId"] = "customerId is required"
	}
	if in.ProductID == nil || strings.TrimSpace(*in.ProductID) == "" {
		fields["productId"] = "productId is required"
	}
	if in.Quantity == nil {
		fields["quantity"] = "quantity is required"
	}
	if len(fields) > 0 {
		err := &apperr.ValidationError{Fields: fields}
		s.count(op, err)
		return nil, err
	}

	purchase := &models.Purchase{
		CustomerID: strings.TrimSpace(*in.CustomerID),
		ProductID:  strings.TrimSpace(*in.ProductID),
		Quantity:   *in.Quantity,
	}
	if in.Date != nil {
		purchase.Date = *in.Date
	}
	change, err := s.store.Ledger.RecordPurchase(ctx, purchase)
	s.count(op, err)
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.UnitsSold.Add(float64(change.Purchase.Quantity))
	}
	s.afterCommit(ctx, events.PurchaseRecorded, change)
	return s.view(ctx, change.Purchase)
}

// UpdatePurchase edits a purchase, moving stock between the old and new
// product as needed.
func (s *PurchaseService) UpdatePurchase(ctx context.Context, session models.Session, id string, in models.PurchaseInput) (*models.Purchase, error) {
	const op = "edit"
	if err := authorize(session, access.Purchases, access.Edit); err != nil {
		s.count(op, err)
		return nil, err
	}
	var change models.PurchaseChange
	if in.CustomerID != nil {
		change.CustomerID = strings.TrimSpace(*in.CustomerID)
	}
	if in.ProductID != nil {
		change.ProductID = strings.TrimSpace(*in.ProductID)
	}
	change.Quantity = in.Quantity
	change.Date = in.Date

	result, err := s.store.Ledger.EditPurchase(ctx, id, change)
	s.count(op, err)
	if err != nil {
		return nil, err
	}
	s.afterCommit(ctx, events.PurchaseUpdated, result)
	return s.view(ctx, result.Purchase)
}

// DeletePurchase removes a purchase and returns its quantity to stock.
func (s *PurchaseService) DeletePurchase(ctx context.Context, session models.Session, id string) error {
	const op = "delete"
	if err := authorize(session, access.Purchases, access.Delete); err != nil {
		s.count(op, err)
		return err
	}
	change, err := s.store.Ledger.DeletePurchase(ctx, id)
	s.count(op, err)
	if err != nil {
		return err
	}
	s.afterCommit(ctx, events.PurchaseDeleted, change)
	return nil
}

// afterCommit drops the product snapshot and publishes the movement. The
// ledger write already happened, so failures here are only logged.
func (s *PurchaseService) afterCommit(ctx context.Context, eventType string, change *repositories.StockChange) {
	s.cache.Invalidate(ctx)
	p := change.Purchase
	e := events.New(eventType, p.ID, p.CustomerID, p.ProductID, p.Quantity, change.Stock)
	if err := s.publisher.Publish(ctx, e); err != nil {
		log.Printf("Error publishing %s for purchase %s: %v", eventType, p.ID, err)
		if s.metrics != nil {
			s.metrics.EventsFailed.Inc()
		}
	}
}

func (s *PurchaseService) view(ctx context.Context, p models.Purchase) (*models.Purchase, error) {
	if err := s.populate(ctx, &p, map[string]*models.Customer{}, map[string]*models.Product{}); err != nil {
		return nil, err
	}
	return &p, nil
}

// populate attaches the referenced customer and product, memoising lookups
// in the given maps. Dangling references are left empty.
func (s *PurchaseService) populate(ctx context.Context, p *models.Purchase, customers map[string]*models.Customer, products map[string]*models.Product) error {
	c, ok := customers[p.CustomerID]
	if !ok {
		var err error
		c, err = s.store.Customers.GetByID(ctx, p.CustomerID)
		if err != nil && !errors.Is(err, apperr.ErrNotFound) {
			return fmt.Errorf("failed to load customer %s: %w", p.CustomerID, err)
		}
		customers[p.CustomerID] = c
	}
	p.Customer = c

	prod, ok := products[p.ProductID]
	if !ok {
		var err error
		prod, err = s.store.Products.GetByID(ctx, p.ProductID)
		if err != nil && !errors.Is(err, apperr.ErrNotFound) {
			return fmt.Errorf("failed to load product %s: %w", p.ProductID, err)
		}
		products[p.ProductID] = prod
	}
	p.Product = prod
	return nil
}

func (s *PurchaseService) count(op string, err error) {
	if s.metrics == nil {
		return
	}
	outcome := metrics.OutcomeOK
	switch {
	case err == nil:
	case errors.Is(err, apperr.ErrInsufficientStock):
		outcome = metrics.OutcomeInsufficientStock
	case errors.Is(err, apperr.ErrNotFound):
		outcome = metrics.OutcomeNotFound
	case errors.Is(err, apperr.ErrValidation):
		outcome = metrics.OutcomeInvalid
	case errors.Is(err, apperr.ErrForbidden):
		outcome = metrics.OutcomeForbidden
	default:
		outcome = metrics.OutcomeError
	}
	s.metrics.PurchaseOps.WithLabelValues(op, outcome).Inc()
}
