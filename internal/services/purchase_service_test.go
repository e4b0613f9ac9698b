package services_test

import (
	"context"
	"testing"

	"inventory/internal/apperr"
	"inventory/internal/events"
	"inventory/internal/metrics"
	"inventory/internal/models"
	"inventory/internal/repositories"
	"inventory/internal/services"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

type purchaseFixture struct {
	store     *repositories.Store
	service   *services.PurchaseService
	publisher *recordingPublisher
	metrics   *metrics.Metrics
	product   models.Product
	customer  models.Customer
}

func newPurchaseFixture(t *testing.T, stock int) *purchaseFixture {
	t.Helper()
	ctx := context.Background()
	store := repositories.NewMemoryStore().Store()

	product := models.Product{Name: "Widget", Category: models.CategoryOther, Stock: stock}
	require.NoError(t, store.Products.Create(ctx, &product))
	customer := models.Customer{Name: "Ann", Email: "ann@example.com"}
	require.NoError(t, store.Customers.Create(ctx, &customer))

	pub := &recordingPublisher{}
	m := metrics.New()
	return &purchaseFixture{
		store:     store,
		service:   services.NewPurchaseService(store, nil, pub, m),
		publisher: pub,
		metrics:   m,
		product:   product,
		customer:  customer,
	}
}

func (f *purchaseFixture) stock(t *testing.T) int {
	t.Helper()
	p, err := f.store.Products.GetByID(context.Background(), f.product.ID)
	require.NoError(t, err)
	return p.Stock
}

func TestPurchaseService_RecordPurchase(t *testing.T) {
	f := newPurchaseFixture(t, 10)
	ctx := context.Background()

	purchase, err := f.service.RecordPurchase(ctx, manager, models.PurchaseInput{
		CustomerID: ptr(f.customer.ID), ProductID: ptr(f.product.ID), Quantity: ptr(4),
	})
	require.NoError(t, err)
	assert.Equal(t, 6, f.stock(t))
	require.NotNil(t, purchase.Customer)
	require.NotNil(t, purchase.Product)
	assert.Equal(t, "Ann", purchase.Customer.Name)
	assert.Equal(t, 6, purchase.Product.Stock)

	require.Len(t, f.publisher.events, 1)
	assert.Equal(t, events.PurchaseRecorded, f.publisher.events[0].Type)
	assert.Equal(t, map[string]int{f.product.ID: 6}, f.publisher.events[0].Stock)
	assert.Equal(t, 4.0, testutil.ToFloat64(f.metrics.UnitsSold))

	_, err = f.service.RecordPurchase(ctx, manager, models.PurchaseInput{
		CustomerID: ptr(f.customer.ID), ProductID: ptr(f.product.ID), Quantity: ptr(7),
	})
	var stockErr *apperr.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, 6, stockErr.Available)
	assert.Equal(t, 6, f.stock(t))
	assert.Len(t, f.publisher.events, 1)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.PurchaseOps.WithLabelValues("record", metrics.OutcomeInsufficientStock)))
}

func TestPurchaseService_RecordPurchaseValidation(t *testing.T) {
	f := newPurchaseFixture(t, 10)

	_, err := f.service.RecordPurchase(context.Background(), admin, models.PurchaseInput{ProductID: ptr(f.product.ID)})
	var verr *apperr.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "customerId")
	assert.Contains(t, verr.Fields, "quantity")

	_, err = f.service.RecordPurchase(context.Background(), admin, models.PurchaseInput{
		CustomerID: ptr(f.customer.ID), ProductID: ptr(f.product.ID), Quantity: ptr(0),
	})
	assert.ErrorIs(t, err, apperr.ErrValidation)
	assert.Equal(t, 10, f.stock(t))
}

func TestPurchaseService_UpdateAndDelete(t *testing.T) {
	f := newPurchaseFixture(t, 10)
	ctx := context.Background()

	purchase, err := f.service.RecordPurchase(ctx, admin, models.PurchaseInput{
		CustomerID: ptr(f.customer.ID), ProductID: ptr(f.product.ID), Quantity: ptr(3),
	})
	require.NoError(t, err)

	updated, err := f.service.UpdatePurchase(ctx, manager, purchase.ID, models.PurchaseInput{Quantity: ptr(5)})
	require.NoError(t, err)
	assert.Equal(t, 5, updated.Quantity)
	assert.Equal(t, 5, f.stock(t))

	// Managers may not delete purchases.
	err = f.service.DeletePurchase(ctx, manager, purchase.ID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	require.NoError(t, f.service.DeletePurchase(ctx, admin, purchase.ID))
	assert.Equal(t, 10, f.stock(t))
	assert.ErrorIs(t, f.service.DeletePurchase(ctx, admin, purchase.ID), apperr.ErrNotFound)

	types := []string{}
	for _, e := range f.publisher.events {
		types = append(types, e.Type)
	}
	assert.Equal(t, []string{events.PurchaseRecorded, events.PurchaseUpdated, events.PurchaseDeleted}, types)
}

func TestPurchaseService_ListPurchasesPopulates(t *testing.T) {
	f := newPurchaseFixture(t, 10)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := f.service.RecordPurchase(ctx, admin, models.PurchaseInput{
			CustomerID: ptr(f.customer.ID), ProductID: ptr(f.product.ID), Quantity: ptr(1),
		})
		require.NoError(t, err)
	}

	purchases, err := f.service.ListPurchases(ctx, viewer)
	require.NoError(t, err)
	require.Len(t, purchases, 2)
	for _, p := range purchases {
		require.NotNil(t, p.Customer)
		require.NotNil(t, p.Product)
		assert.Equal(t, f.product.ID, p.Product.ID)
	}

	_, err = f.service.ListPurchases(ctx, unconfirmed)
	assert.ErrorIs(t, err, apperr.ErrForbidden)
}
