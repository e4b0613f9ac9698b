package repositories

import (
	"fmt"
	"time"

	"inventory/internal/apperr"
	"inventory/internal/models"

	"github.com/google/uuid"
)

// preparePurchase fills the identifier and timestamps of a new purchase.
func preparePurchase(p *models.Purchase, now time.Time) error {
	if p.Quantity < 1 {
		return apperr.Invalid("quantity", fmt.Sprintf("quantity must be at least 1, got %d", p.Quantity))
	}
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if p.Date.IsZero() {
		p.Date = now
	}
	p.CreatedAt = now
	p.UpdatedAt = now
	return nil
}

// applyChange returns the purchase as it will look after change.
func applyChange(p models.Purchase, change models.PurchaseChange, now time.Time) (models.Purchase, error) {
	if change.CustomerID != "" {
		p.CustomerID = change.CustomerID
	}
	if change.ProductID != "" {
		p.ProductID = change.ProductID
	}
	if change.Quantity != nil {
		p.Quantity = *change.Quantity
	}
	if change.Date != nil {
		p.Date = *change.Date
	}
	if p.Quantity < 1 {
		return p, apperr.Invalid("quantity", fmt.Sprintf("quantity must be at least 1, got %d", p.Quantity))
	}
	p.UpdatedAt = now
	p.Customer = nil
	p.Product = nil
	return p, nil
}

// referencedErr reports a record that purchases still point at.
func referencedErr(kind, id string, n int64) error {
	return fmt.Errorf("%w: %s %s is referenced by %d purchase(s)", apperr.ErrConflict, kind, id, n)
}
