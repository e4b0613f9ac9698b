package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"inventory/internal/apperr"
	"inventory/internal/models"

	"gorm.io/gorm"
)

// GORMStockLedger runs every purchase write and its stock adjustment in one
// SQL transaction. Decrements are conditional updates
// (stock = stock - n WHERE stock >= n), so concurrent buyers cannot both
// consume the same units.
type GORMStockLedger struct {
	db  *gorm.DB
	now func() time.Time
}

// NewGORMStockLedger creates a new instance of GORMStockLedger.
func NewGORMStockLedger(db *gorm.DB) *GORMStockLedger {
	return &GORMStockLedger{db: db, now: time.Now}
}

func (l *GORMStockLedger) RecordPurchase(ctx context.Context, purchase *models.Purchase) (*StockChange, error) {
	var change *StockChange
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := l.now()
		if err := customerExists(tx, purchase.CustomerID); err != nil {
			return err
		}
		if err := preparePurchase(purchase, now); err != nil {
			return err
		}
		stock, err := takeStock(tx, purchase.ProductID, purchase.Quantity, now)
		if err != nil {
			return err
		}
		if err := tx.Create(purchase).Error; err != nil {
			return wrapWriteErr("create purchase", err)
		}
		change = &StockChange{Purchase: *purchase, Stock: map[string]int{purchase.ProductID: stock}}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return change, nil
}

func (l *GORMStockLedger) EditPurchase(ctx context.Context, id string, edit models.PurchaseChange) (*StockChange, error) {
	var change *StockChange
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := l.now()
		var old models.Purchase
		if err := tx.First(&old, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("purchase", id)
			}
			return fmt.Errorf("failed to load purchase %s: %w", id, err)
		}
		updated, err := applyChange(old, edit, now)
		if err != nil {
			return err
		}
		if updated.CustomerID != old.CustomerID {
			if err := customerExists(tx, updated.CustomerID); err != nil {
				return err
			}
		}

		stock := map[string]int{}
		restored, found, err := returnStock(tx, old.ProductID, old.Quantity, now)
		if err != nil {
			return err
		}
		if found {
			stock[old.ProductID] = restored
		}
		taken, err := takeStock(tx, updated.ProductID, updated.Quantity, now)
		if err != nil {
			return err
		}
		stock[updated.ProductID] = taken

		if err := tx.Save(&updated).Error; err != nil {
			return fmt.Errorf("failed to update purchase %s: %w", id, err)
		}
		change = &StockChange{Purchase: updated, Stock: stock}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return change, nil
}

func (l *GORMStockLedger) DeletePurchase(ctx context.Context, id string) (*StockChange, error) {
	var change *StockChange
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var purchase models.Purchase
		if err := tx.First(&purchase, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("purchase", id)
			}
			return fmt.Errorf("failed to load purchase %s: %w", id, err)
		}
		stock := map[string]int{}
		restored, found, err := returnStock(tx, purchase.ProductID, purchase.Quantity, l.now())
		if err != nil {
			return err
		}
		if found {
			stock[purchase.ProductID] = restored
		}
		if err := tx.Delete(&models.Purchase{}, "id = ?", id).Error; err != nil {
			return fmt.Errorf("failed to delete purchase %s: %w", id, err)
		}
		change = &StockChange{Purchase: purchase, Stock: stock}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return change, nil
}

func customerExists(tx *gorm.DB, id string) error {
	var customer models.Customer
	if err := tx.Select("id").First(&customer, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("customer", id)
		}
		return fmt.Errorf("failed to load customer %s: %w", id, err)
	}
	return nil
}

// takeStock decrements stock iff enough units are available and returns the
// new level.
func takeStock(tx *gorm.DB, productID string, qty int, now time.Time) (int, error) {
	res := tx.Model(&models.Product{}).
		Where("id = ? AND stock >= ?", productID, qty).
		Updates(map[string]any{"stock": gorm.Expr("stock - ?", qty), "updated_at": now})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to decrement stock of product %s: %w", productID, res.Error)
	}
	current, found, err := stockOf(tx, productID)
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, apperr.NotFound("product", productID)
	}
	if res.RowsAffected == 0 {
		return 0, &apperr.InsufficientStockError{ProductID: productID, Requested: qty, Available: current}
	}
	return current, nil
}

// returnStock increments stock. found is false when the product no longer
// exists.
func returnStock(tx *gorm.DB, productID string, qty int, now time.Time) (stock int, found bool, err error) {
	res := tx.Model(&models.Product{}).
		Where("id = ?", productID).
		Updates(map[string]any{"stock": gorm.Expr("stock + ?", qty), "updated_at": now})
	if res.Error != nil {
		return 0, false, fmt.Errorf("failed to restore stock of product %s: %w", productID, res.Error)
	}
	if res.RowsAffected == 0 {
		return 0, false, nil
	}
	return stockOf(tx, productID)
}

func stockOf(tx *gorm.DB, productID string) (int, bool, error) {
	var product models.Product
	if err := tx.Select("id", "stock").First(&product, "id = ?", productID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("failed to read stock of product %s: %w", productID, err)
	}
	return product.Stock, true, nil
}
