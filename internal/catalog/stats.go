package catalog

import (
	"inventory/internal/models"

	"github.com/shopspring/decimal"
)

// DefaultLowStockThreshold marks products with fewer units as low on stock.
const DefaultLowStockThreshold = 50

// Stats summarises products. Inventory value is the sum of price times stock,
// rounded to cents.
func Stats(products []models.Product, lowStockThreshold int) models.ProductStats {
	value := decimal.Zero
	categories := make(map[string]struct{})
	lowStock := 0
	for _, p := range products {
		value = value.Add(decimal.NewFromFloat(p.Price).Mul(decimal.NewFromInt(int64(p.Stock))))
		categories[p.Category] = struct{}{}
		if p.Stock < lowStockThreshold {
			lowStock++
		}
	}
	return models.ProductStats{
		Total:          len(products),
		InventoryValue: value.Round(2).InexactFloat64(),
		LowStock:       lowStock,
		Categories:     len(categories),
	}
}
