package main

import (
	"context"
	"errors"
	"log"

	"inventory/internal/access"
	"inventory/internal/apperr"
	"inventory/internal/models"
	"inventory/internal/services"
)

// seedSession is the caller used for demo data.
var seedSession = models.Session{UserID: "seed", Email: "seed@localhost", Role: access.RoleAdmin, Confirmed: true}

type demoProduct struct {
	sku, name, description, category, brand string
	price                                   float64
	stock                                   int
	tags                                    []string
}

var demoProducts = []demoProduct{
	{"ELEC-001", "Laptop", "High performance laptop", models.CategoryElectronics, "Acme", 1200.00, 10, []string{"computer"}},
	{"ELEC-002", "Keyboard", "Mechanical keyboard", models.CategoryElectronics, "Keyco", 75.00, 25, []string{"accessory"}},
	{"ELEC-003", "Mouse", "Ergonomic wireless mouse", models.CategoryElectronics, "Keyco", 25.00, 50, []string{"accessory"}},
	{"CLTH-001", "Rain jacket", "Waterproof shell", models.CategoryClothing, "Northwind", 89.90, 40, []string{"outdoor"}},
	{"BOOK-001", "The Go Programming Language", "Donovan and Kernighan", models.CategoryBooks, "", 39.99, 120, []string{"programming"}},
	{"HOME-001", "Espresso cup set", "Six porcelain cups", models.CategoryHome, "", 24.50, 80, nil},
}

// seedProducts creates the demo products. Products whose SKU already
// exists are skipped, so seeding twice is harmless.
func seedProducts(ctx context.Context, products *services.ProductService) {
	for _, d := range demoProducts {
		in := models.ProductInput{
			SKU:         &d.sku,
			Name:        &d.name,
			Description: &d.description,
			Category:    &d.category,
			Brand:       &d.brand,
			Price:       &d.price,
			Stock:       &d.stock,
		}
		if d.tags != nil {
			in.Tags = &d.tags
		}
		p, err := products.CreateProduct(ctx, seedSession, in)
		switch {
		case errors.Is(err, apperr.ErrConflict):
			log.Printf("Skipping product %s: already seeded", d.sku)
		case err != nil:
			log.Printf("Error seeding product %s: %v", d.name, err)
		default:
			log.Printf("Seeded product: %s (ID: %s)", p.Name, p.ID)
		}
	}
}
