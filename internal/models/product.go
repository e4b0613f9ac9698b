package models

import (
	"strings"
	"time"

	"gorm.io/datatypes"
)

// Product categories accepted by the store.
const (
	CategoryElectronics = "Electronics"
	CategoryClothing    = "Clothing"
	CategoryFood        = "Food"
	CategoryBooks       = "Books"
	CategoryHome        = "Home"
	CategorySports      = "Sports"
	CategoryOther       = "Other"
)

// Categories lists every category in display order.
var Categories = []string{
	CategoryElectronics, CategoryClothing, CategoryFood, CategoryBooks,
	CategoryHome, CategorySports, CategoryOther,
}

const (
	PlaceholderImageURL = "https://via.placeholder.com/300"
	DefaultRating       = 5.0
)

// Product represents a product in the inventory.
type Product struct {
	ID          string                      `json:"id" gorm:"primaryKey;type:varchar(36)" bson:"_id"`
	Name        string                      `json:"name" gorm:"not null" bson:"name" validate:"required,max=200"`
	Description string                      `json:"description" bson:"description" validate:"max=2000"`
	Price       float64                     `json:"price" bson:"price" validate:"gte=0"`
	Category    string                      `json:"category" gorm:"index;type:varchar(32)" bson:"category" validate:"required,oneof=Electronics Clothing Food Books Home Sports Other"`
	Stock       int                         `json:"stock" bson:"stock" validate:"gte=0"`
	ImageURL    string                      `json:"imageUrl" bson:"imageUrl"`
	Brand       string                      `json:"brand,omitempty" bson:"brand,omitempty"`
	Rating      float64                     `json:"rating" bson:"rating" validate:"gte=0,lte=5"`
	Tags        datatypes.JSONSlice[string] `json:"tags" bson:"tags"`
	SKU         *string                     `json:"sku,omitempty" gorm:"uniqueIndex;type:varchar(64)" bson:"sku,omitempty"`
	IsActive    bool                        `json:"isActive" bson:"isActive"`
	CreatedAt   time.Time                   `json:"createdAt" bson:"createdAt"`
	UpdatedAt   time.Time                   `json:"updatedAt" bson:"updatedAt"`
}

// ProductInput is the body of a create or update request. Nil fields are
// left untouched on update and take their defaults on create.
type ProductInput struct {
	Name        *string   `json:"name"`
	Description *string   `json:"description"`
	Price       *float64  `json:"price"`
	Category    *string   `json:"category"`
	Stock       *int      `json:"stock"`
	ImageURL    *string   `json:"imageUrl"`
	Brand       *string   `json:"brand"`
	Rating      *float64  `json:"rating"`
	Tags        *[]string `json:"tags"`
	SKU         *string   `json:"sku"`
	IsActive    *bool     `json:"isActive"`
}

// NewProduct builds a product from the input with every default applied.
func (in ProductInput) NewProduct() Product {
	p := Product{
		Category: CategoryOther,
		ImageURL: PlaceholderImageURL,
		Rating:   DefaultRating,
		Tags:     datatypes.JSONSlice[string]{},
		IsActive: true,
	}
	in.ApplyTo(&p)
	return p
}

// ApplyTo copies the non-nil fields onto p.
func (in ProductInput) ApplyTo(p *Product) {
	if in.Name != nil {
		p.Name = strings.TrimSpace(*in.Name)
	}
	if in.Description != nil {
		p.Description = *in.Description
	}
	if in.Price != nil {
		p.Price = *in.Price
	}
	if in.Category != nil && *in.Category != "" {
		p.Category = *in.Category
	}
	if in.Stock != nil {
		p.Stock = *in.Stock
	}
	if in.ImageURL != nil {
		p.ImageURL = *in.ImageURL
		if p.ImageURL == "" {
			p.ImageURL = PlaceholderImageURL
		}
	}
	if in.Brand != nil {
		p.Brand = strings.TrimSpace(*in.Brand)
	}
	if in.Rating != nil {
		p.Rating = *in.Rating
	}
	if in.Tags != nil {
		p.Tags = append(datatypes.JSONSlice[string]{}, (*in.Tags)...)
	}
	if in.SKU != nil {
		if sku := strings.TrimSpace(*in.SKU); sku != "" {
			p.SKU = &sku
		} else {
			p.SKU = nil
		}
	}
	if in.IsActive != nil {
		p.IsActive = *in.IsActive
	}
}

// Fields lists the JSON names of the fields ApplyTo changes, in declaration
// order.
func (in ProductInput) Fields() []string {
	var fields []string
	add := func(set bool, name string) {
		if set {
			fields = append(fields, name)
		}
	}
	add(in.Name != nil, "name")
	add(in.Description != nil, "description")
	add(in.Price != nil, "price")
	add(in.Category != nil && *in.Category != "", "category")
	add(in.Stock != nil, "stock")
	add(in.ImageURL != nil, "imageUrl")
	add(in.Brand != nil, "brand")
	add(in.Rating != nil, "rating")
	add(in.Tags != nil, "tags")
	add(in.SKU != nil, "sku")
	add(in.IsActive != nil, "isActive")
	return fields
}

// ProductStats summarises a product set for the dashboard header.
type ProductStats struct {
	Total          int     `json:"total"`
	InventoryValue float64 `json:"inventoryValue"`
	LowStock       int     `json:"lowStock"`
	Categories     int     `json:"categories"`
}
