package models

import "time"

// Purchase joins a customer to a product with the quantity bought.
type Purchase struct {
	ID         string    `json:"id" gorm:"primaryKey;type:varchar(36)" bson:"_id"`
	CustomerID string    `json:"customerId" gorm:"index;type:varchar(36);not null" bson:"customerId" validate:"required"`
	ProductID  string    `json:"productId" gorm:"index;type:varchar(36);not null" bson:"productId" validate:"required"`
	Quantity   int       `json:"quantity" bson:"quantity" validate:"gte=1"`
	Date       time.Time `json:"date" bson:"date"`
	CreatedAt  time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt" bson:"updatedAt"`

	// Populated on read when the references still resolve. The constraints
	// keep referenced customers and products from being deleted.
	Customer *Customer `json:"customer,omitempty" gorm:"foreignKey:CustomerID;constraint:OnDelete:RESTRICT" bson:"-"`
	Product  *Product  `json:"product,omitempty" gorm:"foreignKey:ProductID;constraint:OnDelete:RESTRICT" bson:"-"`
}

// PurchaseInput is the body of a purchase create or update request.
type PurchaseInput struct {
	CustomerID *string    `json:"customerId"`
	ProductID  *string    `json:"productId"`
	Quantity   *int       `json:"quantity"`
	Date       *time.Time `json:"date"`
}

// PurchaseChange describes an edit to an existing purchase. Empty IDs and a
// nil quantity or date keep the stored value.
type PurchaseChange struct {
	CustomerID string
	ProductID  string
	Quantity   *int
	Date       *time.Time
}
