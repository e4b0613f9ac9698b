package models

import (
	"strings"
	"time"
)

// Customer represents a buyer that purchases reference.
type Customer struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(36)" bson:"_id"`
	Name      string    `json:"name" gorm:"not null" bson:"name" validate:"required,max=200"`
	Email     string    `json:"email" gorm:"type:varchar(255)" bson:"email" validate:"required,email"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updatedAt"`
}

// CustomerInput is the body of a customer create or update request.
type CustomerInput struct {
	Name  *string `json:"name"`
	Email *string `json:"email"`
}

// ApplyTo copies the non-nil fields onto c.
func (in CustomerInput) ApplyTo(c *Customer) {
	if in.Name != nil {
		c.Name = strings.TrimSpace(*in.Name)
	}
	if in.Email != nil {
		c.Email = strings.TrimSpace(*in.Email)
	}
}
