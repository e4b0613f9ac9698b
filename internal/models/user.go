package models

import (
	"time"

	"inventory/internal/access"
)

// User is an account that can sign in to the API.
type User struct {
	ID                string    `json:"id" gorm:"primaryKey;type:varchar(36)" bson:"_id"`
	Name              string    `json:"name" bson:"name" validate:"required,max=100"`
	Email             string    `json:"email" gorm:"uniqueIndex;type:varchar(255)" bson:"email" validate:"required,email"`
	Password          string    `json:"-" gorm:"type:varchar(255)" bson:"password" validate:"required,min=6"`
	Role              string    `json:"role" gorm:"type:varchar(16)" bson:"role"`
	Confirmed         bool      `json:"confirmed" bson:"confirmed"`
	ConfirmationToken string    `json:"-" gorm:"index;type:varchar(64)" bson:"confirmationToken,omitempty"`
	CreatedAt         time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt" bson:"updatedAt"`
}

// Session is the authenticated caller of an operation. It is built from a
// validated token and passed explicitly to every service call.
type Session struct {
	UserID    string      `json:"userId"`
	Email     string      `json:"email"`
	Role      access.Role `json:"role"`
	Confirmed bool        `json:"confirmed"`
}

// EffectiveRole is the role used for access checks. Accounts that have not
// been confirmed yet carry no privileges.
func (s Session) EffectiveRole() access.Role {
	if !s.Confirmed {
		return access.RoleAnonymous
	}
	return s.Role
}

// Can evaluates the access table for this session.
func (s Session) Can(resource access.Resource, action access.Action) bool {
	return access.CanPerform(s.EffectiveRole(), resource, action)
}

// SignupInput is the body of a signup request.
type SignupInput struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// LoginInput is the body of a login request.
type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}
