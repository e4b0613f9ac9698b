package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"inventory/internal/apperr"
	"inventory/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GORMUserRepository is a GORM implementation of UserRepository.
type GORMUserRepository struct {
	db *gorm.DB
}

// NewGORMUserRepository creates a new instance of GORMUserRepository.
func NewGORMUserRepository(db *gorm.DB) *GORMUserRepository {
	return &GORMUserRepository{
		db: db,
	}
}

// Create creates a new user in the database.
func (r *GORMUserRepository) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	user.Email = strings.ToLower(user.Email)
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return wrapWriteErr("create user", err)
	}
	return nil
}

// GetByEmail retrieves a user by their email from the database.
func (r *GORMUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.first(ctx, "email", "email = ?", strings.ToLower(email))
}

// GetByID retrieves a user by their ID from the database.
func (r *GORMUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	return r.first(ctx, "ID", "id = ?", id)
}

// GetByConfirmationToken retrieves the unconfirmed user holding token.
func (r *GORMUserRepository) GetByConfirmationToken(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, apperr.NotFound("user with confirmation token", token)
	}
	return r.first(ctx, "confirmation token", "confirmation_token = ?", token)
}

func (r *GORMUserRepository) first(ctx context.Context, field, query, value string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, query, value).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("user with "+field, value)
		}
		return nil, fmt.Errorf("failed to get user by %s %s: %w", field, value, err)
	}
	return &user, nil
}

// Update writes every column of an existing user.
func (r *GORMUserRepository) Update(ctx context.Context, user *models.User) error {
	res := r.db.WithContext(ctx).Model(user).Select("*").Omit("created_at").Updates(user)
	if res.Error != nil {
		return wrapWriteErr("update user", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("user", user.ID)
	}
	return nil
}
