package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"inventory/internal/access"
	"inventory/internal/apperr"
	"inventory/internal/config"
	"inventory/internal/models"
	"inventory/internal/repositories"

	"github.com/dgrijalva/jwt-go"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var errInvalidCredentials = fmt.Errorf("%w: invalid credentials", apperr.ErrUnauthorized)

// AuthService handles accounts and turns tokens into sessions.
type AuthService struct {
	userRepo  repositories.UserRepository
	jwtSecret []byte
	tokenTTL  time.Duration
	now       func() time.Time
}

// NewAuthService creates a new AuthService issuing tokens valid for tokenTTL.
func NewAuthService(userRepo repositories.UserRepository, jwtSecret string, tokenTTL time.Duration) *AuthService {
	return &AuthService{
		userRepo:  userRepo,
		jwtSecret: []byte(jwtSecret),
		tokenTTL:  tokenTTL,
		now:       time.Now,
	}
}

// SignupResult is a new account together with the token that confirms it.
// The token stands in for a confirmation e-mail.
type SignupResult struct {
	User              *models.User `json:"user"`
	ConfirmationToken string       `json:"confirmationToken"`
}

// Signup creates an unconfirmed viewer account.
func (s *AuthService) Signup(ctx context.Context, in models.SignupInput) (*SignupResult, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Name = strings.TrimSpace(in.Name)
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	if _, err := s.userRepo.GetByEmail(ctx, in.Email); err == nil {
		return nil, fmt.Errorf("%w: email '%s' already registered", apperr.ErrConflict, in.Email)
	} else if !errors.Is(err, apperr.ErrNotFound) {
		return nil, err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	user := &models.User{
		Name:              in.Name,
		Email:             in.Email,
		Password:          string(hashed),
		Role:              string(access.RoleViewer),
		ConfirmationToken: uuid.NewString(),
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to register user: %w", err)
	}
	return &SignupResult{User: user, ConfirmationToken: user.ConfirmationToken}, nil
}

// Confirm marks the account holding token as confirmed. Tokens are single use.
func (s *AuthService) Confirm(ctx context.Context, token string) (*models.User, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, apperr.Invalid("token", "token is required")
	}
	user, err := s.userRepo.GetByConfirmationToken(ctx, token)
	if err != nil {
		return nil, err
	}
	user.Confirmed = true
	user.ConfirmationToken = ""
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to confirm user %s: %w", user.ID, err)
	}
	return user, nil
}

// Login checks the credentials and returns a signed token. Unconfirmed
// accounts may sign in but their sessions carry no privileges.
func (s *AuthService) Login(ctx context.Context, in models.LoginInput) (string, *models.User, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if err := validateStruct(in); err != nil {
		return "", nil, err
	}
	user, err := s.userRepo.GetByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return "", nil, errInvalidCredentials
		}
		return "", nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(in.Password)); err != nil {
		return "", nil, errInvalidCredentials
	}

	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id":   user.ID,
		"email":     user.Email,
		"role":      user.Role,
		"confirmed": user.Confirmed,
		"exp":       now.Add(s.tokenTTL).Unix(),
		"iat":       now.Unix(),
	})
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", nil, fmt.Errorf("failed to generate token: %w", err)
	}
	return signed, user, nil
}

// ValidateToken parses a token issued by Login into a Session.
func (s *AuthService) ValidateToken(tokenString string) (models.Session, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return models.Session{}, fmt.Errorf("%w: invalid token: %v", apperr.ErrUnauthorized, err)
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return models.Session{}, fmt.Errorf("%w: invalid token", apperr.ErrUnauthorized)
	}

	userID, _ := claims["user_id"].(string)
	if userID == "" {
		return models.Session{}, fmt.Errorf("%w: token has no subject", apperr.ErrUnauthorized)
	}
	email, _ := claims["email"].(string)
	role, _ := claims["role"].(string)
	confirmed, _ := claims["confirmed"].(bool)
	return models.Session{
		UserID:    userID,
		Email:     email,
		Role:      access.ParseRole(role),
		Confirmed: confirmed,
	}, nil
}

// SeedAccounts creates the configured accounts that do not exist yet. They
// are stored confirmed.
func (s *AuthService) SeedAccounts(ctx context.Context, accounts []config.Account) error {
	for _, a := range accounts {
		email := strings.ToLower(strings.TrimSpace(a.Email))
		_, err := s.userRepo.GetByEmail(ctx, email)
		if err == nil {
			continue
		}
		if !errors.Is(err, apperr.ErrNotFound) {
			return err
		}
		hashed, err := bcrypt.GenerateFromPassword([]byte(a.Password), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("failed to hash password for %s: %w", email, err)
		}
		user := &models.User{
			Name:      a.Name,
			Email:     email,
			Password:  string(hashed),
			Role:      string(access.ParseRole(a.Role)),
			Confirmed: true,
		}
		if err := s.userRepo.Create(ctx, user); err != nil {
			return fmt.Errorf("failed to seed account %s: %w", email, err)
		}
		log.Printf("Seeded %s account %s", user.Role, email)
	}
	return nil
}
