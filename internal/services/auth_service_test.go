package services_test

import (
	"context"
	"fmt"
	"log"
	"os"
	"testing"
	"time"

	"inventory/internal/access"
	"inventory/internal/apperr"
	"inventory/internal/config"
	"inventory/internal/models"
	"inventory/internal/services"

	"github.com/dgrijalva/jwt-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testJWTSecret = "test_jwt_secret"

// TestMain is used to setup test environment
func TestMain(m *testing.M) {
	log.SetOutput(os.Stdout)
	os.Exit(m.Run())
}

func TestAuthService_Signup(t *testing.T) {
	mockRepo := new(MockUserRepository)
	authService := services.NewAuthService(mockRepo, testJWTSecret, time.Hour)
	ctx := context.Background()

	mockRepo.On("GetByEmail", mock.Anything, "new@example.com").Return(nil, apperr.NotFound("user", "new@example.com")).Once()
	mockRepo.On("Create", mock.Anything, mock.MatchedBy(func(u *models.User) bool {
		return u.Role == string(access.RoleViewer) && !u.Confirmed && u.ConfirmationToken != "" &&
			bcrypt.CompareHashAndPassword([]byte(u.Password), []byte("password123")) == nil
	})).Return(nil).Once()

	result, err := authService.Signup(ctx, models.SignupInput{Name: "New", Email: " New@Example.com ", Password: "password123"})
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", result.User.Email)
	assert.Equal(t, result.User.ConfirmationToken, result.ConfirmationToken)
	mockRepo.AssertExpectations(t)

	// Email already registered
	mockRepo.On("GetByEmail", mock.Anything, "new@example.com").Return(&models.User{ID: "1"}, nil).Once()
	_, err = authService.Signup(ctx, models.SignupInput{Name: "New", Email: "new@example.com", Password: "password123"})
	assert.ErrorIs(t, err, apperr.ErrConflict)
	assert.Contains(t, err.Error(), "email 'new@example.com' already registered")

	// Short password
	_, err = authService.Signup(ctx, models.SignupInput{Name: "New", Email: "new@example.com", Password: "123"})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestAuthService_Confirm(t *testing.T) {
	mockRepo := new(MockUserRepository)
	authService := services.NewAuthService(mockRepo, testJWTSecret, time.Hour)
	ctx := context.Background()

	user := &models.User{ID: "user-1", Email: "new@example.com", Role: "viewer", ConfirmationToken: "tok"}
	mockRepo.On("GetByConfirmationToken", mock.Anything, "tok").Return(user, nil).Once()
	mockRepo.On("Update", mock.Anything, mock.MatchedBy(func(u *models.User) bool {
		return u.Confirmed && u.ConfirmationToken == ""
	})).Return(nil).Once()

	confirmed, err := authService.Confirm(ctx, "tok")
	require.NoError(t, err)
	assert.True(t, confirmed.Confirmed)
	mockRepo.AssertExpectations(t)

	mockRepo.On("GetByConfirmationToken", mock.Anything, "tok").Return(nil, apperr.NotFound("user with confirmation token", "tok")).Once()
	_, err = authService.Confirm(ctx, "tok")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = authService.Confirm(ctx, "  ")
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestAuthService_Login(t *testing.T) {
	mockRepo := new(MockUserRepository)
	authService := services.NewAuthService(mockRepo, testJWTSecret, time.Hour)
	ctx := context.Background()

	hashedPassword, _ := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	user := &models.User{
		ID:        "user-123",
		Email:     "test@example.com",
		Password:  string(hashedPassword),
		Role:      "manager",
		Confirmed: true,
	}

	mockRepo.On("GetByEmail", mock.Anything, user.Email).Return(user, nil).Once()
	token, _, err := authService.Login(ctx, models.LoginInput{Email: "test@example.com", Password: "password123"})
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	parsedToken, err := jwt.Parse(token, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(testJWTSecret), nil
	})
	require.NoError(t, err)
	claims, ok := parsedToken.Claims.(jwt.MapClaims)
	assert.True(t, ok)
	assert.Equal(t, user.ID, claims["user_id"])
	assert.Equal(t, "manager", claims["role"])
	assert.Equal(t, true, claims["confirmed"])

	// Wrong password
	mockRepo.On("GetByEmail", mock.Anything, user.Email).Return(user, nil).Once()
	_, _, err = authService.Login(ctx, models.LoginInput{Email: "test@example.com", Password: "wrongpassword"})
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
	assert.Contains(t, err.Error(), "invalid credentials")

	// Unknown user gets the same answer
	mockRepo.On("GetByEmail", mock.Anything, "nobody@example.com").Return(nil, apperr.NotFound("user", "nobody@example.com")).Once()
	_, _, err = authService.Login(ctx, models.LoginInput{Email: "nobody@example.com", Password: "password123"})
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
	assert.Contains(t, err.Error(), "invalid credentials")
	mockRepo.AssertExpectations(t)
}

func TestAuthService_ValidateToken(t *testing.T) {
	authService := services.NewAuthService(new(MockUserRepository), testJWTSecret, time.Hour)

	sign := func(claims jwt.MapClaims, secret string) string {
		s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
		require.NoError(t, err)
		return s
	}

	session, err := authService.ValidateToken(sign(jwt.MapClaims{
		"user_id":   "user-123",
		"email":     "test@example.com",
		"role":      "viewer",
		"confirmed": true,
		"exp":       time.Now().Add(time.Hour).Unix(),
	}, testJWTSecret))
	require.NoError(t, err)
	assert.Equal(t, models.Session{UserID: "user-123", Email: "test@example.com", Role: access.RoleViewer, Confirmed: true}, session)

	// Unknown roles fall back to anonymous.
	session, err = authService.ValidateToken(sign(jwt.MapClaims{"user_id": "u", "role": "root", "confirmed": true}, testJWTSecret))
	require.NoError(t, err)
	assert.Equal(t, access.RoleAnonymous, session.Role)

	_, err = authService.ValidateToken("invalid.token.string")
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
	assert.Contains(t, err.Error(), "invalid token")

	_, err = authService.ValidateToken(sign(jwt.MapClaims{"user_id": "u", "exp": time.Now().Add(-time.Hour).Unix()}, testJWTSecret))
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)

	_, err = authService.ValidateToken(sign(jwt.MapClaims{"user_id": "u"}, "another_secret"))
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)

	_, err = authService.ValidateToken(sign(jwt.MapClaims{"role": "admin"}, testJWTSecret))
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
}

func TestAuthService_SeedAccounts(t *testing.T) {
	mockRepo := new(MockUserRepository)
	authService := services.NewAuthService(mockRepo, testJWTSecret, time.Hour)

	mockRepo.On("GetByEmail", mock.Anything, "admin@example.com").Return(nil, apperr.NotFound("user", "admin@example.com")).Once()
	mockRepo.On("GetByEmail", mock.Anything, "manager@example.com").Return(&models.User{ID: "m"}, nil).Once()
	mockRepo.On("Create", mock.Anything, mock.MatchedBy(func(u *models.User) bool {
		return u.Email == "admin@example.com" && u.Role == "admin" && u.Confirmed
	})).Return(nil).Once()

	err := authService.SeedAccounts(context.Background(), []config.Account{
		{Name: "Administrator", Email: "Admin@example.com", Password: "admin123", Role: "admin"},
		{Name: "Manager", Email: "manager@example.com", Password: "manager123", Role: "manager"},
	})
	require.NoError(t, err)
	mockRepo.AssertExpectations(t)
}
