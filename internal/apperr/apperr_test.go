package apperr_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"inventory/internal/apperr"

	"github.com/stretchr/testify/assert"
)

func TestStatusCode(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, http.StatusOK},
		{"validation", apperr.Invalid("name", "name is required"), http.StatusBadRequest},
		{"not found", apperr.NotFound("product", "p-1"), http.StatusNotFound},
		{"wrapped not found", fmt.Errorf("load: %w", apperr.NotFound("customer", "c-1")), http.StatusNotFound},
		{"stock", &apperr.InsufficientStockError{ProductID: "p-1", Requested: 7, Available: 6}, http.StatusConflict},
		{"conflict", fmt.Errorf("sku taken: %w", apperr.ErrConflict), http.StatusConflict},
		{"unauthorized", apperr.ErrUnauthorized, http.StatusUnauthorized},
		{"forbidden", apperr.ErrForbidden, http.StatusForbidden},
		{"other", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, apperr.StatusCode(tc.err))
		})
	}
}

func TestInsufficientStockError(t *testing.T) {
	err := fmt.Errorf("record purchase: %w", &apperr.InsufficientStockError{ProductID: "p-1", Requested: 7, Available: 6})

	assert.ErrorIs(t, err, apperr.ErrInsufficientStock)
	var stockErr *apperr.InsufficientStockError
	assert.True(t, errors.As(err, &stockErr))
	assert.Equal(t, 6, stockErr.Available)
	assert.Contains(t, err.Error(), "requested: 7, available: 6")
}

func TestValidationErrorMessageIsSorted(t *testing.T) {
	err := &apperr.ValidationError{Fields: map[string]string{"price": "price must be >= 0", "name": "name is required"}}
	assert.Equal(t, "validation failed: name is required; price must be >= 0", err.Error())
	assert.ErrorIs(t, err, apperr.ErrValidation)
}
