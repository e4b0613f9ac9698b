package services

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"inventory/internal/access"
	"inventory/internal/apperr"
	"inventory/internal/models"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report fields under their JSON names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

// validateStruct runs the validate tags of s and converts failures into an
// apperr.ValidationError keyed by field.
func validateStruct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate: %w", err)
	}
	fields := make(map[string]string, len(verrs))
	for _, e := range verrs {
		fields[e.Field()] = fmt.Sprintf("Field '%s' failed on the '%s' tag", e.Field(), e.Tag())
	}
	return &apperr.ValidationError{Fields: fields}
}

// authorize evaluates the access table for the caller.
func authorize(session models.Session, resource access.Resource, action access.Action) error {
	if session.Can(resource, action) {
		return nil
	}
	return fmt.Errorf("%w: role %s may not %s %s", apperr.ErrForbidden, session.EffectiveRole(), action, resource)
}
