// Package validation provides request validation utilities using the validator/v10 library.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/collabnotes/collabnotes-server/internal/domain"
	domainerrors "github.com/collabnotes/collabnotes-server/internal/errors"
)

// Validator wraps go-playground/validator with domain error conversion.
type Validator struct {
	v *validator.Validate
}

// New creates a validator configured for our domain.
//
// Besides the built-in tags it understands visibility, theme and language,
// which accept the values of the matching domain enums, and notblank, which
// rejects strings made only of whitespace.
func New() *Validator {
	v := validator.New()

	// Use JSON tag names in error messages
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})

	mustRegister(v, "visibility", func(fl validator.FieldLevel) bool {
		return domain.Visibility(fl.Field().String()).Valid()
	})
	mustRegister(v, "theme", func(fl validator.FieldLevel) bool {
		return domain.Theme(fl.Field().String()).Valid()
	})
	mustRegister(v, "language", func(fl validator.FieldLevel) bool {
		return domain.Language(fl.Field().String()).Valid()
	})
	mustRegister(v, "notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})

	return &Validator{v: v}
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("register %s validation: %v", tag, err))
	}
}

// Validate validates a struct and returns a domain error.
func (v *Validator) Validate(s any) error {
	if err := v.v.Struct(s); err != nil {
		return v.formatError(err)
	}
	return nil
}

// Var validates a single value against a tag string, reporting it under field.
func (v *Validator) Var(field string, value any, tag string) error {
	err := v.v.Var(value, tag)
	if err == nil {
		return nil
	}
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) || len(validationErrs) == 0 {
		return err
	}
	return domainerrors.ValidationWithDetails(
		fmt.Sprintf("%s %s", field, friendlyMessage(validationErrs[0])),
		map[string]string{field: friendlyMessage(validationErrs[0])},
	)
}

// formatError converts validator errors to domain errors.
// A single failure is named in the message; details always list every field.
func (v *Validator) formatError(err error) error {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return err
	}

	fieldErrors := make(map[string]string, len(validationErrs))
	for _, e := range validationErrs {
		fieldErrors[fieldPath(e)] = friendlyMessage(e)
	}

	msg := "validation failed"
	if len(validationErrs) == 1 {
		e := validationErrs[0]
		msg = fmt.Sprintf("%s %s", fieldPath(e), friendlyMessage(e))
	}
	return domainerrors.ValidationWithDetails(msg, fieldErrors)
}

// fieldPath returns the JSON path of the field without the top-level struct name.
func fieldPath(e validator.FieldError) string {
	ns := e.Namespace()
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return e.Field()
}

//nolint:gocyclo // Switch statement covering validation tags is intentionally exhaustive.
func friendlyMessage(e validator.FieldError) string {
	unit := "characters"
	if k := e.Kind(); k == reflect.Slice || k == reflect.Array || k == reflect.Map {
		unit = "items"
	}

	switch e.Tag() {
	case "required":
		return "is required"
	case "notblank":
		return "must not be blank"
	case "email":
		return "must be a valid email address"
	case "min":
		return fmt.Sprintf("must be at least %s %s", e.Param(), unit)
	case "max":
		return fmt.Sprintf("must not exceed %s %s", e.Param(), unit)
	case "len":
		return fmt.Sprintf("must be exactly %s %s", e.Param(), unit)
	case "url":
		return "must be a valid URL"
	case "oneof":
		return "must be one of: " + e.Param()
	case "visibility":
		return "must be one of: PRIVATE SHARED PUBLIC"
	case "theme":
		return "must be one of: light dark system"
	case "language":
		return "must be one of: fr en"
	case "gte":
		return "must be greater than or equal to " + e.Param()
	case "lte":
		return "must be less than or equal to " + e.Param()
	default:
		return "is invalid"
	}
}
