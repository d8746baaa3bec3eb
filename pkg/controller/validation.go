package controller

import (
	"errors"
	"net/http"
	"reflect"
)

// Validator is implemented by request DTOs that check their own shape.
type Validator interface {
	Validate() error
}

// Binder is the part of router.Context Bind needs.
type Binder interface {
	Bind(v interface{}) error
}

// Bind decodes the request body into dto and validates it. Decode failures
// become a 400 validation error; Validate errors are returned unchanged so
// MapError can classify them.
func Bind(c Binder, dto interface{}) error {
	if err := c.Bind(dto); err != nil {
		return &AppError{
			Code:       "validation.malformed_body",
			Message:    "request body must be a JSON object",
			HTTPStatus: http.StatusBadRequest,
			Cause:      err,
		}
	}
	return ValidateDTO(dto)
}

// ValidateDTO runs dto's Validate method when it has one.
func ValidateDTO(dto interface{}) error {
	if dto == nil {
		return NewValidationError("dto cannot be nil", nil)
	}
	if v := reflect.ValueOf(dto); v.Kind() == reflect.Ptr && v.IsNil() {
		return NewValidationError("dto cannot be nil", nil)
	}

	validator, ok := dto.(Validator)
	if !ok {
		return nil
	}
	if err := validator.Validate(); err != nil {
		var appErr *AppError
		if errors.As(err, &appErr) || fromDomain(err) != nil {
			return err
		}
		return NewValidationError(err.Error(), nil)
	}
	return nil
}
