package service

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrValidation         = errors.New("invalid input")
	ErrEmptyCart          = errors.New("your cart is empty")
	ErrInsufficientStock  = errors.New("insufficient stock")
	ErrDuplicateUsername  = errors.New("username already exists")
	ErrDuplicateEmail     = errors.New("email already exists")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidToken       = errors.New("invalid session token")
	ErrTokenExpired       = errors.New("session has expired")
	ErrProductInUse       = errors.New("product is part of existing orders")
)

var validate = validator.New()

// validateInput runs the struct tags of v. The returned error matches both
// ErrValidation and validator.ValidationErrors.
func validateInput(v interface{}) error {
	if err := validate.Struct(v); err != nil {
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}
	return nil
}

func notFound(err error) error {
	return fmt.Errorf("%w: %w", ErrNotFound, err)
}
