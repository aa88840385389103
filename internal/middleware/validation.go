package middleware

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"net/url"

	"github.com/go-playground/validator/v10"
)

const maxFormMemory = 1 << 20

var validate = validator.New()

// FormBinder is implemented by request types that can be filled from an HTML form
type FormBinder interface {
	BindForm(values url.Values) error
}

// ValidateRequest validates a struct against its validation tags
func ValidateRequest(v interface{}) error {
	return validate.Struct(v)
}

// Decode fills v from a JSON body, or from form values (body and query) for
// everything else. Form decoding requires v to implement FormBinder.
func Decode(r *http.Request, v interface{}) error {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	if mediaType == "application/json" {
		if err := json.NewDecoder(r.Body).Decode(v); err != nil {
			return fmt.Errorf("invalid JSON body: %w", err)
		}
		return nil
	}

	binder, ok := v.(FormBinder)
	if !ok {
		return fmt.Errorf("%T cannot be decoded from a form", v)
	}

	if mediaType == "multipart/form-data" {
		if err := r.ParseMultipartForm(maxFormMemory); err != nil {
			return fmt.Errorf("invalid multipart form: %w", err)
		}
	} else if err := r.ParseForm(); err != nil {
		return fmt.Errorf("invalid form: %w", err)
	}

	return binder.BindForm(r.Form)
}

// DecodeAndValidate decodes the request and validates the result
func DecodeAndValidate(r *http.Request, v interface{}) error {
	if err := Decode(r, v); err != nil {
		return err
	}
	return ValidateRequest(v)
}

// ValidationError represents a field validation error
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// FormatValidationErrors converts validator errors, possibly wrapped, to a readable format
func FormatValidationErrors(err error) []ValidationError {
	var formatted []ValidationError

	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		for _, e := range validationErrors {
			formatted = append(formatted, ValidationError{
				Field:   e.Field(),
				Message: getErrorMessage(e),
			})
		}
	}

	return formatted
}

func getErrorMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "This field is required"
	case "email":
		return "Invalid email format"
	case "alphanum":
		return "Only letters and digits are allowed"
	case "min":
		return "Value is too short"
	case "max":
		return "Value is too long"
	case "gte":
		return "Value must be greater than or equal to " + e.Param()
	case "lte":
		return "Value must be less than or equal to " + e.Param()
	case "gt":
		return "Value must be greater than " + e.Param()
	case "lt":
		return "Value must be less than " + e.Param()
	case "eqfield":
		return "Value must match " + e.Param()
	default:
		return "Invalid value"
	}
}
