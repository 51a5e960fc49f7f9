// Package validation implements the rules gating movie writes and list
// query options. Failures are reported as a structured list of
// (field, message) pairs and are never partially applied.
package validation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// FieldError is a single validation failure on one field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error is the structured validation failure carrying one or more field
// errors.
type Error []FieldError

func (e Error) Error() string {
	messages := make([]string, len(e))
	for i, fieldError := range e {
		messages[i] = fmt.Sprintf("%s: %s", fieldError.Field, fieldError.Message)
	}
	return "validation failed: " + strings.Join(messages, "; ")
}

// FromValidatorErrors converts go-playground struct-tag failures into the
// same (field, message) shape the rest of the pipeline produces.
func FromValidatorErrors(err error) Error {
	var validatorErrors validator.ValidationErrors
	if !errors.As(err, &validatorErrors) {
		return Error{{Field: "request", Message: err.Error()}}
	}
	fieldErrors := make(Error, 0, len(validatorErrors))
	for _, fieldErr := range validatorErrors {
		fieldErrors = append(fieldErrors, FieldError{
			Field:   strings.ToLower(fieldErr.Field()),
			Message: fmt.Sprintf("failed on the '%s' rule", fieldErr.Tag()),
		})
	}
	return fieldErrors
}
