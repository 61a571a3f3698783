package models

import (
	"fmt"
	"strings"
)

// FieldError describes a validation failure for a single field.
type FieldError struct {
	Field string
	Err   error
}

// ValidationErrors aggregates field-level validation failures.
type ValidationErrors struct {
	fields []FieldError
}

// Add records a validation error for a field. Nil errors are ignored.
func (v *ValidationErrors) Add(field string, err error) {
	if err == nil {
		return
	}
	v.fields = append(v.fields, FieldError{Field: field, Err: err})
}

// AddMessage records a validation error with a plain message.
func (v *ValidationErrors) AddMessage(field, message string) {
	v.fields = append(v.fields, FieldError{Field: field, Err: fmt.Errorf("%s", message)})
}

// Err returns the aggregate error, or nil if no failures were recorded.
func (v *ValidationErrors) Err() error {
	if len(v.fields) == 0 {
		return nil
	}
	return v
}

// Error implements the error interface.
func (v *ValidationErrors) Error() string {
	parts := make([]string, 0, len(v.fields))
	for _, f := range v.fields {
		parts = append(parts, fmt.Sprintf("%s: %v", f.Field, f.Err))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Fields returns the individual field errors.
func (v *ValidationErrors) Fields() []FieldError {
	return v.fields
}
