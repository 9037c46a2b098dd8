package validation

import (
	"sort"
	"strings"
)

// ValidationError maps request fields to every rule they violated.
type ValidationError struct {
	Fields map[string][]string
}

// NewValidationError returns an empty error ready for Add.
func NewValidationError() *ValidationError {
	return &ValidationError{Fields: make(map[string][]string)}
}

// FieldError returns a ValidationError carrying a single message.
func FieldError(field, message string) *ValidationError {
	e := NewValidationError()
	e.Add(field, message)
	return e
}

// Add appends a message for field.
func (e *ValidationError) Add(field, message string) {
	e.Fields[field] = append(e.Fields[field], message)
}

// Empty reports whether no field failed.
func (e *ValidationError) Empty() bool {
	return len(e.Fields) == 0
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return "validation failed: " + strings.Join(names, ", ")
}

// typeMessages are reported when a JSON value has the wrong type for its field.
var typeMessages = map[string]string{
	"first_name":    "The first name field must be a string.",
	"last_name":     "The last name field must be a string.",
	"role":          "The role field must be an integer.",
	"email":         "The email field must be a string.",
	"password":      "The password field must be a string.",
	"latitude":      "The latitude field must be a number.",
	"longitude":     "The longitude field must be a number.",
	"date_of_birth": "The date of birth field must be a string.",
	"timezone":      "The timezone field must be a string.",
}

// TypeMismatch builds the error for a JSON field that could not be decoded
// into its Go type.
func TypeMismatch(field string) *ValidationError {
	if msg, ok := typeMessages[field]; ok {
		return FieldError(field, msg)
	}
	if field == "" {
		field = "general"
	}
	return FieldError(field, "The "+strings.ReplaceAll(field, "_", " ")+" field has an invalid type.")
}
