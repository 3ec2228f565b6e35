// Package validation provides common validation utilities for the objstream packages.
package validation

import (
	"strings"

	oserrors "github.com/vnykmshr/objstream/pkg/common/errors"
)

// ValidateNonNegative validates that an integer value is non-negative (>= 0).
// Zero is accepted because stream options treat it as "use the default".
func ValidateNonNegative(module, field string, value int) error {
	if value < 0 {
		return oserrors.NewValidationError(module, field, value, "cannot be negative").
			WithHint("use 0 for the default or a positive value")
	}
	return nil
}

// ValidateOneOf validates that value matches one of allowed, ignoring case.
// An empty value is accepted and means "use the default".
func ValidateOneOf(module, field, value string, allowed ...string) error {
	if value == "" {
		return nil
	}
	for _, a := range allowed {
		if strings.EqualFold(a, value) {
			return nil
		}
	}
	return oserrors.NewValidationError(module, field, value, "unsupported value").
		WithHint("use one of: " + strings.Join(allowed, ", "))
}

// ValidateNotEmpty validates that a string value is not empty.
// Returns a ValidationError if the string is empty.
func ValidateNotEmpty(module, field string, value string) error {
	if value == "" {
		return oserrors.NewValidationError(module, field, value, "cannot be empty").
			WithHint("provide a non-empty " + field)
	}
	return nil
}
