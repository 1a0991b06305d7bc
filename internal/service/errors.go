// Package service contains the reservation core: the availability
// validator, the cancellation-window policy, the lifecycle engine and
// the error taxonomy they share. Handlers translate these errors into
// HTTP responses; the worker package reuses the same store contracts.
package service

import (
	"errors"
	"fmt"
)

// ErrForbidden is returned when the acting user lacks the capability
// for an operation, such as a citizen approving a reservation or
// touching somebody else's booking.
var ErrForbidden = errors.New("forbidden")

// ValidationError marks malformed input: missing identifiers, a
// garbled configuration value, an absent timestamp. It is never worth
// retrying without changing the request.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// RuleError marks a well-formed request that violates a domain rule:
// the space is unavailable, the cancellation window is closed, a
// transition is attempted from the wrong state. The message always
// names the violated rule.
type RuleError struct {
	Msg string
}

func (e *RuleError) Error() string { return e.Msg }

// Validationf builds a ValidationError from a format string.
func Validationf(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// Rulef builds a RuleError from a format string.
func Rulef(format string, args ...any) error {
	return &RuleError{Msg: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsRule reports whether err is a RuleError.
func IsRule(err error) bool {
	var re *RuleError
	return errors.As(err, &re)
}
