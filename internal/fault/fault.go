// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Authcore Contributors

// Package fault defines the closed set of failure kinds reported by authcore.
//
// Every error that leaves a component is built by one of the constructors in
// this package (or is an unclassified internal error). Callers classify an
// error with KindOf, which walks the wrap chain, so wrapping with additional
// oops context never changes the kind.
package fault

import (
	"errors"
	"fmt"
	"strings"

	"github.com/samber/oops"
)

// Error codes attached to classified errors.
const (
	CodeValidationFailed    = "VALIDATION_FAILED"
	CodeAlreadyRegistered   = "ALREADY_REGISTERED"
	CodeAuthorizationDenied = "AUTHORIZATION_DENIED"
	CodeTokenNotFound       = "TOKEN_NOT_FOUND"
	CodeStoreUnavailable    = "STORE_UNAVAILABLE"
)

// Sentinels identifying each kind. Match with errors.Is.
var (
	ErrValidation          = errors.New("validation failed")
	ErrAlreadyRegistered   = errors.New("email already registered")
	ErrAuthorizationDenied = errors.New("authentication required")
	ErrTokenNotFound       = errors.New("confirmation token not found")
	ErrStoreUnavailable    = errors.New("store unavailable")
)

// Kind is the classification of an error.
type Kind int

// Error kinds.
const (
	KindInternal Kind = iota
	KindValidation
	KindAlreadyRegistered
	KindAuthorizationDenied
	KindTokenNotFound
	KindStoreUnavailable
	KindPublic
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAlreadyRegistered:
		return "already_registered"
	case KindAuthorizationDenied:
		return "authorization_denied"
	case KindTokenNotFound:
		return "token_not_found"
	case KindStoreUnavailable:
		return "store_unavailable"
	case KindPublic:
		return "public"
	default:
		return "internal"
	}
}

// KindOf classifies err. A nil error is KindInternal; callers check for nil first.
func KindOf(err error) Kind {
	var pub *PublicError
	switch {
	case err == nil:
		return KindInternal
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrAlreadyRegistered):
		return KindAlreadyRegistered
	case errors.Is(err, ErrAuthorizationDenied):
		return KindAuthorizationDenied
	case errors.Is(err, ErrTokenNotFound):
		return KindTokenNotFound
	case errors.Is(err, ErrStoreUnavailable):
		return KindStoreUnavailable
	case errors.As(err, &pub):
		return KindPublic
	default:
		return KindInternal
	}
}

// FieldViolation describes one failing input field.
type FieldViolation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError carries every failing field of a rejected input.
type ValidationError struct {
	Violations []FieldViolation
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		parts = append(parts, v.Field+": "+v.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Is reports whether target is ErrValidation.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// PublicError is an error whose code and message are safe to show to clients.
type PublicError struct {
	Code    string
	Message string
}

func (e *PublicError) Error() string {
	return e.Message
}

// Validation builds a VALIDATION_FAILED error listing all violations.
func Validation(violations ...FieldViolation) error {
	fields := make([]string, 0, len(violations))
	for _, v := range violations {
		fields = append(fields, v.Field)
	}
	return oops.Code(CodeValidationFailed).
		With("fields", fields).
		Wrap(&ValidationError{Violations: violations})
}

// Violations extracts the field violations from a validation error.
func Violations(err error) []FieldViolation {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr.Violations
	}
	return nil
}

// AlreadyRegistered builds the error returned when an email is taken.
func AlreadyRegistered(email string) error {
	return oops.Code(CodeAlreadyRegistered).
		With("email", email).
		Wrap(ErrAlreadyRegistered)
}

// AuthorizationDenied builds the error returned when an anonymous session
// invokes a protected operation.
func AuthorizationDenied(operation string) error {
	return oops.Code(CodeAuthorizationDenied).
		With("operation", operation).
		Wrap(ErrAuthorizationDenied)
}

// TokenNotFound builds the error for a missing, expired or consumed token.
func TokenNotFound() error {
	return oops.Code(CodeTokenNotFound).Wrap(ErrTokenNotFound)
}

// StoreUnavailable wraps a backing store failure. store names the backend
// ("redis", "postgres", ...).
func StoreUnavailable(store string, cause error) error {
	return oops.Code(CodeStoreUnavailable).
		With("store", store).
		Wrap(fmt.Errorf("%w: %w", ErrStoreUnavailable, cause))
}

// Public builds a pre-classified error passed to clients verbatim.
func Public(code, message string) error {
	return oops.Code(code).Wrap(&PublicError{Code: code, Message: message})
}

// AsPublic returns the PublicError in err's chain, if any.
func AsPublic(err error) (*PublicError, bool) {
	var pub *PublicError
	if errors.As(err, &pub) {
		return pub, true
	}
	return nil, false
}
