// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Authcore Contributors

// Package apierror reshapes internal errors into the stable ExternalError
// returned to clients.
package apierror

import (
	"context"
	"errors"
	"log/slog"

	"github.com/authcore/authcore/internal/fault"
	"github.com/authcore/authcore/pkg/errutil"
)

// External codes and messages that are not carried by the error itself.
const (
	CodeInternal         = "INTERNAL_SERVER_ERROR"
	MessageInternal      = "Internal Server Error"
	MessageValidation    = "Argument Validation Error"
	MessageAlreadyTaken  = "Email is already registered."
	MessageNotAuthorized = "Not authenticated."
	MessageTokenNotFound = "Confirmation token is invalid or has expired."
)

// Location is a position in the client request document.
type Location struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// ExternalError is the only error shape that leaves the system.
type ExternalError struct {
	Code      string                 `json:"code"`
	Message   string                 `json:"message"`
	Fields    []fault.FieldViolation `json:"fields,omitempty"`
	Path      []string               `json:"path,omitempty"`
	Locations []Location             `json:"locations,omitempty"`
}

func (e *ExternalError) Error() string {
	return e.Code + ": " + e.Message
}

// Normalizer maps errors to ExternalError.
type Normalizer struct {
	logger *slog.Logger
}

// NewNormalizer creates a Normalizer. A nil logger selects slog.Default().
func NewNormalizer(logger *slog.Logger) *Normalizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Normalizer{logger: logger}
}

// Normalize converts err into an ExternalError. Internal and store errors
// are logged with full detail and replaced by a generic error. An error that
// already is (or wraps) an ExternalError is returned unchanged. Returns nil
// for a nil error.
func (n *Normalizer) Normalize(ctx context.Context, err error) *ExternalError {
	if err == nil {
		return nil
	}
	var ext *ExternalError
	if errors.As(err, &ext) {
		return ext
	}

	out := &ExternalError{}
	switch kind := fault.KindOf(err); kind {
	case fault.KindValidation:
		out.Code = fault.CodeValidationFailed
		out.Message = MessageValidation
		out.Fields = fault.Violations(err)
	case fault.KindAlreadyRegistered:
		out.Code = fault.CodeAlreadyRegistered
		out.Message = MessageAlreadyTaken
	case fault.KindAuthorizationDenied:
		out.Code = fault.CodeAuthorizationDenied
		out.Message = MessageNotAuthorized
	case fault.KindTokenNotFound:
		out.Code = fault.CodeTokenNotFound
		out.Message = MessageTokenNotFound
	case fault.KindPublic:
		pub, _ := fault.AsPublic(err)
		out.Code = pub.Code
		out.Message = pub.Message
	case fault.KindStoreUnavailable, fault.KindInternal:
		errutil.LogError(ctx, n.logger, "internal error masked", err)
		out.Code = CodeInternal
		out.Message = MessageInternal
	default:
		n.logger.ErrorContext(ctx, "unhandled error kind", "kind", kind.String(), "error", err)
		out.Code = CodeInternal
		out.Message = MessageInternal
	}

	out.Path = PathFrom(ctx)
	out.Locations = LocationsFrom(ctx)
	RecordNormalized(out.Code)
	return out
}
