// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Authcore Contributors

package gate

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/samber/oops"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/authcore/authcore/internal/fault"
)

// CodeUnknownOperation is returned for names missing from the registry.
const CodeUnknownOperation = "UNKNOWN_OPERATION"

// unknownLabel replaces unregistered names in metric labels.
const unknownLabel = "unknown"

var tracer = otel.Tracer("authcore/gate")

// Dispatcher runs operations: lookup, authorization, input validation,
// then the handler.
type Dispatcher struct {
	registry *Registry
	logger   *slog.Logger
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// NewDispatcher creates a Dispatcher over registry.
func NewDispatcher(registry *Registry, opts ...DispatcherOption) (*Dispatcher, error) {
	if registry == nil {
		return nil, oops.Code("DISPATCHER_INVALID_CONFIG").Errorf("registry is required")
	}
	d := &Dispatcher{
		registry: registry,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Dispatch executes the named operation for session. A denied call never
// reaches input validation or the handler.
func (d *Dispatcher) Dispatch(ctx context.Context, session Session, name string, input json.RawMessage) (result any, err error) {
	ctx, span := tracer.Start(ctx, "operation.execute",
		trace.WithAttributes(
			attribute.String("operation.name", name),
			attribute.Bool("session.authenticated", IsAuthenticated(session)),
		),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	e, ok := d.registry.get(name)
	if !ok {
		RecordExecution(unknownLabel, StatusNotFound)
		err = fault.Public(CodeUnknownOperation, fmt.Sprintf("Unknown operation %q.", name))
		return nil, err
	}
	span.SetAttributes(attribute.Bool("operation.protected", e.op.Protected))

	if RequireAuth(session, e.op) == Deny {
		RecordExecution(name, StatusDenied)
		err = fault.AuthorizationDenied(name)
		return nil, err
	}

	if e.schema != nil {
		if err = validateInput(e.schema, input); err != nil {
			RecordExecution(name, StatusInvalid)
			return nil, err
		}
	}

	call := &Call{Operation: name, Session: session, Input: input}
	if session != nil {
		call.UserID, _ = session.UserID()
	}

	start := time.Now()
	result, err = e.op.Handler(ctx, call)
	RecordDuration(name, time.Since(start))
	if err != nil {
		RecordExecution(name, StatusError)
		d.logger.WarnContext(ctx, "operation failed",
			"operation", name,
			"kind", fault.KindOf(err).String(),
			"error", err,
		)
		return nil, err
	}

	RecordExecution(name, StatusSuccess)
	return result, nil
}

// Bind decodes the call input into T.
func Bind[T any](call *Call) (T, error) {
	var v T
	if len(call.Input) == 0 {
		return v, nil
	}
	if err := json.Unmarshal(call.Input, &v); err != nil {
		return v, oops.Code("INPUT_DECODE_FAILED").With("operation", call.Operation).Wrap(err)
	}
	return v, nil
}
