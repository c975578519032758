// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Authcore Contributors

// Package authcore is the entry point for API layers embedding the
// authentication core. A Service owns the operation table, runs
// operations behind the session gate and returns normalized errors.
package authcore

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/samber/oops"

	"github.com/authcore/authcore/internal/apierror"
	"github.com/authcore/authcore/internal/auth"
	"github.com/authcore/authcore/internal/config"
	"github.com/authcore/authcore/internal/gate"
	"github.com/authcore/authcore/internal/platform"
)

// Types shared with callers.
type (
	Config        = config.Config
	Session       = gate.Session
	ExternalError = apierror.ExternalError
	Location      = apierror.Location
	User          = auth.User
	UserView      = auth.UserView
	RegisterInput = auth.RegisterInput
	Registration  = auth.Registration
	Operation     = gate.Operation
)

// Anonymous is a session without a user.
var Anonymous = gate.Anonymous

// ForUser returns a session authenticated as userID.
func ForUser(userID int64) Session {
	return gate.ForUser(userID)
}

// WithPath and WithLocations attach request positions reported on errors.
var (
	WithPath      = apierror.WithPath
	WithLocations = apierror.WithLocations
)

// Deps are the collaborators a Service is built from.
type Deps struct {
	Users    auth.UserRepository
	Hasher   auth.PasswordHasher
	Tokens   auth.ConfirmationTokens
	Notifier auth.Notifier
	// Policy defaults to auth.DefaultPolicy().
	Policy *auth.Policy
	// ConfirmBaseURL defaults to auth.DefaultConfirmBaseURL.
	ConfirmBaseURL string
	Logger         *slog.Logger
	// Ready reports backing store health; nil means always ready.
	Ready func(context.Context) error
}

// Service runs authentication operations.
type Service struct {
	registration *auth.RegistrationService
	registry     *gate.Registry
	dispatcher   *gate.Dispatcher
	normalizer   *apierror.Normalizer
	logger       *slog.Logger
	ready        func(context.Context) error
	closer       func() error
}

// New creates a Service from deps and registers the built-in operations.
func New(deps Deps) (*Service, error) {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	registration, err := auth.NewRegistrationService(deps.Users, deps.Hasher, deps.Tokens, deps.Notifier,
		auth.WithLogger(logger),
		auth.WithPolicy(deps.Policy),
		auth.WithConfirmBaseURL(deps.ConfirmBaseURL),
	)
	if err != nil {
		return nil, err
	}

	registry := gate.NewRegistry(logger)
	dispatcher, err := gate.NewDispatcher(registry, gate.WithLogger(logger))
	if err != nil {
		return nil, err
	}

	s := &Service{
		registration: registration,
		registry:     registry,
		dispatcher:   dispatcher,
		normalizer:   apierror.NewNormalizer(logger),
		logger:       logger,
		ready:        deps.Ready,
	}
	if err := s.registerBuiltins(); err != nil {
		return nil, oops.Code("SERVICE_INIT_FAILED").Wrap(err)
	}
	return s, nil
}

// Open connects the stores selected by cfg and creates a Service over them.
// Close releases the connections.
func Open(ctx context.Context, cfg *Config, logger *slog.Logger) (*Service, error) {
	if logger == nil {
		logger = slog.Default()
	}
	res, err := platform.Open(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	s, err := New(Deps{
		Users:          res.Users,
		Hasher:         res.Hasher,
		Tokens:         res.Tokens,
		Notifier:       res.Notifier,
		Policy:         res.Policy,
		ConfirmBaseURL: cfg.Registration.ConfirmBaseURL,
		Logger:         logger,
		Ready:          res.Ready,
	})
	if err != nil {
		_ = res.Close()
		return nil, err
	}
	s.closer = res.Close
	return s, nil
}

// Execute runs the named operation as session. input is the operation's
// JSON arguments and may be empty. Failures are returned normalized.
func (s *Service) Execute(ctx context.Context, session Session, op string, input json.RawMessage) (any, *ExternalError) {
	result, err := s.dispatcher.Dispatch(ctx, session, op, input)
	if err != nil {
		return nil, s.normalizer.Normalize(ctx, err)
	}
	return result, nil
}

// Register creates an unconfirmed user and sends its confirmation link.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*Registration, error) {
	return s.registration.Register(ctx, in)
}

// ConfirmUser redeems a confirmation token. Unknown, expired and used
// tokens yield false.
func (s *Service) ConfirmUser(ctx context.Context, token string) (bool, error) {
	return s.registration.ConfirmUser(ctx, token)
}

// Normalize converts an error returned by Register or ConfirmUser into the
// client-facing shape.
func (s *Service) Normalize(ctx context.Context, err error) *ExternalError {
	return s.normalizer.Normalize(ctx, err)
}

// RegisterOperation adds or replaces an operation in the table.
func (s *Service) RegisterOperation(op Operation) error {
	return s.registry.Register(op)
}

// Operations lists the registered operations sorted by name.
func (s *Service) Operations() []Operation {
	return s.registry.All()
}

// InputSchema returns the JSON Schema of an operation's input, or nil for
// operations without input.
func (s *Service) InputSchema(op string) ([]byte, bool) {
	return s.registry.Schema(op)
}

// Ready reports whether the backing stores are reachable.
func (s *Service) Ready(ctx context.Context) error {
	if s.ready == nil {
		return nil
	}
	return s.ready(ctx)
}

// Close releases resources acquired by Open. It is a no-op for services
// created with New.
func (s *Service) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer()
}
