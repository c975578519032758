// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Authcore Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"strings"
	"sync"

	"github.com/samber/oops"

	"github.com/authcore/authcore/internal/fault"
)

// DefaultConfirmBaseURL is prefixed to tokens to build confirmation links.
const DefaultConfirmBaseURL = "http://localhost:3000/user/confirm"

// Registration is the result of a successful Register call.
type Registration struct {
	User     *User
	Warnings []Warning
}

// Warning reports a non-fatal failure after the user was created.
type Warning struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// RegistrationService registers users and confirms their email addresses.
type RegistrationService struct {
	users      UserRepository
	hasher     PasswordHasher
	tokens     ConfirmationTokens
	notifier   Notifier
	policy     *Policy
	confirmURL string
	logger     *slog.Logger

	dummyOnce   sync.Once
	dummyDigest string
}

// RegistrationOption configures a RegistrationService.
type RegistrationOption func(*RegistrationService)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) RegistrationOption {
	return func(s *RegistrationService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithPolicy sets the input validation policy. Defaults to DefaultPolicy().
func WithPolicy(p *Policy) RegistrationOption {
	return func(s *RegistrationService) {
		if p != nil {
			s.policy = p
		}
	}
}

// WithConfirmBaseURL sets the base of confirmation links.
func WithConfirmBaseURL(base string) RegistrationOption {
	return func(s *RegistrationService) {
		if base != "" {
			s.confirmURL = base
		}
	}
}

// NewRegistrationService creates a RegistrationService.
// Returns an error if any dependency is nil.
func NewRegistrationService(
	users UserRepository,
	hasher PasswordHasher,
	tokens ConfirmationTokens,
	notifier Notifier,
	opts ...RegistrationOption,
) (*RegistrationService, error) {
	if users == nil {
		return nil, oops.Code("REGISTRATION_INVALID_CONFIG").Errorf("user repository is required")
	}
	if hasher == nil {
		return nil, oops.Code("REGISTRATION_INVALID_CONFIG").Errorf("password hasher is required")
	}
	if tokens == nil {
		return nil, oops.Code("REGISTRATION_INVALID_CONFIG").Errorf("token store is required")
	}
	if notifier == nil {
		return nil, oops.Code("REGISTRATION_INVALID_CONFIG").Errorf("notifier is required")
	}

	s := &RegistrationService{
		users:      users,
		hasher:     hasher,
		tokens:     tokens,
		notifier:   notifier,
		policy:     DefaultPolicy(),
		confirmURL: DefaultConfirmBaseURL,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if _, err := url.Parse(s.confirmURL); err != nil {
		return nil, oops.Code("REGISTRATION_INVALID_CONFIG").With("confirm_base_url", s.confirmURL).Wrap(err)
	}
	return s, nil
}

// Register validates the input, stores an unconfirmed user, issues a
// confirmation token and sends the confirmation link.
//
// Once the user is stored the call succeeds: token and notification
// failures are logged and returned as warnings.
func (s *RegistrationService) Register(ctx context.Context, in RegisterInput) (*Registration, error) {
	if err := s.policy.Validate(in); err != nil {
		return nil, err
	}

	digest, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, oops.Code("REGISTER_FAILED").With("operation", "hash password").Wrap(err)
	}

	user := &User{
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		Email:        strings.TrimSpace(in.Email),
		PasswordHash: digest,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, oops.Code("REGISTER_FAILED").With("operation", "create user").Wrap(err)
	}
	s.logger.InfoContext(ctx, "user registered", "user_id", user.ID)

	reg := &Registration{User: user}

	token, err := s.tokens.Issue(ctx, user.ID)
	if err != nil {
		s.logger.WarnContext(ctx, "confirmation token not issued, user must request a new link",
			"user_id", user.ID,
			"operation", "issue_token",
			"error", err,
		)
		reg.Warnings = append(reg.Warnings, Warning{
			Code:    WarnTokenIssueFailed,
			Message: "Your account was created but the confirmation link could not be generated.",
		})
		return reg, nil
	}

	link, err := url.JoinPath(s.confirmURL, token)
	if err != nil {
		return nil, oops.Code("REGISTER_FAILED").With("operation", "build confirmation url").Wrap(err)
	}

	msg := ConfirmationMessage{UserID: user.ID, To: user.Email, FirstName: user.FirstName, URL: link}
	if err := s.notifier.Send(ctx, msg); err != nil {
		s.logger.WarnContext(ctx, "confirmation email not sent, best-effort delivery failed",
			"user_id", user.ID,
			"operation", "send_confirmation",
			"error", err,
		)
		reg.Warnings = append(reg.Warnings, Warning{
			Code:    WarnNotificationFailed,
			Message: "Your account was created but the confirmation email could not be sent.",
		})
	}
	return reg, nil
}

// ConfirmUser redeems a confirmation token and marks its user confirmed.
// Returns false without error for unknown, expired or already used tokens.
func (s *RegistrationService) ConfirmUser(ctx context.Context, token string) (bool, error) {
	userID, err := s.tokens.Consume(ctx, token)
	if err != nil {
		if fault.KindOf(err) == fault.KindTokenNotFound {
			return false, nil
		}
		return false, oops.Code("CONFIRM_FAILED").With("operation", "consume token").Wrap(err)
	}

	if err := s.users.UpdateConfirmed(ctx, userID, true); err != nil {
		if errors.Is(err, ErrNotFound) {
			s.logger.WarnContext(ctx, "confirmation token referenced a missing user", "user_id", userID)
			return false, nil
		}
		return false, oops.Code("CONFIRM_FAILED").
			With("operation", "update confirmed").
			With("user_id", userID).
			Wrap(err)
	}

	s.logger.InfoContext(ctx, "user confirmed", "user_id", userID)
	return true, nil
}

// CurrentUser returns the user with the given ID, or nil if it no longer exists.
func (s *RegistrationService) CurrentUser(ctx context.Context, userID int64) (*User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, oops.Code("CURRENT_USER_FAILED").With("user_id", userID).Wrap(err)
	}
	return user, nil
}

// Authenticate checks an email and password pair and returns the user.
// Unknown emails still run a password comparison so response time does not
// reveal which addresses are registered.
func (s *RegistrationService) Authenticate(ctx context.Context, email, password string) (*User, error) {
	invalid := fault.Public(CodeInvalidCredentials, "Invalid email or password.")

	user, err := s.users.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			return nil, oops.Code("AUTHENTICATE_FAILED").With("operation", "get user by email").Wrap(err)
		}
		s.hasher.Verify(password, s.dummy())
		return nil, invalid
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		return nil, invalid
	}
	if !user.Confirmed {
		return nil, fault.Public(CodeEmailNotConfirmed, "Confirm your email address before signing in.")
	}

	if s.hasher.NeedsRehash(user.PasswordHash) {
		s.rehash(ctx, user, password)
	}
	return user, nil
}

func (s *RegistrationService) rehash(ctx context.Context, user *User, password string) {
	digest, err := s.hasher.Hash(password)
	if err == nil {
		err = s.users.UpdatePasswordHash(ctx, user.ID, digest)
	}
	if err != nil {
		s.logger.WarnContext(ctx, "password rehash failed, best-effort upgrade skipped",
			"user_id", user.ID,
			"operation", "rehash_password",
			"error", err,
		)
		return
	}
	user.PasswordHash = digest
}

// dummy returns a digest at the configured cost, compared against when the
// email is unknown.
func (s *RegistrationService) dummy() string {
	s.dummyOnce.Do(func() {
		digest, err := s.hasher.Hash("authcore-timing-guard-0")
		if err != nil {
			s.logger.Warn("could not build timing guard digest", "error", err)
		}
		s.dummyDigest = digest
	})
	return s.dummyDigest
}
