// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Authcore Contributors

// Package token issues and redeems single-use email confirmation tokens.
//
// A token is 32 bytes from crypto/rand, hex encoded, stored as
// <prefix><token> -> decimal user ID with a fixed TTL. Consume removes the
// entry in the same backend operation that reads it, so a token can be
// redeemed at most once even under concurrent calls.
package token

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"strconv"
	"time"

	"github.com/samber/oops"

	"github.com/authcore/authcore/internal/fault"
)

// Token parameters.
const (
	Bytes         = 32
	DefaultTTL    = 24 * time.Hour
	DefaultPrefix = "confirm:"
	// maxTokenLength bounds tokens accepted by Consume before touching the backend.
	maxTokenLength = 256
)

// Backend is a key-value store with expiring keys and atomic get-and-delete.
type Backend interface {
	// SetEX stores value under key for ttl.
	SetEX(ctx context.Context, key, value string, ttl time.Duration) error

	// GetDel returns and removes the value under key. ok is false if the
	// key is absent or expired.
	GetDel(ctx context.Context, key string) (value string, ok bool, err error)
}

// Store issues and consumes confirmation tokens.
type Store struct {
	backend Backend
	ttl     time.Duration
	prefix  string
	logger  *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithTTL overrides DefaultTTL.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithPrefix overrides DefaultPrefix.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewStore creates a Store on backend.
func NewStore(backend Backend, opts ...Option) (*Store, error) {
	if backend == nil {
		return nil, oops.Code("TOKEN_INVALID_CONFIG").Errorf("token backend is required")
	}
	s := &Store{
		backend: backend,
		ttl:     DefaultTTL,
		prefix:  DefaultPrefix,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// TTL returns the lifetime of issued tokens.
func (s *Store) TTL() time.Duration {
	return s.ttl
}

// Generate returns a new random token.
func Generate() (string, error) {
	b := make([]byte, Bytes)
	if _, err := rand.Read(b); err != nil {
		return "", oops.Code("TOKEN_GENERATE_FAILED").Wrap(err)
	}
	return hex.EncodeToString(b), nil
}

// Issue creates a token bound to userID. Earlier tokens for the same user
// stay valid until they expire or are consumed.
func (s *Store) Issue(ctx context.Context, userID int64) (string, error) {
	tok, err := Generate()
	if err != nil {
		RecordIssue(StatusError)
		return "", err
	}

	if err := s.backend.SetEX(ctx, s.prefix+tok, strconv.FormatInt(userID, 10), s.ttl); err != nil {
		RecordIssue(StatusError)
		return "", oops.Code("TOKEN_ISSUE_FAILED").With("user_id", userID).Wrap(err)
	}

	RecordIssue(StatusSuccess)
	return tok, nil
}

// Consume redeems token and returns its user ID. Unknown, expired and
// already consumed tokens yield a fault.KindTokenNotFound error.
func (s *Store) Consume(ctx context.Context, tok string) (int64, error) {
	if tok == "" || len(tok) > maxTokenLength {
		RecordConsume(StatusNotFound)
		return 0, fault.TokenNotFound()
	}

	value, ok, err := s.backend.GetDel(ctx, s.prefix+tok)
	if err != nil {
		RecordConsume(StatusError)
		return 0, oops.Code("TOKEN_CONSUME_FAILED").Wrap(err)
	}
	if !ok {
		RecordConsume(StatusNotFound)
		return 0, fault.TokenNotFound()
	}

	userID, err := strconv.ParseInt(value, 10, 64)
	if err != nil || userID == 0 {
		s.logger.WarnContext(ctx, "discarding confirmation token with corrupt value", "value", value)
		RecordConsume(StatusNotFound)
		return 0, fault.TokenNotFound()
	}

	RecordConsume(StatusSuccess)
	return userID, nil
}
