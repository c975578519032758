// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Authcore Contributors

// Package memory provides an in-process auth.UserRepository.
package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/samber/oops"

	"github.com/authcore/authcore/internal/auth"
	"github.com/authcore/authcore/internal/fault"
)

// UserRepository keeps users in a map guarded by a mutex. IDs come from a
// monotonically increasing sequence starting at 1.
type UserRepository struct {
	mu      sync.Mutex
	seq     int64
	byID    map[int64]auth.User
	byEmail map[string]int64
	now     func() time.Time
}

// NewUserRepository creates an empty repository.
func NewUserRepository() *UserRepository {
	return &UserRepository{
		byID:    make(map[int64]auth.User),
		byEmail: make(map[string]int64),
		now:     time.Now,
	}
}

func emailKey(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Create stores a new user.
func (r *UserRepository) Create(_ context.Context, user *auth.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := emailKey(user.Email)
	if _, taken := r.byEmail[key]; taken {
		return fault.AlreadyRegistered(user.Email)
	}

	r.seq++
	now := r.now().UTC()
	user.ID = r.seq
	user.CreatedAt = now
	user.UpdatedAt = now

	r.byID[user.ID] = *user
	r.byEmail[key] = user.ID
	return nil
}

// GetByID retrieves a user by ID.
func (r *UserRepository) GetByID(_ context.Context, id int64) (*auth.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[id]
	if !ok {
		return nil, oops.Code("USER_NOT_FOUND").With("id", id).Wrap(auth.ErrNotFound)
	}
	return &u, nil
}

// GetByEmail retrieves a user by email (case-insensitive).
func (r *UserRepository) GetByEmail(_ context.Context, email string) (*auth.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.byEmail[emailKey(email)]
	if !ok {
		return nil, oops.Code("USER_NOT_FOUND").With("email", email).Wrap(auth.ErrNotFound)
	}
	u := r.byID[id]
	return &u, nil
}

// UpdateConfirmed sets the confirmed flag.
func (r *UserRepository) UpdateConfirmed(_ context.Context, id int64, confirmed bool) error {
	return r.update(id, func(u *auth.User) { u.Confirmed = confirmed })
}

// UpdatePasswordHash replaces the password digest.
func (r *UserRepository) UpdatePasswordHash(_ context.Context, id int64, digest string) error {
	return r.update(id, func(u *auth.User) { u.PasswordHash = digest })
}

func (r *UserRepository) update(id int64, fn func(*auth.User)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[id]
	if !ok {
		return oops.Code("USER_NOT_FOUND").With("id", id).Wrap(auth.ErrNotFound)
	}
	fn(&u)
	u.UpdatedAt = r.now().UTC()
	r.byID[id] = u
	return nil
}
