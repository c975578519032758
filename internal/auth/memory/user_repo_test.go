// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Authcore Contributors

package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/authcore/authcore/internal/auth"
	"github.com/authcore/authcore/internal/fault"
	"github.com/authcore/authcore/pkg/errutil"
)

func newUser(email string) *auth.User {
	return &auth.User{
		FirstName:    "Jane",
		LastName:     "Doe",
		Email:        email,
		PasswordHash: "$2a$04$digest",
	}
}

func TestUserRepository_CreateAssignsSequentialIDs(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository()

	first := newUser("jane@example.com")
	second := newUser("john@example.com")
	require.NoError(t, repo.Create(ctx, first))
	require.NoError(t, repo.Create(ctx, second))

	assert.Equal(t, int64(1), first.ID)
	assert.Equal(t, int64(2), second.ID)
	assert.False(t, first.CreatedAt.IsZero())
	assert.Equal(t, first.CreatedAt, first.UpdatedAt)
}

func TestUserRepository_CreateRejectsDuplicateEmail(t *testing.T) {
	tests := []struct {
		name  string
		email string
	}{
		{"same case", "jane@example.com"},
		{"different case", "JANE@Example.com"},
		{"surrounding space", "  jane@example.com "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			repo := NewUserRepository()
			original := newUser("jane@example.com")
			require.NoError(t, repo.Create(ctx, original))

			err := repo.Create(ctx, newUser(tt.email))
			require.Error(t, err)
			assert.Equal(t, fault.KindAlreadyRegistered, fault.KindOf(err))

			got, err := repo.GetByID(ctx, original.ID)
			require.NoError(t, err)
			assert.Equal(t, "jane@example.com", got.Email)
		})
	}
}

func TestUserRepository_GetByEmailIsCaseInsensitive(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository()
	u := newUser("Jane@Example.com")
	require.NoError(t, repo.Create(ctx, u))

	got, err := repo.GetByEmail(ctx, "jane@example.COM")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.Equal(t, "Jane@Example.com", got.Email)
}

func TestUserRepository_NotFound(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository()

	tests := []struct {
		name string
		call func() error
	}{
		{"get by id", func() error { _, err := repo.GetByID(ctx, 7); return err }},
		{"get by email", func() error { _, err := repo.GetByEmail(ctx, "nobody@example.com"); return err }},
		{"update confirmed", func() error { return repo.UpdateConfirmed(ctx, 7, true) }},
		{"update password hash", func() error { return repo.UpdatePasswordHash(ctx, 7, "digest") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			require.Error(t, err)
			assert.True(t, errors.Is(err, auth.ErrNotFound))
			errutil.AssertErrorCode(t, err, "USER_NOT_FOUND")
		})
	}
}

func TestUserRepository_Updates(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository()
	u := newUser("jane@example.com")
	require.NoError(t, repo.Create(ctx, u))

	require.NoError(t, repo.UpdateConfirmed(ctx, u.ID, true))
	require.NoError(t, repo.UpdatePasswordHash(ctx, u.ID, "$2a$12$rehashed"))

	got, err := repo.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, got.Confirmed)
	assert.Equal(t, "$2a$12$rehashed", got.PasswordHash)

	// Returned users are copies.
	got.Confirmed = false
	again, err := repo.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, again.Confirmed)
}
