// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Authcore Contributors

package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/authcore/authcore/internal/auth"
	"github.com/authcore/authcore/internal/fault"
	"github.com/authcore/authcore/pkg/errutil"
)

var _ auth.UserRepository = (*UserRepository)(nil)

var userCols = []string{"id", "first_name", "last_name", "email", "password_hash", "confirmed", "created_at", "updated_at"}

// networkErr mimics a pgconn error raised before the query reached the server.
type networkErr struct{}

func (networkErr) Error() string     { return "write tcp 10.0.0.5:5432: broken pipe" }
func (networkErr) SafeToRetry() bool { return true }

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err, "failed to create mock")
	t.Cleanup(mock.Close)
	return mock
}

func TestUserRepository_Create(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		setupMock func(mock pgxmock.PgxPoolIface)
		wantKind  fault.Kind
		wantErr   bool
	}{
		{
			name: "assigns id and timestamps",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`INSERT INTO users`).
					WithArgs("Ann", "Lee", "ann@example.com", "$2a$12$digest", false).
					WillReturnRows(pgxmock.NewRows([]string{"id", "created_at", "updated_at"}).
						AddRow(int64(7), now, now))
			},
		},
		{
			name: "duplicate email",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`INSERT INTO users`).
					WithArgs("Ann", "Lee", "ann@example.com", "$2a$12$digest", false).
					WillReturnError(&pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "users_email_lower_key"})
			},
			wantErr:  true,
			wantKind: fault.KindAlreadyRegistered,
		},
		{
			name: "connection lost",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`INSERT INTO users`).
					WithArgs("Ann", "Lee", "ann@example.com", "$2a$12$digest", false).
					WillReturnError(networkErr{})
			},
			wantErr:  true,
			wantKind: fault.KindStoreUnavailable,
		},
		{
			name: "other server error",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`INSERT INTO users`).
					WithArgs("Ann", "Lee", "ann@example.com", "$2a$12$digest", false).
					WillReturnError(&pgconn.PgError{Code: pgerrcode.UndefinedTable, Message: "relation \"users\" does not exist"})
			},
			wantErr:  true,
			wantKind: fault.KindInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := newMock(t)
			tt.setupMock(mock)

			user := &auth.User{FirstName: "Ann", LastName: "Lee", Email: "ann@example.com", PasswordHash: "$2a$12$digest"}
			err := NewUserRepository(mock).Create(context.Background(), user)

			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, tt.wantKind, fault.KindOf(err))
			} else {
				require.NoError(t, err)
				assert.Equal(t, int64(7), user.ID)
				assert.Equal(t, now, user.CreatedAt)
				assert.Equal(t, now, user.UpdatedAt)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestUserRepository_GetByID(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("found", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectQuery(`SELECT .+ FROM users WHERE id = \$1`).
			WithArgs(int64(7)).
			WillReturnRows(pgxmock.NewRows(userCols).
				AddRow(int64(7), "Ann", "Lee", "ann@example.com", "$2a$12$digest", true, now, now))

		user, err := NewUserRepository(mock).GetByID(context.Background(), 7)
		require.NoError(t, err)
		assert.Equal(t, &auth.User{
			ID:           7,
			FirstName:    "Ann",
			LastName:     "Lee",
			Email:        "ann@example.com",
			PasswordHash: "$2a$12$digest",
			Confirmed:    true,
			CreatedAt:    now,
			UpdatedAt:    now,
		}, user)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectQuery(`SELECT .+ FROM users WHERE id = \$1`).
			WithArgs(int64(9)).
			WillReturnRows(pgxmock.NewRows(userCols))

		_, err := NewUserRepository(mock).GetByID(context.Background(), 9)
		require.Error(t, err)
		assert.ErrorIs(t, err, auth.ErrNotFound)
		errutil.AssertErrorCode(t, err, "USER_NOT_FOUND")
	})

	t.Run("database error", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectQuery(`SELECT .+ FROM users WHERE id = \$1`).
			WithArgs(int64(9)).
			WillReturnError(errors.New("connection refused"))

		_, err := NewUserRepository(mock).GetByID(context.Background(), 9)
		require.Error(t, err)
		assert.NotErrorIs(t, err, auth.ErrNotFound)
		errutil.AssertErrorCode(t, err, "USER_GET_BY_ID_FAILED")
		assert.Contains(t, err.Error(), "connection refused")
	})
}

func TestUserRepository_GetByEmail(t *testing.T) {
	now := time.Now().UTC()

	t.Run("matches case-insensitively", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectQuery(`SELECT .+ FROM users WHERE LOWER\(email\) = LOWER\(\$1\)`).
			WithArgs("ANN@example.com").
			WillReturnRows(pgxmock.NewRows(userCols).
				AddRow(int64(7), "Ann", "Lee", "ann@example.com", "$2a$12$digest", false, now, now))

		user, err := NewUserRepository(mock).GetByEmail(context.Background(), "ANN@example.com")
		require.NoError(t, err)
		assert.Equal(t, int64(7), user.ID)
		assert.Equal(t, "ann@example.com", user.Email)
	})

	t.Run("not found", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectQuery(`SELECT .+ FROM users WHERE LOWER\(email\)`).
			WithArgs("nobody@example.com").
			WillReturnRows(pgxmock.NewRows(userCols))

		_, err := NewUserRepository(mock).GetByEmail(context.Background(), "nobody@example.com")
		assert.ErrorIs(t, err, auth.ErrNotFound)
	})
}

func TestUserRepository_UpdateConfirmed(t *testing.T) {
	t.Run("updates", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectExec(`UPDATE users SET confirmed = \$2`).
			WithArgs(int64(7), true).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		require.NoError(t, NewUserRepository(mock).UpdateConfirmed(context.Background(), 7, true))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing user", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectExec(`UPDATE users SET confirmed = \$2`).
			WithArgs(int64(8), true).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		err := NewUserRepository(mock).UpdateConfirmed(context.Background(), 8, true)
		assert.ErrorIs(t, err, auth.ErrNotFound)
	})

	t.Run("connection lost", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectExec(`UPDATE users SET confirmed = \$2`).
			WithArgs(int64(8), true).
			WillReturnError(networkErr{})

		err := NewUserRepository(mock).UpdateConfirmed(context.Background(), 8, true)
		assert.Equal(t, fault.KindStoreUnavailable, fault.KindOf(err))
		errutil.AssertErrorContext(t, err, "operation", "update confirmed")
	})
}

func TestUserRepository_UpdatePasswordHash(t *testing.T) {
	mock := newMock(t)
	mock.ExpectExec(`UPDATE users SET password_hash = \$2`).
		WithArgs(int64(7), "$2a$13$newdigest").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, NewUserRepository(mock).UpdatePasswordHash(context.Background(), 7, "$2a$13$newdigest"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
