// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Authcore Contributors

package auth

import (
	"context"
	"time"
)

// User is a registered account.
type User struct {
	ID           int64
	FirstName    string
	LastName     string
	Email        string
	PasswordHash string
	Confirmed    bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// FullName joins the first and last name.
func (u *User) FullName() string {
	return u.FirstName + " " + u.LastName
}

// View returns the externally visible projection of the user.
func (u *User) View() UserView {
	return UserView{
		ID:        u.ID,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Name:      u.FullName(),
		Email:     u.Email,
		Confirmed: u.Confirmed,
	}
}

// UserView is the client-facing shape of a User. It never carries the
// password digest.
type UserView struct {
	ID        int64  `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Confirmed bool   `json:"confirmed"`
}

// UserRepository manages user persistence.
type UserRepository interface {
	// Create stores a new user and assigns its ID and timestamps.
	// Returns a fault.KindAlreadyRegistered error if the email is taken.
	Create(ctx context.Context, user *User) error

	// GetByID retrieves a user by ID.
	GetByID(ctx context.Context, id int64) (*User, error)

	// GetByEmail retrieves a user by email (case-insensitive).
	GetByEmail(ctx context.Context, email string) (*User, error)

	// UpdateConfirmed sets the confirmed flag of a user.
	UpdateConfirmed(ctx context.Context, id int64, confirmed bool) error

	// UpdatePasswordHash replaces the stored password digest.
	UpdatePasswordHash(ctx context.Context, id int64, digest string) error
}

// ConfirmationTokens issues and redeems single-use confirmation tokens.
type ConfirmationTokens interface {
	// Issue creates a token bound to userID.
	Issue(ctx context.Context, userID int64) (string, error)

	// Consume atomically redeems a token. Unknown tokens yield a
	// fault.KindTokenNotFound error.
	Consume(ctx context.Context, token string) (int64, error)
}

// ConfirmationMessage is handed to a Notifier after registration.
type ConfirmationMessage struct {
	UserID    int64  `json:"userId"`
	To        string `json:"to"`
	FirstName string `json:"firstName"`
	URL       string `json:"url"`
}

// Notifier delivers confirmation links to users.
type Notifier interface {
	Send(ctx context.Context, msg ConfirmationMessage) error
}
