// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Authcore Contributors

// Package gate decides whether a session may invoke an operation and runs
// operations behind that decision.
package gate

// Session is the read-only view of the caller's session. An anonymous
// session reports ok=false; a zero user ID is treated as anonymous too.
type Session interface {
	UserID() (id int64, ok bool)
}

type staticSession struct {
	id int64
}

func (s staticSession) UserID() (int64, bool) {
	return s.id, s.id != 0
}

// Anonymous is a session without a user.
var Anonymous Session = staticSession{}

// ForUser returns a session authenticated as userID.
func ForUser(userID int64) Session {
	return staticSession{id: userID}
}

// IsAuthenticated reports whether session carries a non-zero user ID.
func IsAuthenticated(session Session) bool {
	if session == nil {
		return false
	}
	id, ok := session.UserID()
	return ok && id != 0
}

// Decision is the outcome of an authorization check.
type Decision int

// Decisions. The zero value denies.
const (
	Deny Decision = iota
	Allow
)

func (d Decision) String() string {
	if d == Allow {
		return "allow"
	}
	return "deny"
}

// RequireAuth decides whether session may invoke op. Public operations are
// allowed without looking at the session.
func RequireAuth(session Session, op Operation) Decision {
	if !op.Protected {
		return Allow
	}
	if IsAuthenticated(session) {
		return Allow
	}
	return Deny
}
