// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Authcore Contributors

package auth

import "errors"

// ErrNotFound is returned by repositories when a requested user does not exist.
var ErrNotFound = errors.New("not found")

// Public error codes returned by credential checks.
const (
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeEmailNotConfirmed  = "EMAIL_NOT_CONFIRMED"
)

// Warning codes attached to a Registration.
const (
	WarnTokenIssueFailed   = "TOKEN_ISSUE_FAILED"
	WarnNotificationFailed = "NOTIFICATION_FAILED"
)
