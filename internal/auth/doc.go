// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Authcore Contributors

// Package auth holds the user model, the credential hasher, the
// registration policy and the registration workflow.
//
// # Domain Types
//
// A User is created unconfirmed by RegistrationService.Register and becomes
// confirmed when its single-use token is redeemed through ConfirmUser.
// Repositories never see plaintext passwords; digests come from a
// PasswordHasher.
//
// # Services
//
// RegistrationService coordinates the flow:
//   - Register - validate input, hash, persist, issue a token, notify
//   - ConfirmUser - redeem a token and mark the user confirmed
//   - Authenticate - check credentials of a confirmed user
//   - CurrentUser - load the user behind a session
//
// Token issuance and notification failures do not fail a registration;
// they are reported as warnings on the returned Registration.
package auth
