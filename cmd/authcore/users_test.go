// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Authcore Contributors

package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/authcore/authcore/pkg/authcore"
)

func TestRegisterCommand(t *testing.T) {
	out, stderr, err := execute(t, "register",
		"--bcrypt-cost=4",
		"--first-name=Jane",
		"--last-name=Doe",
		"--email=jane@x.com",
		"--password=s3cretpass",
	)
	require.NoError(t, err)

	var got registerOutput
	require.NoError(t, yaml.Unmarshal([]byte(out), &got))
	assert.Equal(t, int64(1), got.ID)
	assert.Equal(t, "Jane Doe", got.Name)
	assert.Equal(t, "jane@x.com", got.Email)
	assert.False(t, got.Confirmed)
	assert.Empty(t, got.Warnings)

	// The log notifier prints the link.
	assert.Contains(t, stderr, "confirmation link")
	assert.Contains(t, stderr, "http://localhost:3000/user/confirm/")
}

func TestRegisterCommand_ValidationError(t *testing.T) {
	_, _, err := execute(t, "register",
		"--bcrypt-cost=4",
		"--first-name=Jane",
		"--last-name=Doe",
		"--email=not-an-email",
		"--password=s3cretpass",
	)
	require.Error(t, err)

	var xerr *authcore.ExternalError
	require.ErrorAs(t, err, &xerr)
	assert.Equal(t, "VALIDATION_FAILED", xerr.Code)
	require.Len(t, xerr.Fields, 1)
	assert.Equal(t, "email", xerr.Fields[0].Field)
}

func TestRegisterCommand_RequiresFlags(t *testing.T) {
	_, _, err := execute(t, "register", "--email=jane@x.com")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag")
}

func TestConfirmCommand_UnknownToken(t *testing.T) {
	out, _, err := execute(t, "confirm", "deadbeef")
	require.NoError(t, err)
	assert.Equal(t, "confirmed: false\n", out)
}

func TestConfirmCommand_RequiresToken(t *testing.T) {
	_, _, err := execute(t, "confirm")
	require.Error(t, err)
}
