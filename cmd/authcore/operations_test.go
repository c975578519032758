// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Authcore Contributors

package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestOperationsCommand(t *testing.T) {
	out, _, err := execute(t, "operations")
	require.NoError(t, err)

	var docs []operationDoc
	require.NoError(t, yaml.Unmarshal([]byte(out), &docs))
	require.Len(t, docs, 5)

	byName := make(map[string]operationDoc, len(docs))
	for _, d := range docs {
		byName[d.Name] = d
	}

	assert.True(t, byName["hello"].Protected)
	assert.True(t, byName["me"].Protected)
	assert.Nil(t, byName["me"].Input)

	register := byName["register"]
	assert.False(t, register.Protected)
	require.NotNil(t, register.Input)
	assert.Equal(t, "object", register.Input["type"])
	assert.ElementsMatch(t, []any{"firstName", "lastName", "email", "password"}, register.Input["required"])
}
