// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Authcore Contributors

package main

import (
	"encoding/json"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/authcore/authcore/internal/auth"
	"github.com/authcore/authcore/internal/auth/memory"
	"github.com/authcore/authcore/internal/notify"
	"github.com/authcore/authcore/internal/token"
	"github.com/authcore/authcore/pkg/authcore"
)

// operationDoc describes one entry of the operation table.
type operationDoc struct {
	Name      string         `yaml:"name"`
	Protected bool           `yaml:"protected"`
	Help      string         `yaml:"help,omitempty"`
	Input     map[string]any `yaml:"input,omitempty"`
}

// NewOperationsCmd creates the operations subcommand.
func NewOperationsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "operations",
		Short: "List the operation table with input schemas",
		Long: `List every operation the service dispatches, whether it requires an
authenticated session and the JSON Schema its input is validated against.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			docs, err := describeOperations()
			if err != nil {
				return err
			}
			return writeYAML(cmd.OutOrStdout(), docs)
		},
	}
}

// describeOperations builds a store-less service to read its operation table.
func describeOperations() ([]operationDoc, error) {
	hasher, err := auth.NewBcryptHasher(auth.DefaultCost)
	if err != nil {
		return nil, err
	}
	tokens, err := token.NewStore(token.NewMemoryBackend())
	if err != nil {
		return nil, err
	}
	svc, err := authcore.New(authcore.Deps{
		Users:    memory.NewUserRepository(),
		Hasher:   hasher,
		Tokens:   tokens,
		Notifier: notify.NewLogNotifier(nil),
	})
	if err != nil {
		return nil, err
	}

	var docs []operationDoc
	for _, op := range svc.Operations() {
		doc := operationDoc{Name: op.Name, Protected: op.Protected, Help: op.Help}
		if raw, _ := svc.InputSchema(op.Name); raw != nil {
			if err := json.Unmarshal(raw, &doc.Input); err != nil {
				return nil, oops.Code("SCHEMA_DECODE_FAILED").With("operation", op.Name).Wrap(err)
			}
		}
		docs = append(docs, doc)
	}
	return docs, nil
}
