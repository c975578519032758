// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Authcore Contributors

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/authcore/authcore/internal/config"
	"github.com/authcore/authcore/pkg/authcore"
)

// StoreStatus is the reachability of one configured backend.
type StoreStatus struct {
	Component string `json:"component" yaml:"component"`
	Backend   string `json:"backend" yaml:"backend"`
	Ready     bool   `json:"ready" yaml:"ready"`
	Error     string `json:"error,omitempty" yaml:"error,omitempty"`
}

// statusConfig holds configuration for the status command.
type statusConfig struct {
	jsonOutput bool
	timeout    time.Duration
}

// NewStatusCmd creates the status subcommand.
func NewStatusCmd() *cobra.Command {
	cfg := &statusConfig{}

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Check that the configured stores are reachable",
		Long:  `Open the configured user store, token store and notifier and report their readiness.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStatus(cmd, cfg)
		},
	}

	cmd.Flags().BoolVar(&cfg.jsonOutput, "json", false, "output status as JSON")
	cmd.Flags().DurationVar(&cfg.timeout, "timeout", 5*time.Second, "readiness check timeout")

	return cmd
}

func runStatus(cmd *cobra.Command, sc *statusConfig) error {
	cfg, _, err := bootstrap(cmd)
	if err != nil {
		return err
	}
	// Status reports failures instead of waiting them out.
	cfg.Startup.Attempts = 1

	ctx, cancel := context.WithTimeout(context.Background(), sc.timeout)
	defer cancel()

	statuses := collectStatus(ctx, cfg, serviceOpener)

	if sc.jsonOutput {
		data, err := json.MarshalIndent(statuses, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal status: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}
	cmd.Print(formatStatusTable(statuses))
	return nil
}

// collectStatus opens the service once and attributes the outcome to each
// configured backend.
func collectStatus(ctx context.Context, cfg *config.Config, open func(context.Context, *config.Config, *slog.Logger) (*authcore.Service, error)) []StoreStatus {
	statuses := []StoreStatus{
		{Component: "users", Backend: storeName(cfg)},
		{Component: "tokens", Backend: cfg.Tokens.Backend},
		{Component: "notifier", Backend: cfg.Notifier.Kind},
	}

	svc, err := open(ctx, cfg, slog.New(slog.DiscardHandler))
	if err == nil {
		err = svc.Ready(ctx)
		_ = svc.Close()
	}
	for i := range statuses {
		statuses[i].Ready = err == nil
		if err != nil {
			statuses[i].Error = err.Error()
		}
	}
	return statuses
}

// formatStatusTable formats the status as a human-readable table.
func formatStatusTable(statuses []StoreStatus) string {
	var buf []byte
	w := tabwriter.NewWriter((*byteWriter)(&buf), 0, 0, 2, ' ', 0)

	_, _ = fmt.Fprintln(w, "COMPONENT\tBACKEND\tSTATUS")
	_, _ = fmt.Fprintln(w, "---------\t-------\t------")
	for _, s := range statuses {
		state := "ready"
		if !s.Ready {
			state = "unavailable: " + s.Error
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", s.Component, s.Backend, state)
	}

	_ = w.Flush()
	return string(buf)
}

// byteWriter adapts a byte slice to io.Writer for tabwriter.
type byteWriter []byte

func (b *byteWriter) Write(p []byte) (int, error) {
	*b = append(*b, p...)
	return len(p), nil
}
