// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Authcore Contributors

package notify

import (
	"context"
	"log/slog"

	"github.com/authcore/authcore/internal/auth"
)

// LogNotifier writes confirmation links to the log instead of delivering
// them. Intended for development.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier creates a LogNotifier. A nil logger selects slog.Default().
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger}
}

// Send logs msg.
func (n *LogNotifier) Send(ctx context.Context, msg auth.ConfirmationMessage) error {
	n.logger.InfoContext(ctx, "confirmation link",
		"user_id", msg.UserID,
		"to", msg.To,
		"url", msg.URL,
	)
	RecordSent(NotifierLog, StatusSuccess)
	return nil
}
