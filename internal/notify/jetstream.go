// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Authcore Contributors

// Package notify delivers confirmation links produced by registration.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/authcore/authcore/internal/auth"
)

// Defaults for the JetStream notifier.
const (
	DefaultSubject = "authcore.confirmation"
	DefaultStream  = "AUTHCORE"
	EventType      = "user.confirmation_requested"
)

// Publisher is the subset of nats.JetStreamContext used by JetStreamNotifier.
type Publisher interface {
	PublishMsg(m *nats.Msg, opts ...nats.PubOpt) (*nats.PubAck, error)
}

// Event is the JSON payload published for each confirmation message.
type Event struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	OccurredAt time.Time `json:"occurredAt"`
	UserID     int64     `json:"userId"`
	To         string    `json:"to"`
	FirstName  string    `json:"firstName"`
	URL        string    `json:"url"`
}

// JetStreamNotifier publishes confirmation messages to a JetStream subject
// for an external mailer to deliver. The event ID is used as the JetStream
// message ID so duplicate publishes are dropped by the server.
type JetStreamNotifier struct {
	js      Publisher
	subject string
	logger  *slog.Logger
	now     func() time.Time
}

// JetStreamOption configures a JetStreamNotifier.
type JetStreamOption func(*JetStreamNotifier)

// WithSubject overrides DefaultSubject.
func WithSubject(subject string) JetStreamOption {
	return func(n *JetStreamNotifier) {
		if subject != "" {
			n.subject = subject
		}
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) JetStreamOption {
	return func(n *JetStreamNotifier) {
		if logger != nil {
			n.logger = logger
		}
	}
}

// NewJetStreamNotifier creates a notifier publishing through js.
func NewJetStreamNotifier(js Publisher, opts ...JetStreamOption) (*JetStreamNotifier, error) {
	if js == nil {
		return nil, oops.Code("NOTIFIER_INVALID_CONFIG").Errorf("jetstream publisher is required")
	}
	n := &JetStreamNotifier{
		js:      js,
		subject: DefaultSubject,
		logger:  slog.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n, nil
}

// Send publishes msg as an Event.
func (n *JetStreamNotifier) Send(ctx context.Context, msg auth.ConfirmationMessage) error {
	ev := Event{
		ID:         ulid.Make().String(),
		Type:       EventType,
		OccurredAt: n.now().UTC(),
		UserID:     msg.UserID,
		To:         msg.To,
		FirstName:  msg.FirstName,
		URL:        msg.URL,
	}
	data, err := json.Marshal(ev)
	if err != nil {
		RecordSent(NotifierJetStream, StatusError)
		return oops.Code("NOTIFY_ENCODE_FAILED").With("user_id", msg.UserID).Wrap(err)
	}

	m := nats.NewMsg(n.subject)
	m.Data = data
	m.Header.Set(nats.MsgIdHdr, ev.ID)

	ack, err := n.js.PublishMsg(m, nats.Context(ctx))
	if err != nil {
		RecordSent(NotifierJetStream, StatusError)
		return oops.Code("NOTIFY_PUBLISH_FAILED").
			With("subject", n.subject).
			With("event_id", ev.ID).
			With("user_id", msg.UserID).
			Wrap(err)
	}

	RecordSent(NotifierJetStream, StatusSuccess)
	n.logger.DebugContext(ctx, "confirmation event published",
		"event_id", ev.ID,
		"user_id", msg.UserID,
		"stream", ack.Stream,
		"sequence", ack.Sequence,
		"duplicate", ack.Duplicate,
	)
	return nil
}

// StreamManager is the subset of nats.JetStreamContext used by EnsureStream.
type StreamManager interface {
	StreamInfo(stream string, opts ...nats.JSOpt) (*nats.StreamInfo, error)
	AddStream(cfg *nats.StreamConfig, opts ...nats.JSOpt) (*nats.StreamInfo, error)
}

// EnsureStream creates stream capturing subject unless it already exists.
func EnsureStream(ctx context.Context, js StreamManager, stream, subject string) error {
	_, err := js.StreamInfo(stream, nats.Context(ctx))
	if err == nil {
		return nil
	}
	if !errors.Is(err, nats.ErrStreamNotFound) {
		return oops.Code("NOTIFY_STREAM_FAILED").With("stream", stream).Wrap(err)
	}

	_, err = js.AddStream(&nats.StreamConfig{
		Name:       stream,
		Subjects:   []string{subject},
		Duplicates: 2 * time.Minute,
	}, nats.Context(ctx))
	if err != nil {
		return oops.Code("NOTIFY_STREAM_FAILED").With("stream", stream).Wrap(err)
	}
	return nil
}
