// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Accountd Contributors

// Package notify delivers credential notifications.
package notify

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/samber/oops"

	"github.com/accountd/accountd/internal/accounts"
	"github.com/accountd/accountd/internal/observability"
)

// consoleRule separates messages written by ConsoleNotifier.
const consoleRule = "----------------------------------------------------------------------"

// ConsoleNotifier writes each notification, body included, to a dedicated
// writer instead of sending it. It is the development mail backend: the
// operator reads one-time passwords from its output. The application log
// only records that a message was written.
type ConsoleNotifier struct {
	from   string
	logger *slog.Logger

	mu  sync.Mutex
	out io.Writer
}

// NewConsoleNotifier creates a ConsoleNotifier writing to out. from may be
// empty.
func NewConsoleNotifier(out io.Writer, from string, logger *slog.Logger) (*ConsoleNotifier, error) {
	if out == nil {
		return nil, oops.Errorf("output writer is required")
	}
	if logger == nil {
		return nil, oops.Errorf("logger is required")
	}
	return &ConsoleNotifier{from: from, logger: logger, out: out}, nil
}

// Send writes the message headers and body followed by a separator line.
func (n *ConsoleNotifier) Send(ctx context.Context, msg accounts.Notification) error {
	if err := ctx.Err(); err != nil {
		return oops.Code("NOTIFY_CANCELLED").Wrap(err)
	}

	var b strings.Builder
	b.WriteString("Content-Type: text/plain; charset=\"utf-8\"\n")
	if n.from != "" {
		fmt.Fprintf(&b, "From: %s\n", n.from)
	}
	fmt.Fprintf(&b, "To: %s\n", msg.To)
	fmt.Fprintf(&b, "Subject: %s\n", msg.Subject)
	fmt.Fprintf(&b, "X-Accountd-Kind: %s\n\n", msg.Kind)
	b.WriteString(msg.Body)
	if !strings.HasSuffix(msg.Body, "\n") {
		b.WriteString("\n")
	}
	b.WriteString(consoleRule + "\n")

	n.mu.Lock()
	_, err := io.WriteString(n.out, b.String())
	n.mu.Unlock()
	if err != nil {
		return oops.Code("NOTIFY_SEND_FAILED").
			With("kind", string(msg.Kind)).
			With("to", msg.To).
			Wrap(err)
	}

	n.logger.InfoContext(ctx, "notification written to console",
		"kind", string(msg.Kind),
		"to", msg.To,
	)
	return nil
}

// metered counts deliveries by kind and outcome.
type metered struct {
	next    accounts.Notifier
	metrics *observability.Metrics
}

// WithMetrics wraps next so every Send is counted in
// accountd_notifications_total. A nil metrics returns next unchanged.
func WithMetrics(next accounts.Notifier, metrics *observability.Metrics) accounts.Notifier {
	if metrics == nil {
		return next
	}
	return &metered{next: next, metrics: metrics}
}

func (m *metered) Send(ctx context.Context, msg accounts.Notification) error {
	err := m.next.Send(ctx, msg)
	status := observability.NotificationSent
	if err != nil {
		status = observability.NotificationFailed
	}
	m.metrics.RecordNotification(string(msg.Kind), status)
	return err //nolint:wrapcheck // decorator is transparent
}

var (
	_ accounts.Notifier = (*ConsoleNotifier)(nil)
	_ accounts.Notifier = (*metered)(nil)
)
