// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Accountd Contributors

package notify

import (
	"context"
	"log/slog"
	"time"

	"github.com/samber/oops"
	"github.com/wneessen/go-mail"

	"github.com/accountd/accountd/internal/accounts"
)

// TLS policies accepted by SMTPConfig.TLS.
const (
	TLSMandatory     = "mandatory"
	TLSOpportunistic = "opportunistic"
	TLSNone          = "none"
)

// DefaultSMTPTimeout bounds connecting and sending one message.
const DefaultSMTPTimeout = 15 * time.Second

// SMTPConfig configures SMTPNotifier.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	TLS      string
	Timeout  time.Duration
}

// mailSender is the part of *mail.Client SMTPNotifier uses.
type mailSender interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

// SMTPNotifier sends notifications as plain-text email.
type SMTPNotifier struct {
	from   string
	client mailSender
	logger *slog.Logger
}

// NewSMTPNotifier creates an SMTPNotifier. Credentials enable PLAIN auth.
func NewSMTPNotifier(cfg SMTPConfig, logger *slog.Logger) (*SMTPNotifier, error) {
	if logger == nil {
		return nil, oops.Errorf("logger is required")
	}
	if cfg.Host == "" {
		return nil, oops.Code("NOTIFY_CONFIG_INVALID").With("field", "host").Errorf("smtp host is required")
	}
	if cfg.From == "" {
		return nil, oops.Code("NOTIFY_CONFIG_INVALID").With("field", "from").Errorf("smtp from address is required")
	}

	policy, err := tlsPolicy(cfg.TLS)
	if err != nil {
		return nil, err
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultSMTPTimeout
	}

	opts := []mail.Option{
		mail.WithTLSPortPolicy(policy),
		mail.WithTimeout(timeout),
	}
	if cfg.Port > 0 {
		opts = append(opts, mail.WithPort(cfg.Port))
	}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}

	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, oops.Code("NOTIFY_CONFIG_INVALID").With("host", cfg.Host).Wrap(err)
	}
	return newSMTPNotifier(cfg.From, client, logger), nil
}

func newSMTPNotifier(from string, client mailSender, logger *slog.Logger) *SMTPNotifier {
	return &SMTPNotifier{from: from, client: client, logger: logger}
}

func tlsPolicy(name string) (mail.TLSPolicy, error) {
	switch name {
	case "", TLSOpportunistic:
		return mail.TLSOpportunistic, nil
	case TLSMandatory:
		return mail.TLSMandatory, nil
	case TLSNone:
		return mail.NoTLS, nil
	default:
		return mail.NoTLS, oops.Code("NOTIFY_CONFIG_INVALID").
			With("field", "tls").
			Errorf("unknown tls policy %q", name)
	}
}

// Send builds and delivers one message.
func (n *SMTPNotifier) Send(ctx context.Context, msg accounts.Notification) error {
	m, err := n.message(msg)
	if err != nil {
		return err
	}

	if err := n.client.DialAndSendWithContext(ctx, m); err != nil {
		return oops.Code("NOTIFY_SEND_FAILED").
			With("kind", string(msg.Kind)).
			With("to", msg.To).
			Wrap(err)
	}

	n.logger.DebugContext(ctx, "notification sent", "kind", string(msg.Kind), "to", msg.To)
	return nil
}

func (n *SMTPNotifier) message(msg accounts.Notification) (*mail.Msg, error) {
	m := mail.NewMsg()
	if err := m.From(n.from); err != nil {
		return nil, oops.Code("NOTIFY_ADDRESS_INVALID").With("from", n.from).Wrap(err)
	}
	if err := m.To(msg.To); err != nil {
		return nil, oops.Code("NOTIFY_ADDRESS_INVALID").With("to", msg.To).Wrap(err)
	}
	m.Subject(msg.Subject)
	m.SetBodyString(mail.TypeTextPlain, msg.Body)
	return m, nil
}

var _ accounts.Notifier = (*SMTPNotifier)(nil)
