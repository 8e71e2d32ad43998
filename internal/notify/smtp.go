package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/wneessen/go-mail"
)

// SMTPConfig holds outgoing mail settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Secure   bool // implicit TLS, usually port 465
	User     string
	Password string
	From     string
	FromName string
	Timeout  time.Duration
}

// SMTPNotifier sends mail through an SMTP relay.
type SMTPNotifier struct {
	client *mail.Client
	cfg    SMTPConfig
	logger *slog.Logger
}

// NewSMTP creates an SMTP notifier. No connection is made until Send.
func NewSMTP(cfg SMTPConfig, logger *slog.Logger) (*SMTPNotifier, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}

	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithTimeout(cfg.Timeout),
	}
	if cfg.Secure {
		opts = append(opts, mail.WithSSL())
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSOpportunistic))
	}
	if cfg.User != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.User),
			mail.WithPassword(cfg.Password),
		)
	}

	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("create smtp client: %w", err)
	}
	return &SMTPNotifier{client: client, cfg: cfg, logger: logger}, nil
}

// Send delivers one plain-text message.
func (n *SMTPNotifier) Send(ctx context.Context, to, subject, body string) error {
	msg, err := n.buildMessage(to, subject, body)
	if err != nil {
		return err
	}

	if err := n.client.DialAndSendWithContext(ctx, msg); err != nil {
		n.logger.Error("Sending email failed", "to", to, "error", err)
		return fmt.Errorf("send email to %s: %w", to, err)
	}

	n.logger.Info("Email sent", "to", to, "subject", subject)
	return nil
}

func (n *SMTPNotifier) buildMessage(to, subject, body string) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.FromFormat(n.cfg.FromName, n.cfg.From); err != nil {
		return nil, fmt.Errorf("set sender %q: %w", n.cfg.From, err)
	}
	if err := msg.To(to); err != nil {
		return nil, fmt.Errorf("set recipient %q: %w", to, err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)
	return msg, nil
}
