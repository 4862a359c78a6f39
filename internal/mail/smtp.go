// internal/mail/smtp.go
package mail

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/smtp"
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "signup-notifier/internal/common/errors"
	"signup-notifier/internal/common/logger"
)

// SMTPConfig configures the fallback SMTP transport.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	UseTLS   bool
}

// SMTPTransport sends through a plain SMTP relay.
type SMTPTransport struct {
	cfg    SMTPConfig
	logger logger.Logger
}

func NewSMTPTransport(cfg SMTPConfig, log logger.Logger) *SMTPTransport {
	return &SMTPTransport{
		cfg:    cfg,
		logger: log.WithFields(map[string]interface{}{"transport": "smtp"}),
	}
}

func (t *SMTPTransport) Send(ctx context.Context, msg *Message) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, apperrors.NewTransportFailedError("smtp", err)
	}

	raw := BuildRFC2822(msg, t.cfg.Host)
	recipients := msg.Recipients()
	addr := fmt.Sprintf("%s:%d", t.cfg.Host, t.cfg.Port)

	var auth smtp.Auth
	if t.cfg.Username != "" && t.cfg.Password != "" {
		auth = smtp.PlainAuth("", t.cfg.Username, t.cfg.Password, t.cfg.Host)
	}

	var err error
	if t.cfg.UseTLS {
		err = t.sendWithTLS(addr, auth, msg.From, recipients, raw)
	} else {
		err = smtp.SendMail(addr, auth, msg.From, recipients, raw)
	}
	if err != nil {
		t.logger.Error("SMTP send failed", map[string]interface{}{
			"to":    msg.To,
			"error": err.Error(),
		})
		return false, apperrors.NewTransportFailedError("smtp", err)
	}

	t.logger.Info("email sent", map[string]interface{}{"to": msg.To})
	return true, nil
}

// BuildRFC2822 serializes the message with headers the way relays expect.
// BCC recipients are deliberately absent from the headers; they only appear
// in the envelope.
func BuildRFC2822(msg *Message, hostname string) []byte {
	var builder strings.Builder

	from := msg.From
	if msg.FromName != "" {
		from = fmt.Sprintf("%s <%s>", msg.FromName, msg.From)
	}

	builder.WriteString(fmt.Sprintf("From: %s\r\n", from))
	builder.WriteString(fmt.Sprintf("To: %s\r\n", strings.Join(msg.To, ", ")))

	if len(msg.CC) > 0 {
		builder.WriteString(fmt.Sprintf("Cc: %s\r\n", strings.Join(msg.CC, ", ")))
	}
	if msg.ReplyTo != "" {
		builder.WriteString(fmt.Sprintf("Reply-To: %s\r\n", msg.ReplyTo))
	}

	builder.WriteString(fmt.Sprintf("Subject: %s\r\n", msg.Subject))
	builder.WriteString(fmt.Sprintf("Date: %s\r\n", time.Now().UTC().Format(time.RFC1123Z)))
	builder.WriteString(fmt.Sprintf("Message-ID: <%s@%s>\r\n", uuid.NewString(), hostname))

	for k, v := range msg.Headers {
		builder.WriteString(fmt.Sprintf("%s: %s\r\n", k, v))
	}

	builder.WriteString("MIME-Version: 1.0\r\n")
	if msg.HTML {
		builder.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	} else {
		builder.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	}

	builder.WriteString("\r\n")
	builder.WriteString(msg.Body)

	return []byte(builder.String())
}

func (t *SMTPTransport) sendWithTLS(addr string, auth smtp.Auth, from string, to []string, raw []byte) error {
	client, err := smtp.Dial(addr)
	if err != nil {
		return fmt.Errorf("failed to connect to SMTP server: %w", err)
	}
	defer client.Close()

	tlsConfig := &tls.Config{
		ServerName:         t.cfg.Host,
		InsecureSkipVerify: false,
	}
	if err = client.StartTLS(tlsConfig); err != nil {
		return fmt.Errorf("failed to start TLS: %w", err)
	}

	if auth != nil {
		if err = client.Auth(auth); err != nil {
			return fmt.Errorf("SMTP authentication failed: %w", err)
		}
	}

	if err = client.Mail(from); err != nil {
		return fmt.Errorf("failed to set sender: %w", err)
	}
	for _, rcpt := range to {
		if err = client.Rcpt(rcpt); err != nil {
			return fmt.Errorf("failed to set recipient %s: %w", rcpt, err)
		}
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("failed to open data writer: %w", err)
	}
	if _, err = w.Write(raw); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	if err = w.Close(); err != nil {
		return fmt.Errorf("failed to close data writer: %w", err)
	}

	return client.Quit()
}
