// Package mail delivers outbound email.
//
// The auth flow depends only on the Sender interface. Production uses
// SMTPSender; development without an SMTP relay uses LogSender, which writes
// the message to the log so the confirmation code can be copied from there.
package mail

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/mail"
	"net/smtp"
	"strings"
	"time"
)

// Message is a plain-text email.
type Message struct {
	Subject string
	Body    string
	From    string
	To      []string
}

// Sender delivers a message or reports why it could not.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// =========================================================================
// SMTP
// =========================================================================

// SMTPSender relays mail through an SMTP server with optional PLAIN auth.
type SMTPSender struct {
	addr string
	auth smtp.Auth
}

// NewSMTPSender creates a sender for addr ("host:port"). Username and password
// may be empty for an unauthenticated relay.
func NewSMTPSender(addr, username, password string) (*SMTPSender, error) {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, fmt.Errorf("mail: invalid SMTP address %q: %w", addr, err)
	}

	s := &SMTPSender{addr: addr}
	if username != "" {
		s.auth = smtp.PlainAuth("", username, password, host)
	}
	return s, nil
}

// Send delivers msg. net/smtp has no context support, so cancellation is only
// checked before dialing.
func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("mail: %w", err)
	}
	if err := smtp.SendMail(s.addr, s.auth, msg.From, msg.To, format(msg)); err != nil {
		return fmt.Errorf("mail: sending to %s: %w", strings.Join(msg.To, ","), err)
	}
	return nil
}

// format renders RFC 5322 headers followed by the body.
func format(msg Message) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", msg.From)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(msg.To, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	fmt.Fprintf(&b, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(msg.Body, "\n", "\r\n"))
	b.WriteString("\r\n")
	return []byte(b.String())
}

// =========================================================================
// LOG
// =========================================================================

// LogSender writes messages to a logger instead of sending them.
type LogSender struct {
	logger *slog.Logger
}

func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(ctx context.Context, msg Message) error {
	s.logger.InfoContext(ctx, "email not sent (no SMTP relay configured)",
		slog.String("from", msg.From),
		slog.Any("to", msg.To),
		slog.String("subject", msg.Subject),
		slog.String("body", msg.Body),
	)
	return nil
}

// ValidAddress reports whether s is a bare email address such as
// "user@example.com". Display names ("Bob <bob@example.com>") are rejected.
func ValidAddress(s string) bool {
	addr, err := mail.ParseAddress(s)
	if err != nil {
		return false
	}
	return addr.Name == "" && addr.Address == s && strings.Contains(s[strings.LastIndex(s, "@"):], ".")
}
