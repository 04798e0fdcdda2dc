package mail

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestFormat(t *testing.T) {
	raw := string(format(Message{
		Subject: "Confirmation code",
		Body:    "line one\nline two",
		From:    "noreply@example.com",
		To:      []string{"a@example.com", "b@example.com"},
	}))

	for _, want := range []string{
		"From: noreply@example.com\r\n",
		"To: a@example.com, b@example.com\r\n",
		"Subject: Confirmation code\r\n",
		"\r\n\r\nline one\r\nline two\r\n",
	} {
		if !strings.Contains(raw, want) {
			t.Errorf("formatted message missing %q:\n%s", want, raw)
		}
	}
}

func TestNewSMTPSender_BadAddr(t *testing.T) {
	if _, err := NewSMTPSender("no-port", "", ""); err == nil {
		t.Fatal("NewSMTPSender() should reject an address without a port")
	}
}

func TestSMTPSender_CancelledContext(t *testing.T) {
	s, err := NewSMTPSender("127.0.0.1:1", "", "")
	if err != nil {
		t.Fatalf("NewSMTPSender() error = %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := s.Send(ctx, Message{From: "a@b.co", To: []string{"c@d.co"}}); err == nil {
		t.Fatal("Send() with cancelled context should fail")
	}
}

func TestLogSender(t *testing.T) {
	var buf bytes.Buffer
	s := NewLogSender(slog.New(slog.NewTextHandler(&buf, nil)))

	err := s.Send(context.Background(), Message{
		Subject: "Confirmation code",
		Body:    "secret-code",
		From:    "noreply@example.com",
		To:      []string{"a@example.com"},
	})
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if !strings.Contains(buf.String(), "secret-code") {
		t.Errorf("log output missing body: %s", buf.String())
	}
}

func TestValidAddress(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"user@example.com", true},
		{"first.last+tag@sub.example.org", true},
		{"", false},
		{"no-at-sign", false},
		{"user@localhost", false},
		{"Bob <bob@example.com>", false},
		{"two@@example.com", false},
	}
	for _, tt := range tests {
		if got := ValidAddress(tt.in); got != tt.want {
			t.Errorf("ValidAddress(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
