package mailer

import (
	"context"
	"errors"
	"testing"
	"time"

	"gopkg.in/gomail.v2"
)

type dialerStub struct {
	sent  []*gomail.Message
	err   error
	delay time.Duration
}

func (d *dialerStub) DialAndSend(m ...*gomail.Message) error {
	time.Sleep(d.delay)
	d.sent = append(d.sent, m...)
	return d.err
}

func TestConfigEnabled(t *testing.T) {
	if (Config{Host: "smtp.example.com", Port: 587}).Enabled() {
		t.Fatal("expected a config without a from address to be disabled")
	}
	if !(Config{Host: "smtp.example.com", Port: 587, From: "ledger@example.com"}).Enabled() {
		t.Fatal("expected a complete config to be enabled")
	}
	if _, err := NewSMTPSender(Config{}); err == nil {
		t.Fatal("expected an empty config to be rejected")
	}
}

func TestSMTPSenderSend(t *testing.T) {
	stub := &dialerStub{}
	s := &SMTPSender{from: "ledger@example.com", dialer: stub}

	if err := s.Send(context.Background(), []string{"leader@example.com"}, "Drift", "<p>hi</p>"); err != nil {
		t.Fatalf("expected send to succeed, got %v", err)
	}
	if len(stub.sent) != 1 {
		t.Fatalf("expected one message, got %d", len(stub.sent))
	}
	if got := stub.sent[0].GetHeader("Subject"); len(got) != 1 || got[0] != "Drift" {
		t.Fatalf("unexpected subject header: %v", got)
	}
}

func TestSMTPSenderSend_NoRecipients(t *testing.T) {
	stub := &dialerStub{}
	s := &SMTPSender{from: "ledger@example.com", dialer: stub}
	if err := s.Send(context.Background(), nil, "x", "y"); err != nil || len(stub.sent) != 0 {
		t.Fatalf("expected nothing sent, got %d messages and %v", len(stub.sent), err)
	}
}

func TestSMTPSenderSend_Errors(t *testing.T) {
	s := &SMTPSender{from: "ledger@example.com", dialer: &dialerStub{err: errors.New("relay refused")}}
	if err := s.Send(context.Background(), []string{"a@example.com"}, "x", "y"); err == nil {
		t.Fatal("expected the relay error to be returned")
	}

	slow := &SMTPSender{from: "ledger@example.com", dialer: &dialerStub{delay: time.Second}}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := slow.Send(ctx, []string{"a@example.com"}, "x", "y"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}
