package notify

import (
	"context"
	"fmt"
	"net/smtp"

	"github.com/gapilongo/OPiN/errors"
	"github.com/gapilongo/OPiN/types"
)

// SMTPConfig locates the outbound mail relay.
type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	From     string `yaml:"from"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// SMTPSender delivers notification emails through a plain SMTP relay.
type SMTPSender struct {
	cfg SMTPConfig
}

// NewSMTPSender creates a sender for the given relay.
func NewSMTPSender(cfg SMTPConfig) *SMTPSender {
	return &SMTPSender{cfg: cfg}
}

// Send implements EmailSender.
func (s *SMTPSender) Send(_ context.Context, recipient, subject, body string) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)

	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}

	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s\r\n",
		s.cfg.From, recipient, subject, body)

	if err := smtp.SendMail(addr, auth, s.cfg.From, []string{recipient}, []byte(msg)); err != nil {
		return errors.WrapTransient(err, "email", "Send", "sending to "+recipient)
	}
	return nil
}

// renderEmail produces the subject and body for a notification event.
func renderEmail(event types.NotificationEvent) (subject, body string) {
	subject = fmt.Sprintf("New %s data available", event.Data.Category)
	body = fmt.Sprintf(
		"A data point matching your subscription arrived.\n\n%s\n\nPoint: %s\nReceived: %s\n",
		event.Data.Summary,
		event.Data.ID,
		event.Data.Timestamp.Format("2006-01-02 15:04:05 MST"),
	)
	return subject, body
}
