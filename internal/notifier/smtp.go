package notifier

import (
	"context"

	"github.com/google/uuid"
	"gopkg.in/gomail.v2"

	"github.com/rosterhq/oncall-api/internal/config"
	apperrors "github.com/rosterhq/oncall-api/pkg/errors"
)

// SMTPEmailSender delivers email over SMTP.
type SMTPEmailSender struct {
	dialer *gomail.Dialer
	from   string
}

func NewSMTPEmailSender(cfg config.SMTPConfig) *SMTPEmailSender {
	return &SMTPEmailSender{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
	}
}

func (s *SMTPEmailSender) SendEmail(_ context.Context, to []string, cc []string, subject, html string) (string, error) {
	if len(to) == 0 {
		return "", apperrors.Validation("email requires at least one recipient", nil)
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to...)
	if len(cc) > 0 {
		m.SetHeader("Cc", cc...)
	}
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", html)

	// SMTP gives us no provider id; mint one so the idempotency
	// ledger still records which send happened.
	messageID := uuid.New().String()
	m.SetHeader("Message-ID", "<"+messageID+"@oncall-api>")

	if err := s.dialer.DialAndSend(m); err != nil {
		return "", apperrors.Channel("failed to send email", err)
	}
	return messageID, nil
}
