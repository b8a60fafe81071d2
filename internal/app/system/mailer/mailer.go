// internal/app/system/mailer/mailer.go

// Package mailer delivers outbound email through SendGrid. Sends attached
// to request handling go through SendAsync, which logs failures and moves
// on: a mail outage must not fail a login or an approval.
package mailer

import (
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"
)

// Email is one outbound message.
type Email struct {
	To       string
	ToName   string
	Subject  string
	TextBody string
	HTMLBody string
}

// Sender delivers email. The SendGrid implementation is used in production;
// tests substitute a capture fake.
type Sender interface {
	Send(e Email) error
}

// Mailer is the SendGrid-backed Sender.
type Mailer struct {
	client   *sendgrid.Client
	from     *sgmail.Email
	log      *zap.Logger
	disabled bool
}

// New builds a Mailer. An empty API key disables delivery (dev mode);
// messages are logged instead of sent.
func New(apiKey, fromName, fromEmail string, logger *zap.Logger) *Mailer {
	m := &Mailer{
		from: sgmail.NewEmail(fromName, fromEmail),
		log:  logger,
	}
	if apiKey == "" {
		m.disabled = true
		logger.Warn("sendgrid api key not set; outbound email disabled")
		return m
	}
	m.client = sendgrid.NewSendClient(apiKey)
	return m
}

// Send delivers one message synchronously.
func (m *Mailer) Send(e Email) error {
	if m.disabled {
		m.log.Info("email suppressed (delivery disabled)",
			zap.String("to", e.To), zap.String("subject", e.Subject))
		return nil
	}

	to := sgmail.NewEmail(e.ToName, e.To)
	msg := sgmail.NewSingleEmail(m.from, e.Subject, to, e.TextBody, e.HTMLBody)
	resp, err := m.client.Send(msg)
	if err != nil {
		return fmt.Errorf("sendgrid send: %w", err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("sendgrid send: status %d: %s", resp.StatusCode, resp.Body)
	}
	return nil
}

// SendAsync delivers in the background, logging failure. Use for emails
// that must not block or fail the triggering request.
func SendAsync(s Sender, logger *zap.Logger, e Email) {
	go func() {
		if err := s.Send(e); err != nil {
			logger.Error("email send failed",
				zap.Error(err), zap.String("to", e.To), zap.String("subject", e.Subject))
		}
	}()
}
