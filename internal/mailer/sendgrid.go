package mailer

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"weddingrsvp/internal/config"
)

// SendGridMailer delivers mail through the SendGrid v3 API.
type SendGridMailer struct {
	client    *sendgrid.Client
	fromEmail string
	fromName  string
}

func NewSendGrid(cfg *config.Config) (*SendGridMailer, error) {
	if cfg.SendGridAPIKey == "" {
		return nil, fmt.Errorf("sendgrid provider requires SENDGRID_API_KEY")
	}
	if cfg.EmailFrom == "" {
		return nil, fmt.Errorf("sendgrid provider requires EMAIL_FROM")
	}

	log.Info().Str("from", cfg.EmailFrom).Msg("SendGrid mailer enabled")

	return &SendGridMailer{
		client:    sendgrid.NewSendClient(cfg.SendGridAPIKey),
		fromEmail: cfg.EmailFrom,
		fromName:  cfg.EmailFromName,
	}, nil
}

func (m *SendGridMailer) Send(ctx context.Context, msg Message) error {
	subject, textBody, htmlBody, err := render(msg)
	if err != nil {
		return err
	}

	from := mail.NewEmail(m.fromName, m.fromEmail)
	to := mail.NewEmail(msg.ToName, msg.To)
	email := mail.NewSingleEmail(from, subject, to, textBody, htmlBody)

	resp, err := m.client.SendWithContext(ctx, email)
	if err != nil {
		return fmt.Errorf("failed to send %s email: %w", msg.Kind, err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("sendgrid rejected %s email: status %d", msg.Kind, resp.StatusCode)
	}

	log.Info().Str("kind", string(msg.Kind)).Str("to", msg.To).Int("status", resp.StatusCode).Msg("email sent")
	return nil
}
