package mailer

import (
	"context"

	"github.com/rs/zerolog/log"
)

// DryRunMailer renders messages and logs them instead of sending.
// It is the default provider so development setups never reach guests.
type DryRunMailer struct{}

func NewDryRun() *DryRunMailer {
	log.Warn().Msg("dry-run mailer enabled: emails will be logged, not sent")
	return &DryRunMailer{}
}

func (m *DryRunMailer) Send(ctx context.Context, msg Message) error {
	subject, textBody, _, err := render(msg)
	if err != nil {
		return err
	}
	log.Info().
		Str("kind", string(msg.Kind)).
		Str("to", msg.To).
		Str("lang", string(msg.Language)).
		Str("subject", subject).
		Str("body", textBody).
		Msg("dry-run email")
	return nil
}
