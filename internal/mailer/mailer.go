package mailer

import (
	"context"
	"fmt"

	"weddingrsvp/internal/config"
	"weddingrsvp/internal/models"
)

// Kind selects which template a message renders with.
type Kind string

const (
	KindGuestCode        Kind = "guest_code"
	KindMagicLink        Kind = "magic_link"
	KindRSVPConfirmation Kind = "rsvp_confirmation"
)

// Message is a templated email addressed to a single guest.
type Message struct {
	Kind     Kind
	Language models.Language
	To       string
	ToName   string
	// Vars feed template placeholders: "code", "link", "deadline",
	// "party_size" depending on Kind.
	Vars map[string]string
}

// Mailer delivers templated messages. Implementations must respect ctx
// cancellation; callers bound sends with a timeout.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// New builds the provider selected by EMAIL_PROVIDER. The dry-run
// provider is the default so a fresh checkout never emails real guests.
func New(cfg *config.Config) (Mailer, error) {
	switch cfg.EmailProvider {
	case "ses":
		return NewSES(cfg)
	case "sendgrid":
		return NewSendGrid(cfg)
	case "dryrun", "":
		return NewDryRun(), nil
	default:
		return nil, fmt.Errorf("unknown email provider %q", cfg.EmailProvider)
	}
}

func fromAddress(fromName, fromEmail string) string {
	if fromName != "" {
		return fmt.Sprintf("%s <%s>", fromName, fromEmail)
	}
	return fromEmail
}
