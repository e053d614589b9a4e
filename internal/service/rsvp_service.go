package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"weddingrsvp/internal/i18n"
	"weddingrsvp/internal/mailer"
	"weddingrsvp/internal/models"
)

// RSVPSubmission carries one guest response. Companions list the people
// accompanying the titular guest; the titular is not counted in the
// adult/child totals.
type RSVPSubmission struct {
	Attending          bool
	NumAdults          int
	NumChildren        int
	MenuChoice         string
	Allergies          string
	Notes              string
	NeedsAccommodation bool
	NeedsTransport     bool
	Companions         []models.Companion
	Language           string
	AcceptLanguage     string
}

// RSVPService applies guest responses: capacity and deadline checks, the
// menu rule for full invitations, and the decline-clears-fields rule.
type RSVPService struct {
	store       GuestStore
	mail        mailer.Mailer
	deadline    time.Time
	baseURL     string
	emailWait   time.Duration
	defaultLang string
	now         func() time.Time
}

func NewRSVPService(store GuestStore, mail mailer.Mailer, deadline time.Time, baseURL string, emailWait time.Duration, defaultLang string) *RSVPService {
	return &RSVPService{
		store:       store,
		mail:        mail,
		deadline:    deadline,
		baseURL:     baseURL,
		emailWait:   emailWait,
		defaultLang: defaultLang,
		now:         time.Now,
	}
}

// Submit records a response for the guest. Responses may be revised any
// number of times before the deadline; a failed submission leaves the
// stored response untouched.
func (s *RSVPService) Submit(ctx context.Context, guest *models.Guest, sub RSVPSubmission) (*models.Guest, error) {
	now := s.now().UTC()
	if !s.deadline.IsZero() && now.After(s.deadline) {
		return nil, ErrDeadlinePassed
	}

	if err := s.validate(guest, &sub); err != nil {
		return nil, err
	}

	updated := *guest
	attending := sub.Attending
	updated.Confirmed = &attending
	updated.ConfirmedAt = &now

	if attending {
		updated.NumAdults = sub.NumAdults
		updated.NumChildren = sub.NumChildren
		updated.MenuChoice = strings.TrimSpace(sub.MenuChoice)
		updated.Allergies = strings.TrimSpace(sub.Allergies)
		updated.Notes = strings.TrimSpace(sub.Notes)
		updated.NeedsAccommodation = sub.NeedsAccommodation
		updated.NeedsTransport = sub.NeedsTransport
	} else {
		// A decline clears everything that only matters for attendees.
		updated.NumAdults = 0
		updated.NumChildren = 0
		updated.MenuChoice = ""
		updated.Allergies = ""
		updated.Notes = strings.TrimSpace(sub.Notes)
		updated.NeedsAccommodation = false
		updated.NeedsTransport = false
		sub.Companions = nil
	}

	if err := s.store.UpdateRSVP(ctx, &updated, sub.Companions); err != nil {
		return nil, fmt.Errorf("failed to save response: %w", err)
	}
	updated.Companions = sub.Companions

	s.sendConfirmation(&updated, sub)
	return &updated, nil
}

func (s *RSVPService) validate(guest *models.Guest, sub *RSVPSubmission) error {
	if !sub.Attending {
		return nil
	}

	if sub.NumAdults < 0 || sub.NumChildren < 0 {
		return ErrNegativeCounts
	}
	if sub.NumAdults+sub.NumChildren > guest.MaxAccompanying {
		return ErrCapacityExceeded
	}
	if len(sub.Companions) > guest.MaxAccompanying {
		return ErrCapacityExceeded
	}
	if guest.InviteType == models.InviteFull && strings.TrimSpace(sub.MenuChoice) == "" {
		return ErrMenuRequired
	}

	for i := range sub.Companions {
		sub.Companions[i].Name = strings.TrimSpace(sub.Companions[i].Name)
		if sub.Companions[i].Name == "" {
			return ErrCompanionNameRequired
		}
	}
	return nil
}

// sendConfirmation emails a summary of the recorded response. Delivery is
// best effort: the response is already stored, so a mail failure is only
// logged.
func (s *RSVPService) sendConfirmation(guest *models.Guest, sub RSVPSubmission) {
	if guest.Email == "" {
		return
	}

	lang := i18n.Resolve(sub.Language, guest.Language, sub.AcceptLanguage, guest.Email, s.defaultLang)

	deadline := noDeadlinePhrase(lang)
	if !s.deadline.IsZero() {
		deadline = s.deadline.Format("2006-01-02")
	}

	msg := mailer.Message{
		Kind:     mailer.KindRSVPConfirmation,
		Language: lang,
		To:       guest.Email,
		ToName:   guest.FullName,
		Vars: map[string]string{
			"summary":  s.summary(guest, lang),
			"deadline": deadline,
			"base_url": s.baseURL,
		},
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.emailWait)
		defer cancel()
		if err := s.mail.Send(ctx, msg); err != nil {
			log.Error().Err(err).Str("to", msg.To).Msg("confirmation email failed")
		}
	}()
}

func noDeadlinePhrase(lang models.Language) string {
	switch lang {
	case models.LangEnglish:
		return "no deadline"
	case models.LangRomanian:
		return "fără termen limită"
	default:
		return "sin fecha límite"
	}
}

func (s *RSVPService) summary(guest *models.Guest, lang models.Language) string {
	attending := guest.Confirmed != nil && *guest.Confirmed

	var attendingWord, decliningWord, guestsWord string
	switch lang {
	case models.LangEnglish:
		attendingWord, decliningWord, guestsWord = "attending", "not attending", "guests"
	case models.LangRomanian:
		attendingWord, decliningWord, guestsWord = "participă", "nu participă", "persoane"
	default:
		attendingWord, decliningWord, guestsWord = "asistirá", "no asistirá", "personas"
	}

	if !attending {
		return decliningWord
	}
	// The titular guest is not counted in the stored totals.
	return fmt.Sprintf("%s, %d %s", attendingWord, guest.PartySize()+1, guestsWord)
}
