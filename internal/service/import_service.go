package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"weddingrsvp/internal/guestcode"
	"weddingrsvp/internal/match"
	"weddingrsvp/internal/models"
	"weddingrsvp/internal/validation"
)

// ImportRecord is one row of a guest-list import.
type ImportRecord struct {
	GuestCode       string `json:"guest_code,omitempty"`
	FullName        string `json:"full_name"`
	Email           string `json:"email,omitempty"`
	Phone           string `json:"phone,omitempty"`
	Language        string `json:"language,omitempty"`
	InviteType      string `json:"invite_type,omitempty"`
	MaxAccompanying int    `json:"max_accompanying"`
	IsPrimary       bool   `json:"is_primary"`
	GroupID         string `json:"group_id,omitempty"`
	Side            string `json:"side,omitempty"`
	Relationship    string `json:"relationship,omitempty"`
}

// ImportRowError reports why one record was rejected; the rest of the
// batch still imports.
type ImportRowError struct {
	Row     int    `json:"row"`
	Name    string `json:"name,omitempty"`
	Message string `json:"message"`
}

// ImportReport summarizes an import batch.
type ImportReport struct {
	Created int              `json:"created"`
	Updated int              `json:"updated"`
	Errors  []ImportRowError `json:"errors,omitempty"`
}

// ImportService loads guest lists. Records with a guest_code upsert on
// that code; records without one get a fresh code generated from the name.
type ImportService struct {
	store GuestStore
}

func NewImportService(store GuestStore) *ImportService {
	return &ImportService{store: store}
}

// Import applies a batch record by record. Row numbers in the report are
// 1-based to match spreadsheet rows.
func (s *ImportService) Import(ctx context.Context, records []ImportRecord) (*ImportReport, error) {
	report := &ImportReport{}

	for i, rec := range records {
		row := i + 1
		if err := s.importOne(ctx, rec, report); err != nil {
			report.Errors = append(report.Errors, ImportRowError{
				Row:     row,
				Name:    rec.FullName,
				Message: err.Error(),
			})
		}
	}

	log.Info().
		Int("created", report.Created).
		Int("updated", report.Updated).
		Int("errors", len(report.Errors)).
		Msg("guest import finished")
	return report, nil
}

func (s *ImportService) importOne(ctx context.Context, rec ImportRecord, report *ImportReport) error {
	if err := validation.ValidateFullName(rec.FullName); err != nil {
		return err
	}
	if rec.Email == "" && rec.Phone == "" {
		return fmt.Errorf("either email or phone is required")
	}
	if rec.Email != "" {
		if err := validation.ValidateEmail(rec.Email); err != nil {
			return err
		}
	}
	if rec.Phone != "" {
		if err := validation.ValidatePhone(rec.Phone); err != nil {
			return err
		}
	}
	if rec.MaxAccompanying < 0 {
		return fmt.Errorf("max_accompanying cannot be negative")
	}

	lang := models.Language(strings.ToLower(rec.Language))
	if rec.Language != "" && !lang.IsValid() {
		return fmt.Errorf("unsupported language %q", rec.Language)
	}

	invite := models.InviteType(strings.ToLower(rec.InviteType))
	switch invite {
	case "", models.InviteCeremony, models.InviteFull:
	default:
		return fmt.Errorf("unsupported invite type %q", rec.InviteType)
	}
	if invite == "" {
		invite = models.InviteFull
	}

	// Existing codes update in place; everything else creates.
	if rec.GuestCode != "" {
		code := guestcode.Normalize(rec.GuestCode)
		existing, err := s.store.GuestByCode(ctx, code)
		if err != nil {
			return fmt.Errorf("failed to look up guest: %w", err)
		}
		if existing != nil {
			s.apply(existing, rec, lang, invite)
			if err := s.store.UpdateGuest(ctx, existing); err != nil {
				return fmt.Errorf("failed to update guest: %w", err)
			}
			report.Updated++
			return nil
		}

		guest := s.build(rec, code, lang, invite)
		if err := s.store.CreateGuest(ctx, guest); err != nil {
			return fmt.Errorf("failed to create guest: %w", err)
		}
		report.Created++
		return nil
	}

	code, err := s.freshCode(ctx, rec.FullName)
	if err != nil {
		return err
	}
	guest := s.build(rec, code, lang, invite)
	if err := s.store.CreateGuest(ctx, guest); err != nil {
		return fmt.Errorf("failed to create guest: %w", err)
	}
	report.Created++
	return nil
}

// freshCode generates codes until one does not collide. The suffix space
// makes more than a couple of attempts vanishingly unlikely.
func (s *ImportService) freshCode(ctx context.Context, fullName string) (string, error) {
	for attempt := 0; attempt < 5; attempt++ {
		code, err := guestcode.Generate(fullName)
		if err != nil {
			return "", fmt.Errorf("failed to generate guest code: %w", err)
		}
		existing, err := s.store.GuestByCode(ctx, code)
		if err != nil {
			return "", fmt.Errorf("failed to check guest code: %w", err)
		}
		if existing == nil {
			return code, nil
		}
	}
	return "", fmt.Errorf("could not generate a unique guest code for %q", fullName)
}

func (s *ImportService) build(rec ImportRecord, code string, lang models.Language, invite models.InviteType) *models.Guest {
	g := &models.Guest{
		GuestCode:  code,
		InviteType: invite,
		Language:   lang,
	}
	if g.Language == "" {
		g.Language = models.LangSpanish
	}
	s.apply(g, rec, g.Language, invite)
	return g
}

// apply copies imported identity fields onto a guest. RSVP state is never
// touched, so re-importing a list cannot erase responses.
func (s *ImportService) apply(g *models.Guest, rec ImportRecord, lang models.Language, invite models.InviteType) {
	g.FullName = strings.TrimSpace(rec.FullName)
	if rec.Email != "" {
		g.Email = match.NormalizeEmail(rec.Email)
	}
	if rec.Phone != "" {
		g.Phone = match.NormalizePhone(rec.Phone)
	}
	if lang != "" {
		g.Language = lang
	}
	g.InviteType = invite
	g.MaxAccompanying = rec.MaxAccompanying
	g.IsPrimary = rec.IsPrimary
	g.GroupID = strings.TrimSpace(rec.GroupID)
	g.Side = models.Side(strings.ToLower(rec.Side))
	g.Relationship = strings.TrimSpace(rec.Relationship)
}
