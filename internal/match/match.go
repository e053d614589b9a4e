package match

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"weddingrsvp/internal/models"
)

// Failure outcomes. Callers above the service layer must collapse all three
// to one generic "not recognized" signal; they stay distinct here for logging.
var (
	ErrNotFound  = errors.New("no matching guest")
	ErrMismatch  = errors.New("contact does not match guest")
	ErrAmbiguous = errors.New("multiple guests match")
)

// Directory is the guest lookup surface the matcher needs.
type Directory interface {
	GuestByCode(ctx context.Context, code string) (*models.Guest, error)
	GuestsByPhoneTail(ctx context.Context, last4 string) ([]*models.Guest, error)
}

// Matcher verifies presented credentials against the guest directory.
type Matcher struct {
	dir Directory
}

func New(dir Directory) *Matcher {
	return &Matcher{dir: dir}
}

// ByCode verifies a (guest code, contact) pair. Codes are stored
// uppercase, so the presented code is case-insensitive; the contact must
// equal the stored email (case-insensitive) or the stored phone
// (digits-only).
func (m *Matcher) ByCode(ctx context.Context, code, contact string) (*models.Guest, error) {
	guest, err := m.dir.GuestByCode(ctx, strings.ToUpper(strings.TrimSpace(code)))
	if err != nil {
		return nil, fmt.Errorf("failed to look up guest code: %w", err)
	}
	if guest == nil {
		return nil, ErrNotFound
	}

	if contactMatches(guest, contact) {
		return guest, nil
	}
	return nil, ErrMismatch
}

func contactMatches(g *models.Guest, contact string) bool {
	contact = strings.TrimSpace(contact)
	if contact == "" {
		return false
	}
	if g.Email != "" && NormalizeEmail(contact) == NormalizeEmail(g.Email) {
		return true
	}
	if g.Phone != "" {
		if d := PhoneDigits(contact); d != "" && d == PhoneDigits(g.Phone) {
			return true
		}
	}
	return false
}

// ByNameAndPhoneTail locates a guest by normalized full name plus the last
// four digits of the stored phone. When the guest has an email on file and
// the caller supplied one, they must agree. More than one surviving
// candidate is Ambiguous and is never tie-broken here: homonym collisions
// need human disambiguation.
func (m *Matcher) ByNameAndPhoneTail(ctx context.Context, fullName, last4, email string) (*models.Guest, error) {
	tail := PhoneTail(last4, 4)
	if tail == "" {
		return nil, ErrNotFound
	}

	candidates, err := m.dir.GuestsByPhoneTail(ctx, tail)
	if err != nil {
		return nil, fmt.Errorf("failed to search by phone tail: %w", err)
	}

	nameNorm := NormalizeName(fullName)
	emailNorm := NormalizeEmail(email)

	var matched []*models.Guest
	for _, g := range candidates {
		if !nameCompatible(nameNorm, NormalizeName(g.FullName)) {
			continue
		}
		if emailNorm != "" && g.Email != "" && NormalizeEmail(g.Email) != emailNorm {
			continue
		}
		matched = append(matched, g)
	}

	switch len(matched) {
	case 0:
		return nil, ErrNotFound
	case 1:
		return matched[0], nil
	default:
		return nil, ErrAmbiguous
	}
}

// nameCompatible accepts containment in either direction, so a presented
// "Maria Popescu" matches a stored "Maria Popescu de Soto" and a presented
// full legal name matches a shorter stored one.
func nameCompatible(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return strings.Contains(a, b) || strings.Contains(b, a)
}
