package models

import "time"

// Language is a guest's preferred language for all templated output.
type Language string

const (
	LangEnglish  Language = "en"
	LangSpanish  Language = "es"
	LangRomanian Language = "ro"
)

// IsValid reports whether the language is one of the supported values.
func (l Language) IsValid() bool {
	switch l {
	case LangEnglish, LangSpanish, LangRomanian:
		return true
	}
	return false
}

// InviteType bounds what the invitation covers.
type InviteType string

const (
	InviteCeremony InviteType = "ceremony"
	InviteFull     InviteType = "full"
)

func (t InviteType) IsValid() bool {
	return t == InviteCeremony || t == InviteFull
}

// Side records which family the guest belongs to, used for statistics only.
type Side string

const (
	SideBride Side = "bride"
	SideGroom Side = "groom"
)

// Guest represents one invitee row. Email and Phone use "" for absent values;
// the repository maps those to NULL so the unique constraints hold.
type Guest struct {
	ID           int64
	GuestCode    string
	FullName     string
	Email        string
	Phone        string
	IsPrimary    bool
	GroupID      string
	Side         Side
	Relationship string
	Language     Language
	InviteType   InviteType

	// MaxAccompanying bounds the number of companions a guest may bring.
	MaxAccompanying int

	// RSVP payload, mutated only after authentication.
	Confirmed          *bool
	ConfirmedAt        *time.Time
	NumAdults          int
	NumChildren        int
	MenuChoice         string
	Allergies          string
	Notes              string
	NeedsAccommodation bool
	NeedsTransport     bool

	// Current outstanding magic-link grant. At most one live grant per guest;
	// issuing a new one supersedes any unredeemed previous grant.
	MagicLinkToken     string
	MagicLinkSentAt    *time.Time
	MagicLinkExpiresAt *time.Time
	MagicLinkUsedAt    *time.Time

	LastReminderAt *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time

	Companions []Companion
}

// HasContact reports whether the guest has at least one contact channel.
// A guest with neither email nor phone cannot authenticate.
func (g *Guest) HasContact() bool {
	return g.Email != "" || g.Phone != ""
}

// HasLiveMagicLink reports whether an unredeemed, unexpired grant is outstanding.
func (g *Guest) HasLiveMagicLink(now time.Time) bool {
	return g.MagicLinkToken != "" &&
		g.MagicLinkUsedAt == nil &&
		g.MagicLinkExpiresAt != nil &&
		g.MagicLinkExpiresAt.After(now)
}

// Companion is an accompanying person named on the RSVP, owned by its guest
// and deleted with it.
type Companion struct {
	ID         int64
	GuestID    int64
	Name       string
	IsChild    bool
	MenuChoice string
	Allergies  string
}

// PartySize returns adults+children as persisted on the guest row.
func (g *Guest) PartySize() int {
	return g.NumAdults + g.NumChildren
}
