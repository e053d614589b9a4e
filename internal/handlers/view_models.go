package handlers

import (
	"time"

	"weddingrsvp/internal/models"
)

// guestProfile is the guest-facing view of a guest row. Magic-link
// bookkeeping and internal grouping fields stay server-side.
type guestProfile struct {
	GuestCode       string    `json:"guest_code"`
	FullName        string    `json:"full_name"`
	Email           string    `json:"email,omitempty"`
	Phone           string    `json:"phone,omitempty"`
	Language        string    `json:"language"`
	InviteType      string    `json:"invite_type"`
	MaxAccompanying int       `json:"max_accompanying"`
	Confirmed       *bool     `json:"confirmed"`
	ConfirmedAt     *time.Time `json:"confirmed_at,omitempty"`
	NumAdults       int       `json:"num_adults"`
	NumChildren     int       `json:"num_children"`
	MenuChoice      string    `json:"menu_choice,omitempty"`
	Allergies       string    `json:"allergies,omitempty"`
	Notes           string    `json:"notes,omitempty"`
	NeedsAccommodation bool   `json:"needs_accommodation"`
	NeedsTransport     bool   `json:"needs_transport"`
	Companions      []companionView `json:"companions"`
}

type companionView struct {
	Name       string `json:"name"`
	IsChild    bool   `json:"is_child"`
	MenuChoice string `json:"menu_choice,omitempty"`
	Allergies  string `json:"allergies,omitempty"`
}

func newGuestProfile(g *models.Guest) *guestProfile {
	p := &guestProfile{
		GuestCode:          g.GuestCode,
		FullName:           g.FullName,
		Email:              g.Email,
		Phone:              g.Phone,
		Language:           string(g.Language),
		InviteType:         string(g.InviteType),
		MaxAccompanying:    g.MaxAccompanying,
		Confirmed:          g.Confirmed,
		ConfirmedAt:        g.ConfirmedAt,
		NumAdults:          g.NumAdults,
		NumChildren:        g.NumChildren,
		MenuChoice:         g.MenuChoice,
		Allergies:          g.Allergies,
		Notes:              g.Notes,
		NeedsAccommodation: g.NeedsAccommodation,
		NeedsTransport:     g.NeedsTransport,
		Companions:         make([]companionView, 0, len(g.Companions)),
	}
	for _, c := range g.Companions {
		p.Companions = append(p.Companions, companionView{
			Name:       c.Name,
			IsChild:    c.IsChild,
			MenuChoice: c.MenuChoice,
			Allergies:  c.Allergies,
		})
	}
	return p
}
