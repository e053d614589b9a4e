package service

import (
	"context"
	"time"

	"weddingrsvp/internal/models"
)

// GuestStore is the persistence surface the services need. The SQL
// repository implements it; tests substitute an in-memory version.
type GuestStore interface {
	GuestByID(ctx context.Context, id int64) (*models.Guest, error)
	GuestByCode(ctx context.Context, code string) (*models.Guest, error)
	GuestByEmail(ctx context.Context, email string) (*models.Guest, error)
	GuestByPhone(ctx context.Context, phone string) (*models.Guest, error)
	GuestsByPhoneTail(ctx context.Context, last4 string) ([]*models.Guest, error)
	GuestByMagicToken(ctx context.Context, token string) (*models.Guest, error)

	CreateGuest(ctx context.Context, g *models.Guest) error
	UpdateGuest(ctx context.Context, g *models.Guest) error
	UpdateEmail(ctx context.Context, guestID int64, email string) error

	// SetMagicLink records a freshly issued link grant, replacing any
	// previous grant on the row.
	SetMagicLink(ctx context.Context, guestID int64, token string, sentAt, expiresAt time.Time) error

	// ConsumeMagicLink marks the grant used if and only if it is still
	// live. Returns the guest on success and nil (no error) when the
	// token matched no live grant, so concurrent redeemers see exactly
	// one winner.
	ConsumeMagicLink(ctx context.Context, token string, now time.Time) (*models.Guest, error)

	// ClearExpiredMagicLinks removes grants whose expiry has passed and
	// reports how many rows were cleaned.
	ClearExpiredMagicLinks(ctx context.Context, now time.Time) (int64, error)

	// UpdateRSVP persists the response fields and replaces the companion
	// list in one transaction.
	UpdateRSVP(ctx context.Context, g *models.Guest, companions []models.Companion) error
}
