package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"weddingrsvp/internal/database"
	"weddingrsvp/internal/models"
)

// GuestRepository handles database operations for guests and their
// companions.
type GuestRepository struct {
	db *database.DB
}

func NewGuestRepository(db *database.DB) *GuestRepository {
	return &GuestRepository{db: db}
}

const guestColumns = `
	id, guest_code, full_name, COALESCE(email, ''), COALESCE(phone, ''),
	is_primary, COALESCE(group_id, ''), COALESCE(side, ''), COALESCE(relationship, ''),
	language, invite_type, max_accompanying,
	confirmed, confirmed_at, num_adults, num_children,
	COALESCE(menu_choice, ''), COALESCE(allergies, ''), COALESCE(notes, ''),
	needs_accommodation, needs_transport,
	COALESCE(magic_link_token, ''), magic_link_sent_at, magic_link_expires_at, magic_link_used_at,
	last_reminder_at, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanGuest(row rowScanner) (*models.Guest, error) {
	g := &models.Guest{}
	var confirmed sql.NullBool
	var confirmedAt, magicSentAt, magicExpiresAt, magicUsedAt, lastReminderAt sql.NullTime

	err := row.Scan(
		&g.ID, &g.GuestCode, &g.FullName, &g.Email, &g.Phone,
		&g.IsPrimary, &g.GroupID, &g.Side, &g.Relationship,
		&g.Language, &g.InviteType, &g.MaxAccompanying,
		&confirmed, &confirmedAt, &g.NumAdults, &g.NumChildren,
		&g.MenuChoice, &g.Allergies, &g.Notes,
		&g.NeedsAccommodation, &g.NeedsTransport,
		&g.MagicLinkToken, &magicSentAt, &magicExpiresAt, &magicUsedAt,
		&lastReminderAt, &g.CreatedAt, &g.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if confirmed.Valid {
		g.Confirmed = &confirmed.Bool
	}
	g.ConfirmedAt = timePtr(confirmedAt)
	g.MagicLinkSentAt = timePtr(magicSentAt)
	g.MagicLinkExpiresAt = timePtr(magicExpiresAt)
	g.MagicLinkUsedAt = timePtr(magicUsedAt)
	g.LastReminderAt = timePtr(lastReminderAt)
	return g, nil
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

// nullable maps Go's ""-for-absent convention back to SQL NULL so the
// UNIQUE constraints on email and phone ignore guests without one.
func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func (r *GuestRepository) getOne(ctx context.Context, where string, arg interface{}) (*models.Guest, error) {
	query := "SELECT " + guestColumns + " FROM guests WHERE " + where
	guest, err := scanGuest(r.db.QueryRow(ctx, query, arg))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get guest: %w", err)
	}
	if err := r.attachCompanions(ctx, guest); err != nil {
		return nil, err
	}
	return guest, nil
}

func (r *GuestRepository) GuestByID(ctx context.Context, id int64) (*models.Guest, error) {
	return r.getOne(ctx, "id = ?", id)
}

func (r *GuestRepository) GuestByCode(ctx context.Context, code string) (*models.Guest, error) {
	return r.getOne(ctx, "guest_code = ?", code)
}

func (r *GuestRepository) GuestByEmail(ctx context.Context, email string) (*models.Guest, error) {
	return r.getOne(ctx, "email = ?", email)
}

func (r *GuestRepository) GuestByPhone(ctx context.Context, phone string) (*models.Guest, error) {
	// Stored phones are normalized to digits with an optional leading +,
	// so a digits-only comparison needs both shapes.
	query := "SELECT " + guestColumns + " FROM guests WHERE phone = ? OR phone = ?"
	guest, err := scanGuest(r.db.QueryRow(ctx, query, phone, "+"+phone))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get guest: %w", err)
	}
	if err := r.attachCompanions(ctx, guest); err != nil {
		return nil, err
	}
	return guest, nil
}

// GuestsByPhoneTail returns every guest whose phone ends with the given
// digits. Callers disambiguate by name.
func (r *GuestRepository) GuestsByPhoneTail(ctx context.Context, last4 string) ([]*models.Guest, error) {
	query := "SELECT " + guestColumns + " FROM guests WHERE phone LIKE ?"
	rows, err := r.db.Query(ctx, query, "%"+last4)
	if err != nil {
		return nil, fmt.Errorf("failed to query guests: %w", err)
	}
	defer rows.Close()

	var guests []*models.Guest
	for rows.Next() {
		g, err := scanGuest(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan guest: %w", err)
		}
		guests = append(guests, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate guests: %w", err)
	}
	return guests, nil
}

func (r *GuestRepository) GuestByMagicToken(ctx context.Context, token string) (*models.Guest, error) {
	if token == "" {
		return nil, nil
	}
	return r.getOne(ctx, "magic_link_token = ?", token)
}

func (r *GuestRepository) CreateGuest(ctx context.Context, g *models.Guest) error {
	query := `
		INSERT INTO guests (
			guest_code, full_name, email, phone, is_primary, group_id, side, relationship,
			language, invite_type, max_accompanying
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	id, err := r.db.ExecReturningID(ctx, query,
		g.GuestCode, g.FullName, nullable(g.Email), nullable(g.Phone),
		g.IsPrimary, nullable(g.GroupID), nullable(string(g.Side)), nullable(g.Relationship),
		string(g.Language), string(g.InviteType), g.MaxAccompanying,
	)
	if err != nil {
		return fmt.Errorf("failed to create guest: %w", err)
	}
	g.ID = id
	return nil
}

// UpdateGuest rewrites the identity fields. RSVP state and magic-link
// state have their own update paths.
func (r *GuestRepository) UpdateGuest(ctx context.Context, g *models.Guest) error {
	query := `
		UPDATE guests SET
			full_name = ?, email = ?, phone = ?, is_primary = ?, group_id = ?,
			side = ?, relationship = ?, language = ?, invite_type = ?,
			max_accompanying = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`
	_, err := r.db.Exec(ctx, query,
		g.FullName, nullable(g.Email), nullable(g.Phone), g.IsPrimary, nullable(g.GroupID),
		nullable(string(g.Side)), nullable(g.Relationship), string(g.Language), string(g.InviteType),
		g.MaxAccompanying, g.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update guest: %w", err)
	}
	return nil
}

func (r *GuestRepository) UpdateEmail(ctx context.Context, guestID int64, email string) error {
	query := "UPDATE guests SET email = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?"
	if _, err := r.db.Exec(ctx, query, nullable(email), guestID); err != nil {
		return fmt.Errorf("failed to update guest email: %w", err)
	}
	return nil
}

// SetMagicLink replaces the guest's link grant. Any previous token on the
// row stops resolving, which is what invalidates superseded links.
func (r *GuestRepository) SetMagicLink(ctx context.Context, guestID int64, token string, sentAt, expiresAt time.Time) error {
	query := `
		UPDATE guests SET
			magic_link_token = ?, magic_link_sent_at = ?, magic_link_expires_at = ?,
			magic_link_used_at = NULL, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`
	if _, err := r.db.Exec(ctx, query, token, sentAt, expiresAt, guestID); err != nil {
		return fmt.Errorf("failed to set magic link: %w", err)
	}
	return nil
}

// ConsumeMagicLink marks the grant used with a single conditional update,
// so two concurrent redemptions of the same token cannot both succeed.
// Returns nil, nil when the token matched no live grant.
func (r *GuestRepository) ConsumeMagicLink(ctx context.Context, token string, now time.Time) (*models.Guest, error) {
	query := `
		UPDATE guests SET magic_link_used_at = ?, updated_at = CURRENT_TIMESTAMP
		WHERE magic_link_token = ?
		  AND magic_link_used_at IS NULL
		  AND magic_link_expires_at > ?
	`
	result, err := r.db.Exec(ctx, query, now, token, now)
	if err != nil {
		return nil, fmt.Errorf("failed to consume magic link: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to check magic link update: %w", err)
	}
	if affected == 0 {
		return nil, nil
	}
	return r.GuestByMagicToken(ctx, token)
}

// ClearExpiredMagicLinks drops dead grants so expired tokens stop matching
// rows at all.
func (r *GuestRepository) ClearExpiredMagicLinks(ctx context.Context, now time.Time) (int64, error) {
	query := `
		UPDATE guests SET
			magic_link_token = NULL, magic_link_sent_at = NULL,
			magic_link_expires_at = NULL, magic_link_used_at = NULL
		WHERE magic_link_expires_at IS NOT NULL AND magic_link_expires_at <= ?
	`
	result, err := r.db.Exec(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("failed to clear expired magic links: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count cleared magic links: %w", err)
	}
	return affected, nil
}

// UpdateRSVP persists the response fields and replaces the companion list
// in one transaction.
func (r *GuestRepository) UpdateRSVP(ctx context.Context, g *models.Guest, companions []models.Companion) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		UPDATE guests SET
			confirmed = ?, confirmed_at = ?, num_adults = ?, num_children = ?,
			menu_choice = ?, allergies = ?, notes = ?,
			needs_accommodation = ?, needs_transport = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`
	if _, err := tx.Exec(ctx, query,
		g.Confirmed, g.ConfirmedAt, g.NumAdults, g.NumChildren,
		nullable(g.MenuChoice), nullable(g.Allergies), nullable(g.Notes),
		g.NeedsAccommodation, g.NeedsTransport, g.ID,
	); err != nil {
		return fmt.Errorf("failed to update rsvp: %w", err)
	}

	if _, err := tx.Exec(ctx, "DELETE FROM companions WHERE guest_id = ?", g.ID); err != nil {
		return fmt.Errorf("failed to clear companions: %w", err)
	}

	for i := range companions {
		c := &companions[i]
		id, err := tx.ExecReturningID(ctx, `
			INSERT INTO companions (guest_id, name, is_child, menu_choice, allergies)
			VALUES (?, ?, ?, ?, ?)
		`, g.ID, c.Name, c.IsChild, nullable(c.MenuChoice), nullable(c.Allergies))
		if err != nil {
			return fmt.Errorf("failed to insert companion: %w", err)
		}
		c.ID = id
		c.GuestID = g.ID
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit rsvp: %w", err)
	}
	return nil
}

func (r *GuestRepository) attachCompanions(ctx context.Context, g *models.Guest) error {
	rows, err := r.db.Query(ctx, `
		SELECT id, guest_id, name, is_child, COALESCE(menu_choice, ''), COALESCE(allergies, '')
		FROM companions WHERE guest_id = ? ORDER BY id
	`, g.ID)
	if err != nil {
		return fmt.Errorf("failed to query companions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var c models.Companion
		if err := rows.Scan(&c.ID, &c.GuestID, &c.Name, &c.IsChild, &c.MenuChoice, &c.Allergies); err != nil {
			return fmt.Errorf("failed to scan companion: %w", err)
		}
		g.Companions = append(g.Companions, c)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate companions: %w", err)
	}
	return nil
}
