package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"weddingrsvp/internal/i18n"
	"weddingrsvp/internal/mailer"
	"weddingrsvp/internal/match"
	"weddingrsvp/internal/models"
	"weddingrsvp/internal/security"
	"weddingrsvp/internal/token"
	"weddingrsvp/internal/validation"
)

// Rate-limit operation names, one budget each.
const (
	opLogin   = "login"
	opRecover = "recover"
	opRequest = "request_access"
)

// AccessModeMagic sends a one-time login link; AccessModeCode re-sends the
// guest's invitation code instead.
const (
	AccessModeMagic = "magic"
	AccessModeCode  = "code"
)

// AuthService implements guest sign-in: code+contact login, code recovery
// by email or phone, magic-link issuance by name and phone tail, and
// magic-link redemption.
type AuthService struct {
	store       GuestStore
	matcher     *match.Matcher
	tokens      *token.Service
	limiter     *security.Limiter
	mail        mailer.Mailer
	accessMode  string
	baseURL     string
	emailWait   time.Duration
	defaultLang string
	now         func() time.Time
}

func NewAuthService(store GuestStore, matcher *match.Matcher, tokens *token.Service, limiter *security.Limiter, mail mailer.Mailer, accessMode, baseURL string, emailWait time.Duration, defaultLang string) *AuthService {
	return &AuthService{
		store:       store,
		matcher:     matcher,
		tokens:      tokens,
		limiter:     limiter,
		mail:        mail,
		accessMode:  accessMode,
		baseURL:     baseURL,
		emailWait:   emailWait,
		defaultLang: defaultLang,
		now:         time.Now,
	}
}

// Login authenticates a guest by invitation code plus a contact address
// (email or phone) and returns a session token. Every failure mode maps to
// ErrNotRecognized except throttling.
func (s *AuthService) Login(ctx context.Context, code, contact string) (string, *models.Guest, error) {
	if !s.limiter.Allow(opLogin, contact) {
		return "", nil, ErrRateLimited
	}

	guest, err := s.matcher.ByCode(ctx, code, contact)
	if err != nil {
		if errors.Is(err, match.ErrNotFound) || errors.Is(err, match.ErrMismatch) {
			return "", nil, ErrNotRecognized
		}
		return "", nil, fmt.Errorf("failed to look up guest: %w", err)
	}

	tok, _, err := s.tokens.IssueSession(guest.GuestCode)
	if err != nil {
		return "", nil, fmt.Errorf("failed to issue session: %w", err)
	}
	return tok, guest, nil
}

// RecoverCode looks a guest up by email or phone and emails them their
// invitation code. A phone-matched guest with no stored email has nothing
// to deliver to; callers respond with a generic acknowledgement regardless
// of outcome, ErrNotRecognized and ErrNoContact only tell the handler
// there is nothing to send.
func (s *AuthService) RecoverCode(ctx context.Context, identifier, payloadLang, acceptLang string) error {
	if !s.limiter.Allow(opRecover, identifier) {
		return ErrRateLimited
	}

	guest, err := s.findByContact(ctx, identifier)
	if err != nil {
		return err
	}
	if guest.Email == "" {
		return ErrNoContact
	}

	lang := i18n.Resolve(payloadLang, guest.Language, acceptLang, guest.Email, s.defaultLang)
	return s.send(ctx, mailer.Message{
		Kind:     mailer.KindGuestCode,
		Language: lang,
		To:       guest.Email,
		ToName:   guest.FullName,
		Vars: map[string]string{
			"code":     guest.GuestCode,
			"base_url": s.baseURL,
		},
	})
}

// RequestAccess identifies a guest by full name plus the last four phone
// digits and emails either a one-time magic link or the invitation code,
// per the configured access mode. When the matched guest has no stored
// email and the request carries one, the address is saved first and used
// for delivery. Ambiguous and unmatched lookups both surface as
// ErrNotRecognized so the endpoint stays non-enumerable.
func (s *AuthService) RequestAccess(ctx context.Context, fullName, last4, email, payloadLang, acceptLang string) error {
	if !s.limiter.Allow(opRequest, fullName+":"+last4) {
		return ErrRateLimited
	}
	if err := validation.ValidateLast4(last4); err != nil {
		return ErrNotRecognized
	}

	guest, err := s.matcher.ByNameAndPhoneTail(ctx, fullName, last4, email)
	if err != nil {
		switch {
		case errors.Is(err, match.ErrNotFound), errors.Is(err, match.ErrMismatch):
			return ErrNotRecognized
		case errors.Is(err, match.ErrAmbiguous):
			log.Warn().Str("last4", last4).Msg("access request matched multiple guests")
			return ErrNotRecognized
		default:
			return fmt.Errorf("failed to look up guest: %w", err)
		}
	}

	to := guest.Email
	if to == "" {
		if email == "" {
			return ErrNoContact
		}
		if err := validation.ValidateEmail(email); err != nil {
			return ErrNotRecognized
		}
		normalized := match.NormalizeEmail(email)
		if err := s.store.UpdateEmail(ctx, guest.ID, normalized); err != nil {
			return fmt.Errorf("failed to save guest email: %w", err)
		}
		to = normalized
	}

	lang := i18n.Resolve(payloadLang, guest.Language, acceptLang, to, s.defaultLang)

	if s.accessMode == AccessModeCode {
		return s.send(ctx, mailer.Message{
			Kind:     mailer.KindGuestCode,
			Language: lang,
			To:       to,
			ToName:   guest.FullName,
			Vars: map[string]string{
				"code":     guest.GuestCode,
				"base_url": s.baseURL,
			},
		})
	}

	magic, expiresAt, err := s.tokens.IssueMagic(guest.GuestCode)
	if err != nil {
		return fmt.Errorf("failed to issue magic token: %w", err)
	}

	if err := s.store.SetMagicLink(ctx, guest.ID, magic, s.now().UTC(), expiresAt); err != nil {
		return fmt.Errorf("failed to record magic link: %w", err)
	}

	return s.send(ctx, mailer.Message{
		Kind:     mailer.KindMagicLink,
		Language: lang,
		To:       to,
		ToName:   guest.FullName,
		Vars: map[string]string{
			"link":        fmt.Sprintf("%s/magic?token=%s", s.baseURL, magic),
			"ttl_minutes": strconv.Itoa(int(s.tokens.MagicTTL().Minutes())),
		},
	})
}

// MagicLogin redeems a one-time link token and returns a session token.
// Redemption is a single conditional update, so under concurrent use of
// the same link exactly one caller wins; the rest learn why they lost.
func (s *AuthService) MagicLogin(ctx context.Context, magicToken string) (string, *models.Guest, error) {
	if _, err := s.tokens.ParseMagic(magicToken); err != nil {
		if errors.Is(err, token.ErrExpired) {
			return "", nil, ErrExpired
		}
		return "", nil, ErrNotRecognized
	}

	now := s.now().UTC()
	guest, err := s.store.ConsumeMagicLink(ctx, magicToken, now)
	if err != nil {
		return "", nil, fmt.Errorf("failed to redeem magic link: %w", err)
	}
	if guest == nil {
		return "", nil, s.redemptionFailure(ctx, magicToken, now)
	}

	tok, _, err := s.tokens.IssueSession(guest.GuestCode)
	if err != nil {
		return "", nil, fmt.Errorf("failed to issue session: %w", err)
	}
	return tok, guest, nil
}

// redemptionFailure distinguishes why a structurally valid token did not
// redeem: consumed, expired, or superseded by a newer link.
func (s *AuthService) redemptionFailure(ctx context.Context, magicToken string, now time.Time) error {
	guest, err := s.store.GuestByMagicToken(ctx, magicToken)
	if err != nil {
		return fmt.Errorf("failed to inspect magic link: %w", err)
	}
	if guest == nil {
		// A newer link replaced this one on the guest row.
		return ErrNotRecognized
	}
	if guest.MagicLinkUsedAt != nil {
		return ErrAlreadyUsed
	}
	if guest.MagicLinkExpiresAt != nil && !guest.MagicLinkExpiresAt.After(now) {
		return ErrExpired
	}
	return ErrNotRecognized
}

// Authenticate resolves a bearer session token to its guest.
func (s *AuthService) Authenticate(ctx context.Context, bearer string) (*models.Guest, error) {
	code, err := s.tokens.ParseSession(bearer)
	if err != nil {
		if errors.Is(err, token.ErrExpired) {
			return nil, ErrExpired
		}
		return nil, ErrNotRecognized
	}

	guest, err := s.store.GuestByCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to load guest: %w", err)
	}
	if guest == nil {
		return nil, ErrNotRecognized
	}
	return guest, nil
}

// findByContact tries the identifier as email, then phone.
func (s *AuthService) findByContact(ctx context.Context, identifier string) (*models.Guest, error) {
	if identifier == "" {
		return nil, ErrNotRecognized
	}

	if guest, err := s.store.GuestByEmail(ctx, match.NormalizeEmail(identifier)); err != nil {
		return nil, fmt.Errorf("failed to look up guest: %w", err)
	} else if guest != nil {
		return guest, nil
	}

	if digits := match.PhoneDigits(identifier); digits != "" {
		if guest, err := s.store.GuestByPhone(ctx, digits); err != nil {
			return nil, fmt.Errorf("failed to look up guest: %w", err)
		} else if guest != nil {
			return guest, nil
		}
	}

	return nil, ErrNotRecognized
}

// send delivers one email with a bounded wait so a slow provider cannot
// stall the request.
func (s *AuthService) send(ctx context.Context, msg mailer.Message) error {
	sendCtx, cancel := context.WithTimeout(ctx, s.emailWait)
	defer cancel()

	if err := s.mail.Send(sendCtx, msg); err != nil {
		log.Error().Err(err).Str("kind", string(msg.Kind)).Msg("email delivery failed")
		return fmt.Errorf("failed to deliver %s email: %w", msg.Kind, err)
	}
	return nil
}
