package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalid   = errors.New("token invalid")
	ErrExpired   = errors.New("token expired")
	ErrWrongKind = errors.New("token kind mismatch")
)

// Token kinds. The two kinds share signing material but carry a type
// discriminator, so a magic-link token can never pass session validation
// and vice versa.
const (
	kindSession = "access"
	kindMagic   = "magic"
)

// Service issues and validates the two token kinds: single-use magic-link
// tokens and short-lived bearer session tokens.
type Service struct {
	secret          []byte
	sessionLifetime time.Duration
	magicTTL        time.Duration
	now             func() time.Time
}

// NewService creates a token service signing with the given secret.
func NewService(secret string, sessionLifetime, magicTTL time.Duration) *Service {
	return &Service{
		secret:          []byte(secret),
		sessionLifetime: sessionLifetime,
		magicTTL:        magicTTL,
		now:             time.Now,
	}
}

type claims struct {
	Kind string `json:"typ"`
	jwt.RegisteredClaims
}

// IssueSession creates a bearer session token scoped to one guest code.
func (s *Service) IssueSession(guestCode string) (string, time.Time, error) {
	return s.issue(kindSession, guestCode, s.sessionLifetime, "")
}

// IssueMagic creates a single-use magic-link token for the guest. The jti
// nonce makes every issued token distinct, so a fresh grant never collides
// with a superseded one.
func (s *Service) IssueMagic(guestCode string) (string, time.Time, error) {
	return s.issue(kindMagic, guestCode, s.magicTTL, uuid.New().String())
}

func (s *Service) issue(kind, guestCode string, ttl time.Duration, nonce string) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(ttl)
	c := claims{
		Kind: kind,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   guestCode,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        nonce,
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign %s token: %w", kind, err)
	}
	return signed, expiresAt, nil
}

// ParseSession validates a session token and returns the guest code it is
// scoped to.
func (s *Service) ParseSession(tok string) (string, error) {
	return s.parse(tok, kindSession)
}

// ParseMagic validates a magic-link token signature and expiry and returns
// the guest code. Single-use accounting is the store's job, not ours.
func (s *Service) ParseMagic(tok string) (string, error) {
	return s.parse(tok, kindMagic)
}

func (s *Service) parse(tok, wantKind string) (string, error) {
	var c claims
	_, err := jwt.ParseWithClaims(tok, &c, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrExpired
		}
		return "", ErrInvalid
	}

	if c.Kind != wantKind {
		return "", ErrWrongKind
	}
	if c.Subject == "" {
		return "", ErrInvalid
	}
	return c.Subject, nil
}

// MagicTTL returns the configured magic-link lifetime.
func (s *Service) MagicTTL() time.Duration {
	return s.magicTTL
}

// SessionLifetime returns the configured session token lifetime.
func (s *Service) SessionLifetime() time.Duration {
	return s.sessionLifetime
}
