package guestcode

import (
	"regexp"
	"strings"

	gonanoid "github.com/matoous/go-nanoid/v2"

	"weddingrsvp/internal/match"
)

// Codes look like "ANAGARC-8H2K": a prefix derived from the guest's name
// plus a random suffix. The prefix makes codes recognizable on seating
// cards; the suffix makes them unguessable enough for login.
const (
	prefixLen      = 7
	suffixLen      = 4
	suffixAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

var codePattern = regexp.MustCompile(`^[A-Z]{1,7}-[A-Z0-9]{4}$`)

// Generate builds a fresh code for the named guest.
func Generate(fullName string) (string, error) {
	suffix, err := gonanoid.Generate(suffixAlphabet, suffixLen)
	if err != nil {
		return "", err
	}
	return Prefix(fullName) + "-" + suffix, nil
}

// Prefix derives the letters-only code prefix from a name: diacritics
// stripped, uppercased, truncated. "Ana García" becomes "ANAGARC".
func Prefix(fullName string) string {
	normalized := match.NormalizeName(fullName)
	var b strings.Builder
	for _, r := range normalized {
		if r >= 'a' && r <= 'z' {
			b.WriteRune(r - 'a' + 'A')
			if b.Len() == prefixLen {
				break
			}
		}
	}
	if b.Len() == 0 {
		return "GUEST"
	}
	return b.String()
}

// Valid reports whether s has the shape of a generated guest code.
func Valid(s string) bool {
	return codePattern.MatchString(s)
}

// Normalize uppercases and trims a user-typed code so lookups are
// case-insensitive.
func Normalize(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
