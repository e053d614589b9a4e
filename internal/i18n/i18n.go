package i18n

import (
	"strings"

	"weddingrsvp/internal/models"
)

// Resolve picks the language for templated output. Precedence: explicit
// payload preference, then the guest's stored language, then the request's
// Accept-Language header, then an email-TLD heuristic, then the default.
func Resolve(payloadLang string, guestLang models.Language, acceptLanguage, email, def string) models.Language {
	if l := baseLang(payloadLang); l != "" {
		return l
	}
	if guestLang.IsValid() {
		return guestLang
	}
	if l := baseLang(acceptLanguage); l != "" {
		return l
	}
	if l := fromEmailTLD(email); l != "" {
		return l
	}
	if l := baseLang(def); l != "" {
		return l
	}
	return models.LangSpanish
}

// baseLang normalizes "es-ES", "en-GB;q=0.9" etc. to a supported base
// language, or "" if unsupported.
func baseLang(code string) models.Language {
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "" {
		return ""
	}
	primary := strings.TrimSpace(strings.SplitN(code, ",", 2)[0])
	primary = strings.SplitN(primary, ";", 2)[0]
	primary = strings.SplitN(primary, "-", 2)[0]

	l := models.Language(primary)
	if l.IsValid() {
		return l
	}
	return ""
}

// fromEmailTLD infers Romanian or Spanish from a country-code email domain.
// Anything else returns "" so the fallback chain continues.
func fromEmailTLD(email string) models.Language {
	e := strings.ToLower(strings.TrimSpace(email))
	switch {
	case strings.HasSuffix(e, ".ro"):
		return models.LangRomanian
	case strings.HasSuffix(e, ".es"):
		return models.LangSpanish
	}
	return ""
}
