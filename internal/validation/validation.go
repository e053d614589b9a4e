package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// ValidateEmail checks that the email has a plausible address shape.
func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return fmt.Errorf("email is required")
	}
	if len(email) > 254 {
		return fmt.Errorf("email is too long")
	}
	if !emailRegex.MatchString(email) {
		return fmt.Errorf("email format is invalid")
	}
	return nil
}

// ValidatePhone checks that the phone contains enough digits to be dialable.
// Formatting characters (spaces, dashes, parentheses) are tolerated.
func ValidatePhone(phone string) error {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return fmt.Errorf("phone is required")
	}
	digits := 0
	for _, r := range phone {
		switch {
		case unicode.IsDigit(r):
			digits++
		case r == '+' || r == ' ' || r == '-' || r == '(' || r == ')' || r == '.':
		default:
			return fmt.Errorf("phone contains invalid characters")
		}
	}
	if digits < 6 || digits > 15 {
		return fmt.Errorf("phone must contain between 6 and 15 digits")
	}
	return nil
}

// ValidateFullName checks a guest's display name.
func ValidateFullName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("name is required")
	}
	if len(name) < 2 {
		return fmt.Errorf("name must be at least 2 characters")
	}
	if len(name) > 120 {
		return fmt.Errorf("name must be at most 120 characters")
	}
	return nil
}

// ValidateLast4 checks the phone-tail field used by code recovery.
func ValidateLast4(last4 string) error {
	if len(last4) != 4 {
		return fmt.Errorf("last4 must be exactly 4 digits")
	}
	for _, r := range last4 {
		if !unicode.IsDigit(r) {
			return fmt.Errorf("last4 must be exactly 4 digits")
		}
	}
	return nil
}
