// Package email normalizes partner and lead email addresses.
package email

import (
	"strings"
	"unicode"

	"github.com/asaskevich/govalidator"
)

// Normalize trims and lowercases an address. Partner emails are unique
// case-insensitively, so every lookup goes through this.
func Normalize(addr string) string {
	return strings.ToLower(strings.TrimSpace(addr))
}

// IsValid reports whether addr is a syntactically valid email address.
func IsValid(addr string) bool {
	return addr != "" && govalidator.IsEmail(addr)
}

// DeriveNameFromEmail guesses a first and last name from the local part,
// e.g. "asha.rao@idb.in" -> ("Asha", "Rao").
func DeriveNameFromEmail(email string) (string, string) {
	localPart := email
	if at := strings.IndexByte(email, '@'); at > 0 {
		localPart = email[:at]
	}

	parts := strings.FieldsFunc(localPart, func(r rune) bool {
		return r == '.' || r == '_' || r == '-' || r == '+'
	})

	if len(parts) == 0 {
		return "User", "User"
	}

	first := capitalize(parts[0])
	last := "User"
	if len(parts) > 1 {
		last = capitalize(parts[len(parts)-1])
	}

	return first, last
}

// DisplayName is DeriveNameFromEmail joined for a single name field.
func DisplayName(email string) string {
	first, last := DeriveNameFromEmail(email)
	if last == "User" {
		return first
	}
	return first + " " + last
}

func capitalize(s string) string {
	if s == "" {
		return s
	}

	runes := []rune(s)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
