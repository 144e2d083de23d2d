package validation

import (
	"regexp"
	"strings"
)

var emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ISO 3166 alpha-2 or alpha-3.
var countryRe = regexp.MustCompile(`^[A-Z]{2,3}$`)

// ISO 4217.
var currencyRe = regexp.MustCompile(`^[A-Z]{3}$`)

func IsValidEmail(email string) bool {
	return emailRe.MatchString(email)
}

// IsCountryCode accepts upper- or lower-case codes.
func IsCountryCode(code string) bool {
	return countryRe.MatchString(strings.ToUpper(strings.TrimSpace(code)))
}

func IsCurrencyCode(code string) bool {
	return currencyRe.MatchString(strings.ToUpper(strings.TrimSpace(code)))
}

// Optional applies check only to non-blank values.
func Optional(v string, check func(string) bool) bool {
	return strings.TrimSpace(v) == "" || check(v)
}
