package service

import (
	"strings"

	"github.com/vibast-solutions/ms-go-accounts/app/types"
)

// NormalizeEmail is the canonical form used for storage and lookups:
// surrounding whitespace removed and lowercased.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func IsValidEmail(email string) bool {
	return types.IsEmail(email)
}

// RedactEmail keeps the first character of the local part and the domain so
// log lines stay useful without carrying the address.
func RedactEmail(email string) string {
	local, domain, ok := strings.Cut(email, "@")
	if !ok || local == "" {
		return "***"
	}
	return local[:1] + "***@" + domain
}
