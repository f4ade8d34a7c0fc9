// internal/app/system/inputval/inputval.go
package inputval

import (
	"strings"

	"github.com/dalemusser/corix/internal/app/system/limits"
)

// IsValidEmail validates an address for account registration and profile
// updates. It is deliberately stricter than the invite path (which only
// normalizes and requires an "@"): no display names, no spaces, no
// leading/trailing/consecutive dots in either part. Single-label domains
// are allowed for dev/test environments.
func IsValidEmail(email string) bool {
	email = strings.TrimSpace(email)
	if email == "" {
		return false
	}
	at := strings.LastIndex(email, "@")
	if at <= 0 || at == len(email)-1 {
		return false
	}
	return validEmailLocal(email[:at]) && validEmailDomain(email[at+1:])
}

// IsInvitableEmail applies the loose rule for invited addresses: normalized,
// non-empty, and containing an "@". An invited address is only a key into
// the invitation table; the strict rule applies if and when it registers.
func IsInvitableEmail(email string) bool {
	return email != "" && strings.Contains(email, "@")
}

const localSpecials = "!#$%&'*+/=?^_`{|}~.-"

func validEmailLocal(local string) bool {
	if local == "" || strings.HasPrefix(local, ".") || strings.HasSuffix(local, ".") {
		return false
	}
	if strings.Contains(local, "..") {
		return false
	}
	for _, r := range local {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case strings.ContainsRune(localSpecials, r):
		default:
			return false
		}
	}
	return true
}

func validEmailDomain(domain string) bool {
	if domain == "" || strings.HasPrefix(domain, ".") || strings.HasSuffix(domain, ".") {
		return false
	}
	if strings.Contains(domain, "..") {
		return false
	}
	for _, label := range strings.Split(domain, ".") {
		if label == "" || strings.HasPrefix(label, "-") || strings.HasSuffix(label, "-") {
			return false
		}
		for _, r := range label {
			switch {
			case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-':
			default:
				return false
			}
		}
	}
	return true
}

// NormalizeEmail lowercases and trims an address. Invitations and the
// auto-accept scan compare emails in this normalized form.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateGroupName trims and validates a group name. Returns the trimmed
// name and an empty problem string on success.
func ValidateGroupName(name string) (string, string) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", "group name is required"
	}
	if len(name) > limits.MaxGroupNameLen {
		return "", "group name must be at most 100 characters"
	}
	return name, ""
}

// passwordSymbols is the shared business rule's symbol set. Keep in sync
// with the client-side hint; the server re-validates regardless.
const passwordSymbols = `!@#$%^&*()_+-=[]{};':"\|,.<>/?`

// ValidatePassword enforces the shared password policy: at least 12
// characters with at least one letter, one digit, and one symbol from the
// allowed set. Returns an empty string when the password is acceptable.
func ValidatePassword(password string) string {
	if len(password) < limits.MinPasswordLen {
		return "password must be at least 12 characters"
	}
	var hasLetter, hasDigit, hasSymbol bool
	for _, r := range password {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
			hasLetter = true
		case r >= '0' && r <= '9':
			hasDigit = true
		case strings.ContainsRune(passwordSymbols, r):
			hasSymbol = true
		}
	}
	if !hasLetter {
		return "password must contain at least one letter"
	}
	if !hasDigit {
		return "password must contain at least one number"
	}
	if !hasSymbol {
		return "password must contain at least one symbol"
	}
	return ""
}
