package credential

import (
	"strings"
	"unicode/utf8"

	"github.com/Pechenuxa1/EffectiveMobileTestTask/internal/shared"
)

// MinPasswordLength is the shortest accepted password, counted in characters.
const MinPasswordLength = 8

// MaxPasswordBytes is the longest password bcrypt can hash.
const MaxPasswordBytes = 72

// SpecialCharacters lists the punctuation accepted as a special character.
const SpecialCharacters = "!@#$%^&*()_+-=[]{}|;:,.<>?`~"

// Requirement names a single password rule.
type Requirement string

// Password rules in the order they are reported.
const (
	RequireLength  Requirement = "8 characters"
	RequireUpper   Requirement = "one uppercase letter"
	RequireLower   Requirement = "one lowercase letter"
	RequireDigit   Requirement = "one digit"
	RequireSpecial Requirement = "one special character"
	// RequireMaxBytes is reported apart from the minimum rules.
	RequireMaxBytes Requirement = "at most 72 bytes"
)

// WeakPasswordError lists every rule a rejected password failed.
type WeakPasswordError struct {
	Missing []Requirement
}

func (e *WeakPasswordError) Error() string {
	var (
		parts   []string
		tooLong bool
	)
	for _, req := range e.Missing {
		if req == RequireMaxBytes {
			tooLong = true
			continue
		}
		parts = append(parts, string(req))
	}
	var msgs []string
	if len(parts) > 0 {
		msgs = append(msgs, "password must contain at least "+strings.Join(parts, ", "))
	}
	if tooLong {
		msgs = append(msgs, "password must be "+string(RequireMaxBytes))
	}
	return strings.Join(msgs, "; ")
}

// Unwrap lets callers match the error against shared.ErrValidation.
func (e *WeakPasswordError) Unwrap() error {
	return shared.ErrValidation
}

// Details returns the missing rules as strings.
func (e *WeakPasswordError) Details() []string {
	out := make([]string, len(e.Missing))
	for i, req := range e.Missing {
		out[i] = string(req)
	}
	return out
}

// ValidatePassword checks password against the policy and returns a
// *WeakPasswordError naming every unmet rule, or nil.
func ValidatePassword(password string) error {
	var upper, lower, digit, special bool
	for _, r := range password {
		switch {
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= '0' && r <= '9':
			digit = true
		case strings.ContainsRune(SpecialCharacters, r):
			special = true
		}
	}

	var missing []Requirement
	if utf8.RuneCountInString(password) < MinPasswordLength {
		missing = append(missing, RequireLength)
	}
	if !upper {
		missing = append(missing, RequireUpper)
	}
	if !lower {
		missing = append(missing, RequireLower)
	}
	if !digit {
		missing = append(missing, RequireDigit)
	}
	if !special {
		missing = append(missing, RequireSpecial)
	}
	if len(password) > MaxPasswordBytes {
		missing = append(missing, RequireMaxBytes)
	}
	if len(missing) > 0 {
		return &WeakPasswordError{Missing: missing}
	}
	return nil
}
