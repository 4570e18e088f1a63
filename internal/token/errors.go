package token

import "github.com/Pechenuxa1/EffectiveMobileTestTask/internal/shared"

// Kind classifies a verification failure.
type Kind int

const (
	// KindInvalid covers bad signatures, malformed tokens and any other parse failure.
	KindInvalid Kind = iota
	// KindExpired means the token was well formed but its expiry has passed.
	KindExpired
)

func (k Kind) String() string {
	if k == KindExpired {
		return "expired"
	}
	return "invalid"
}

// Error is returned by Service.Verify. Both kinds unwrap to shared.ErrUnauthorized
// so callers outside this package see a single outcome.
type Error struct {
	Kind Kind
	err  error
}

func (e *Error) Error() string {
	return "token " + e.Kind.String()
}

// Unwrap exposes shared.ErrUnauthorized.
func (e *Error) Unwrap() error {
	return shared.ErrUnauthorized
}

// Cause returns the underlying parser error for diagnostics.
func (e *Error) Cause() error {
	return e.err
}
