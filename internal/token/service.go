// Package token issues and verifies signed, time-limited session tokens.
package token

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// MinSecretLength is the shortest HMAC secret accepted by NewService.
const MinSecretLength = 32

var signingMethods = map[string]jwt.SigningMethod{
	jwt.SigningMethodHS256.Alg(): jwt.SigningMethodHS256,
	jwt.SigningMethodHS384.Alg(): jwt.SigningMethodHS384,
	jwt.SigningMethodHS512.Alg(): jwt.SigningMethodHS512,
}

// SupportedAlgorithm reports whether alg can sign session tokens.
func SupportedAlgorithm(alg string) bool {
	_, ok := signingMethods[alg]
	return ok
}

// Clock returns the current time.
type Clock func() time.Time

// Config configures a Service.
type Config struct {
	Secret    []byte
	Algorithm string
	TTL       time.Duration
	Clock     Clock
}

// Claims is the verified content of a session token.
type Claims struct {
	SubjectID int64
	ID        string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Remaining returns how long the token stays valid after now. Zero or less
// means the token has already expired.
func (c Claims) Remaining(now time.Time) time.Duration {
	return c.ExpiresAt.Sub(now)
}

type sessionClaims struct {
	UserID int64 `json:"id"`
	jwt.RegisteredClaims
}

// Service signs and verifies session tokens with a server-held secret.
type Service struct {
	secret []byte
	method jwt.SigningMethod
	ttl    time.Duration
	clock  Clock
	parser *jwt.Parser
}

// NewService validates cfg and returns a ready Service.
func NewService(cfg Config) (*Service, error) {
	method, ok := signingMethods[cfg.Algorithm]
	if !ok {
		return nil, fmt.Errorf("token: unsupported algorithm %q", cfg.Algorithm)
	}
	if len(cfg.Secret) < MinSecretLength {
		return nil, fmt.Errorf("token: secret must be at least %d bytes", MinSecretLength)
	}
	if cfg.TTL <= 0 {
		return nil, errors.New("token: ttl must be positive")
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	s := &Service{
		secret: append([]byte(nil), cfg.Secret...),
		method: method,
		ttl:    cfg.TTL,
		clock:  clock,
	}
	s.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(s.now),
	)
	return s, nil
}

// TTL returns the configured token lifetime.
func (s *Service) TTL() time.Duration {
	return s.ttl
}

// Issue signs a token for subjectID valid from now until now plus the TTL.
func (s *Service) Issue(subjectID int64) (string, Claims, error) {
	if subjectID <= 0 {
		return "", Claims{}, fmt.Errorf("token: invalid subject %d", subjectID)
	}
	now := s.now().Truncate(time.Second)
	claims := sessionClaims{
		UserID: subjectID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   strconv.FormatInt(subjectID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(s.method, claims).SignedString(s.secret)
	if err != nil {
		return "", Claims{}, fmt.Errorf("token: sign: %w", err)
	}
	return signed, toClaims(claims), nil
}

// Verify checks the signature and expiry of raw. It does not consult any
// revocation store. Failures are returned as *Error.
func (s *Service) Verify(raw string) (Claims, error) {
	var claims sessionClaims
	_, err := s.parser.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, &Error{Kind: KindExpired, err: err}
		}
		return Claims{}, &Error{Kind: KindInvalid, err: err}
	}
	if claims.UserID <= 0 || claims.IssuedAt == nil {
		return Claims{}, &Error{Kind: KindInvalid, err: errors.New("missing subject or issued-at")}
	}
	return toClaims(claims), nil
}

func (s *Service) now() time.Time {
	return s.clock()
}

func toClaims(c sessionClaims) Claims {
	out := Claims{SubjectID: c.UserID, ID: c.ID}
	if c.IssuedAt != nil {
		out.IssuedAt = c.IssuedAt.Time
	}
	if c.ExpiresAt != nil {
		out.ExpiresAt = c.ExpiresAt.Time
	}
	return out
}
