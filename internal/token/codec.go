// Package token issues and verifies the signed session tokens handed to clients.
//
// A token is an HS256 JWT carrying the subject id, email and role. Its authority comes
// entirely from the signature; nothing is stored server side.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Role is the coarse-grained permission level carried in a token.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// Claims is the decoded payload of a token.
type Claims struct {
	Subject   string
	Email     string
	Role      Role
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// wireClaims is the JSON shape signed into the token.
type wireClaims struct {
	Email string `json:"email"`
	Role  Role   `json:"role"`
	jwt.RegisteredClaims
}

// Option configures a Codec.
type Option func(*Codec)

// WithClock overrides the time source used for iat/exp and for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(c *Codec) { c.now = now }
}

// Codec signs and verifies tokens with a single shared secret. It is immutable after
// construction and safe for concurrent use.
type Codec struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
	parser *jwt.Parser
}

// NewCodec returns a Codec for the given secret and token lifetime.
func NewCodec(secret []byte, ttl time.Duration, opts ...Option) (*Codec, error) {
	if len(secret) == 0 {
		return nil, errors.New("token: secret must not be empty")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("token: invalid ttl %v", ttl)
	}
	c := &Codec{
		secret: append([]byte(nil), secret...),
		ttl:    ttl,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	return c, nil
}

// TTL reports the configured token lifetime.
func (c *Codec) TTL() time.Duration { return c.ttl }

// Issue signs a new token for the given identity, valid from now until now+TTL rounded up to
// the next whole second.
func (c *Codec) Issue(subject, email string, role Role) (string, error) {
	now := c.now()
	// NumericDate truncates; round up so the token never lives shorter than the TTL.
	exp := now.Add(c.ttl)
	if t := exp.Truncate(jwt.TimePrecision); t.Before(exp) {
		exp = t.Add(jwt.TimePrecision)
	}
	claims := wireClaims{
		Email: email,
		Role:  role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("token: sign: %w", err)
	}
	return signed, nil
}

// Decode verifies the signature and expiry of tokenString and returns its claims.
// Every failure is a *VerificationError.
func (c *Codec) Decode(tokenString string) (*Claims, error) {
	var wc wireClaims
	_, err := c.parser.ParseWithClaims(tokenString, &wc, func(*jwt.Token) (interface{}, error) {
		return c.secret, nil
	})
	if err != nil {
		return nil, classify(err)
	}
	claims := &Claims{
		Subject:   wc.Subject,
		Email:     wc.Email,
		Role:      wc.Role,
		ExpiresAt: wc.ExpiresAt.Time,
	}
	if wc.IssuedAt != nil {
		claims.IssuedAt = wc.IssuedAt.Time
	}
	return claims, nil
}

// ExpiresAt reads the embedded expiry without checking the signature. It must never be used
// to make an authorization decision; the revocation sweeper uses it to age out entries.
func (c *Codec) ExpiresAt(tokenString string) (time.Time, bool) {
	var wc wireClaims
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, &wc); err != nil {
		return time.Time{}, false
	}
	if wc.ExpiresAt == nil {
		return time.Time{}, false
	}
	return wc.ExpiresAt.Time, true
}

func classify(err error) *VerificationError {
	switch {
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return &VerificationError{Kind: BadSignature, Err: err}
	case errors.Is(err, jwt.ErrTokenExpired):
		return &VerificationError{Kind: Expired, Err: err}
	default:
		return &VerificationError{Kind: Malformed, Err: err}
	}
}
