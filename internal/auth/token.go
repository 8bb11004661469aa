package auth

import (
	"errors"
	"fmt"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
)

type claims struct {
	Roles []Role `json:"roles"`
	gojwt.RegisteredClaims
}

// Verifier checks HS256 bearer tokens signed with a shared secret.
type Verifier struct {
	secret []byte
	parser *gojwt.Parser
}

// NewVerifier creates a verifier. An empty secret disables verification.
func NewVerifier(secret string) *Verifier {
	return &Verifier{
		secret: []byte(secret),
		parser: gojwt.NewParser(gojwt.WithValidMethods([]string{gojwt.SigningMethodHS256.Alg()}), gojwt.WithExpirationRequired()),
	}
}

// Enabled reports whether tokens are verified.
func (v *Verifier) Enabled() bool {
	return len(v.secret) > 0
}

// Parse verifies raw and returns its principal.
func (v *Verifier) Parse(raw string) (Principal, error) {
	if !v.Enabled() {
		return Principal{}, errors.New("token verification disabled")
	}
	var c claims
	_, err := v.parser.ParseWithClaims(raw, &c, func(*gojwt.Token) (any, error) {
		return v.secret, nil
	})
	if err != nil {
		return Principal{}, fmt.Errorf("parse token: %w", err)
	}
	if c.Subject == "" {
		return Principal{}, errors.New("parse token: missing sub claim")
	}
	return Principal{Subject: c.Subject, Roles: c.Roles}, nil
}

// Issue signs a token for p valid for ttl. Operators use it to mint tokens
// for service accounts and tests.
func (v *Verifier) Issue(p Principal, ttl time.Duration) (string, error) {
	if !v.Enabled() {
		return "", errors.New("token signing disabled")
	}
	now := time.Now()
	tok := gojwt.NewWithClaims(gojwt.SigningMethodHS256, claims{
		Roles: p.Roles,
		RegisteredClaims: gojwt.RegisteredClaims{
			Subject:   p.Subject,
			IssuedAt:  gojwt.NewNumericDate(now),
			ExpiresAt: gojwt.NewNumericDate(now.Add(ttl)),
		},
	})
	return tok.SignedString(v.secret)
}
