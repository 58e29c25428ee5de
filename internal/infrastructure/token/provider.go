// Package token signs and verifies the stateless bearer tokens handed out
// at login. Tokens carry no expiry: they stay valid until the identity's
// password digest changes, which is checked by the caller against the
// embedded fingerprint.
package token

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/identity-api/internal/domain"
)

// Claims holds the JWT payload fields. Fingerprint is the password digest at
// issue time; a digest change invalidates every token issued before it.
type Claims struct {
	Fingerprint string `json:"fingerprint"`
	jwt.RegisteredClaims
}

// Provider signs and verifies HS256 JWTs with a server-held secret.
type Provider struct {
	secret []byte
}

func NewProvider(secret string) (*Provider, error) {
	if secret == "" {
		return nil, errors.New("jwt secret must not be empty")
	}
	return &Provider{secret: []byte(secret)}, nil
}

// Sign encodes the identity id and its current password digest into a
// signed token. No expiry claim is set on purpose.
func (p *Provider) Sign(ident *domain.Identity) (string, error) {
	claims := Claims{
		Fingerprint: ident.PasswordHash,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject: ident.IdentityID,
		},
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tok.SignedString(p.secret)
}

// Verify checks the signature and returns the claims. It does not check the
// fingerprint; the caller must compare it against the identity's current
// digest after loading the record.
func (p *Provider) Verify(tokenStr string) (*Claims, error) {
	tok, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return p.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", domain.ErrInvalidToken)
	}
	claims, ok := tok.Claims.(*Claims)
	if !ok || !tok.Valid || claims.Subject == "" {
		return nil, fmt.Errorf("invalid token claims: %w", domain.ErrInvalidToken)
	}
	return claims, nil
}
