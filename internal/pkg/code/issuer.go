// Package code generates and checks the short-lived numeric codes used for
// email verification, phone verification, and password reset.
package code

import (
	"crypto/rand"
	"math/big"
	"time"

	"github.com/identity-api/internal/domain"
)

// TTL is the validity window of every issued code, measured from issuance.
const TTL = 10 * time.Minute

const (
	codeMin = 1000
	codeMax = 9999
)

// Issuer produces verification codes against an injectable clock.
type Issuer struct {
	now func() time.Time
}

// NewIssuer returns an Issuer using now as its clock. A nil now falls back
// to time.Now.
func NewIssuer(now func() time.Time) Issuer {
	if now == nil {
		now = time.Now
	}
	return Issuer{now: now}
}

// Issue produces a fresh 4-digit code expiring TTL from now. Assigning the
// result over a previous code is the re-issue path: the old value simply
// stops existing.
func (i Issuer) Issue() (domain.VerificationCode, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(codeMax-codeMin+1))
	if err != nil {
		return domain.VerificationCode{}, err
	}
	return domain.VerificationCode{
		Code:      codeMin + int(n.Int64()),
		ExpiresAt: i.now().UTC().Add(TTL),
	}, nil
}

// IsValid reports whether c is still inside its validity window, compared
// against the stored expiry instant. A code that was never issued (zero
// expiry) is invalid rather than an error.
func (i Issuer) IsValid(c domain.VerificationCode) bool {
	if c.ExpiresAt.IsZero() {
		return false
	}
	return !i.now().After(c.ExpiresAt)
}

// Matches reports whether candidate equals the stored code value. The zero
// code never matches.
func Matches(c domain.VerificationCode, candidate int) bool {
	return c.Code != 0 && c.Code == candidate
}

// ValidInput reports whether n is shaped like an issued code at all. Anything
// outside the 4-digit range can be rejected before touching storage.
func ValidInput(n int) bool {
	return n >= codeMin && n <= codeMax
}
