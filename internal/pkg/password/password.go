// Package password hashes and verifies credentials. Only digests cross the
// persistence boundary; plaintext never leaves this package's call frames.
package password

import "golang.org/x/crypto/bcrypt"

// Hash produces a salted one-way digest of plaintext. The salt is generated
// per call, so hashing the same plaintext twice yields different digests.
func Hash(plaintext string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(digest), nil
}

// Verify reports whether plaintext matches digest. It returns false on any
// mismatch or malformed digest, never an error.
func Verify(plaintext, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plaintext)) == nil
}
