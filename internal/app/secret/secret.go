// Package secret hashes and verifies room passwords.
package secret

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

const hashCost = bcrypt.DefaultCost

// dummyHash keeps Verify roughly constant-cost when no hash is
// stored, so response timing does not reveal whether a room ever had
// a password. Best effort, not a cryptographic guarantee.
var dummyHash = func() []byte {
	h, err := bcrypt.GenerateFromPassword([]byte("sourcevoid-dummy"), hashCost)
	if err != nil {
		panic(err)
	}
	return h
}()

// Hash derives a salted one-way hash for storage. Used only at room
// creation.
func Hash(plaintext string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(plaintext), hashCost)
	if err != nil {
		return "", fmt.Errorf("secret: hash: %w", err)
	}
	return string(h), nil
}

// Verify reports whether candidate matches storedHash. An empty
// storedHash never matches; the comparison still runs against a
// dummy hash to equalize cost.
func Verify(storedHash, candidate string) bool {
	if storedHash == "" {
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(candidate))
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(storedHash), []byte(candidate)) == nil
}
