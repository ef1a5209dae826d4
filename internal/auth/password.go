package auth

import (
	"crypto/sha256"
	"encoding/hex"

	"golang.org/x/crypto/bcrypt"
)

// DigestPassword is the client-side transform: login bodies carry this value
// instead of the plaintext.
func DigestPassword(plaintext string) string {
	sum := sha256.Sum256([]byte(plaintext))
	return hex.EncodeToString(sum[:])
}

// GeneratePasswordHash hashes the sha256 digest of a password with bcrypt.
func GeneratePasswordHash(digest string) (string, error) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(digest), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}

	return string(hashedPassword), nil
}

func ComparePasswordHash(hashedPassword []byte, digest string) error {
	return bcrypt.CompareHashAndPassword(hashedPassword, []byte(digest))
}
