package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// HashPassword hashes a plaintext password with configured cost.
func HashPassword(password string, cost int) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// ComparePassword verifies a password against its hashed value.
func ComparePassword(hashed, plain string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain))
}

// GenerateResetToken produces a high-entropy reset token. The client
// receives the plaintext; only the digest is ever persisted.
func GenerateResetToken() (plaintext, digest string, err error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", "", fmt.Errorf("generate reset token: %w", err)
	}
	plaintext = hex.EncodeToString(buf)
	return plaintext, HashResetToken(plaintext), nil
}

// HashResetToken returns the persisted digest for a reset token. The
// token itself is 256 bits of randomness, so a plain SHA-256 suffices;
// no KDF stretching is needed for high-entropy input.
func HashResetToken(plaintext string) string {
	sum := sha256.Sum256([]byte(plaintext))
	return hex.EncodeToString(sum[:])
}

// ResetTokenMatches compares a plaintext token against a stored digest
// in constant time.
func ResetTokenMatches(plaintext, digest string) bool {
	candidate := HashResetToken(plaintext)
	return subtle.ConstantTimeCompare([]byte(candidate), []byte(digest)) == 1
}
