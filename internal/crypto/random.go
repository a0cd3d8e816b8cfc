package crypto

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// DefaultResetTokenBytes is the entropy of a password reset token.
const DefaultResetTokenBytes = 32

// GenerateToken returns n cryptographically random bytes, hex-encoded.
func GenerateToken(n int) (string, error) {
	if n <= 0 {
		return "", fmt.Errorf("token length must be positive, got %d", n)
	}

	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// GenerateResetToken returns a fresh reset token and the digest to persist.
// The plaintext goes to the user exactly once.
func GenerateResetToken(n int) (plain, hash string, err error) {
	plain, err = GenerateToken(n)
	if err != nil {
		return "", "", err
	}
	return plain, HashToken(plain), nil
}
