package workspace

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
)

// NewInviteToken returns a fresh bearer token: 16 random bytes, hex encoded.
// The token itself carries the full 128 bits of entropy, so a plain SHA-256
// of it is a safe storage form and no salt is needed.
func NewInviteToken() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// HashInviteToken derives the storage key for a raw invite token.
func HashInviteToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
