package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

const tokenBytes = 32

// NewToken returns an opaque session token: 32 bytes of CSPRNG output, hex
// encoded. Collisions are treated as negligible; no uniqueness check is made
// against existing sessions.
func NewToken() (string, error) {
	raw := make([]byte, tokenBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return hex.EncodeToString(raw), nil
}
