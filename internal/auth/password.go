package auth

import (
	"crypto/rand"
	"crypto/sha512"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

const (
	saltBytes      = 16
	derivedKeyLen  = 64
	hashIterations = 10000
)

// HashPassword derives a PBKDF2-SHA512 key from the password under a fresh
// random salt. Both values are returned hex-encoded.
func HashPassword(password string) (hash, salt string, err error) {
	raw := make([]byte, saltBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", "", fmt.Errorf("generate salt: %w", err)
	}
	salt = hex.EncodeToString(raw)
	return derivePassword(password, salt), salt, nil
}

// VerifyPassword recomputes the derivation with the stored salt and compares
// it against the stored hash. The comparison is a plain equality check, not a
// constant-time one; the persisted format predates that hardening.
func VerifyPassword(password, hash, salt string) bool {
	return derivePassword(password, salt) == hash
}

func derivePassword(password, salt string) string {
	key := pbkdf2.Key([]byte(password), []byte(salt), hashIterations, derivedKeyLen, sha512.New)
	return hex.EncodeToString(key)
}
