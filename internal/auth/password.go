package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/scrypt"
)

// scrypt parameters: interactive-login cost, 32-byte derived key.
const (
	scryptN      = 16384
	scryptR      = 8
	scryptP      = 1
	keyLen       = 32
	saltLen      = 16
	verifierSep  = "."
)

// HashPassword derives a salted verifier in the form hex(key).hex(salt).
// The plaintext never leaves this function.
func HashPassword(password string) (string, error) {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}

	key, err := scrypt.Key([]byte(password), salt, scryptN, scryptR, scryptP, keyLen)
	if err != nil {
		return "", fmt.Errorf("derive key: %w", err)
	}

	return hex.EncodeToString(key) + verifierSep + hex.EncodeToString(salt), nil
}

// VerifyPassword re-derives the key from the stored salt and compares in
// constant time. Any malformed stored value yields false, never an error.
func VerifyPassword(password, stored string) bool {
	parts := strings.Split(stored, verifierSep)
	if len(parts) != 2 {
		return false
	}

	wantKey, err := hex.DecodeString(parts[0])
	if err != nil || len(wantKey) == 0 {
		return false
	}
	salt, err := hex.DecodeString(parts[1])
	if err != nil || len(salt) == 0 {
		return false
	}

	key, err := scrypt.Key([]byte(password), salt, scryptN, scryptR, scryptP, len(wantKey))
	if err != nil {
		return false
	}

	return subtle.ConstantTimeCompare(key, wantKey) == 1
}
