package utils

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
)

// HashPassword returns the base64-encoded SHA-256 digest of a password.
// No salt is mixed in: the same password always yields the same digest,
// for every user. Stored hashes depend on this, so it must stay unsalted.
func HashPassword(plain string) string {
	sum := sha256.Sum256([]byte(plain))
	return base64.StdEncoding.EncodeToString(sum[:])
}

// VerifyPassword reports whether plain hashes to digest.
func VerifyPassword(digest, plain string) bool {
	return subtle.ConstantTimeCompare([]byte(HashPassword(plain)), []byte(digest)) == 1
}
