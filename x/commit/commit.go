// Package commit implements the answer commitment scheme: a guess is checked
// against a stored digest so the plaintext answer never ships to clients.
//
// The digest itself is public once a bounty is fetched, so this is a
// usability gate against casual tampering, not an access-control boundary;
// a determined user can brute-force short answers offline.
package commit

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Normalize canonicalizes an answer before hashing. Every call site that
// produces or checks a digest must go through the same normalization or
// correct answers get rejected.
func Normalize(answer string) string {
	return strings.ToLower(strings.TrimSpace(answer))
}

// Commit returns the hex-encoded SHA-256 digest of the normalized answer.
func Commit(answer string) string {
	sum := sha256.Sum256([]byte(Normalize(answer)))
	return hex.EncodeToString(sum[:])
}

// Verify reports whether the answer commits to the expected digest.
// Plain comparison is intentional: the digest is not a live credential.
func Verify(answer, expectedDigest string) bool {
	return Commit(answer) == expectedDigest
}
