// Package token issues and checks public invoice tokens.
package token

import (
	"crypto/rand"
	"encoding/base64"
	"regexp"
)

const (
	byteLength = 32
	// Length is the encoded size of a token.
	Length = 43
)

var pattern = regexp.MustCompile(`^[A-Za-z0-9_-]{43}$`)

// Generate returns 32 random bytes encoded as unpadded base64url.
func Generate() (string, error) {
	buf := make([]byte, byteLength)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// Valid reports whether value has the shape of an issued token.
func Valid(value string) bool {
	return pattern.MatchString(value)
}
