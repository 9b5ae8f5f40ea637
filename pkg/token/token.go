package token

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
)

const (
	urlTokenBytes             = 32
	errGenerateRandomBytesFmt = "failed to generate random bytes: %w"
	errLengthPositiveFmt      = "length must be positive"
	errByteLengthPositiveFmt  = "byteLength must be positive"
)

func Generate(length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf(errLengthPositiveFmt)
	}

	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf(errGenerateRandomBytesFmt, err)
	}

	return base64.RawURLEncoding.EncodeToString(bytes)[:length], nil
}

func GenerateHex(byteLength int) (string, error) {
	if byteLength <= 0 {
		return "", fmt.Errorf(errByteLengthPositiveFmt)
	}

	bytes := make([]byte, byteLength)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf(errGenerateRandomBytesFmt, err)
	}

	return hex.EncodeToString(bytes), nil
}

// GenerateURLToken returns a token safe to embed in invite and reset links.
func GenerateURLToken() (string, error) {
	return GenerateHex(urlTokenBytes)
}

// Hash is the value persisted for URL tokens; the raw token is never stored.
func Hash(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
