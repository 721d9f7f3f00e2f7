// Package crypto provides random secret generation for Digital Galaxy.
package crypto

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
)

const (
	// SigningSecretSize is the number of random bytes in a generated signing secret.
	SigningSecretSize = 32

	// passwordChars avoids characters that are easy to confuse when read aloud.
	passwordChars = "ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz23456789"
)

// ErrInvalidLength indicates a non-positive length was requested.
var ErrInvalidLength = errors.New("length must be positive")

// RandomHex returns n random bytes encoded as 2n hex characters.
func RandomHex(n int) (string, error) {
	if n <= 0 {
		return "", ErrInvalidLength
	}
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// GenerateSigningSecret returns a hex secret suitable for auth.jwt_secret.
func GenerateSigningSecret() (string, error) {
	return RandomHex(SigningSecretSize)
}

// GeneratePassword returns a random password of the given length.
func GeneratePassword(length int) (string, error) {
	return generateRandomString(length, passwordChars)
}

// generateRandomString generates a random string of the specified length
// using characters from the provided character set. Bytes that would bias
// the distribution are discarded.
func generateRandomString(length int, charset string) (string, error) {
	if length <= 0 {
		return "", ErrInvalidLength
	}

	limit := byte(256 - 256%len(charset))
	result := make([]byte, 0, length)
	buf := make([]byte, length)

	for len(result) < length {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("failed to generate random bytes: %w", err)
		}
		for _, b := range buf {
			if b >= limit {
				continue
			}
			result = append(result, charset[int(b)%len(charset)])
			if len(result) == length {
				break
			}
		}
	}

	return string(result), nil
}
