// Package utils holds small cross-cutting helpers shared by the deployment
// and session packages that don't warrant their own package.
package utils

import (
	"crypto/rand"
	"fmt"
)

const (
	// RandomStringLength is the length of the `random_string` value substituted
	// into install scripts during background provisioning.
	RandomStringLength = 16
	alphanumeric       = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// RandomString returns a cryptographically random alphanumeric string of the
// given length. Used to materialize the `random_string` install-script
// template variable (spec §4.4 step 10).
func RandomString(length int) (string, error) {
	return generateRandomString(length, alphanumeric)
}

func generateRandomString(length int, charset string) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("length must be positive")
	}
	if len(charset) == 0 {
		return "", fmt.Errorf("charset cannot be empty")
	}

	randomBytes := make([]byte, length)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", fmt.Errorf("failed to read random data: %w", err)
	}

	out := make([]byte, length)
	for i, b := range randomBytes {
		out[i] = charset[int(b)%len(charset)]
	}

	return string(out), nil
}
