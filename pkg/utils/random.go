// Package utils holds small helpers shared across packages.
package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const alphanumeric = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// GenerateRandomString returns n characters drawn uniformly from [A-Za-z0-9]
// using crypto/rand.
func GenerateRandomString(n int) (string, error) {
	if n <= 0 {
		return "", fmt.Errorf("invalid random string length: %d", n)
	}
	max := big.NewInt(int64(len(alphanumeric)))
	b := make([]byte, n)
	for i := range b {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to read random bytes: %w", err)
		}
		b[i] = alphanumeric[idx.Int64()]
	}
	return string(b), nil
}
