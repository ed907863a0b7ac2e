package roomkey

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"regexp"
	"strings"
)

const (
	Length   = 10
	alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

var keyPattern = regexp.MustCompile(`^[A-Z0-9]{10}$`)

// Generate returns a random key drawn from the uppercase alphanumeric alphabet.
func Generate() (string, error) {
	var sb strings.Builder
	sb.Grow(Length)

	max := big.NewInt(int64(len(alphabet)))
	for i := 0; i < Length; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to generate room key: %w", err)
		}
		sb.WriteByte(alphabet[n.Int64()])
	}

	return sb.String(), nil
}

// Valid reports whether key is exactly ten uppercase alphanumeric characters.
func Valid(key string) bool {
	return keyPattern.MatchString(key)
}

// Normalize upper-cases and trims a user supplied key. The result still has
// to pass Valid.
func Normalize(key string) string {
	return strings.ToUpper(strings.TrimSpace(key))
}
