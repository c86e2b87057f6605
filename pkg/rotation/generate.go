package rotation

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const (
	upperChars       = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	lowerChars       = "abcdefghijklmnopqrstuvwxyz"
	digitChars       = "0123456789"
	punctuationChars = "!@#$%^&*()-_=+[]{}|;:,.<>?"
	alphanumeric     = upperChars + lowerChars + digitChars
)

// minGeneratedLength is silently enforced on every generated credential.
const minGeneratedLength = 8

// Generate produces a password of at least 8 characters from a
// cryptographically secure random source. The result contains at least two
// uppercase letters, two lowercase letters, two digits, and one punctuation
// character; the guaranteed characters are shuffled into random positions.
//
// A failing random source is unrecoverable and propagates as an error.
func Generate(length int) (string, error) {
	if length < minGeneratedLength {
		length = minGeneratedLength
	}

	buf := make([]byte, 0, length)

	classes := []struct {
		charset string
		count   int
	}{
		{upperChars, 2},
		{lowerChars, 2},
		{digitChars, 2},
		{punctuationChars, 1},
	}
	for _, class := range classes {
		for i := 0; i < class.count; i++ {
			c, err := randomChar(class.charset)
			if err != nil {
				return "", err
			}
			buf = append(buf, c)
		}
	}

	all := upperChars + lowerChars + digitChars + punctuationChars
	for len(buf) < length {
		c, err := randomChar(all)
		if err != nil {
			return "", err
		}
		buf = append(buf, c)
	}

	if err := shuffle(buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

// GenerateUsername returns a string of total length max(8, length) starting
// with prefix (default "u") followed by random alphanumeric characters. The
// prefix is preserved verbatim and never truncated.
func GenerateUsername(prefix string, length int) (string, error) {
	if prefix == "" {
		prefix = DefaultUsernamePrefix
	}
	if length < minGeneratedLength {
		length = minGeneratedLength
	}
	if len(prefix) >= length {
		return prefix, nil
	}

	buf := make([]byte, 0, length)
	buf = append(buf, prefix...)
	for len(buf) < length {
		c, err := randomChar(alphanumeric)
		if err != nil {
			return "", err
		}
		buf = append(buf, c)
	}
	return string(buf), nil
}

// randomChar draws one character uniformly from charset.
func randomChar(charset string) (byte, error) {
	i, err := randomInt(len(charset))
	if err != nil {
		return 0, err
	}
	return charset[i], nil
}

// randomInt draws uniformly from [0, n) without modulo bias.
func randomInt(n int) (int, error) {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0, fmt.Errorf("secure random source failed: %w", err)
	}
	return int(v.Int64()), nil
}

// shuffle applies a Fisher-Yates permutation driven by the secure random
// source so the class-guaranteed characters are not predictably placed.
func shuffle(buf []byte) error {
	for i := len(buf) - 1; i > 0; i-- {
		j, err := randomInt(i + 1)
		if err != nil {
			return err
		}
		buf[i], buf[j] = buf[j], buf[i]
	}
	return nil
}
