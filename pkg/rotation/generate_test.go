package rotation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func countFrom(s, charset string) int {
	n := 0
	for i := 0; i < len(s); i++ {
		if strings.IndexByte(charset, s[i]) >= 0 {
			n++
		}
	}
	return n
}

func TestGenerate(t *testing.T) {
	t.Run("RespectsRequestedLength", func(t *testing.T) {
		for _, length := range []int{8, 16, 24, 64} {
			password, err := Generate(length)
			require.NoError(t, err)
			assert.Len(t, password, length)
		}
	})

	t.Run("EnforcesMinimumLength", func(t *testing.T) {
		for _, length := range []int{-1, 0, 1, 7} {
			password, err := Generate(length)
			require.NoError(t, err)
			assert.Len(t, password, 8, "length %d should be raised to 8", length)
		}
	})

	t.Run("ContainsRequiredCharacterClasses", func(t *testing.T) {
		for i := 0; i < 50; i++ {
			password, err := Generate(16)
			require.NoError(t, err)

			assert.GreaterOrEqual(t, countFrom(password, upperChars), 2, "password %q", password)
			assert.GreaterOrEqual(t, countFrom(password, lowerChars), 2, "password %q", password)
			assert.GreaterOrEqual(t, countFrom(password, digitChars), 2, "password %q", password)
			assert.GreaterOrEqual(t, countFrom(password, punctuationChars), 1, "password %q", password)
		}
	})

	t.Run("OnlyUsesKnownCharacters", func(t *testing.T) {
		all := upperChars + lowerChars + digitChars + punctuationChars
		password, err := Generate(64)
		require.NoError(t, err)
		for i := 0; i < len(password); i++ {
			assert.Contains(t, all, string(password[i]))
		}
	})

	t.Run("SuccessiveValuesDiffer", func(t *testing.T) {
		seen := make(map[string]bool)
		for i := 0; i < 20; i++ {
			password, err := Generate(16)
			require.NoError(t, err)
			assert.False(t, seen[password], "duplicate password %q", password)
			seen[password] = true
		}
	})
}

func TestGenerateUsername(t *testing.T) {
	t.Run("DefaultPrefix", func(t *testing.T) {
		username, err := GenerateUsername("", 16)
		require.NoError(t, err)
		assert.Len(t, username, 16)
		assert.True(t, strings.HasPrefix(username, "u"))
	})

	t.Run("CustomPrefixPreserved", func(t *testing.T) {
		username, err := GenerateUsername("app", 16)
		require.NoError(t, err)
		assert.Len(t, username, 16)
		assert.True(t, strings.HasPrefix(username, "app"))
	})

	t.Run("TailIsAlphanumeric", func(t *testing.T) {
		username, err := GenerateUsername("svc", 24)
		require.NoError(t, err)
		for i := 3; i < len(username); i++ {
			assert.Contains(t, alphanumeric, string(username[i]))
		}
	})

	t.Run("LongPrefixReturnedVerbatim", func(t *testing.T) {
		username, err := GenerateUsername("alreadylongenough", 8)
		require.NoError(t, err)
		assert.Equal(t, "alreadylongenough", username)
	})

	t.Run("MinimumLengthEnforced", func(t *testing.T) {
		username, err := GenerateUsername("a", 2)
		require.NoError(t, err)
		assert.Len(t, username, 8)
	})
}
