package utils

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPassword(t *testing.T) {
	hashed, err := HashPassword("geheim")
	require.NoError(t, err)
	assert.True(t, CheckPassword(hashed, "geheim"))
	assert.False(t, CheckPassword(hashed, "falsch"))
}

func TestHashes(t *testing.T) {
	assert.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", SHA256Hex(""))
	assert.Equal(t, "d41d8cd98f00b204e9800998ecf8427e", MD5Hex(""))
	assert.Equal(t, MD5Hex("legacy"), LegacyPasswordHash("legacy"))

	day := time.Date(2024, 9, 2, 13, 0, 0, 0, time.UTC)
	assert.Equal(t, MD5Hex("s3cret20240902"), LegacySecureHash("s3cret", day))
	assert.NotEqual(t, LegacySecureHash("s3cret", day), LegacySecureHash("s3cret", day.AddDate(0, 0, 1)))
}

func TestGenerateToken(t *testing.T) {
	a, err := GenerateToken(0)
	require.NoError(t, err)
	assert.Len(t, a, 48)
	for _, r := range a {
		assert.True(t, strings.ContainsRune(tokenAlphabet, r))
	}
	b, err := GenerateToken(16)
	require.NoError(t, err)
	assert.Len(t, b, 16)
	assert.NotEqual(t, a[:16], b)
}
