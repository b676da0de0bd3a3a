package utils

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndVerifyCurrentFormat(t *testing.T) {
	hasher := NewPasswordHasher("")

	stored, err := hasher.Hash("Secret1")
	require.NoError(t, err)
	assert.Equal(t, FormatScrypt, stored.Format)
	assert.Len(t, stored.Salt, scryptSaltLen)
	assert.Len(t, stored.Key, scryptKeyLen)

	parsed := ParseStoredHash(stored.String())
	assert.Equal(t, FormatScrypt, parsed.Format)

	assert.Equal(t, VerifyResult{Matches: true}, hasher.Verify(parsed, "Secret1"))
	assert.Equal(t, VerifyResult{}, hasher.Verify(parsed, "secret1"))
}

func TestHashesAreSalted(t *testing.T) {
	hasher := NewPasswordHasher("")
	a, err := hasher.Hash("Secret1")
	require.NoError(t, err)
	b, err := hasher.Hash("Secret1")
	require.NoError(t, err)
	assert.NotEqual(t, a.String(), b.String())
}

func TestPepperIsRequiredToVerify(t *testing.T) {
	stored, err := NewPasswordHasher("pepper").Hash("Secret1")
	require.NoError(t, err)

	assert.True(t, NewPasswordHasher("pepper").Verify(stored, "Secret1").Matches)
	assert.False(t, NewPasswordHasher("").Verify(stored, "Secret1").Matches)
	assert.False(t, NewPasswordHasher("other").Verify(stored, "Secret1").Matches)
}

func TestLegacyBase64Format(t *testing.T) {
	hasher := NewPasswordHasher("pepper")
	stored := ParseStoredHash("sha:" + base64.StdEncoding.EncodeToString([]byte("Secret1")))
	require.Equal(t, FormatLegacyBase64, stored.Format)
	assert.True(t, stored.IsLegacy())

	assert.Equal(t, VerifyResult{Matches: true, NeedsUpgrade: true}, hasher.Verify(stored, "Secret1"))
	assert.Equal(t, VerifyResult{}, hasher.Verify(stored, "Secret2"))
}

func TestLegacyIntegerFormat(t *testing.T) {
	assert.Equal(t, "96354", legacyIntegerHash("abc"))
	assert.Equal(t, "0", legacyIntegerHash(""))
	// Long inputs wrap around 32 bits and may go negative.
	assert.Equal(t, "-652229939", legacyIntegerHash("administrator"))

	hasher := NewPasswordHasher("")
	stored := ParseStoredHash(legacyIntegerHash("admin123"))
	require.Equal(t, FormatLegacyInteger, stored.Format)
	assert.Equal(t, VerifyResult{Matches: true, NeedsUpgrade: true}, hasher.Verify(stored, "admin123"))
	assert.False(t, hasher.Verify(stored, "admin124").Matches)
}

func TestLegacyUpgradeIsIdempotent(t *testing.T) {
	hasher := NewPasswordHasher("pepper")
	stored := ParseStoredHash("sha:" + base64.StdEncoding.EncodeToString([]byte("Secret1")))

	first := hasher.Verify(stored, "Secret1")
	require.True(t, first.Matches)
	require.True(t, first.NeedsUpgrade)

	upgraded, err := hasher.Hash("Secret1")
	require.NoError(t, err)
	stored = ParseStoredHash(upgraded.String())

	second := hasher.Verify(stored, "Secret1")
	assert.True(t, second.Matches)
	assert.False(t, second.NeedsUpgrade)
}

func TestMalformedHashesNeverMatch(t *testing.T) {
	hasher := NewPasswordHasher("")
	for _, value := range []string{"", "scrypt$", "scrypt$$", "scrypt$abc", "scrypt$!!$!!", "bcrypt$2a$10$x", "12a", "-"} {
		stored := ParseStoredHash(value)
		assert.Equal(t, FormatUnknown, stored.Format, value)
		assert.Equal(t, VerifyResult{}, hasher.Verify(stored, value))
	}
}

func TestStoredHashScanValue(t *testing.T) {
	var h StoredHash
	require.NoError(t, h.Scan([]byte("sha:U2VjcmV0MQ==")))
	assert.Equal(t, FormatLegacyBase64, h.Format)

	v, err := h.Value()
	require.NoError(t, err)
	assert.Equal(t, "sha:U2VjcmV0MQ==", v)

	require.NoError(t, h.Scan(nil))
	assert.Equal(t, FormatUnknown, h.Format)
	assert.Error(t, h.Scan(42))
}
