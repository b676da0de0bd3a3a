package utils

import (
	"strings"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const b64URLAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-_"

func newTestTokens(t *testing.T, at time.Time) *TokenService {
	t.Helper()
	svc, err := NewTokenService("test-secret")
	require.NoError(t, err)
	return svc.WithClock(func() time.Time { return at })
}

func TestNewTokenServiceRequiresSecret(t *testing.T) {
	_, err := NewTokenService("")
	require.ErrorIs(t, err, ErrMissingSecret)
}

func TestMintVerifyRoundTrip(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	svc := newTestTokens(t, now)

	token, err := svc.Mint(KindStore, "store42", SessionTTL)
	require.NoError(t, err)
	require.Equal(t, 1, strings.Count(token, "."))

	claims, ok := svc.Verify(token, KindStore)
	require.True(t, ok)
	assert.Equal(t, "store42", claims.Subject)
	assert.Equal(t, KindStore, claims.Kind)
	assert.Equal(t, 1, claims.Version)
	assert.Equal(t, now.Unix(), claims.IssuedAt)
	assert.Equal(t, now.Add(SessionTTL).Unix(), claims.ExpiresAt)
}

func TestVerifyRejectsExpired(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	token, err := newTestTokens(t, now).Mint(KindAdmin, "root@example.com", time.Hour)
	require.NoError(t, err)

	_, ok := newTestTokens(t, now.Add(time.Hour)).Verify(token, KindAdmin)
	assert.False(t, ok, "expiry equal to now is expired")

	_, ok = newTestTokens(t, now.Add(59*time.Minute)).Verify(token, KindAdmin)
	assert.True(t, ok)
}

func TestVerifyKindIsolation(t *testing.T) {
	svc := newTestTokens(t, time.Now())
	token, err := svc.Mint(KindStore, "store42", SessionTTL)
	require.NoError(t, err)

	_, ok := svc.Verify(token, KindAdmin)
	assert.False(t, ok)
	_, ok = svc.Verify(token, KindBill)
	assert.False(t, ok)
}

func TestVerifyRejectsOtherSecret(t *testing.T) {
	token, err := newTestTokens(t, time.Now()).Mint(KindStore, "store42", SessionTTL)
	require.NoError(t, err)

	other, err := NewTokenService("another-secret")
	require.NoError(t, err)
	_, ok := other.Verify(token, KindStore)
	assert.False(t, ok)
}

func TestVerifyRejectsMalformed(t *testing.T) {
	svc := newTestTokens(t, time.Now())
	token, err := svc.Mint(KindStore, "store42", SessionTTL)
	require.NoError(t, err)
	payload, sig, _ := strings.Cut(token, ".")

	for _, candidate := range []string{
		"",
		".",
		payload,
		payload + ".",
		"." + sig,
		token + ".extra",
		"not-base64!." + sig,
	} {
		_, ok := svc.Verify(candidate, KindStore)
		assert.False(t, ok, "candidate %q", candidate)
	}
}

func TestBillTokenBoundToOrder(t *testing.T) {
	svc := newTestTokens(t, time.Now())
	token, err := svc.MintBill("ORD1", SessionTTL)
	require.NoError(t, err)

	assert.True(t, svc.VerifyBill(token, "ORD1"))
	assert.False(t, svc.VerifyBill(token, "ORD2"))
	assert.False(t, svc.VerifyBill("", "ORD1"))

	session, err := svc.Mint(KindStore, "ORD1", SessionTTL)
	require.NoError(t, err)
	assert.False(t, svc.VerifyBill(session, "ORD1"))
}

func TestTokenProperties(t *testing.T) {
	svc := newTestTokens(t, time.Unix(1_700_000_000, 0))

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("minted tokens verify with their own kind and subject", prop.ForAll(
		func(subject string, hours int) bool {
			token, err := svc.Mint(KindStore, subject, time.Duration(hours)*time.Hour)
			if err != nil {
				return false
			}
			claims, ok := svc.Verify(token, KindStore)
			return ok && claims.Subject == subject
		},
		gen.Identifier(),
		gen.IntRange(1, 24*30),
	))

	properties.Property("flipping any character invalidates the token", prop.ForAll(
		func(subject string, pos int, shift int) bool {
			token, err := svc.Mint(KindBill, subject, SessionTTL)
			if err != nil {
				return false
			}
			i := pos % len(token)
			if token[i] == '.' {
				return true
			}
			idx := strings.IndexByte(b64URLAlphabet, token[i])
			replacement := b64URLAlphabet[(idx+shift)%len(b64URLAlphabet)]
			tampered := token[:i] + string(replacement) + token[i+1:]
			_, ok := svc.Verify(tampered, KindBill)
			return !ok
		},
		gen.Identifier(),
		gen.IntRange(0, 1<<16),
		gen.IntRange(1, len(b64URLAlphabet)-1),
	))

	properties.TestingRun(t)
}
