package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/tapcart/internal/cache"
	"github.com/example/tapcart/internal/models"
)

func (f *engineFixture) latestOTP(t *testing.T, phone string) models.OTPRecord {
	t.Helper()
	var rec models.OTPRecord
	require.NoError(t, f.db.Where("phone = ?", phone).Order("created_at desc").First(&rec).Error)
	return rec
}

func TestSendOTPReplacesPriorCodes(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	issue, err := f.engine.SendOTP(ctx, "98765 43210")
	require.NoError(t, err)
	assert.Empty(t, issue.Code, "codes are hidden unless exposed")
	assert.WithinDuration(t, f.now.Add(10*time.Minute), issue.ExpiresAt, time.Second)

	_, err = f.engine.SendOTP(ctx, "9876543210")
	require.NoError(t, err)

	var count int64
	require.NoError(t, f.db.Model(&models.OTPRecord{}).Where("phone = ?", "9876543210").Count(&count).Error)
	assert.Equal(t, int64(1), count)

	rec := f.latestOTP(t, "9876543210")
	assert.Len(t, rec.Code, 6)
	msgs := f.notifier.messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "9876543210", msgs[1].to)
	assert.Contains(t, msgs[1].body, rec.Code)
}

func TestSendOTPRejectsShortPhone(t *testing.T) {
	f := newEngineFixture(t)
	_, err := f.engine.SendOTP(context.Background(), "12345")
	requireKind(t, err, KindValidation)
}

func TestSendOTPCooldown(t *testing.T) {
	f := newEngineFixture(t)
	f.engine.throttle = cache.NewMemory().WithClock(func() time.Time { return f.now })
	f.engine.cfg.OTPCooldown = 30 * time.Second
	ctx := context.Background()

	_, err := f.engine.SendOTP(ctx, "9876543210")
	require.NoError(t, err)

	_, err = f.engine.SendOTP(ctx, "9876543210")
	requireKind(t, err, KindRateLimited)

	_, err = f.engine.SendOTP(ctx, "9123456789")
	require.NoError(t, err)
}

func TestSendOTPDeliveryFailure(t *testing.T) {
	f := newEngineFixture(t)
	f.notifier.err = errors.New("gateway down")
	f.engine.cfg.ExposeOTP = true

	issue, err := f.engine.SendOTP(context.Background(), "9876543210")
	requireKind(t, err, KindUnavailable)
	require.NotNil(t, issue)
	assert.Equal(t, f.latestOTP(t, "9876543210").Code, issue.Code)
}

func TestVerifyOTPSingleUse(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	_, err := f.engine.SendOTP(ctx, "9876543210")
	require.NoError(t, err)
	code := f.latestOTP(t, "9876543210").Code

	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}
	requireKind(t, f.engine.VerifyOTP(ctx, "9876543210", wrong), KindUnauthorized)
	require.NoError(t, f.engine.VerifyOTP(ctx, "9876543210", code), "failed attempts do not burn the code")

	rec := f.latestOTP(t, "9876543210")
	assert.True(t, rec.Verified)
	require.NotNil(t, rec.VerifiedAt)

	requireKind(t, f.engine.VerifyOTP(ctx, "9876543210", code), KindConflict)
}

func TestVerifyOTPExpired(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	_, err := f.engine.SendOTP(ctx, "9876543210")
	require.NoError(t, err)
	code := f.latestOTP(t, "9876543210").Code

	f.now = f.now.Add(10 * time.Minute)
	requireKind(t, f.engine.VerifyOTP(ctx, "9876543210", code), KindConflict)
	assert.False(t, f.latestOTP(t, "9876543210").Verified)
}

func TestVerifyOTPWithoutRequest(t *testing.T) {
	f := newEngineFixture(t)
	requireKind(t, f.engine.VerifyOTP(context.Background(), "9876543210", "123456"), KindNotFound)
	requireKind(t, f.engine.VerifyOTP(context.Background(), "9876543210", "12"), KindValidation)
}

func TestResendInvalidatesVerifiedPhone(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()
	f.verifiedPhone(t, "9876543210")

	ok, err := phoneVerified(f.db, "9876543210")
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = f.engine.SendOTP(ctx, "9876543210")
	require.NoError(t, err)

	ok, err = phoneVerified(f.db, "9876543210")
	require.NoError(t, err)
	assert.False(t, ok)
}
