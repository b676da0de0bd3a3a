package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryThrottle(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	m := NewMemory().WithClock(func() time.Time { return now })
	ctx := context.Background()

	ok, err := m.Allow(ctx, "otp:send:9876543210", 30*time.Second)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, _ = m.Allow(ctx, "otp:send:9876543210", 30*time.Second)
	assert.False(t, ok, "second send inside the window")

	ok, _ = m.Allow(ctx, "otp:send:9123456789", 30*time.Second)
	assert.True(t, ok, "keys are independent")

	now = now.Add(31 * time.Second)
	ok, _ = m.Allow(ctx, "otp:send:9876543210", 30*time.Second)
	assert.True(t, ok, "window elapsed")
}

var _ Throttle = (*Redis)(nil)
var _ Throttle = (*Memory)(nil)
