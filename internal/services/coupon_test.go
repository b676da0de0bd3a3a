package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/tapcart/internal/models"
)

func TestComputeDiscount(t *testing.T) {
	tests := []struct {
		name   string
		coupon models.Coupon
		amount float64
		want   float64
	}{
		{
			name:   "fixed below amount",
			coupon: models.Coupon{DiscountType: models.DiscountFixed, DiscountValue: 50},
			amount: 250,
			want:   50,
		},
		{
			name:   "fixed capped at amount",
			coupon: models.Coupon{DiscountType: models.DiscountFixed, DiscountValue: 500},
			amount: 120,
			want:   120,
		},
		{
			name:   "percentage uncapped",
			coupon: models.Coupon{DiscountType: models.DiscountPercentage, DiscountValue: 20},
			amount: 500,
			want:   100,
		},
		{
			name:   "percentage capped by max discount",
			coupon: models.Coupon{DiscountType: models.DiscountPercentage, DiscountValue: 20, MaxDiscount: floatPtr(30)},
			amount: 500,
			want:   30,
		},
		{
			name:   "percentage rounded to paise",
			coupon: models.Coupon{DiscountType: models.DiscountPercentage, DiscountValue: 15},
			amount: 10.01,
			want:   1.5,
		},
		{
			name:   "unknown type grants nothing",
			coupon: models.Coupon{DiscountType: "bogo", DiscountValue: 10},
			amount: 100,
			want:   0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := computeDiscount(&tt.coupon, tt.amount)
			assert.InDelta(t, tt.want, got, 0.001)
			assert.GreaterOrEqual(t, got, 0.0)
			assert.LessOrEqual(t, got, tt.amount)
		})
	}
}

func TestCheckCouponRules(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	base := models.Coupon{
		DiscountType:  models.DiscountFixed,
		DiscountValue: 50,
		MinPurchase:   100,
		ValidFrom:     now.Add(-time.Hour),
	}

	t.Run("expired", func(t *testing.T) {
		c := base
		c.ValidUntil = timePtr(now.Add(-time.Minute))
		_, err := checkCoupon(&c, 250, now)
		requireKind(t, err, KindValidation)
		assert.Contains(t, err.Error(), "expired")
	})

	t.Run("not yet valid", func(t *testing.T) {
		c := base
		c.ValidFrom = now.Add(time.Hour)
		_, err := checkCoupon(&c, 250, now)
		requireKind(t, err, KindValidation)
	})

	t.Run("below minimum purchase", func(t *testing.T) {
		_, err := checkCoupon(&base, 99.99, now)
		requireKind(t, err, KindValidation)
		assert.Contains(t, err.Error(), "100.00")
	})

	t.Run("usage limit reached", func(t *testing.T) {
		c := base
		c.UsageLimit = intPtr(3)
		c.UsedCount = 3
		_, err := checkCoupon(&c, 250, now)
		requireKind(t, err, KindValidation)
	})

	t.Run("valid", func(t *testing.T) {
		c := base
		c.UsageLimit = intPtr(3)
		c.UsedCount = 2
		c.ValidUntil = timePtr(now.Add(time.Hour))
		discount, err := checkCoupon(&c, 250, now)
		require.NoError(t, err)
		assert.Equal(t, 50.0, discount)
	})
}

func TestPreviewCouponDoesNotRedeem(t *testing.T) {
	f := newEngineFixture(t)
	f.coupon(t, models.Coupon{
		StoreID: "store1", Code: "SAVE50", DiscountType: models.DiscountFixed,
		DiscountValue: 50, MinPurchase: 100,
	})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		quote, err := f.engine.PreviewCoupon(ctx, "save50", "store1", 250)
		require.NoError(t, err)
		assert.Equal(t, 50.0, quote.Discount)
		assert.Equal(t, "SAVE50", quote.Code)
	}
	assert.Equal(t, 0, f.usedCount(t, "store1", "SAVE50"))
}

func TestPreviewCouponScopedToStore(t *testing.T) {
	f := newEngineFixture(t)
	f.coupon(t, models.Coupon{StoreID: "store1", Code: "SAVE50", DiscountType: models.DiscountFixed, DiscountValue: 50})

	_, err := f.engine.PreviewCoupon(context.Background(), "SAVE50", "store2", 250)
	requireKind(t, err, KindNotFound)

	_, err = f.engine.PreviewCoupon(context.Background(), "", "store1", 250)
	requireKind(t, err, KindValidation)
}

func TestPreviewCouponIgnoresInactive(t *testing.T) {
	f := newEngineFixture(t)
	c := f.coupon(t, models.Coupon{StoreID: "store1", Code: "OFF", DiscountType: models.DiscountFixed, DiscountValue: 10})
	require.NoError(t, f.db.Model(&c).Update("active", false).Error)

	_, err := f.engine.PreviewCoupon(context.Background(), "OFF", "store1", 250)
	requireKind(t, err, KindNotFound)
}

func TestCreateCoupon(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	c, err := f.engine.CreateCoupon(ctx, "store1", CouponInput{
		Code: " diwali20 ", DiscountType: models.DiscountPercentage, DiscountValue: 20, MaxDiscount: floatPtr(30),
	})
	require.NoError(t, err)
	assert.Equal(t, "DIWALI20", c.Code)
	assert.True(t, c.Active)

	_, err = f.engine.CreateCoupon(ctx, "store1", CouponInput{Code: "DIWALI20", DiscountType: models.DiscountFixed, DiscountValue: 5})
	requireKind(t, err, KindConflict)

	_, err = f.engine.CreateCoupon(ctx, "store2", CouponInput{Code: "DIWALI20", DiscountType: models.DiscountFixed, DiscountValue: 5})
	require.NoError(t, err, "codes are unique per store")

	_, err = f.engine.CreateCoupon(ctx, "store1", CouponInput{Code: "BAD", DiscountType: models.DiscountPercentage, DiscountValue: 120})
	requireKind(t, err, KindValidation)

	_, err = f.engine.CreateCoupon(ctx, "store1", CouponInput{Code: "ZERO", DiscountType: models.DiscountFixed, DiscountValue: 5, UsageLimit: intPtr(0)})
	requireKind(t, err, KindValidation)

	coupons, err := f.engine.ListCoupons(ctx, "store1")
	require.NoError(t, err)
	assert.Len(t, coupons, 1)
}
