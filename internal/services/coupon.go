package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/example/tapcart/internal/models"
)

// CouponQuote is the discount a coupon would grant on an amount.
type CouponQuote struct {
	Code          string  `json:"code"`
	DiscountType  string  `json:"discount_type"`
	DiscountValue float64 `json:"discount_value"`
	Discount      float64 `json:"discount"`
}

// PreviewCoupon prices code against amount without redeeming it.
func (e *OrderEngine) PreviewCoupon(ctx context.Context, code, storeID string, amount float64) (*CouponQuote, error) {
	code = normalizeCouponCode(code)
	storeID = strings.TrimSpace(storeID)
	if code == "" || storeID == "" || amount <= 0 {
		return nil, ErrValidation("coupon code, store ID, and amount are required")
	}

	coupon, err := findActiveCoupon(e.db.WithContext(ctx), storeID, code)
	if err != nil {
		return nil, err
	}

	discount, err := checkCoupon(coupon, amount, e.now())
	if err != nil {
		return nil, err
	}

	return &CouponQuote{
		Code:          coupon.Code,
		DiscountType:  coupon.DiscountType,
		DiscountValue: coupon.DiscountValue,
		Discount:      discount,
	}, nil
}

func findActiveCoupon(db *gorm.DB, storeID, code string) (*models.Coupon, error) {
	var coupon models.Coupon
	err := db.Where("store_id = ? AND code = ? AND active = ?", storeID, code, true).First(&coupon).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound("invalid or expired coupon code")
	}
	if err != nil {
		return nil, fmt.Errorf("load coupon: %w", err)
	}
	return &coupon, nil
}

// checkCoupon applies the redemption rules and returns the discount for amount.
func checkCoupon(c *models.Coupon, amount float64, now time.Time) (float64, error) {
	if c.ValidUntil != nil && c.ValidUntil.Before(now) {
		return 0, ErrValidation("coupon has expired")
	}
	if !c.ValidFrom.IsZero() && c.ValidFrom.After(now) {
		return 0, ErrValidation("coupon is not active yet")
	}
	if amount < c.MinPurchase {
		return 0, ErrValidation("minimum purchase amount of ₹%.2f required", c.MinPurchase)
	}
	if c.UsageLimit != nil && c.UsedCount >= *c.UsageLimit {
		return 0, ErrValidation("coupon usage limit reached")
	}
	return computeDiscount(c, amount), nil
}

// computeDiscount returns a discount in [0, amount] rounded to paise.
func computeDiscount(c *models.Coupon, amount float64) float64 {
	var discount float64
	switch c.DiscountType {
	case models.DiscountPercentage:
		discount = amount * c.DiscountValue / 100
		if c.MaxDiscount != nil && discount > *c.MaxDiscount {
			discount = *c.MaxDiscount
		}
	case models.DiscountFixed:
		discount = math.Min(c.DiscountValue, amount)
	}
	return round2(math.Max(0, math.Min(discount, amount)))
}

func normalizeCouponCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// CouponInput describes a new coupon.
type CouponInput struct {
	Code          string     `json:"code"`
	DiscountType  string     `json:"discount_type"`
	DiscountValue float64    `json:"discount_value"`
	MinPurchase   float64    `json:"min_purchase"`
	MaxDiscount   *float64   `json:"max_discount"`
	UsageLimit    *int       `json:"usage_limit"`
	ValidFrom     *time.Time `json:"valid_from"`
	ValidUntil    *time.Time `json:"valid_until"`
}

// CreateCoupon registers a coupon for storeID.
func (e *OrderEngine) CreateCoupon(ctx context.Context, storeID string, in CouponInput) (*models.Coupon, error) {
	code := normalizeCouponCode(in.Code)
	if code == "" {
		return nil, ErrValidation("coupon code is required")
	}
	switch in.DiscountType {
	case models.DiscountPercentage:
		if in.DiscountValue <= 0 || in.DiscountValue > 100 {
			return nil, ErrValidation("percentage discount must be between 0 and 100")
		}
	case models.DiscountFixed:
		if in.DiscountValue <= 0 {
			return nil, ErrValidation("fixed discount must be positive")
		}
	default:
		return nil, ErrValidation("discount type must be percentage or fixed")
	}
	if in.MinPurchase < 0 {
		return nil, ErrValidation("minimum purchase cannot be negative")
	}
	if in.MaxDiscount != nil && *in.MaxDiscount <= 0 {
		return nil, ErrValidation("max discount must be positive")
	}
	if in.UsageLimit != nil && *in.UsageLimit <= 0 {
		return nil, ErrValidation("usage limit must be positive")
	}

	coupon := models.Coupon{
		StoreID:       storeID,
		Code:          code,
		DiscountType:  in.DiscountType,
		DiscountValue: in.DiscountValue,
		MinPurchase:   in.MinPurchase,
		MaxDiscount:   in.MaxDiscount,
		UsageLimit:    in.UsageLimit,
		ValidFrom:     e.now().UTC(),
		ValidUntil:    in.ValidUntil,
		Active:        true,
	}
	if in.ValidFrom != nil {
		coupon.ValidFrom = *in.ValidFrom
	}
	if coupon.ValidUntil != nil && coupon.ValidUntil.Before(coupon.ValidFrom) {
		return nil, ErrValidation("valid_until must be after valid_from")
	}

	db := e.db.WithContext(ctx)
	var count int64
	if err := db.Model(&models.Coupon{}).Where("store_id = ? AND code = ?", storeID, code).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("check coupon code: %w", err)
	}
	if count > 0 {
		return nil, ErrConflict("coupon code already exists")
	}

	if err := db.Create(&coupon).Error; err != nil {
		return nil, fmt.Errorf("create coupon: %w", err)
	}
	return &coupon, nil
}

// ListCoupons returns the coupons of storeID, newest first.
func (e *OrderEngine) ListCoupons(ctx context.Context, storeID string) ([]models.Coupon, error) {
	var coupons []models.Coupon
	if err := e.db.WithContext(ctx).Where("store_id = ?", storeID).
		Order("created_at desc").Find(&coupons).Error; err != nil {
		return nil, fmt.Errorf("list coupons: %w", err)
	}
	return coupons, nil
}
