package models

import "time"

// Discount types.
const (
	DiscountPercentage = "percentage"
	DiscountFixed      = "fixed"
)

type Coupon struct {
	BaseModel
	StoreID       string     `gorm:"size:50;uniqueIndex:idx_coupons_store_code;not null" json:"store_id"`
	Code          string     `gorm:"size:50;uniqueIndex:idx_coupons_store_code;not null" json:"code"`
	DiscountType  string     `gorm:"size:20;not null" json:"discount_type"`
	DiscountValue float64    `gorm:"type:decimal(10,2);not null" json:"discount_value"`
	MinPurchase   float64    `gorm:"type:decimal(10,2);not null" json:"min_purchase"`
	MaxDiscount   *float64   `gorm:"type:decimal(10,2)" json:"max_discount,omitempty"`
	UsageLimit    *int       `json:"usage_limit,omitempty"`
	UsedCount     int        `gorm:"not null" json:"used_count"`
	ValidFrom     time.Time  `json:"valid_from"`
	ValidUntil    *time.Time `json:"valid_until,omitempty"`
	Active        bool       `gorm:"not null" json:"active"`
}
