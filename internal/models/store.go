package models

import (
	"time"

	"github.com/example/tapcart/internal/utils"
)

// Store account statuses.
const (
	StoreStatusPending  = "pending"
	StoreStatusApproved = "approved"
	StoreStatusDenied   = "denied"
)

// StoreAccount is a merchant that signs up and operates a storefront once approved.
type StoreAccount struct {
	BaseModel
	StoreID      string           `gorm:"size:50;uniqueIndex;not null" json:"store_id"`
	Email        string           `gorm:"size:255;not null" json:"email"`
	PasswordHash utils.StoredHash `gorm:"column:password_hash;type:varchar(255);not null" json:"-"`
	Status       string           `gorm:"size:20;default:pending;index" json:"status"`
	ApprovedAt   *time.Time       `json:"approved_at,omitempty"`
	ApprovedBy   string           `gorm:"size:255" json:"approved_by,omitempty"`
}

// TableName pins the table name used by existing deployments.
func (StoreAccount) TableName() string {
	return "stores"
}

// AdminUser can approve or deny stores.
type AdminUser struct {
	BaseModel
	Email        string           `gorm:"size:255;uniqueIndex;not null" json:"email"`
	PasswordHash utils.StoredHash `gorm:"column:password_hash;type:varchar(255);not null" json:"-"`
}
