package models

import "time"

// OTPRecord keeps track of OTP codes sent to customer phones.
type OTPRecord struct {
	BaseModel
	Phone      string     `gorm:"size:20;index;not null" json:"phone"`
	Code       string     `gorm:"size:6;not null" json:"-"`
	ExpiresAt  time.Time  `json:"expires_at"`
	Verified   bool       `gorm:"not null" json:"verified"`
	VerifiedAt *time.Time `json:"verified_at,omitempty"`
}

// TableName pins the table name used by existing deployments.
func (OTPRecord) TableName() string {
	return "otp_verifications"
}
