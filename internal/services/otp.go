package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/example/tapcart/internal/logger"
	"github.com/example/tapcart/internal/models"
)

const (
	otpLength = 6
	otpTTL    = 10 * time.Minute
)

// OTPIssue reports a sent code. Code is only populated when the engine exposes codes.
type OTPIssue struct {
	ExpiresAt time.Time `json:"expires_at"`
	Code      string    `json:"code,omitempty"`
}

// SendOTP replaces any prior code for phone with a fresh one and delivers it by SMS.
// When delivery fails the stored code stays valid and the issue is returned with the error.
func (e *OrderEngine) SendOTP(ctx context.Context, phone string) (*OTPIssue, error) {
	phone, err := normalizePhone(phone)
	if err != nil {
		return nil, err
	}

	if e.throttle != nil && e.cfg.OTPCooldown > 0 {
		ok, err := e.throttle.Allow(ctx, "otp:send:"+phone, e.cfg.OTPCooldown)
		if err != nil {
			// Cooldown is best effort.
			e.log.Warn("OTP cooldown unavailable", zap.Error(err))
		} else if !ok {
			e.countOTP("throttled")
			return nil, ErrRateLimited("please wait before requesting another code")
		}
	}

	code, err := randomDigits(otpLength)
	if err != nil {
		return nil, fmt.Errorf("generate otp: %w", err)
	}

	record := models.OTPRecord{
		Phone:     phone,
		Code:      code,
		ExpiresAt: e.now().Add(otpTTL).UTC(),
	}

	err = e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("phone = ?", phone).Delete(&models.OTPRecord{}).Error; err != nil {
			return err
		}
		return tx.Create(&record).Error
	})
	if err != nil {
		return nil, fmt.Errorf("store otp: %w", err)
	}

	issue := &OTPIssue{ExpiresAt: record.ExpiresAt}
	if e.cfg.ExposeOTP {
		issue.Code = code
	}

	if e.notifier == nil {
		return issue, nil
	}

	body := fmt.Sprintf("Your OTP code is %s. It expires in %d minutes. Do not share this code with anyone.",
		code, int(otpTTL/time.Minute))
	if err := e.notifier.Send(ctx, phone, body); err != nil {
		e.countSMS("otp", "failed")
		e.log.Warn("OTP delivery failed", zap.String("phone", logger.MaskPhone(phone)), zap.Error(err))
		return issue, ErrUnavailable(err, "failed to send verification code")
	}

	e.countSMS("otp", "sent")
	e.countOTP("issued")
	return issue, nil
}

// VerifyOTP marks the latest code for phone as verified when code matches.
func (e *OrderEngine) VerifyOTP(ctx context.Context, phone, code string) error {
	phone, err := normalizePhone(phone)
	if err != nil {
		return err
	}
	if len(code) != otpLength {
		return ErrValidation("a %d-digit code is required", otpLength)
	}

	db := e.db.WithContext(ctx)
	var record models.OTPRecord
	err = db.Where("phone = ?", phone).Order("created_at desc").First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		e.countOTP("missing")
		return ErrNotFound("no verification code requested for this phone")
	}
	if err != nil {
		return fmt.Errorf("load otp: %w", err)
	}

	if record.Verified {
		e.countOTP("reused")
		return ErrConflict("verification code already used")
	}
	if !e.now().Before(record.ExpiresAt) {
		e.countOTP("expired")
		return ErrConflict("verification code has expired")
	}
	if subtle.ConstantTimeCompare([]byte(record.Code), []byte(code)) != 1 {
		e.countOTP("mismatch")
		return ErrUnauthorized("invalid verification code")
	}

	verifiedAt := e.now().UTC()
	res := db.Model(&models.OTPRecord{}).
		Where("id = ? AND verified = ?", record.ID, false).
		Updates(map[string]any{"verified": true, "verified_at": verifiedAt})
	if res.Error != nil {
		return fmt.Errorf("mark otp verified: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		e.countOTP("reused")
		return ErrConflict("verification code already used")
	}

	e.countOTP("verified")
	return nil
}

// phoneVerified reports whether the most recent code for phone was verified.
func phoneVerified(db *gorm.DB, phone string) (bool, error) {
	var record models.OTPRecord
	err := db.Where("phone = ?", phone).Order("created_at desc").First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load otp: %w", err)
	}
	return record.Verified, nil
}

// normalizePhone strips formatting and requires at least ten digits.
func normalizePhone(phone string) (string, error) {
	digits := digitsOnly(phone)
	if len(digits) < 10 || len(digits) > 15 {
		return "", ErrValidation("a valid phone number is required")
	}
	return digits, nil
}
