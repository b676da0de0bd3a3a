package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/example/tapcart/internal/logger"
)

// Notifier delivers a text message to a phone number.
type Notifier interface {
	Send(ctx context.Context, to, body string) error
}

// ErrSMSNotConfigured is returned when Twilio credentials are missing.
var ErrSMSNotConfigured = errors.New("sms gateway not configured")

// SMSConfig holds Twilio credentials.
type SMSConfig struct {
	BaseURL            string
	AccountSID         string
	AuthToken          string
	FromNumber         string
	DefaultCountryCode string
}

// SMSService sends messages through the Twilio Messages API.
type SMSService struct {
	cfg    SMSConfig
	client *http.Client
	log    *zap.Logger
}

// NewSMSService creates a new SMSService.
func NewSMSService(cfg SMSConfig, log *zap.Logger) *SMSService {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.twilio.com"
	}
	if cfg.DefaultCountryCode == "" {
		cfg.DefaultCountryCode = "91"
	}
	return &SMSService{
		cfg:    cfg,
		client: &http.Client{Timeout: 15 * time.Second},
		log:    log.With(zap.String("component", "sms")),
	}
}

type twilioMessage struct {
	SID    string `json:"sid"`
	Status string `json:"status"`
}

type twilioError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
}

// Send posts body to the phone number to.
func (s *SMSService) Send(ctx context.Context, to, body string) error {
	phone := FormatPhoneNumber(to, s.cfg.DefaultCountryCode)

	if s.cfg.AccountSID == "" || s.cfg.AuthToken == "" || s.cfg.FromNumber == "" {
		s.log.Error("Twilio not configured", zap.String("to", logger.MaskPhone(phone)))
		return ErrSMSNotConfigured
	}

	form := url.Values{}
	form.Set("To", phone)
	form.Set("From", s.cfg.FromNumber)
	form.Set("Body", body)

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json",
		strings.TrimRight(s.cfg.BaseURL, "/"), url.PathEscape(s.cfg.AccountSID))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.SetBasicAuth(s.cfg.AccountSID, s.cfg.AuthToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		s.log.Warn("Failed to reach Twilio", zap.Error(err))
		return fmt.Errorf("send sms: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return fmt.Errorf("read twilio response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr twilioError
		_ = json.Unmarshal(raw, &apiErr)
		s.log.Warn("Twilio rejected message",
			zap.Int("status", resp.StatusCode),
			zap.Int("code", apiErr.Code),
			zap.String("to", logger.MaskPhone(phone)))
		return fmt.Errorf("twilio returned status %d: %s", resp.StatusCode, describeTwilioError(apiErr))
	}

	var msg twilioMessage
	_ = json.Unmarshal(raw, &msg)
	s.log.Debug("SMS sent", zap.String("sid", msg.SID), zap.String("status", msg.Status),
		zap.String("to", logger.MaskPhone(phone)))
	return nil
}

func describeTwilioError(e twilioError) string {
	switch e.Code {
	case 21211, 21217:
		return "invalid phone number"
	case 21608:
		return "unverified phone number"
	case 21408:
		return "permission denied"
	case 21614:
		return "invalid sender number"
	case 20003:
		return "authentication failed"
	}
	if e.Message != "" {
		return e.Message
	}
	return "unknown error"
}

// FormatPhoneNumber normalizes phone to E.164, assuming countryCode for bare 10-digit numbers.
func FormatPhoneNumber(phone, countryCode string) string {
	digits := digitsOnly(phone)
	if len(digits) == 10 {
		return "+" + countryCode + digits
	}
	return "+" + digits
}

func digitsOnly(value string) string {
	var b strings.Builder
	for _, r := range value {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
