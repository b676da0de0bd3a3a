package services

import (
	"context"
	"crypto/rand"
	"math/big"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/example/tapcart/internal/cache"
	"github.com/example/tapcart/internal/logger"
	"github.com/example/tapcart/internal/metrics"
	"github.com/example/tapcart/internal/models"
	"github.com/example/tapcart/internal/utils"
)

// EngineConfig tunes the order engine.
type EngineConfig struct {
	BaseURL     string
	BillTTL     time.Duration
	OTPCooldown time.Duration
	// ExposeOTP echoes issued codes in responses. Never enable in production.
	ExposeOTP bool
}

// OrderEngine runs coupon pricing, the phone gate, checkout and settlement.
type OrderEngine struct {
	db       *gorm.DB
	tokens   *utils.TokenService
	notifier Notifier
	throttle cache.Throttle
	metrics  *metrics.Metrics
	log      *zap.Logger
	cfg      EngineConfig
	now      func() time.Time
}

// NewOrderEngine wires the engine. throttle may be nil to disable the OTP send cooldown.
func NewOrderEngine(db *gorm.DB, tokens *utils.TokenService, notifier Notifier, throttle cache.Throttle,
	m *metrics.Metrics, log *zap.Logger, cfg EngineConfig) *OrderEngine {
	if cfg.BillTTL <= 0 {
		cfg.BillTTL = utils.SessionTTL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	return &OrderEngine{
		db:       db,
		tokens:   tokens,
		notifier: notifier,
		throttle: throttle,
		metrics:  m,
		log:      log.With(zap.String("component", "orders")),
		cfg:      cfg,
		now:      time.Now,
	}
}

// WithClock overrides the time source.
func (e *OrderEngine) WithClock(now func() time.Time) *OrderEngine {
	e.now = now
	return e
}

// BillPath returns the relative bill URL for orderID carrying token.
func BillPath(orderID, token string) string {
	return "/api/customer/bill/" + url.PathEscape(orderID) + "?t=" + url.QueryEscape(token)
}

// notify sends the bill link for a committed order. Failures are logged and counted only.
func (e *OrderEngine) notify(ctx context.Context, order *models.Order, kind string, message func(link string) string) string {
	token, err := e.tokens.MintBill(order.OrderID, e.cfg.BillTTL)
	if err != nil {
		e.log.Error("Failed to mint bill token", zap.String("order_id", order.OrderID), zap.Error(err))
		return ""
	}
	path := BillPath(order.OrderID, token)

	if e.notifier == nil {
		return path
	}

	if err := e.notifier.Send(ctx, order.CustomerPhone, message(e.cfg.BaseURL+path)); err != nil {
		e.log.Warn("Order notification failed",
			zap.String("order_id", order.OrderID),
			zap.String("phone", logger.MaskPhone(order.CustomerPhone)),
			zap.Error(err))
		e.countSMS(kind, "failed")
		return path
	}
	e.countSMS(kind, "sent")
	return path
}

func (e *OrderEngine) countSMS(kind, status string) {
	if e.metrics != nil {
		e.metrics.SMSMessages.WithLabelValues(kind, status).Inc()
	}
}

func (e *OrderEngine) countRejection(reason string) {
	if e.metrics != nil {
		e.metrics.CheckoutRejections.WithLabelValues(reason).Inc()
	}
}

func (e *OrderEngine) countSettled(path string) {
	if e.metrics != nil {
		e.metrics.OrdersSettled.WithLabelValues(path).Inc()
	}
}

func (e *OrderEngine) countOTP(event string) {
	if e.metrics != nil {
		e.metrics.OTPEvents.WithLabelValues(event).Inc()
	}
}

// randomDigits returns n crypto-random decimal digits.
func randomDigits(n int) (string, error) {
	var b strings.Builder
	ten := big.NewInt(10)
	for i := 0; i < n; i++ {
		d, err := rand.Int(rand.Reader, ten)
		if err != nil {
			return "", err
		}
		b.WriteByte(byte('0' + d.Int64()))
	}
	return b.String(), nil
}
