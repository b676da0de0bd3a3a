package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/example/tapcart/internal/database/dbtest"
	"github.com/example/tapcart/internal/metrics"
	"github.com/example/tapcart/internal/models"
	"github.com/example/tapcart/internal/utils"
)

type sentMessage struct {
	to   string
	body string
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []sentMessage
	err  error
}

func (f *fakeNotifier) Send(_ context.Context, to, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentMessage{to: to, body: body})
	return nil
}

func (f *fakeNotifier) messages() []sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentMessage(nil), f.sent...)
}

type engineFixture struct {
	db       *gorm.DB
	engine   *OrderEngine
	tokens   *utils.TokenService
	notifier *fakeNotifier
	now      time.Time
}

func newEngineFixture(t *testing.T) *engineFixture {
	t.Helper()

	tokens, err := utils.NewTokenService("test-secret")
	require.NoError(t, err)

	f := &engineFixture{
		db:       dbtest.New(t),
		tokens:   tokens,
		notifier: &fakeNotifier{},
		now:      time.Now().UTC().Truncate(time.Second),
	}
	f.engine = NewOrderEngine(f.db, tokens, f.notifier, nil, metrics.Registry("tapcart_test"), zap.NewNop(),
		EngineConfig{BaseURL: "https://shop.example.com/"}).
		WithClock(func() time.Time { return f.now })
	return f
}

func (f *engineFixture) product(t *testing.T, storeID, name string, price float64, stock int) models.Product {
	t.Helper()
	p := models.Product{StoreID: storeID, Name: name, Category: "General", Price: price, Stock: stock}
	require.NoError(t, f.db.Create(&p).Error)
	return p
}

func (f *engineFixture) coupon(t *testing.T, c models.Coupon) models.Coupon {
	t.Helper()
	if c.ValidFrom.IsZero() {
		c.ValidFrom = f.now.Add(-time.Hour)
	}
	c.Active = true
	require.NoError(t, f.db.Create(&c).Error)
	return c
}

func (f *engineFixture) verifiedPhone(t *testing.T, phone string) {
	t.Helper()
	verifiedAt := f.now
	require.NoError(t, f.db.Create(&models.OTPRecord{
		Phone:      phone,
		Code:       "123456",
		ExpiresAt:  f.now.Add(otpTTL),
		Verified:   true,
		VerifiedAt: &verifiedAt,
	}).Error)
}

func (f *engineFixture) stock(t *testing.T, id any) int {
	t.Helper()
	var p models.Product
	require.NoError(t, f.db.First(&p, "id = ?", id).Error)
	return p.Stock
}

func (f *engineFixture) usedCount(t *testing.T, storeID, code string) int {
	t.Helper()
	var c models.Coupon
	require.NoError(t, f.db.First(&c, "store_id = ? AND code = ?", storeID, code).Error)
	return c.UsedCount
}

func requireKind(t *testing.T, err error, kind ErrorKind) {
	t.Helper()
	require.Error(t, err)
	var domainErr *Error
	require.True(t, errors.As(err, &domainErr), "expected domain error, got %v", err)
	require.Equal(t, kind, domainErr.Kind, "error: %v", err)
}

func intPtr(v int) *int { return &v }

func floatPtr(v float64) *float64 { return &v }

func timePtr(v time.Time) *time.Time { return &v }

func paginate(page, limit int) utils.Pagination {
	return utils.NewPagination(page, limit)
}
