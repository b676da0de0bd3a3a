package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/example/tapcart/internal/metrics"
	"github.com/example/tapcart/internal/models"
	"github.com/example/tapcart/internal/utils"
)

var (
	emailPattern   = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	storeIDPattern = regexp.MustCompile(`^[a-zA-Z0-9]+$`)
)

// Store status actions accepted from administrators.
const (
	ActionApprove = "approve"
	ActionDeny    = "deny"
)

// AdminSetup gates the bootstrap endpoint that creates administrators.
type AdminSetup struct {
	Token   string
	Enabled bool
}

// AccountService owns store and administrator credentials and sessions.
type AccountService struct {
	db         *gorm.DB
	hasher     *utils.PasswordHasher
	tokens     *utils.TokenService
	metrics    *metrics.Metrics
	log        *zap.Logger
	sessionTTL time.Duration
	setup      AdminSetup
	now        func() time.Time
}

// NewAccountService constructs AccountService.
func NewAccountService(db *gorm.DB, hasher *utils.PasswordHasher, tokens *utils.TokenService,
	m *metrics.Metrics, log *zap.Logger, sessionTTL time.Duration, setup AdminSetup) *AccountService {
	if sessionTTL <= 0 {
		sessionTTL = utils.SessionTTL
	}
	return &AccountService{
		db:         db,
		hasher:     hasher,
		tokens:     tokens,
		metrics:    m,
		log:        log.With(zap.String("component", "accounts")),
		sessionTTL: sessionTTL,
		setup:      setup,
		now:        time.Now,
	}
}

// SessionTTL is the lifetime of minted session tokens.
func (s *AccountService) SessionTTL() time.Duration {
	return s.sessionTTL
}

// SignupStore registers a store that waits for admin approval.
func (s *AccountService) SignupStore(ctx context.Context, storeID, email, password string) (*models.StoreAccount, error) {
	storeID = strings.TrimSpace(storeID)
	email = strings.TrimSpace(email)
	if storeID == "" || email == "" || password == "" {
		return nil, ErrValidation("all fields are required")
	}
	if err := checkPasswordPolicy(password); err != nil {
		return nil, err
	}
	if !emailPattern.MatchString(email) {
		return nil, ErrValidation("invalid email format")
	}
	if !storeIDPattern.MatchString(storeID) {
		return nil, ErrValidation("store ID must contain only letters and numbers")
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	db := s.db.WithContext(ctx)
	var count int64
	if err := db.Model(&models.StoreAccount{}).Where("store_id = ?", storeID).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("check store id: %w", err)
	}
	if count > 0 {
		return nil, ErrConflict("store ID already exists, please choose a different store ID")
	}

	store := models.StoreAccount{
		StoreID:      storeID,
		Email:        email,
		PasswordHash: hash,
		Status:       models.StoreStatusPending,
	}
	if err := db.Create(&store).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrConflict("store ID already exists, please choose a different store ID")
		}
		return nil, fmt.Errorf("create store: %w", err)
	}

	s.log.Info("Store registered", zap.String("store_id", storeID))
	return &store, nil
}

// LoginStore checks store credentials and returns a store session token.
func (s *AccountService) LoginStore(ctx context.Context, storeID, password string) (string, error) {
	storeID = strings.TrimSpace(storeID)
	if storeID == "" || password == "" {
		return "", ErrValidation("store ID and password are required")
	}

	db := s.db.WithContext(ctx)
	var store models.StoreAccount
	err := db.Where("store_id = ?", storeID).First(&store).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		s.countLogin(utils.KindStore, "not_found")
		return "", ErrUnauthorized("store ID not found")
	}
	if err != nil {
		return "", fmt.Errorf("load store: %w", err)
	}
	if store.Status != models.StoreStatusApproved {
		s.countLogin(utils.KindStore, "not_approved")
		return "", ErrUnauthorized("your account is pending approval, please wait for admin approval")
	}

	result := s.hasher.Verify(store.PasswordHash, password)
	if !result.Matches {
		s.countLogin(utils.KindStore, "wrong_password")
		return "", ErrUnauthorized("incorrect password")
	}
	if result.NeedsUpgrade {
		if err := s.upgradeHash(db, &models.StoreAccount{}, store.ID, password); err != nil {
			return "", err
		}
		s.log.Info("Upgraded legacy password hash", zap.String("store_id", storeID))
	}

	token, err := s.tokens.Mint(utils.KindStore, store.StoreID, s.sessionTTL)
	if err != nil {
		return "", fmt.Errorf("mint session: %w", err)
	}
	s.countLogin(utils.KindStore, "ok")
	return token, nil
}

// LoginAdmin checks administrator credentials and returns an admin session token.
func (s *AccountService) LoginAdmin(ctx context.Context, email, password string) (string, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return "", ErrValidation("email and password are required")
	}

	db := s.db.WithContext(ctx)
	var admin models.AdminUser
	err := db.Where("email = ?", email).First(&admin).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		s.countLogin(utils.KindAdmin, "invalid")
		return "", ErrUnauthorized("invalid admin credentials")
	}
	if err != nil {
		return "", fmt.Errorf("load admin: %w", err)
	}

	result := s.hasher.Verify(admin.PasswordHash, password)
	if !result.Matches {
		s.countLogin(utils.KindAdmin, "invalid")
		return "", ErrUnauthorized("invalid admin credentials")
	}
	if result.NeedsUpgrade {
		if err := s.upgradeHash(db, &models.AdminUser{}, admin.ID, password); err != nil {
			return "", err
		}
	}

	token, err := s.tokens.Mint(utils.KindAdmin, admin.Email, s.sessionTTL)
	if err != nil {
		return "", fmt.Errorf("mint session: %w", err)
	}
	s.countLogin(utils.KindAdmin, "ok")
	return token, nil
}

// SetupAdmin creates an administrator or resets its password.
func (s *AccountService) SetupAdmin(ctx context.Context, setupToken, email, password string) error {
	if !s.setup.Enabled {
		return ErrNotFound("not found")
	}
	if s.setup.Token == "" {
		return &Error{Kind: KindInternal, Message: "ADMIN_SETUP_TOKEN is not set"}
	}
	if setupToken == "" || subtle.ConstantTimeCompare([]byte(setupToken), []byte(s.setup.Token)) != 1 {
		return ErrUnauthorized("unauthorized")
	}

	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return ErrValidation("missing required fields: email, password")
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	admin := models.AdminUser{Email: email, PasswordHash: hash}
	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "email"}},
		DoUpdates: clause.AssignmentColumns([]string{"password_hash", "updated_at"}),
	}).Create(&admin).Error
	if err != nil {
		return fmt.Errorf("upsert admin: %w", err)
	}

	s.log.Info("Admin user set up", zap.String("email", email))
	return nil
}

// ListStores returns every store account, newest first.
func (s *AccountService) ListStores(ctx context.Context) ([]models.StoreAccount, error) {
	var stores []models.StoreAccount
	if err := s.db.WithContext(ctx).Order("created_at desc").Find(&stores).Error; err != nil {
		return nil, fmt.Errorf("list stores: %w", err)
	}
	return stores, nil
}

// SetStoreStatus approves or denies a store. Approved stores may be revoked with deny.
func (s *AccountService) SetStoreStatus(ctx context.Context, storeID, action, adminEmail string) (*models.StoreAccount, error) {
	storeID = strings.TrimSpace(storeID)
	if storeID == "" {
		return nil, ErrValidation("store ID is required")
	}

	var (
		target  string
		from    []string
		updates map[string]any
	)
	now := s.now().UTC()
	switch action {
	case ActionApprove:
		target = models.StoreStatusApproved
		from = []string{models.StoreStatusPending, models.StoreStatusDenied}
		updates = map[string]any{"status": target, "approved_at": now, "approved_by": adminEmail}
	case ActionDeny:
		target = models.StoreStatusDenied
		from = []string{models.StoreStatusPending, models.StoreStatusApproved}
		updates = map[string]any{"status": target}
	default:
		return nil, ErrValidation("invalid action")
	}

	var store models.StoreAccount
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("store_id = ?", storeID).First(&store).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound("store not found")
		}
		if err != nil {
			return fmt.Errorf("load store: %w", err)
		}

		res := tx.Model(&models.StoreAccount{}).
			Where("id = ? AND status IN ?", store.ID, from).
			Updates(updates)
		if res.Error != nil {
			return fmt.Errorf("update store status: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrConflict("store is already %s", store.Status)
		}
		return tx.First(&store, "id = ?", store.ID).Error
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("Store status changed",
		zap.String("store_id", storeID),
		zap.String("status", target),
		zap.String("admin", adminEmail))
	return &store, nil
}

func (s *AccountService) upgradeHash(db *gorm.DB, model any, id uuid.UUID, password string) error {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := db.Model(model).Where("id = ?", id).Update("password_hash", hash).Error; err != nil {
		return fmt.Errorf("upgrade password hash: %w", err)
	}
	return nil
}

func (s *AccountService) countLogin(kind utils.TokenKind, status string) {
	if s.metrics != nil {
		s.metrics.Logins.WithLabelValues(string(kind), status).Inc()
	}
}

func checkPasswordPolicy(password string) error {
	hasUpper := false
	for _, r := range password {
		if unicode.IsUpper(r) {
			hasUpper = true
			break
		}
	}
	if len(password) < 6 || !hasUpper {
		return ErrValidation("password must be at least 6 characters and include one uppercase letter")
	}
	return nil
}
