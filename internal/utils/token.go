package utils

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenKind discriminates the claims families sharing one signing key.
type TokenKind string

const (
	KindStore TokenKind = "store"
	KindAdmin TokenKind = "admin"
	KindBill  TokenKind = "bill"
)

const claimsVersion = 1

// SessionTTL is the lifetime of store and admin sessions as well as bill links.
const SessionTTL = 7 * 24 * time.Hour

// ErrMissingSecret is returned when a TokenService is built without a key.
var ErrMissingSecret = errors.New("token signing secret is empty")

var segmentEncoding = base64.RawURLEncoding.Strict()

// Claims is the signed payload carried by session cookies and bill links.
type Claims struct {
	Version   int       `json:"v"`
	Kind      TokenKind `json:"typ"`
	Subject   string    `json:"sub"`
	IssuedAt  int64     `json:"iat"`
	ExpiresAt int64     `json:"exp"`
}

// TokenService mints and verifies "<payload>.<signature>" tokens using HMAC-SHA256.
type TokenService struct {
	key    []byte
	method *jwt.SigningMethodHMAC
	now    func() time.Time
}

// NewTokenService builds a TokenService for the given secret.
func NewTokenService(secret string) (*TokenService, error) {
	if secret == "" {
		return nil, ErrMissingSecret
	}
	return &TokenService{
		key:    []byte(secret),
		method: jwt.SigningMethodHS256,
		now:    time.Now,
	}, nil
}

// WithClock returns a copy of the service that reads time from now.
func (s *TokenService) WithClock(now func() time.Time) *TokenService {
	clone := *s
	clone.now = now
	return &clone
}

// Mint signs a new claims payload for subject valid for ttl.
func (s *TokenService) Mint(kind TokenKind, subject string, ttl time.Duration) (string, error) {
	if subject == "" {
		return "", errors.New("token subject is empty")
	}

	issued := s.now().Unix()
	claims := Claims{
		Version:   claimsVersion,
		Kind:      kind,
		Subject:   subject,
		IssuedAt:  issued,
		ExpiresAt: issued + int64(ttl/time.Second),
	}

	payload, err := json.Marshal(claims)
	if err != nil {
		return "", err
	}

	payloadSeg := segmentEncoding.EncodeToString(payload)
	sig, err := s.method.Sign(payloadSeg, s.key)
	if err != nil {
		return "", err
	}

	return payloadSeg + "." + segmentEncoding.EncodeToString(sig), nil
}

// Verify returns the claims of token when its signature, kind and expiry check out.
// Every failure is reported the same way.
func (s *TokenService) Verify(token string, expected TokenKind) (*Claims, bool) {
	payloadSeg, sigSeg, ok := strings.Cut(token, ".")
	if !ok || payloadSeg == "" || sigSeg == "" || strings.Contains(sigSeg, ".") {
		return nil, false
	}

	sig, err := segmentEncoding.DecodeString(sigSeg)
	if err != nil {
		return nil, false
	}
	if err := s.method.Verify(payloadSeg, sig, s.key); err != nil {
		return nil, false
	}

	payload, err := segmentEncoding.DecodeString(payloadSeg)
	if err != nil {
		return nil, false
	}

	var claims Claims
	if err := json.Unmarshal(payload, &claims); err != nil {
		return nil, false
	}

	if claims.Version != claimsVersion || claims.Kind != expected || claims.Subject == "" {
		return nil, false
	}
	if claims.ExpiresAt <= s.now().Unix() {
		return nil, false
	}

	return &claims, true
}

// MintBill issues a capability token for a single order bill.
func (s *TokenService) MintBill(orderID string, ttl time.Duration) (string, error) {
	return s.Mint(KindBill, orderID, ttl)
}

// VerifyBill reports whether token grants access to the bill of orderID.
func (s *TokenService) VerifyBill(token, orderID string) bool {
	if token == "" {
		return false
	}
	claims, ok := s.Verify(token, KindBill)
	return ok && claims.Subject == orderID
}
