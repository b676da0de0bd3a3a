package utils

import (
	"crypto/rand"
	"crypto/subtle"
	"database/sql/driver"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf16"

	"golang.org/x/crypto/scrypt"
)

// HashFormat identifies how a stored password hash was produced.
type HashFormat int

const (
	FormatUnknown HashFormat = iota
	// FormatScrypt is the current salted scrypt format.
	FormatScrypt
	// FormatLegacyBase64 is "sha:<base64(password)>", kept for read compatibility only.
	FormatLegacyBase64
	// FormatLegacyInteger is the decimal 32-bit string hash used by early admin accounts.
	FormatLegacyInteger
)

const (
	scryptPrefix  = "scrypt$"
	legacyPrefix  = "sha:"
	scryptN       = 16384
	scryptR       = 8
	scryptP       = 1
	scryptKeyLen  = 32
	scryptSaltLen = 16
)

// StoredHash is a password hash resolved into its format once, when loaded.
type StoredHash struct {
	Format HashFormat
	Salt   []byte
	Key    []byte
	raw    string
}

// ParseStoredHash classifies a persisted hash string.
func ParseStoredHash(value string) StoredHash {
	switch {
	case strings.HasPrefix(value, scryptPrefix):
		parts := strings.Split(value, "$")
		if len(parts) != 3 || parts[1] == "" || parts[2] == "" {
			return StoredHash{raw: value}
		}
		salt, err := decodeB64URL(parts[1])
		if err != nil {
			return StoredHash{raw: value}
		}
		key, err := decodeB64URL(parts[2])
		if err != nil || len(key) == 0 {
			return StoredHash{raw: value}
		}
		return StoredHash{Format: FormatScrypt, Salt: salt, Key: key, raw: value}
	case strings.HasPrefix(value, legacyPrefix):
		return StoredHash{Format: FormatLegacyBase64, raw: value}
	case isSignedInteger(value):
		return StoredHash{Format: FormatLegacyInteger, raw: value}
	default:
		return StoredHash{raw: value}
	}
}

// String returns the persisted representation.
func (h StoredHash) String() string {
	if h.Format == FormatScrypt && h.raw == "" {
		return scryptPrefix + base64.RawURLEncoding.EncodeToString(h.Salt) + "$" + base64.RawURLEncoding.EncodeToString(h.Key)
	}
	return h.raw
}

// IsLegacy reports whether the hash uses one of the insecure historical formats.
func (h StoredHash) IsLegacy() bool {
	return h.Format == FormatLegacyBase64 || h.Format == FormatLegacyInteger
}

// Scan implements sql.Scanner.
func (h *StoredHash) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*h = StoredHash{}
	case string:
		*h = ParseStoredHash(v)
	case []byte:
		*h = ParseStoredHash(string(v))
	default:
		return fmt.Errorf("unsupported password hash type %T", src)
	}
	return nil
}

// Value implements driver.Valuer.
func (h StoredHash) Value() (driver.Value, error) {
	return h.String(), nil
}

// GormDataType keeps the column a plain string.
func (StoredHash) GormDataType() string {
	return "string"
}

// VerifyResult is the outcome of a password check.
type VerifyResult struct {
	Matches      bool
	NeedsUpgrade bool
}

// PasswordHasher derives and checks password hashes, mixing in an optional pepper.
type PasswordHasher struct {
	pepper string
}

// NewPasswordHasher builds a PasswordHasher with the server-wide pepper (may be empty).
func NewPasswordHasher(pepper string) *PasswordHasher {
	return &PasswordHasher{pepper: pepper}
}

// Hash returns a fresh scrypt hash of password with a random salt.
func (p *PasswordHasher) Hash(password string) (StoredHash, error) {
	salt := make([]byte, scryptSaltLen)
	if _, err := rand.Read(salt); err != nil {
		return StoredHash{}, fmt.Errorf("generate salt: %w", err)
	}

	key, err := scrypt.Key(p.material(password), salt, scryptN, scryptR, scryptP, scryptKeyLen)
	if err != nil {
		return StoredHash{}, fmt.Errorf("derive key: %w", err)
	}

	return StoredHash{Format: FormatScrypt, Salt: salt, Key: key}, nil
}

// Verify checks password against stored. It never fails loudly: malformed hashes don't match.
func (p *PasswordHasher) Verify(stored StoredHash, password string) VerifyResult {
	switch stored.Format {
	case FormatScrypt:
		if len(stored.Salt) == 0 || len(stored.Key) == 0 {
			return VerifyResult{}
		}
		actual, err := scrypt.Key(p.material(password), stored.Salt, scryptN, scryptR, scryptP, len(stored.Key))
		if err != nil {
			return VerifyResult{}
		}
		return VerifyResult{Matches: subtle.ConstantTimeCompare(actual, stored.Key) == 1}
	case FormatLegacyBase64:
		candidate := legacyPrefix + base64.StdEncoding.EncodeToString([]byte(password))
		return legacyResult(candidate, stored.raw)
	case FormatLegacyInteger:
		return legacyResult(legacyIntegerHash(password), stored.raw)
	default:
		return VerifyResult{}
	}
}

func (p *PasswordHasher) material(password string) []byte {
	if p.pepper == "" {
		return []byte(password)
	}
	return []byte(password + "\x00" + p.pepper)
}

func legacyResult(candidate, stored string) VerifyResult {
	if subtle.ConstantTimeCompare([]byte(candidate), []byte(stored)) != 1 {
		return VerifyResult{}
	}
	return VerifyResult{Matches: true, NeedsUpgrade: true}
}

// legacyIntegerHash reproduces h = h*31 + c over UTF-16 code units with 32-bit wraparound.
func legacyIntegerHash(password string) string {
	var h int32
	for _, unit := range utf16.Encode([]rune(password)) {
		h = h*31 + int32(unit)
	}
	return strconv.FormatInt(int64(h), 10)
}

func isSignedInteger(value string) bool {
	digits := strings.TrimPrefix(value, "-")
	if digits == "" {
		return false
	}
	for i := 0; i < len(digits); i++ {
		if digits[i] < '0' || digits[i] > '9' {
			return false
		}
	}
	return true
}

func decodeB64URL(value string) ([]byte, error) {
	return base64.RawURLEncoding.DecodeString(strings.TrimRight(value, "="))
}
