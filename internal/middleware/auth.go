package middleware

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/example/tapcart/internal/utils"
)

// Session cookie names.
const (
	StoreCookie = "store-session"
	AdminCookie = "admin-session"
)

const claimsContextKey = "sessionClaims"

// Sessions verifies session cookies and issues new ones.
type Sessions struct {
	tokens *utils.TokenService
	secure bool
	ttl    time.Duration
}

// NewSessions constructs Sessions. secure marks cookies Secure.
func NewSessions(tokens *utils.TokenService, secure bool, ttl time.Duration) *Sessions {
	if ttl <= 0 {
		ttl = utils.SessionTTL
	}
	return &Sessions{tokens: tokens, secure: secure, ttl: ttl}
}

// RequireStore rejects requests without a valid store session.
func (s *Sessions) RequireStore() fiber.Handler {
	return s.require(utils.KindStore)
}

// RequireAdmin rejects requests without a valid admin session.
func (s *Sessions) RequireAdmin() fiber.Handler {
	return s.require(utils.KindAdmin)
}

// LoadStore attaches a store session when one is present and valid, without rejecting.
func (s *Sessions) LoadStore() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if claims, ok := s.verify(c, utils.KindStore); ok {
			c.Locals(claimsContextKey, claims)
		}
		return c.Next()
	}
}

func (s *Sessions) require(kind utils.TokenKind) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, ok := s.verify(c, kind)
		if !ok {
			return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
		}
		c.Locals(claimsContextKey, claims)
		return c.Next()
	}
}

// verify reads the session cookie for kind, falling back to a bearer token.
func (s *Sessions) verify(c *fiber.Ctx, kind utils.TokenKind) (*utils.Claims, bool) {
	token := c.Cookies(cookieName(kind))
	if token == "" {
		parts := strings.SplitN(c.Get(fiber.HeaderAuthorization), " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			token = strings.TrimSpace(parts[1])
		}
	}
	if token == "" {
		return nil, false
	}
	return s.tokens.Verify(token, kind)
}

// Issue sets the session cookie for kind.
func (s *Sessions) Issue(c *fiber.Ctx, kind utils.TokenKind, token string) {
	c.Cookie(s.cookie(kind, token, int(s.ttl/time.Second)))
}

// Clear expires the session cookie for kind.
func (s *Sessions) Clear(c *fiber.Ctx, kind utils.TokenKind) {
	c.Cookie(s.cookie(kind, "", 0))
	c.Set(fiber.HeaderCacheControl, "no-store, no-cache, must-revalidate")
	c.Set(fiber.HeaderPragma, "no-cache")
}

func (s *Sessions) cookie(kind utils.TokenKind, value string, maxAge int) *fiber.Cookie {
	cookie := &fiber.Cookie{
		Name:     cookieName(kind),
		Value:    value,
		Path:     "/",
		HTTPOnly: true,
		Secure:   s.secure,
		SameSite: fiber.CookieSameSiteLaxMode,
		MaxAge:   maxAge,
	}
	if maxAge == 0 {
		// fasthttp treats MaxAge 0 as unset, so expire explicitly.
		cookie.MaxAge = -1
		cookie.Expires = time.Unix(0, 0)
	}
	return cookie
}

func cookieName(kind utils.TokenKind) string {
	if kind == utils.KindAdmin {
		return AdminCookie
	}
	return StoreCookie
}

// GetClaims returns the verified session attached to the request.
func GetClaims(c *fiber.Ctx) (*utils.Claims, bool) {
	claims, ok := c.Locals(claimsContextKey).(*utils.Claims)
	return claims, ok && claims != nil
}

// CurrentStoreID returns the store identifier of the authenticated store session.
func CurrentStoreID(c *fiber.Ctx) (string, bool) {
	claims, ok := GetClaims(c)
	if !ok || claims.Kind != utils.KindStore {
		return "", false
	}
	return claims.Subject, true
}

// CurrentAdminEmail returns the email of the authenticated admin session.
func CurrentAdminEmail(c *fiber.Ctx) (string, bool) {
	claims, ok := GetClaims(c)
	if !ok || claims.Kind != utils.KindAdmin {
		return "", false
	}
	return claims.Subject, true
}
