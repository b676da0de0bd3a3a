package middleware

import (
	"net/url"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// OriginGuard rejects cross-site mutations whose Origin is not allow-listed.
type OriginGuard struct {
	allowed map[string]struct{}
}

// NewOriginGuard builds a guard from a list of origins or base URLs.
func NewOriginGuard(origins []string) *OriginGuard {
	g := &OriginGuard{allowed: make(map[string]struct{}, len(origins))}
	for _, o := range origins {
		if o = strings.TrimSpace(o); o != "" {
			g.allowed[normalizeOrigin(o)] = struct{}{}
		}
	}
	return g
}

// Check reports whether a request with the given Origin header may proceed.
// Browsers omit Origin on most same-origin requests, so an empty header passes.
func (g *OriginGuard) Check(origin string) (bool, string) {
	if origin == "" {
		return true, ""
	}
	if len(g.allowed) == 0 {
		return false, "origin not allowed (no ALLOWED_ORIGINS configured)"
	}
	if _, ok := g.allowed[normalizeOrigin(origin)]; !ok {
		return false, "origin not allowed"
	}
	return true, ""
}

// Handler applies the guard to the route it is mounted on.
func (g *OriginGuard) Handler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if ok, reason := g.Check(c.Get(fiber.HeaderOrigin)); !ok {
			return fiber.NewError(fiber.StatusForbidden, reason)
		}
		return c.Next()
	}
}

// normalizeOrigin reduces a URL to scheme://host[:port]. Unparsable values are compared verbatim.
func normalizeOrigin(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return raw
	}

	scheme := strings.ToLower(u.Scheme)
	host := strings.ToLower(u.Hostname())
	port := u.Port()
	if (scheme == "http" && port == "80") || (scheme == "https" && port == "443") {
		port = ""
	}
	if strings.Contains(host, ":") {
		host = "[" + host + "]"
	}
	if port != "" {
		host += ":" + port
	}
	return scheme + "://" + host
}
