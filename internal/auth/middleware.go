package auth

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/churchstage/presenter-proxy/internal/apierror"
)

const (
	localIdentityKey = "pp_identity"
	realIPHeaderKey  = "pp_real_ip_header"
)

// RealIPHeader is the header trusted for the client's real address when the
// request arrives through the tunnel. Empty means "trust nothing, use the
// raw remote addr".
var RealIPHeader = ""

// ClientIP returns the real client IP, honoring RealIPHeader if set and
// present on the request.
func ClientIP(c *fiber.Ctx) string {
	if RealIPHeader != "" {
		if v := c.Get(RealIPHeader); v != "" {
			return v
		}
	}
	return c.IP()
}

// RequireAuth authenticates via bearer header first, then session cookie,
// storing the resolved Identity in locals for downstream handlers and
// RequireAdmin. Unauthenticated requests get 401.
func (m *Manager) RequireAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if auth := c.Get(fiber.HeaderAuthorization); auth != "" {
			if id, ok := m.AuthenticateBearer(auth); ok {
				c.Locals(localIdentityKey, id)
				return c.Next()
			}
		}
		if cookie := c.Cookies(CookieName); cookie != "" {
			if id, ok := m.AuthenticateCookie(cookie); ok {
				c.Locals(localIdentityKey, id)
				return c.Next()
			}
		}
		return apierror.New(apierror.Unauthenticated, "authentication required")
	}
}

// RequireAdmin must run after RequireAuth. Non-admin authenticated users get
// 403.
func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, _ := c.Locals(localIdentityKey).(Identity)
		if !id.Admin {
			return apierror.New(apierror.Forbidden, "admin privileges required")
		}
		return c.Next()
	}
}

// CurrentIdentity retrieves the Identity RequireAuth stored in locals.
func CurrentIdentity(c *fiber.Ctx) (Identity, bool) {
	id, ok := c.Locals(localIdentityKey).(Identity)
	return id, ok
}

// RateLimiter limits any route it wraps to maxRequests per window, keyed by
// ClientIP. It is applied to the /auth group at 20 requests per 15 minutes
// per the spec.
func RateLimiter(maxRequests int, window time.Duration) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        maxRequests,
		Expiration: window,
		KeyGenerator: func(c *fiber.Ctx) string {
			return ClientIP(c)
		},
		LimitReached: func(c *fiber.Ctx) error {
			return apierror.New(apierror.RateLimited, "too many authentication requests, try again later")
		},
	})
}

// SecurityHeaders attaches the baseline security policy to every response:
// content-type sniffing protection, clickjacking protection, a conservative
// CSP for the SPA, and HSTS when served over HTTPS. It never sets
// X-Powered-By.
func SecurityHeaders(isHTTPS bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("Content-Security-Policy", "default-src 'self'; img-src 'self' data: https:; style-src 'self' 'unsafe-inline'; connect-src 'self'")
		if isHTTPS {
			c.Set("Strict-Transport-Security", "max-age=63072000; includeSubDomains")
		}
		return c.Next()
	}
}
