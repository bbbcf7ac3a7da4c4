package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"
)

// ContentSecurityPolicy allows the console's own scripts, styles and its
// websocket and nothing else.
const ContentSecurityPolicy = "default-src 'self'; script-src 'self'; style-src 'self' 'unsafe-inline'; " +
	"img-src 'self' data:; connect-src 'self' ws: wss:; form-action 'self'; frame-ancestors 'none'"

// StaticPrefix is where the console serves its embedded assets.
const StaticPrefix = "/static/"

// SecurityHeaders sets the browser hardening headers on every response.
// HSTS is only sent when the console itself terminates TLS. Pages are never
// cached; the embedded assets may be.
func SecurityHeaders(hsts bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h := c.Response().Header()

			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "DENY")
			h.Set("X-XSS-Protection", "0")
			h.Set("Content-Security-Policy", ContentSecurityPolicy)
			h.Set("Referrer-Policy", "same-origin")
			h.Set("Permissions-Policy", "camera=(), microphone=(), geolocation=()")

			if strings.HasPrefix(c.Request().URL.Path, StaticPrefix) {
				h.Set("Cache-Control", "public, max-age=3600")
			} else {
				h.Set("Cache-Control", "no-store")
			}

			if hsts {
				h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
			}

			return next(c)
		}
	}
}
