package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
)

// TimeoutConfig bounds how long one console request may spend on backend
// calls.
type TimeoutConfig struct {
	Timeout time.Duration
	// Skip lists path prefixes that run without a deadline.
	Skip []string
	// OnTimeout answers a request whose deadline passed before anything was
	// written. Defaults to a plain 504.
	OnTimeout echo.HandlerFunc
}

// DefaultTimeoutConfig matches the REQUEST_TIMEOUT default. The websocket
// endpoint is long-lived and never gets a deadline.
func DefaultTimeoutConfig() TimeoutConfig {
	return TimeoutConfig{
		Timeout: 30 * time.Second,
		Skip:    []string{"/ws"},
	}
}

// RequestTimeout puts a deadline on the request context. The backend client
// inherits it, so a slow backend fails the handler's calls instead of
// hanging the tab. The handler runs on the request goroutine; when it
// returns after the deadline without having written a response,
// OnTimeout answers instead.
func RequestTimeout(cfg TimeoutConfig) echo.MiddlewareFunc {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeoutConfig().Timeout
	}
	if cfg.OnTimeout == nil {
		cfg.OnTimeout = gatewayTimeout
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			path := c.Request().URL.Path
			for _, prefix := range cfg.Skip {
				if strings.HasPrefix(path, prefix) {
					return next(c)
				}
			}

			ctx, cancel := context.WithTimeout(c.Request().Context(), cfg.Timeout)
			defer cancel()
			c.SetRequest(c.Request().WithContext(ctx))

			err := next(c)
			if errors.Is(ctx.Err(), context.DeadlineExceeded) && !c.Response().Committed {
				return cfg.OnTimeout(c)
			}
			return err
		}
	}
}

func gatewayTimeout(c echo.Context) error {
	return c.String(http.StatusGatewayTimeout, "The hospital backend did not answer in time. Please try again.")
}
