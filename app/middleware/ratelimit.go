package middleware

import (
	"net/http"
	"time"

	httpdto "github.com/vibast-solutions/ms-go-accounts/app/dto/http"
	"github.com/vibast-solutions/ms-go-accounts/config"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const tooManyAttemptsMessage = "Too many attempts. Please try again later."

// NewRateLimiter throttles per client IP with a token bucket that refills
// Requests tokens every Window. It returns a pass-through middleware when
// limiting is disabled.
func NewRateLimiter(cfg config.RateLimitConfig) echo.MiddlewareFunc {
	if !cfg.Enabled || cfg.Requests <= 0 || cfg.Window <= 0 {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}

	store := echomiddleware.NewRateLimiterMemoryStoreWithConfig(echomiddleware.RateLimiterMemoryStoreConfig{
		Rate:      rate.Every(cfg.Window / time.Duration(cfg.Requests)),
		Burst:     cfg.Requests,
		ExpiresIn: cfg.Window,
	})

	return echomiddleware.RateLimiterWithConfig(echomiddleware.RateLimiterConfig{
		Store: store,
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return c.JSON(http.StatusForbidden, httpdto.Error("Unable to identify client"))
		},
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			logrus.WithFields(logrus.Fields{
				"path": c.Path(),
				"ip":   identifier,
			}).Warn("Rate limit exceeded")
			return c.JSON(http.StatusTooManyRequests, httpdto.Error(tooManyAttemptsMessage))
		},
	})
}
