package cmd

import (
	"net/http"

	"github.com/vibast-solutions/ms-go-accounts/app/controller"
	"github.com/vibast-solutions/ms-go-accounts/app/metrics"
	"github.com/vibast-solutions/ms-go-accounts/app/middleware"
	"github.com/vibast-solutions/ms-go-accounts/config"

	"github.com/labstack/echo/v4"
)

type handlers struct {
	auth         *controller.AuthController
	verification *controller.VerificationController
	account      *controller.AccountController
	gate         *middleware.AuthMiddleware
	metrics      *metrics.Metrics
}

func registerRoutes(e *echo.Echo, cfg *config.Config, h handlers) {
	limiter := middleware.NewRateLimiter(cfg.RateLimit)

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/metrics", echo.WrapHandler(h.metrics.Handler()))

	auth := e.Group("/auth")
	auth.POST("/register", h.auth.Register, limiter)
	auth.POST("/login", h.auth.Login, limiter)
	auth.POST("/logout", h.auth.Logout)
	auth.POST("/refresh", h.auth.Refresh, h.gate.RequireRefreshToken)

	verify := e.Group("/verify")
	verify.GET("", h.verification.Verify)
	verify.POST("/request", h.verification.RequestVerification, h.gate.RequireAuth, h.gate.RequireUnverified)

	password := e.Group("/password")
	password.POST("/reset/request", h.verification.RequestPasswordReset)
	password.POST("/reset", h.verification.ResetPassword)

	users := e.Group("/users", h.gate.RequireAuth)
	users.GET("/profile", h.account.Profile)
	users.PUT("/profile", h.account.UpdateProfile)
	users.PUT("/credentials", h.account.UpdateCredentials)
	users.DELETE("/delete", h.account.DeleteAccount)
}
