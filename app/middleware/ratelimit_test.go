package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/vibast-solutions/ms-go-accounts/app/middleware"
	"github.com/vibast-solutions/ms-go-accounts/config"

	"github.com/labstack/echo/v4"
)

func TestRateLimiter_BlocksAfterBurst(t *testing.T) {
	e := echo.New()
	e.POST("/auth/login", okHandler, middleware.NewRateLimiter(config.RateLimitConfig{
		Enabled:  true,
		Requests: 2,
		Window:   15 * time.Minute,
	}))

	send := func(ip string) int {
		req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
		req.RemoteAddr = ip + ":1234"
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		return rec.Code
	}

	if code := send("10.0.0.1"); code != http.StatusOK {
		t.Fatalf("expected first request to pass, got %d", code)
	}
	if code := send("10.0.0.1"); code != http.StatusOK {
		t.Fatalf("expected second request to pass, got %d", code)
	}
	if code := send("10.0.0.1"); code != http.StatusTooManyRequests {
		t.Fatalf("expected third request to be limited, got %d", code)
	}
	if code := send("10.0.0.2"); code != http.StatusOK {
		t.Fatalf("expected another client to pass, got %d", code)
	}
}

func TestRateLimiter_Disabled(t *testing.T) {
	e := echo.New()
	e.POST("/auth/login", okHandler, middleware.NewRateLimiter(config.RateLimitConfig{Enabled: false}))

	for i := 0; i < 10; i++ {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/login", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("expected request %d to pass, got %d", i, rec.Code)
		}
	}
}
