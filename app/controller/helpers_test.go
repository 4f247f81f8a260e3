package controller_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/vibast-solutions/ms-go-accounts/app/dto"
	"github.com/vibast-solutions/ms-go-accounts/app/middleware"
	"github.com/vibast-solutions/ms-go-accounts/app/service"
	"github.com/vibast-solutions/ms-go-accounts/app/types"

	"github.com/labstack/echo/v4"
)

const testUserID = "6f1c2a4e-8f7b-4b9e-9d3a-2c1e5f7a9b0d"

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func newRequest(method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func withUser(ctx echo.Context) echo.Context {
	ctx.Set(middleware.ContextUserID, testUserID)
	ctx.Set(middleware.ContextUser, &dto.PublicUser{ID: testUserID})
	return ctx
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()

	var body envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode response %q: %v", rec.Body.String(), err)
	}
	return body
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()

	body := decode(t, rec)
	if !body.Success {
		t.Fatalf("expected success envelope, got %s", rec.Body.String())
	}
	if err := json.Unmarshal(body.Data, out); err != nil {
		t.Fatalf("failed to decode data: %v", err)
	}
}

type fakeSessions struct {
	registerReq   *types.RegisterRequest
	loginReq      *types.LoginRequest
	logoutAccess  string
	logoutRefresh string
	refreshToken  string
	verifyToken   string
	resetEmail    string
	resetToken    string
	resetPassword string
	verifyUserID  string
	sessionResult *dto.SessionResult
	tokenPair     *dto.TokenPair
	oneTime       *dto.OneTimeTokenResult
	verifyStatus  service.VerificationStatus
	err           error
}

func (f *fakeSessions) Register(_ context.Context, req *types.RegisterRequest) (*dto.SessionResult, error) {
	f.registerReq = req
	return f.sessionResult, f.err
}

func (f *fakeSessions) Login(_ context.Context, req *types.LoginRequest) (*dto.SessionResult, error) {
	f.loginReq = req
	return f.sessionResult, f.err
}

func (f *fakeSessions) Logout(_ context.Context, accessToken, refreshToken string) error {
	f.logoutAccess = accessToken
	f.logoutRefresh = refreshToken
	return f.err
}

func (f *fakeSessions) Refresh(_ context.Context, refreshToken string) (*dto.TokenPair, error) {
	f.refreshToken = refreshToken
	return f.tokenPair, f.err
}

func (f *fakeSessions) RequestEmailVerification(_ context.Context, userID string) (*dto.OneTimeTokenResult, error) {
	f.verifyUserID = userID
	return f.oneTime, f.err
}

func (f *fakeSessions) VerifyEmail(_ context.Context, rawToken string) (service.VerificationStatus, error) {
	f.verifyToken = rawToken
	return f.verifyStatus, f.err
}

func (f *fakeSessions) RequestPasswordReset(_ context.Context, email string) (*dto.OneTimeTokenResult, error) {
	f.resetEmail = email
	return f.oneTime, f.err
}

func (f *fakeSessions) ResetPassword(_ context.Context, rawToken, newPassword string) error {
	f.resetToken = rawToken
	f.resetPassword = newPassword
	return f.err
}

type fakeAccounts struct {
	userID          string
	profileReq      *types.UpdateProfileRequest
	currentPassword string
	update          service.SensitiveUpdate
	deleted         bool
	user            *dto.PublicUser
	err             error
}

func (f *fakeAccounts) Profile(_ context.Context, userID string) (*dto.PublicUser, error) {
	f.userID = userID
	return f.user, f.err
}

func (f *fakeAccounts) UpdateProfile(_ context.Context, userID string, req *types.UpdateProfileRequest) (*dto.PublicUser, error) {
	f.userID = userID
	f.profileReq = req
	return f.user, f.err
}

func (f *fakeAccounts) UpdateSensitiveData(_ context.Context, userID, currentPassword string, update service.SensitiveUpdate) (*dto.PublicUser, error) {
	f.userID = userID
	f.currentPassword = currentPassword
	f.update = update
	return f.user, f.err
}

func (f *fakeAccounts) DeleteAccount(_ context.Context, userID string) error {
	f.userID = userID
	f.deleted = f.err == nil
	return f.err
}
