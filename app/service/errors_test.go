package service

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorMatching(t *testing.T) {
	wrapped := fmt.Errorf("login: %w", ErrInvalidCredentials)
	if !errors.Is(wrapped, ErrInvalidCredentials) {
		t.Fatalf("expected wrapped sentinel to match")
	}

	var appErr *Error
	if !errors.As(wrapped, &appErr) || appErr.Kind != KindAuthentication {
		t.Fatalf("expected authentication kind, got %+v", appErr)
	}
}

func TestWeakPasswordErrorKeepsPolicyMessage(t *testing.T) {
	err := weakPasswordError(errors.New("Password must be at least 12 characters long."))
	if !errors.Is(err, ErrWeakPassword) {
		t.Fatalf("expected ErrWeakPassword match")
	}
	if err.Error() != "Password must be at least 12 characters long." {
		t.Fatalf("unexpected message: %q", err.Error())
	}
}

func TestInternalErrorHidesCause(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	err := internalError("login: find user", cause)

	var appErr *Error
	if !errors.As(err, &appErr) {
		t.Fatalf("expected *Error")
	}
	if appErr.Kind != KindInternal || appErr.Message != "Internal server error." {
		t.Fatalf("unexpected error: %+v", appErr)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("expected cause to be preserved for logs")
	}
}

func TestKindString(t *testing.T) {
	if KindConflict.String() != "conflict" || Kind(0).String() != "unknown" {
		t.Fatalf("unexpected kind names")
	}
}

func TestNormalizeEmail(t *testing.T) {
	if got := NormalizeEmail("  Ada@Example.COM "); got != "ada@example.com" {
		t.Fatalf("unexpected normalized email: %q", got)
	}
	if NormalizeEmail("ADA@example.com") != NormalizeEmail("ada@EXAMPLE.com") {
		t.Fatalf("expected case-insensitive equality")
	}
}

func TestRedactEmail(t *testing.T) {
	if got := RedactEmail("ada@example.com"); got != "a***@example.com" {
		t.Fatalf("unexpected redaction: %q", got)
	}
	if got := RedactEmail("garbage"); got != "***" {
		t.Fatalf("unexpected redaction: %q", got)
	}
}
