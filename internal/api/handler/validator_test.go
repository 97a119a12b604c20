package handler

import (
	"errors"
	"strings"
	"testing"
)

func TestValidator_UsesJSONNames(t *testing.T) {
	err := NewValidator().Validate(&registerRequest{Name: "Ana", Email: "ana@example.com", Password: "secret1", PhotoURL: "not a url"})

	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if ve.Message != "photo_url must be a valid url" {
		t.Fatalf("unexpected message: %q", ve.Message)
	}
}

func TestValidator_DomainTags(t *testing.T) {
	v := NewValidator()

	if err := v.Validate(&updateRoleRequest{Email: "deco@example.com", Role: "decorator"}); err != nil {
		t.Fatalf("known role rejected: %v", err)
	}
	if err := v.Validate(&updateRoleRequest{Email: "deco@example.com", Role: "owner"}); err == nil || !strings.Contains(err.Error(), "role must be one of") {
		t.Fatalf("expected role error, got %v", err)
	}
	if err := v.Validate(&projectStatusRequest{Status: "in_progress"}); err != nil {
		t.Fatalf("known status rejected: %v", err)
	}
	if err := v.Validate(&projectStatusRequest{Status: "done"}); err == nil {
		t.Fatal("expected unknown status to fail")
	}
}

func TestValidator_ValidRequestPasses(t *testing.T) {
	if err := NewValidator().Validate(&loginRequest{Email: "ana@example.com", Password: "x"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
