package models

import (
	"testing"
	"time"
)

func TestBaseModelBeforeCreateGeneratesID(t *testing.T) {
	var base BaseModel
	if err := base.BeforeCreate(nil); err != nil {
		t.Fatalf("before create: %v", err)
	}
	if base.ID == "" {
		t.Fatal("expected base model ID to be generated")
	}

	preset := BaseModel{ID: "fixed"}
	if err := preset.BeforeCreate(nil); err != nil {
		t.Fatalf("before create: %v", err)
	}
	if preset.ID != "fixed" {
		t.Fatalf("expected preset ID to be kept, got %q", preset.ID)
	}
}

func TestEmbeddedModelsUseBaseBeforeCreate(t *testing.T) {
	cases := []struct {
		name  string
		model func() *BaseModel
	}{
		{"user", func() *BaseModel { return &(&User{}).BaseModel }},
		{"invite_token", func() *BaseModel { return &(&InviteToken{}).BaseModel }},
		{"extension_request", func() *BaseModel { return &(&ExtensionRequest{}).BaseModel }},
		{"session", func() *BaseModel { return &(&Session{}).BaseModel }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			base := tc.model()
			if err := base.BeforeCreate(nil); err != nil {
				t.Fatalf("before create: %v", err)
			}
			if base.ID == "" {
				t.Fatal("expected ID to be generated")
			}
		})
	}
}

func TestInviteTokenExpiryBoundary(t *testing.T) {
	expires := time.Date(2024, 1, 8, 12, 0, 0, 0, time.UTC)
	invite := InviteToken{ExpiresAt: expires}

	if invite.IsExpiredAt(expires.Add(-time.Second)) {
		t.Fatal("expected invite to be valid before expiry")
	}
	if !invite.IsExpiredAt(expires) {
		t.Fatal("expected invite to be expired at its expiry instant")
	}
}

func TestExtensionStatusValid(t *testing.T) {
	for _, s := range []ExtensionStatus{ExtensionStatusPending, ExtensionStatusApproved, ExtensionStatusDenied} {
		if !s.Valid() {
			t.Fatalf("expected %q to be valid", s)
		}
	}
	if ExtensionStatus("archived").Valid() {
		t.Fatal("expected unknown status to be invalid")
	}
}

func TestSessionActiveAt(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s := Session{ExpiresAt: now.Add(time.Hour)}
	if !s.ActiveAt(now) {
		t.Fatal("expected session to be active")
	}

	revoked := now
	s.RevokedAt = &revoked
	if s.ActiveAt(now) {
		t.Fatal("expected revoked session to be inactive")
	}
}
