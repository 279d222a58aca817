package jwtutil

import "testing"

func TestGenerateAndValidateToken(t *testing.T) {
	util := NewJWTUtil(&JWTConfig{SigningKey: "testkey", ExpirationHours: 1})

	token, err := util.GenerateToken("owner@example.com", 42)
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}

	claims, err := util.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken() error = %v", err)
	}
	if claims.OwnerID != 42 {
		t.Errorf("OwnerID = %d, want 42", claims.OwnerID)
	}
	if claims.Email != "owner@example.com" {
		t.Errorf("Email = %q, want %q", claims.Email, "owner@example.com")
	}
}

func TestValidateToken_WrongKey(t *testing.T) {
	issuer := NewJWTUtil(&JWTConfig{SigningKey: "issuerkey", ExpirationHours: 1})
	verifier := NewJWTUtil(&JWTConfig{SigningKey: "otherkey", ExpirationHours: 1})

	token, err := issuer.GenerateToken("owner@example.com", 7)
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}

	if _, err := verifier.ValidateToken(token); err == nil {
		t.Error("ValidateToken() with wrong signing key succeeded, want error")
	}
}
