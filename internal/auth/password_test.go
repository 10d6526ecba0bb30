package auth

import (
	"strings"
	"testing"
)

func TestHashAndVerify(t *testing.T) {
	verifier, err := HashPassword("correct horse battery staple")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}

	if !strings.Contains(verifier, ".") {
		t.Fatalf("verifier %q missing separator", verifier)
	}
	if strings.Contains(verifier, "correct horse") {
		t.Fatal("verifier contains plaintext")
	}

	if !VerifyPassword("correct horse battery staple", verifier) {
		t.Error("expected matching password to verify")
	}
	if VerifyPassword("wrong password", verifier) {
		t.Error("expected non-matching password to fail")
	}
}

func TestHashIsSalted(t *testing.T) {
	a, err := HashPassword("same password")
	if err != nil {
		t.Fatal(err)
	}
	b, err := HashPassword("same password")
	if err != nil {
		t.Fatal(err)
	}
	if a == b {
		t.Error("two hashes of the same password should differ (random salt)")
	}
	if !VerifyPassword("same password", a) || !VerifyPassword("same password", b) {
		t.Error("both verifiers should verify the original password")
	}
}

func TestVerifyMalformedStored(t *testing.T) {
	tests := []struct {
		name   string
		stored string
	}{
		{"empty", ""},
		{"no separator", "deadbeef"},
		{"too many separators", "aa.bb.cc"},
		{"invalid hex key", "zzzz.deadbeef"},
		{"invalid hex salt", "deadbeef.zzzz"},
		{"empty key", ".deadbeef"},
		{"empty salt", "deadbeef."},
		{"only separator", "."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if VerifyPassword("anything", tt.stored) {
				t.Errorf("VerifyPassword(%q) = true, want false", tt.stored)
			}
		})
	}
}
