package security

import (
	"testing"
	"time"
)

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("swordfish1")
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}
	if hash == "swordfish1" {
		t.Fatal("hash should not equal plaintext")
	}

	if !CheckPassword("swordfish1", hash) {
		t.Error("correct password should verify")
	}
	if CheckPassword("wrong", hash) {
		t.Error("wrong password should not verify")
	}
}

func TestGenerateSessionIDUnique(t *testing.T) {
	a := GenerateSessionID()
	b := GenerateSessionID()
	if a == "" || b == "" {
		t.Fatal("session IDs should not be empty")
	}
	if a == b {
		t.Error("session IDs should be unique")
	}
}

func TestCSRFGenerator(t *testing.T) {
	gen := NewCSRFGenerator("test-secret")

	token, err := gen.GenerateToken("session-1")
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}

	tests := []struct {
		name      string
		sessionID string
		token     string
		expected  bool
	}{
		{"valid token", "session-1", token, true},
		{"wrong session", "session-2", token, false},
		{"empty token", "session-1", "", false},
		{"empty session", "", token, false},
		{"garbage token", "session-1", "deadbeef", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := gen.ValidateToken(tt.sessionID, tt.token); got != tt.expected {
				t.Errorf("ValidateToken() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestCSRFTokenDiffersPerSecret(t *testing.T) {
	a, _ := NewCSRFGenerator("secret-a").GenerateToken("session-1")
	b, _ := NewCSRFGenerator("secret-b").GenerateToken("session-1")
	if a == b {
		t.Error("tokens from different secrets should differ")
	}
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(3, time.Minute)

	for i := 0; i < 3; i++ {
		if !rl.Allow("10.0.0.1") {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if rl.Allow("10.0.0.1") {
		t.Error("request over limit should be denied")
	}

	// A different IP has its own bucket
	if !rl.Allow("10.0.0.2") {
		t.Error("other IP should be allowed")
	}
}
