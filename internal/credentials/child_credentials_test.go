package credentials

import (
	"strings"
	"testing"
)

func TestGenerateChildUsername(t *testing.T) {
	username, err := GenerateChildUsername()
	if err != nil {
		t.Fatalf("GenerateChildUsername failed: %v", err)
	}

	parts := strings.Split(username, "-")
	if len(parts) != 2 {
		t.Fatalf("expected adjective-noun format, got %q", username)
	}

	foundAdj := false
	for _, a := range adjectives {
		if a == parts[0] {
			foundAdj = true
			break
		}
	}
	if !foundAdj {
		t.Errorf("adjective %q not in word list", parts[0])
	}

	foundNoun := false
	for _, n := range nouns {
		if n == parts[1] {
			foundNoun = true
			break
		}
	}
	if !foundNoun {
		t.Errorf("noun %q not in word list", parts[1])
	}
}

func TestGenerateChildPassword(t *testing.T) {
	password, err := GenerateChildPassword()
	if err != nil {
		t.Fatalf("GenerateChildPassword failed: %v", err)
	}
	if len(password) != 6 {
		t.Errorf("expected 6 characters, got %d", len(password))
	}
	for _, c := range password {
		if !strings.ContainsRune("abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789", c) {
			t.Errorf("unexpected character %q in password", c)
		}
	}
}

func TestGenerateClaimCode(t *testing.T) {
	a, err := GenerateClaimCode()
	if err != nil {
		t.Fatalf("GenerateClaimCode failed: %v", err)
	}
	if len(a) != 16 {
		t.Errorf("expected 16 hex characters, got %d", len(a))
	}

	b, _ := GenerateClaimCode()
	if a == b {
		t.Error("claim codes should be unique")
	}
}
