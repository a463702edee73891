package database

import (
	"strings"
	"testing"
)

func TestHashKey(t *testing.T) {
	t.Parallel()

	// SHA-256 of "hello", hex-encoded.
	if got := HashKey("hello"); got != "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824" {
		t.Errorf("unexpected digest %q", got)
	}
	if HashKey("a") == HashKey("b") {
		t.Error("distinct keys must not collide")
	}
	if len(HashKey("anything")) != 64 {
		t.Error("digest should be 64 hex characters")
	}
}

func TestGenerateKey(t *testing.T) {
	t.Parallel()

	seen := make(map[string]struct{})
	for i := 0; i < 16; i++ {
		key, err := GenerateKey()
		if err != nil {
			t.Fatalf("generate: %v", err)
		}
		if len(key) != 32 {
			t.Fatalf("expected 32 characters, got %d", len(key))
		}
		for _, r := range key {
			if !strings.ContainsRune(apiKeyAlphabet, r) {
				t.Fatalf("unexpected character %q in key", r)
			}
		}
		if _, dup := seen[key]; dup {
			t.Fatal("generated a duplicate key")
		}
		seen[key] = struct{}{}
	}
}
