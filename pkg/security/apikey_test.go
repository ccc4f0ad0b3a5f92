package security

import (
	"strings"
	"testing"

	"github.com/casesync/casesync-backend/pkg/config"
)

func testArgonConfig() config.APIKeyConfig {
	return config.APIKeyConfig{
		ArgonMemoryKB:    8,
		ArgonTime:        1,
		ArgonParallelism: 1,
		ArgonSaltLen:     16,
		ArgonKeyLen:      32,
	}
}

func TestHashAndVerifyAPIKey(t *testing.T) {
	hash, err := HashAPIKey("super-secret-key", testArgonConfig())
	if err != nil {
		t.Fatalf("HashAPIKey: %v", err)
	}
	if !strings.HasPrefix(hash, "$argon2id$v=19$") {
		t.Fatalf("unexpected hash format %s", hash)
	}

	ok, err := VerifyAPIKey("super-secret-key", hash)
	if err != nil {
		t.Fatalf("VerifyAPIKey: %v", err)
	}
	if !ok {
		t.Fatal("expected matching key to verify")
	}

	ok, err = VerifyAPIKey("wrong-key", hash)
	if err != nil {
		t.Fatalf("VerifyAPIKey mismatch: %v", err)
	}
	if ok {
		t.Fatal("expected mismatched key to fail")
	}
}

func TestHashAPIKeyEmpty(t *testing.T) {
	if _, err := HashAPIKey("", testArgonConfig()); err == nil {
		t.Fatal("expected error for empty key")
	}
}

func TestVerifyAPIKeyMalformedHash(t *testing.T) {
	if _, err := VerifyAPIKey("key", "not-a-hash"); err == nil {
		t.Fatal("expected error for malformed hash")
	}
}

func TestGenerateAPIKey(t *testing.T) {
	key, err := GenerateAPIKey(32)
	if err != nil {
		t.Fatalf("GenerateAPIKey: %v", err)
	}
	if len(key) != 32 {
		t.Fatalf("unexpected length %d", len(key))
	}

	other, err := GenerateAPIKey(32)
	if err != nil {
		t.Fatalf("GenerateAPIKey: %v", err)
	}
	if key == other {
		t.Fatal("two generated keys should differ")
	}

	if _, err := GenerateAPIKey(0); err == nil {
		t.Fatal("expected error for non-positive length")
	}
}
