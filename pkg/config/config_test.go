package config

import (
	"strings"
	"testing"
)

func TestEnsureDSNPassthrough(t *testing.T) {
	cfg := DBConfig{DSN: "postgres://u:p@localhost:5432/casesync"}
	if err := cfg.ensureDSN(); err != nil {
		t.Fatalf("ensureDSN: %v", err)
	}
	if cfg.DSN != "postgres://u:p@localhost:5432/casesync" {
		t.Fatalf("dsn mutated: %s", cfg.DSN)
	}
}

func TestEnsureDSNFromLegacyParts(t *testing.T) {
	cfg := DBConfig{
		LegacyHost:     "db.internal",
		LegacyPort:     5433,
		LegacyUser:     "casesync",
		LegacyPassword: "secret",
		LegacyName:     "evidence",
		LegacySSLMode:  "require",
	}
	if err := cfg.ensureDSN(); err != nil {
		t.Fatalf("ensureDSN: %v", err)
	}
	for _, want := range []string{"db.internal:5433", "casesync:secret@", "/evidence", "sslmode=require"} {
		if !strings.Contains(cfg.DSN, want) {
			t.Fatalf("dsn %q missing %q", cfg.DSN, want)
		}
	}
}

func TestEnsureDSNMissingParts(t *testing.T) {
	cfg := DBConfig{LegacyHost: "db.internal"}
	err := cfg.ensureDSN()
	if err == nil {
		t.Fatal("expected error for missing legacy db vars")
	}
	if !strings.Contains(err.Error(), EnvDBUser) || !strings.Contains(err.Error(), EnvDBName) {
		t.Fatalf("error should name missing vars: %v", err)
	}
}

func TestMaxUploadBytes(t *testing.T) {
	if got := (UploadConfig{MaxUploadMB: 10}).MaxUploadBytes(); got != 10*1024*1024 {
		t.Fatalf("unexpected ceiling: %d", got)
	}
	if got := (UploadConfig{}).MaxUploadBytes(); got != 200*1024*1024 {
		t.Fatalf("default ceiling: %d", got)
	}
}
