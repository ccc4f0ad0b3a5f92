package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestCustodyMigrationContainsConstraints(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join("migrations", "*_create_custody_entries.sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no custody migration file found")
	}

	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	content := string(data)

	checks := []string{
		"CREATE TABLE IF NOT EXISTS custody_entries",
		"FOREIGN KEY (evidence_id) REFERENCES evidence_items(id)",
		"CHECK (sequence >= 1)",
		"CREATE UNIQUE INDEX IF NOT EXISTS ux_custody_evidence_sequence ON custody_entries (evidence_id, sequence)",
		"DROP TABLE IF EXISTS custody_entries",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}
