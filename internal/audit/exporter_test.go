package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/casesync/casesync-backend/pkg/enums"
	apperrors "github.com/casesync/casesync-backend/pkg/errors"
	"github.com/casesync/casesync-backend/pkg/outbox"
	"github.com/casesync/casesync-backend/pkg/outbox/payloads"
)

type fakeInserter struct {
	table string
	rows  []any
	err   error
}

func (f *fakeInserter) InsertRows(ctx context.Context, table string, rows []any) error {
	if f.err != nil {
		return f.err
	}
	f.table = table
	f.rows = append(f.rows, rows...)
	return nil
}

func TestExporter_Export(t *testing.T) {
	inserter := &fakeInserter{}
	exporter, err := NewExporter(inserter, "custody_audit")
	if err != nil {
		t.Fatalf("NewExporter: %v", err)
	}

	event := payloads.CustodyRecordedEvent{
		EntryID:    uuid.New(),
		EvidenceID: uuid.New(),
		Sequence:   4,
		ActorID:    "officer-17",
		Action:     enums.CustodyActionViewed,
		EntryHash:  "aa",
		PriorHash:  "bb",
		OccurredAt: time.Date(2026, 4, 2, 8, 0, 0, 0, time.UTC),
	}
	envelope := outbox.PayloadEnvelope{
		Actor: &outbox.ActorRef{ActorID: "officer-17", Role: "investigator"},
	}

	if err := exporter.Export(context.Background(), envelope, event); err != nil {
		t.Fatalf("Export error: %v", err)
	}

	if inserter.table != "custody_audit" {
		t.Fatalf("unexpected table %s", inserter.table)
	}
	if len(inserter.rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(inserter.rows))
	}
	row, ok := inserter.rows[0].(CustodyAuditRow)
	if !ok {
		t.Fatalf("unexpected row type %T", inserter.rows[0])
	}
	if row.EntryID != event.EntryID.String() || row.Sequence != 4 {
		t.Fatalf("row fields not mapped: %+v", row)
	}
	if row.ActorRole != "investigator" {
		t.Fatalf("actor role not taken from envelope: %s", row.ActorRole)
	}
	if row.ExportedAt.IsZero() {
		t.Fatal("exported_at should be stamped")
	}
}

func TestExporter_ExportInserterFailure(t *testing.T) {
	inserter := &fakeInserter{err: errors.New("stream closed")}
	exporter, err := NewExporter(inserter, "custody_audit")
	if err != nil {
		t.Fatalf("NewExporter: %v", err)
	}

	exportErr := exporter.Export(context.Background(), outbox.PayloadEnvelope{}, payloads.CustodyRecordedEvent{})
	appErr := apperrors.As(exportErr)
	if appErr == nil || appErr.Code() != apperrors.CodeDependency {
		t.Fatalf("expected DEPENDENCY_ERROR, got %v", exportErr)
	}
}

func TestNewExporterValidation(t *testing.T) {
	if _, err := NewExporter(nil, "custody_audit"); err == nil {
		t.Fatal("expected error for missing inserter")
	}
	if _, err := NewExporter(&fakeInserter{}, ""); err == nil {
		t.Fatal("expected error for missing table")
	}
}
