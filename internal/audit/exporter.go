package audit

import (
	"context"
	"time"

	apperrors "github.com/casesync/casesync-backend/pkg/errors"
	"github.com/casesync/casesync-backend/pkg/outbox"
	"github.com/casesync/casesync-backend/pkg/outbox/payloads"
)

// Inserter streams rows into an analytics table.
type Inserter interface {
	InsertRows(ctx context.Context, table string, rows []any) error
}

// CustodyAuditRow is the BigQuery row shape for one custody entry.
type CustodyAuditRow struct {
	EntryID    string    `bigquery:"entry_id"`
	EvidenceID string    `bigquery:"evidence_id"`
	Sequence   int64     `bigquery:"sequence"`
	ActorID    string    `bigquery:"actor_id"`
	ActorRole  string    `bigquery:"actor_role"`
	Action     string    `bigquery:"action"`
	EntryHash  string    `bigquery:"entry_hash"`
	PriorHash  string    `bigquery:"prior_hash"`
	OccurredAt time.Time `bigquery:"occurred_at"`
	ExportedAt time.Time `bigquery:"exported_at"`
}

// Exporter copies custody events into the audit dataset.
type Exporter struct {
	inserter Inserter
	table    string
	now      func() time.Time
}

// NewExporter wires an exporter on the configured audit table.
func NewExporter(inserter Inserter, table string) (*Exporter, error) {
	if inserter == nil {
		return nil, apperrors.New(apperrors.CodeInternal, "bigquery inserter required")
	}
	if table == "" {
		return nil, apperrors.New(apperrors.CodeInternal, "audit table required")
	}
	return &Exporter{inserter: inserter, table: table, now: time.Now}, nil
}

// Export writes one custody event. The actor role comes from the
// envelope when present.
func (e *Exporter) Export(ctx context.Context, envelope outbox.PayloadEnvelope, event payloads.CustodyRecordedEvent) error {
	row := CustodyAuditRow{
		EntryID:    event.EntryID.String(),
		EvidenceID: event.EvidenceID.String(),
		Sequence:   event.Sequence,
		ActorID:    event.ActorID,
		Action:     string(event.Action),
		EntryHash:  event.EntryHash,
		PriorHash:  event.PriorHash,
		OccurredAt: event.OccurredAt,
		ExportedAt: e.now().UTC(),
	}
	if envelope.Actor != nil {
		row.ActorRole = envelope.Actor.Role
	}
	if err := e.inserter.InsertRows(ctx, e.table, []any{row}); err != nil {
		return apperrors.Wrap(apperrors.CodeDependency, err, "exporting custody audit row")
	}
	return nil
}
