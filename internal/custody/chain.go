package custody

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/casesync/casesync-backend/pkg/db/models"
	"github.com/casesync/casesync-backend/pkg/enums"
)

const genesisSeed = "casesync/custody-ledger/genesis"

// GenesisHash is the prior hash of every chain's first entry.
func GenesisHash() string {
	sum := sha256.Sum256([]byte(genesisSeed))
	return hex.EncodeToString(sum[:])
}

// ComputeEntryHash hashes the canonical entry fields together with the
// prior entry's hash. The encoding is newline-delimited with a fixed
// field order; occurred_at is normalized to UTC RFC3339Nano.
func ComputeEntryHash(evidenceID uuid.UUID, sequence int64, actorID string, action enums.CustodyAction, note *string, occurredAt time.Time, priorHash string) string {
	noteValue := ""
	if note != nil {
		noteValue = *note
	}
	canonical := fmt.Sprintf("%s\n%d\n%s\n%s\n%s\n%s\n%s",
		evidenceID.String(),
		sequence,
		actorID,
		action,
		noteValue,
		occurredAt.UTC().Format(time.RFC3339Nano),
		priorHash,
	)
	sum := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(sum[:])
}

func entryHashFor(entry models.CustodyEntry) string {
	return ComputeEntryHash(entry.EvidenceID, entry.Sequence, entry.ActorID, entry.Action, entry.Note, entry.OccurredAt, entry.PriorHash)
}
