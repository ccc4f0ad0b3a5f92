package enums

import "fmt"

// EvidenceStatus describes the lifecycle state of an evidence item.
type EvidenceStatus string

const (
	EvidenceStatusIngested   EvidenceStatus = "ingested"
	EvidenceStatusProcessing EvidenceStatus = "processing"
	EvidenceStatusReady      EvidenceStatus = "ready"
	EvidenceStatusFailed     EvidenceStatus = "failed"
	EvidenceStatusRetired    EvidenceStatus = "retired"
)

var validEvidenceStatuses = []EvidenceStatus{
	EvidenceStatusIngested,
	EvidenceStatusProcessing,
	EvidenceStatusReady,
	EvidenceStatusFailed,
	EvidenceStatusRetired,
}

// String returns the literal string for the status.
func (s EvidenceStatus) String() string {
	return string(s)
}

// IsValid reports whether the status is known.
func (s EvidenceStatus) IsValid() bool {
	for _, candidate := range validEvidenceStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the status accepts no further mutations.
func (s EvidenceStatus) IsTerminal() bool {
	return s == EvidenceStatusRetired
}

// AcceptsJobs reports whether a new processing job may be admitted in this status.
func (s EvidenceStatus) AcceptsJobs() bool {
	switch s {
	case EvidenceStatusIngested, EvidenceStatusReady, EvidenceStatusFailed:
		return true
	default:
		return false
	}
}

// ParseEvidenceStatus converts raw input into an EvidenceStatus.
func ParseEvidenceStatus(value string) (EvidenceStatus, error) {
	for _, candidate := range validEvidenceStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid evidence status %q", value)
}
