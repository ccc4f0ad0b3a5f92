package enums

import "fmt"

// JobKind identifies which processing engine a job targets.
type JobKind string

const (
	JobKindTranscription JobKind = "transcription"
	JobKindEnhancement   JobKind = "enhancement"
	JobKindRedaction     JobKind = "redaction"
	JobKindAnalysis      JobKind = "analysis"
)

var validJobKinds = []JobKind{
	JobKindTranscription,
	JobKindEnhancement,
	JobKindRedaction,
	JobKindAnalysis,
}

// String returns the literal string for the kind.
func (k JobKind) String() string {
	return string(k)
}

// IsValid reports whether the kind is known.
func (k JobKind) IsValid() bool {
	for _, candidate := range validJobKinds {
		if candidate == k {
			return true
		}
	}
	return false
}

// CustodyAction maps a completed job kind to the custody action it records.
func (k JobKind) CustodyAction() CustodyAction {
	switch k {
	case JobKindRedaction:
		return CustodyActionRedacted
	default:
		return CustodyActionAnnotated
	}
}

// ParseJobKind converts raw input into a JobKind.
func ParseJobKind(value string) (JobKind, error) {
	for _, candidate := range validJobKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid job kind %q", value)
}
