package enums

import "fmt"

// EvidenceKind classifies the media type of a stored evidence item.
type EvidenceKind string

const (
	EvidenceKindAudio    EvidenceKind = "audio"
	EvidenceKindVideo    EvidenceKind = "video"
	EvidenceKindDocument EvidenceKind = "document"
	EvidenceKindImage    EvidenceKind = "image"
)

var validEvidenceKinds = []EvidenceKind{
	EvidenceKindAudio,
	EvidenceKindVideo,
	EvidenceKindDocument,
	EvidenceKindImage,
}

// String returns the literal string for the kind.
func (k EvidenceKind) String() string {
	return string(k)
}

// IsValid reports whether the kind is known.
func (k EvidenceKind) IsValid() bool {
	for _, candidate := range validEvidenceKinds {
		if candidate == k {
			return true
		}
	}
	return false
}

// ParseEvidenceKind converts raw input into an EvidenceKind.
func ParseEvidenceKind(value string) (EvidenceKind, error) {
	for _, candidate := range validEvidenceKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid evidence kind %q", value)
}
