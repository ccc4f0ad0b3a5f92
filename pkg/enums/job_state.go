package enums

import "fmt"

// JobState describes where a processing job sits in its lifecycle.
type JobState string

const (
	JobStateQueued    JobState = "queued"
	JobStateRunning   JobState = "running"
	JobStateSucceeded JobState = "succeeded"
	JobStateFailed    JobState = "failed"
	JobStateCancelled JobState = "cancelled"
)

var validJobStates = []JobState{
	JobStateQueued,
	JobStateRunning,
	JobStateSucceeded,
	JobStateFailed,
	JobStateCancelled,
}

// String returns the literal string for the state.
func (s JobState) String() string {
	return string(s)
}

// IsValid reports whether the state is known.
func (s JobState) IsValid() bool {
	for _, candidate := range validJobStates {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsActive reports whether the job still blocks admission of another job.
func (s JobState) IsActive() bool {
	return s == JobStateQueued || s == JobStateRunning
}

// IsTerminal reports whether the job reached a final state.
func (s JobState) IsTerminal() bool {
	switch s {
	case JobStateSucceeded, JobStateFailed, JobStateCancelled:
		return true
	default:
		return false
	}
}

// ParseJobState converts raw input into a JobState.
func ParseJobState(value string) (JobState, error) {
	for _, candidate := range validJobStates {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid job state %q", value)
}
