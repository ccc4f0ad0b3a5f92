package enums

import "fmt"

// CustodyAction names the state-changing action a custody entry records.
type CustodyAction string

const (
	CustodyActionIngested   CustodyAction = "ingested"
	CustodyActionViewed     CustodyAction = "viewed"
	CustodyActionDownloaded CustodyAction = "downloaded"
	CustodyActionAnnotated  CustodyAction = "annotated"
	CustodyActionRedacted   CustodyAction = "redacted"
	CustodyActionShared     CustodyAction = "shared"
	CustodyActionTagUpdated CustodyAction = "tag_updated"
	CustodyActionRelinked   CustodyAction = "relinked"
	CustodyActionRetired    CustodyAction = "retired"
)

var validCustodyActions = []CustodyAction{
	CustodyActionIngested,
	CustodyActionViewed,
	CustodyActionDownloaded,
	CustodyActionAnnotated,
	CustodyActionRedacted,
	CustodyActionShared,
	CustodyActionTagUpdated,
	CustodyActionRelinked,
	CustodyActionRetired,
}

// String returns the literal string for the action.
func (a CustodyAction) String() string {
	return string(a)
}

// IsValid reports whether the action is known.
func (a CustodyAction) IsValid() bool {
	for _, candidate := range validCustodyActions {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseCustodyAction converts raw input into a CustodyAction.
func ParseCustodyAction(value string) (CustodyAction, error) {
	for _, candidate := range validCustodyActions {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid custody action %q", value)
}
