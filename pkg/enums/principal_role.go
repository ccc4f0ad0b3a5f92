package enums

import "fmt"

// PrincipalRole scopes what a service principal may do.
type PrincipalRole string

const (
	PrincipalRoleInvestigator PrincipalRole = "investigator"
	PrincipalRoleSupervisor   PrincipalRole = "supervisor"
	PrincipalRoleEngine       PrincipalRole = "engine"
	PrincipalRoleAuditor      PrincipalRole = "auditor"
)

var validPrincipalRoles = []PrincipalRole{
	PrincipalRoleInvestigator,
	PrincipalRoleSupervisor,
	PrincipalRoleEngine,
	PrincipalRoleAuditor,
}

// String returns the literal string for the role.
func (r PrincipalRole) String() string {
	return string(r)
}

// IsValid reports whether the role is known.
func (r PrincipalRole) IsValid() bool {
	for _, candidate := range validPrincipalRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// CanCompleteJobs reports whether the role may deliver engine completion callbacks.
func (r PrincipalRole) CanCompleteJobs() bool {
	return r == PrincipalRoleEngine || r == PrincipalRoleSupervisor
}

// ParsePrincipalRole converts raw input into a PrincipalRole.
func ParsePrincipalRole(value string) (PrincipalRole, error) {
	for _, candidate := range validPrincipalRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid principal role %q", value)
}
