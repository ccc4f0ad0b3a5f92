package auth

import (
	"github.com/casesync/casesync-backend/pkg/enums"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	PrincipalID uuid.UUID
	Name        string
	Role        enums.PrincipalRole
	JTI         string
}

// AccessTokenClaims represents the typed JWT issued to service principals.
// The subject doubles as the actor id recorded in custody entries.
type AccessTokenClaims struct {
	PrincipalID uuid.UUID           `json:"principal_id"`
	Name        string              `json:"name"`
	Role        enums.PrincipalRole `json:"role"`
	jwt.RegisteredClaims
}

// ActorID returns the identity recorded against custody entries.
func (c *AccessTokenClaims) ActorID() string {
	if c == nil {
		return ""
	}
	if c.Subject != "" {
		return c.Subject
	}
	return c.PrincipalID.String()
}
