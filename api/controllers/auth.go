package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/casesync/casesync-backend/api/responses"
	"github.com/casesync/casesync-backend/api/validators"
	"github.com/casesync/casesync-backend/internal/principals"
	"github.com/casesync/casesync-backend/pkg/enums"
	pkgerrors "github.com/casesync/casesync-backend/pkg/errors"
	"github.com/casesync/casesync-backend/pkg/logger"
)

type tokenRequest struct {
	PrincipalID string `json:"principal_id" validate:"required"`
	APIKey      string `json:"api_key" validate:"required"`
}

type tokenResponse struct {
	AccessToken string              `json:"access_token"`
	TokenType   string              `json:"token_type"`
	ExpiresAt   time.Time           `json:"expires_at"`
	PrincipalID uuid.UUID           `json:"principal_id"`
	Name        string              `json:"name"`
	Role        enums.PrincipalRole `json:"role"`
}

// AuthToken exchanges a principal id and API key for a bearer token.
func AuthToken(svc principals.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "principal service unavailable"))
			return
		}

		var payload tokenRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		principalID, err := uuid.Parse(strings.TrimSpace(payload.PrincipalID))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid principal_id"))
			return
		}

		grant, err := svc.Authenticate(r.Context(), principalID, payload.APIKey)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, tokenResponse{
			AccessToken: grant.AccessToken,
			TokenType:   "Bearer",
			ExpiresAt:   grant.ExpiresAt,
			PrincipalID: grant.Principal.ID,
			Name:        grant.Principal.Name,
			Role:        grant.Principal.Role,
		})
	}
}
