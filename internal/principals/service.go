package principals

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/casesync/casesync-backend/pkg/auth"
	"github.com/casesync/casesync-backend/pkg/config"
	"github.com/casesync/casesync-backend/pkg/db/models"
	apperrors "github.com/casesync/casesync-backend/pkg/errors"
	"github.com/casesync/casesync-backend/pkg/security"
)

// TokenGrant is the response of a successful API key exchange.
type TokenGrant struct {
	AccessToken string
	ExpiresAt   time.Time
	Principal   *models.Principal
}

// Service authenticates service principals and mints access tokens.
type Service interface {
	Authenticate(ctx context.Context, principalID uuid.UUID, apiKey string) (*TokenGrant, error)
}

type service struct {
	repo Repository
	jwt  config.JWTConfig
	now  func() time.Time
}

// NewService wires the principal service.
func NewService(repo Repository, jwt config.JWTConfig) (Service, error) {
	if repo == nil {
		return nil, apperrors.New(apperrors.CodeInternal, "principal repository required")
	}
	return &service{repo: repo, jwt: jwt, now: time.Now}, nil
}

// Authenticate exchanges a principal id and API key for a bearer token.
// Unknown ids, inactive principals, and bad keys all return the same
// UNAUTHORIZED error.
func (s *service) Authenticate(ctx context.Context, principalID uuid.UUID, apiKey string) (*TokenGrant, error) {
	if principalID == uuid.Nil || apiKey == "" {
		return nil, apperrors.New(apperrors.CodeValidation, "principal id and api key are required")
	}

	principal, err := s.repo.GetByID(ctx, principalID)
	if err != nil {
		return nil, err
	}
	if principal == nil || !principal.IsActive {
		return nil, apperrors.New(apperrors.CodeUnauthorized, "invalid credentials")
	}

	ok, err := security.VerifyAPIKey(apiKey, principal.APIKeyHash)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "verifying api key")
	}
	if !ok {
		return nil, apperrors.New(apperrors.CodeUnauthorized, "invalid credentials")
	}

	now := s.now().UTC()
	token, err := auth.MintAccessToken(s.jwt, now, auth.AccessTokenPayload{
		PrincipalID: principal.ID,
		Name:        principal.Name,
		Role:        principal.Role,
	})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "minting access token")
	}

	return &TokenGrant{
		AccessToken: token,
		ExpiresAt:   now.Add(time.Duration(s.jwt.ExpirationMinutes) * time.Minute),
		Principal:   principal,
	}, nil
}
