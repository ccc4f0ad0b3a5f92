package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/casesync/casesync-backend/pkg/enums"
)

// Principal is a service identity allowed to call the API.
type Principal struct {
	ID         uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name       string              `gorm:"column:name;type:text;not null;uniqueIndex"`
	Role       enums.PrincipalRole `gorm:"column:role;type:principal_role_enum;not null"`
	APIKeyHash string              `gorm:"column:api_key_hash;type:text;not null"`
	IsActive   bool                `gorm:"column:is_active;not null;default:true"`
	CreatedAt  time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
