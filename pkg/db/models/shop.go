package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/shoplink/bva-backend/pkg/enums"
)

// Shop is a seller's storefront on one platform. One shop is created per new
// seller at registration; more arrive via the external sync endpoint.
type Shop struct {
	ID         uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Name       string         `gorm:"column:name;not null"`
	OwnerID    uuid.UUID      `gorm:"column:owner_id;type:uuid;not null;index"`
	Platform   enums.Platform `gorm:"column:platform;type:text;not null;default:'OTHER'"`
	ExternalID *string        `gorm:"column:external_id;uniqueIndex"`
	Categories pq.StringArray `gorm:"column:categories;type:text[]"`
	CreatedAt  time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}
