package shops

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/shoplink/bva-backend/pkg/db/models"
	"github.com/shoplink/bva-backend/pkg/enums"
)

// ShopDTO exposes safe shop data in API responses.
type ShopDTO struct {
	ID         uuid.UUID      `json:"id"`
	Name       string         `json:"name"`
	OwnerID    uuid.UUID      `json:"owner"`
	Platform   enums.Platform `json:"platform"`
	ExternalID *string        `json:"external_id,omitempty"`
	Categories []string       `json:"categories,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// CreateShopDTO holds creation-time data for a new shop.
type CreateShopDTO struct {
	Name       string
	OwnerID    uuid.UUID
	Platform   enums.Platform
	ExternalID *string
	Categories []string
}

// SyncShopInput is one external storefront record pushed through the sync endpoint.
type SyncShopInput struct {
	ExternalID string         `json:"external_id" validate:"required"`
	Name       string         `json:"name" validate:"required"`
	Platform   enums.Platform `json:"platform" validate:"required"`
	Categories []string       `json:"categories,omitempty"`
}

// FromModel maps the persisted shop into a DTO.
func FromModel(m *models.Shop) *ShopDTO {
	if m == nil {
		return nil
	}
	return &ShopDTO{
		ID:         m.ID,
		Name:       m.Name,
		OwnerID:    m.OwnerID,
		Platform:   m.Platform,
		ExternalID: m.ExternalID,
		Categories: append([]string(nil), m.Categories...),
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
	}
}

// ToModel converts creation data into the persistence model.
func (c CreateShopDTO) ToModel() *models.Shop {
	platform := c.Platform
	if !platform.IsValid() {
		platform = enums.PlatformOther
	}
	return &models.Shop{
		Name:       c.Name,
		OwnerID:    c.OwnerID,
		Platform:   platform,
		ExternalID: c.ExternalID,
		Categories: pq.StringArray(c.Categories),
	}
}
