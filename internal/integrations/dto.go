package integrations

import (
	"time"

	"github.com/google/uuid"

	"github.com/shoplink/bva-backend/pkg/db/models"
	"github.com/shoplink/bva-backend/pkg/enums"
)

// SettingsDTO is the wire shape of the typed settings document.
type SettingsDTO struct {
	TermsAccepted bool       `json:"termsAccepted"`
	IsActive      *bool      `json:"isActive,omitempty"`
	ShopName      string     `json:"shopName,omitempty"`
	LastTestedAt  *time.Time `json:"lastTestedAt,omitempty"`
	LastSyncedAt  *time.Time `json:"lastSyncedAt,omitempty"`
}

// IntegrationDTO exposes one (shop, platform) link.
type IntegrationDTO struct {
	ID        uuid.UUID      `json:"id"`
	ShopID    uuid.UUID      `json:"shop_id"`
	Platform  enums.Platform `json:"platform"`
	Settings  SettingsDTO    `json:"settings"`
	Active    bool           `json:"active"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// CreateIntegrationRequest is the payload for POST /api/integrations.
type CreateIntegrationRequest struct {
	ShopID        uuid.UUID      `json:"shop_id" validate:"required"`
	Platform      enums.Platform `json:"platform" validate:"required"`
	TermsAccepted bool           `json:"termsAccepted"`
	IsActive      *bool          `json:"isActive,omitempty"`
	ShopName      string         `json:"shopName,omitempty"`
}

// UpdateIntegrationRequest merges the provided fields into stored settings.
type UpdateIntegrationRequest struct {
	TermsAccepted *bool   `json:"termsAccepted,omitempty"`
	IsActive      *bool   `json:"isActive,omitempty"`
	ShopName      *string `json:"shopName,omitempty"`
}

// FromModel maps the persisted integration into a DTO.
func FromModel(m *models.Integration) *IntegrationDTO {
	if m == nil {
		return nil
	}
	return &IntegrationDTO{
		ID:       m.ID,
		ShopID:   m.ShopID,
		Platform: m.Platform,
		Settings: SettingsDTO{
			TermsAccepted: m.Settings.TermsAccepted,
			IsActive:      m.Settings.IsActive,
			ShopName:      m.Settings.ShopName,
			LastTestedAt:  m.Settings.LastTestedAt,
			LastSyncedAt:  m.Settings.LastSyncedAt,
		},
		Active:    m.Active(),
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}
