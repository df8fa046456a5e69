package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/shoplink/bva-backend/pkg/enums"
)

// IntegrationSettings is the typed settings document stored per integration.
// TermsAccepted must be exactly true for the link to count; IsActive defaults
// to active unless explicitly false, so it is a pointer.
type IntegrationSettings struct {
	TermsAccepted bool       `json:"termsAccepted"`
	IsActive      *bool      `json:"isActive,omitempty"`
	ShopName      string     `json:"shopName,omitempty"`
	AccessToken   string     `json:"accessToken,omitempty"`
	LastTestedAt  *time.Time `json:"lastTestedAt,omitempty"`
	LastSyncedAt  *time.Time `json:"lastSyncedAt,omitempty"`
}

// Value implements driver.Valuer so the settings persist as jsonb.
func (s IntegrationSettings) Value() (driver.Value, error) {
	return json.Marshal(s)
}

// Scan implements sql.Scanner.
func (s *IntegrationSettings) Scan(value any) error {
	if value == nil {
		*s = IntegrationSettings{}
		return nil
	}
	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported settings type %T", value)
	}
	return json.Unmarshal(raw, s)
}

// Integration pairs a shop with an external platform and gates whether that
// shop's aggregated data is exposed on the dashboard.
type Integration struct {
	ID        uuid.UUID           `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	ShopID    uuid.UUID           `gorm:"column:shop_id;type:uuid;not null;uniqueIndex:idx_integrations_shop_platform"`
	Platform  enums.Platform      `gorm:"column:platform;type:text;not null;uniqueIndex:idx_integrations_shop_platform"`
	Settings  IntegrationSettings `gorm:"column:settings;type:jsonb;not null"`
	CreatedAt time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

// Active reports whether the integration gates data through: termsAccepted
// must be exactly true, isActive counts as true unless explicitly false.
func (i Integration) Active() bool {
	if !i.Settings.TermsAccepted {
		return false
	}
	return i.Settings.IsActive == nil || *i.Settings.IsActive
}
