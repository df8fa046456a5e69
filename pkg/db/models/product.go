package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product is a shop listing. ExternalID carries the identifier assigned by
// the source storefront system and is nil for locally created products.
type Product struct {
	ID         uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	ShopID     uuid.UUID       `gorm:"column:shop_id;type:uuid;not null;index"`
	Name       string          `gorm:"column:name;not null"`
	SKU        string          `gorm:"column:sku;not null"`
	ExternalID *string         `gorm:"column:external_id;index"`
	Category   *string         `gorm:"column:category"`
	Price      decimal.Decimal `gorm:"column:price;type:numeric(12,2);not null"`
	Cost       decimal.Decimal `gorm:"column:cost;type:numeric(12,2);not null"`
	Inventory  *InventoryItem  `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	CreatedAt  time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
