package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/shoplink/bva-backend/pkg/enums"
)

// Sale records a completed order synced from a storefront. Platform is the
// system the sale actually happened on, which may differ from the shop's tag
// when the shop sells through multiple channels.
type Sale struct {
	ID         uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	ShopID     uuid.UUID       `gorm:"column:shop_id;type:uuid;not null;index"`
	Platform   enums.Platform  `gorm:"column:platform;type:text;not null"`
	Total      decimal.Decimal `gorm:"column:total;type:numeric(12,2);not null"`
	OccurredAt time.Time       `gorm:"column:occurred_at;not null;index"`
	Items      []SaleItem      `gorm:"foreignKey:SaleID;constraint:OnDelete:CASCADE"`
	CreatedAt  time.Time       `gorm:"column:created_at;autoCreateTime"`
}

// SaleItem is a line item joining a sale to a product.
type SaleItem struct {
	ID        uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	SaleID    uuid.UUID       `gorm:"column:sale_id;type:uuid;not null;index"`
	ProductID uuid.UUID       `gorm:"column:product_id;type:uuid;not null;index"`
	Quantity  int             `gorm:"column:quantity;not null"`
	UnitPrice decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2);not null"`
}
