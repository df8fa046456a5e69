package models

import (
	"time"

	"github.com/google/uuid"
)

// InventoryItem tracks stock for exactly one product.
type InventoryItem struct {
	ID                uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	ProductID         uuid.UUID  `gorm:"column:product_id;type:uuid;not null;uniqueIndex"`
	Quantity          int        `gorm:"column:quantity;not null;default:0"`
	LowStockThreshold int        `gorm:"column:low_stock_threshold;not null;default:10"`
	ExpiryDate        *time.Time `gorm:"column:expiry_date"`
	CreatedAt         time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
