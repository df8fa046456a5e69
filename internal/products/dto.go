package products

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/shoplink/bva-backend/pkg/db/models"
	"github.com/shoplink/bva-backend/pkg/enums"
)

// ProductDTO is the wire shape of a product, flattened with its inventory
// row and annotated with the inferred source platform.
type ProductDTO struct {
	ID                uuid.UUID       `json:"id"`
	ShopID            uuid.UUID       `json:"shop_id"`
	Name              string          `json:"name"`
	SKU               string          `json:"sku"`
	ExternalID        *string         `json:"external_id,omitempty"`
	Category          *string         `json:"category,omitempty"`
	Price             decimal.Decimal `json:"price"`
	Cost              decimal.Decimal `json:"cost"`
	Quantity          int             `json:"quantity"`
	LowStockThreshold int             `json:"low_stock_threshold"`
	ExpiryDate        *time.Time      `json:"expiry_date,omitempty"`
	Platform          enums.Platform  `json:"platform"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// CreateProductRequest is the payload for POST /api/products.
type CreateProductRequest struct {
	ShopID            uuid.UUID       `json:"shop_id" validate:"required"`
	Name              string          `json:"name" validate:"required,max=255"`
	SKU               string          `json:"sku" validate:"required,max=128"`
	ExternalID        *string         `json:"external_id,omitempty"`
	Category          *string         `json:"category,omitempty"`
	Price             decimal.Decimal `json:"price"`
	Cost              decimal.Decimal `json:"cost"`
	Quantity          int             `json:"quantity" validate:"min=0"`
	LowStockThreshold int             `json:"low_stock_threshold" validate:"min=0"`
	ExpiryDate        *time.Time      `json:"expiry_date,omitempty"`
}

// UpdateProductRequest merges provided fields into an existing product.
type UpdateProductRequest struct {
	Name              *string          `json:"name,omitempty" validate:"omitempty,max=255"`
	Category          *string          `json:"category,omitempty"`
	Price             *decimal.Decimal `json:"price,omitempty"`
	Cost              *decimal.Decimal `json:"cost,omitempty"`
	Quantity          *int             `json:"quantity,omitempty" validate:"omitempty,min=0"`
	LowStockThreshold *int             `json:"low_stock_threshold,omitempty" validate:"omitempty,min=0"`
	ExpiryDate        *time.Time       `json:"expiry_date,omitempty"`
}

// FromModel maps a product row into a DTO with the given platform.
func FromModel(m *models.Product, platform enums.Platform) *ProductDTO {
	if m == nil {
		return nil
	}
	dto := &ProductDTO{
		ID:         m.ID,
		ShopID:     m.ShopID,
		Name:       m.Name,
		SKU:        m.SKU,
		ExternalID: m.ExternalID,
		Category:   m.Category,
		Price:      m.Price,
		Cost:       m.Cost,
		Platform:   platform,
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
	}
	if m.Inventory != nil {
		dto.Quantity = m.Inventory.Quantity
		dto.LowStockThreshold = m.Inventory.LowStockThreshold
		dto.ExpiryDate = m.Inventory.ExpiryDate
	}
	return dto
}
