package smartshelf

import (
	"github.com/google/uuid"

	"github.com/shoplink/bva-backend/pkg/enums"
	"github.com/shoplink/bva-backend/pkg/mlservice"
)

// DashboardMetrics is the headline numbers for one shop. The zero value is
// the placeholder shown for shops without an active integration.
type DashboardMetrics struct {
	TotalRevenue float64 `json:"total_revenue"`
	TotalUnits   int     `json:"total_units"`
	ProductCount int     `json:"product_count"`
}

// ShopDashboard is one shop's slice of the aggregated dashboard. Inactive
// shops keep the full shape with zeroed metrics and empty arrays so the
// frontend never needs null checks.
type ShopDashboard struct {
	ShopID          uuid.UUID                   `json:"shop_id"`
	ShopName        string                      `json:"shop_name"`
	Platform        enums.Platform              `json:"platform"`
	Active          bool                        `json:"active"`
	Metrics         DashboardMetrics            `json:"metrics"`
	RevenueSeries   []mlservice.TimeSeriesPoint `json:"revenue_series"`
	TopProducts     []mlservice.TopProduct      `json:"top_products"`
	Recommendations []string                    `json:"recommendations"`
}

// DashboardResponse aggregates every readable shop.
type DashboardResponse struct {
	Shops []ShopDashboard `json:"shops"`
}

// ShopAtRisk is one shop's flagged inventory.
type ShopAtRisk struct {
	ShopID   uuid.UUID              `json:"shop_id"`
	ShopName string                 `json:"shop_name"`
	Platform enums.Platform         `json:"platform"`
	Active   bool                   `json:"active"`
	Items    []mlservice.AtRiskItem `json:"items"`
}

// AtRiskResponse aggregates at-risk items across readable shops.
type AtRiskResponse struct {
	Shops []ShopAtRisk `json:"shops"`
}

// RestockInput is the payload for the restock strategy endpoint.
type RestockInput struct {
	ShopID      uuid.UUID `json:"shop_id" validate:"required"`
	Budget      float64   `json:"budget" validate:"required,gt=0"`
	Goal        string    `json:"goal" validate:"required,oneof=profit revenue balanced"`
	RestockDays int       `json:"restock_days,omitempty" validate:"omitempty,min=1"`
}
