package mlservice

import "time"

// InventoryRecord is one inventory row shipped to the risk scorer.
type InventoryRecord struct {
	ProductID         string     `json:"product_id"`
	Name              string     `json:"name"`
	Category          string     `json:"category,omitempty"`
	Quantity          int        `json:"quantity"`
	LowStockThreshold int        `json:"low_stock_threshold"`
	ExpiryDate        *time.Time `json:"expiry_date,omitempty"`
	Price             float64    `json:"price"`
	Cost              float64    `json:"cost"`
}

// SaleRecord is one aggregated sale row shipped to the analytics endpoints.
type SaleRecord struct {
	ProductID  string    `json:"product_id"`
	Quantity   int       `json:"quantity"`
	UnitPrice  float64   `json:"unit_price"`
	OccurredAt time.Time `json:"occurred_at"`
}

// RiskThresholds tunes the at-risk detector.
type RiskThresholds struct {
	LowStockDays   int `json:"low_stock_days,omitempty"`
	NearExpiryDays int `json:"near_expiry_days,omitempty"`
	SlowMovingDays int `json:"slow_moving_days,omitempty"`
}

// AtRiskRequest asks the service to flag inventory needing attention.
type AtRiskRequest struct {
	ShopID     string            `json:"shop_id"`
	Inventory  []InventoryRecord `json:"inventory"`
	Sales      []SaleRecord      `json:"sales,omitempty"`
	Thresholds *RiskThresholds   `json:"thresholds,omitempty"`
}

// AtRiskItem is one flagged product with its recommendation.
type AtRiskItem struct {
	ProductID      string  `json:"product_id"`
	Name           string  `json:"name"`
	RiskType       string  `json:"risk_type"`
	RiskScore      float64 `json:"risk_score"`
	Recommendation string  `json:"recommendation"`
}

// AtRiskResponse is the prioritized list returned by the detector.
type AtRiskResponse struct {
	AtRisk []AtRiskItem   `json:"at_risk"`
	Meta   map[string]any `json:"meta,omitempty"`
}

// InsightsRequest asks for dashboard analytics over a sales window.
type InsightsRequest struct {
	ShopID      string       `json:"shop_id"`
	Sales       []SaleRecord `json:"sales"`
	Range       DateRange    `json:"range"`
	Granularity string       `json:"granularity,omitempty"`
	TopK        int          `json:"top_k,omitempty"`
}

// DateRange bounds an analytics query.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// TimeSeriesPoint is one bucket of the revenue series.
type TimeSeriesPoint struct {
	Period  string  `json:"period"`
	Revenue float64 `json:"revenue"`
	Units   int     `json:"units"`
}

// TopProduct summarizes one best selling product.
type TopProduct struct {
	ProductID string  `json:"product_id"`
	Name      string  `json:"name,omitempty"`
	Revenue   float64 `json:"revenue"`
	Units     int     `json:"units"`
}

// InsightsResponse carries dashboard analytics.
type InsightsResponse struct {
	Series          []TimeSeriesPoint `json:"series"`
	TopProducts     []TopProduct      `json:"top_products"`
	Trends          map[string]any    `json:"trends,omitempty"`
	Recommendations []string          `json:"recommendations,omitempty"`
	Meta            map[string]any    `json:"meta,omitempty"`
}

// RestockProduct is one candidate for the restock optimizer.
type RestockProduct struct {
	ProductID     string  `json:"product_id"`
	Name          string  `json:"name"`
	Price         float64 `json:"price"`
	Cost          float64 `json:"cost"`
	Stock         int     `json:"stock"`
	Category      string  `json:"category,omitempty"`
	AvgDailySales float64 `json:"avg_daily_sales"`
	ProfitMargin  float64 `json:"profit_margin"`
}

// RestockRequest asks for an optimal restocking plan under a budget.
type RestockRequest struct {
	ShopID      string           `json:"shop_id"`
	Budget      float64          `json:"budget"`
	Goal        string           `json:"goal"`
	Products    []RestockProduct `json:"products"`
	RestockDays int              `json:"restock_days,omitempty"`
}

// RestockItem is one recommended purchase.
type RestockItem struct {
	ProductID       string  `json:"product_id"`
	Name            string  `json:"name"`
	Qty             int     `json:"qty"`
	UnitCost        float64 `json:"unit_cost"`
	TotalCost       float64 `json:"total_cost"`
	ExpectedProfit  float64 `json:"expected_profit"`
	ExpectedRevenue float64 `json:"expected_revenue"`
	DaysOfStock     float64 `json:"days_of_stock"`
	PriorityScore   float64 `json:"priority_score"`
	Reasoning       string  `json:"reasoning"`
}

// RestockTotals aggregates the plan.
type RestockTotals struct {
	TotalItems      int     `json:"total_items"`
	TotalQty        int     `json:"total_qty"`
	TotalCost       float64 `json:"total_cost"`
	BudgetUsedPct   float64 `json:"budget_used_pct"`
	ExpectedRevenue float64 `json:"expected_revenue"`
	ExpectedProfit  float64 `json:"expected_profit"`
	ExpectedROI     float64 `json:"expected_roi"`
	AvgDaysOfStock  float64 `json:"avg_days_of_stock"`
}

// RestockResponse is the computed restocking plan.
type RestockResponse struct {
	Strategy  string        `json:"strategy"`
	ShopID    string        `json:"shop_id"`
	Budget    float64       `json:"budget"`
	Items     []RestockItem `json:"items"`
	Totals    RestockTotals `json:"totals"`
	Reasoning []string      `json:"reasoning,omitempty"`
}

// AdRequest asks for playbook-driven ad content for a product.
type AdRequest struct {
	ProductName     string  `json:"product_name"`
	Playbook        string  `json:"playbook"`
	Discount        *string `json:"discount,omitempty"`
	ProductImageURL string  `json:"product_image_url,omitempty"`
}

// AdContent is the generated copy plus optional image.
type AdContent struct {
	AdCopy   string   `json:"ad_copy"`
	Hashtags []string `json:"hashtags"`
	ImageURL string   `json:"image_url,omitempty"`
	Warning  string   `json:"warning,omitempty"`
}

// AdResponse wraps the generated ad the way the service returns it.
type AdResponse struct {
	Success bool      `json:"success"`
	Data    AdContent `json:"data"`
}
