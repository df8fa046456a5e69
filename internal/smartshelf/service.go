package smartshelf

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/shoplink/bva-backend/pkg/db/models"
	"github.com/shoplink/bva-backend/pkg/enums"
	pkgerrors "github.com/shoplink/bva-backend/pkg/errors"
	"github.com/shoplink/bva-backend/pkg/logger"
	"github.com/shoplink/bva-backend/pkg/mlservice"
)

// salesWindowDays is how far back the analytics payloads reach.
const salesWindowDays = 30

// Service assembles shop data and forwards it to the analytics service.
// All scoring happens on the other side of the wire.
type Service interface {
	Dashboard(ctx context.Context, userID uuid.UUID) (*DashboardResponse, error)
	AtRisk(ctx context.Context, userID uuid.UUID) (*AtRiskResponse, error)
	RestockStrategy(ctx context.Context, userID uuid.UUID, input RestockInput) (*mlservice.RestockResponse, error)
}

type accessChecker interface {
	UserHasAccess(ctx context.Context, userID, shopID uuid.UUID) (bool, error)
	ReadableShopIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
}

type shopFinder interface {
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Shop, error)
}

type integrationGate interface {
	HasActiveIntegration(ctx context.Context, shopID uuid.UUID, platform enums.Platform) (bool, error)
}

type productLister interface {
	ListByShop(ctx context.Context, shopID uuid.UUID) ([]models.Product, error)
}

type saleLister interface {
	ListByShop(ctx context.Context, shopID uuid.UUID, since time.Time) ([]models.Sale, error)
}

type analyticsClient interface {
	AtRisk(ctx context.Context, req mlservice.AtRiskRequest) (*mlservice.AtRiskResponse, error)
	Insights(ctx context.Context, req mlservice.InsightsRequest) (*mlservice.InsightsResponse, error)
	RestockStrategy(ctx context.Context, req mlservice.RestockRequest) (*mlservice.RestockResponse, error)
}

type service struct {
	access   accessChecker
	shops    shopFinder
	gate     integrationGate
	products productLister
	sales    saleLister
	ml       analyticsClient
	logg     *logger.Logger
	now      func() time.Time
}

// ServiceParams bundles the dependencies for the smart-shelf service.
type ServiceParams struct {
	AccessRepo   accessChecker
	ShopRepo     shopFinder
	Integrations integrationGate
	ProductRepo  productLister
	SaleRepo     saleLister
	ML           analyticsClient
	Logger       *logger.Logger

	// Now overrides the clock in tests.
	Now func() time.Time
}

// NewService constructs the smart-shelf service.
func NewService(params ServiceParams) (Service, error) {
	if params.AccessRepo == nil {
		return nil, fmt.Errorf("access repository is required")
	}
	if params.ShopRepo == nil {
		return nil, fmt.Errorf("shop repository is required")
	}
	if params.Integrations == nil {
		return nil, fmt.Errorf("integration gate is required")
	}
	if params.ProductRepo == nil {
		return nil, fmt.Errorf("product repository is required")
	}
	if params.SaleRepo == nil {
		return nil, fmt.Errorf("sale repository is required")
	}
	if params.ML == nil {
		return nil, fmt.Errorf("analytics client is required")
	}
	if params.Now == nil {
		params.Now = time.Now
	}
	return &service{
		access:   params.AccessRepo,
		shops:    params.ShopRepo,
		gate:     params.Integrations,
		products: params.ProductRepo,
		sales:    params.SaleRepo,
		ml:       params.ML,
		logg:     params.Logger,
		now:      params.Now,
	}, nil
}

func (s *service) Dashboard(ctx context.Context, userID uuid.UUID) (*DashboardResponse, error) {
	shops, err := s.readableShops(ctx, userID)
	if err != nil {
		return nil, err
	}

	response := &DashboardResponse{Shops: make([]ShopDashboard, 0, len(shops))}
	for i := range shops {
		shop := &shops[i]
		active, err := s.gate.HasActiveIntegration(ctx, shop.ID, shop.Platform)
		if err != nil {
			return nil, err
		}
		if !active {
			response.Shops = append(response.Shops, placeholderDashboard(shop))
			continue
		}

		board, err := s.shopDashboard(ctx, shop)
		if err != nil {
			return nil, err
		}
		response.Shops = append(response.Shops, *board)
	}
	return response, nil
}

func (s *service) AtRisk(ctx context.Context, userID uuid.UUID) (*AtRiskResponse, error) {
	shops, err := s.readableShops(ctx, userID)
	if err != nil {
		return nil, err
	}

	response := &AtRiskResponse{Shops: make([]ShopAtRisk, 0, len(shops))}
	for i := range shops {
		shop := &shops[i]
		entry := ShopAtRisk{
			ShopID:   shop.ID,
			ShopName: shop.Name,
			Platform: shop.Platform,
			Items:    []mlservice.AtRiskItem{},
		}

		active, err := s.gate.HasActiveIntegration(ctx, shop.ID, shop.Platform)
		if err != nil {
			return nil, err
		}
		if active {
			inventory, sales, err := s.assemblePayload(ctx, shop.ID)
			if err != nil {
				return nil, err
			}
			result, err := s.ml.AtRisk(ctx, mlservice.AtRiskRequest{
				ShopID:    shop.ID.String(),
				Inventory: inventory,
				Sales:     sales,
			})
			if err != nil {
				return nil, err
			}
			entry.Active = true
			if result.AtRisk != nil {
				entry.Items = result.AtRisk
			}
		}

		response.Shops = append(response.Shops, entry)
	}
	return response, nil
}

func (s *service) RestockStrategy(ctx context.Context, userID uuid.UUID, input RestockInput) (*mlservice.RestockResponse, error) {
	ok, err := s.access.UserHasAccess(ctx, userID, input.ShopID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check shop access")
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "shop access denied")
	}

	products, err := s.products.ListByShop(ctx, input.ShopID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list products")
	}
	sales, err := s.sales.ListByShop(ctx, input.ShopID, s.windowStart())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list sales")
	}

	unitsByProduct := map[uuid.UUID]int{}
	for i := range sales {
		for _, item := range sales[i].Items {
			unitsByProduct[item.ProductID] += item.Quantity
		}
	}

	candidates := make([]mlservice.RestockProduct, 0, len(products))
	for i := range products {
		p := &products[i]
		price, _ := p.Price.Float64()
		cost, _ := p.Cost.Float64()
		margin := 0.0
		if price > 0 {
			margin = (price - cost) / price
		}
		stock := 0
		if p.Inventory != nil {
			stock = p.Inventory.Quantity
		}
		category := ""
		if p.Category != nil {
			category = *p.Category
		}
		candidates = append(candidates, mlservice.RestockProduct{
			ProductID:     p.ID.String(),
			Name:          p.Name,
			Price:         price,
			Cost:          cost,
			Stock:         stock,
			Category:      category,
			AvgDailySales: float64(unitsByProduct[p.ID]) / salesWindowDays,
			ProfitMargin:  margin,
		})
	}

	return s.ml.RestockStrategy(ctx, mlservice.RestockRequest{
		ShopID:      input.ShopID.String(),
		Budget:      input.Budget,
		Goal:        input.Goal,
		Products:    candidates,
		RestockDays: input.RestockDays,
	})
}

func (s *service) readableShops(ctx context.Context, userID uuid.UUID) ([]models.Shop, error) {
	shopIDs, err := s.access.ReadableShopIDs(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list readable shops")
	}
	shops, err := s.shops.FindByIDs(ctx, shopIDs)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load shops")
	}
	return shops, nil
}

func (s *service) shopDashboard(ctx context.Context, shop *models.Shop) (*ShopDashboard, error) {
	inventory, saleRecords, err := s.assemblePayload(ctx, shop.ID)
	if err != nil {
		return nil, err
	}

	end := s.now().UTC()
	insights, err := s.ml.Insights(ctx, mlservice.InsightsRequest{
		ShopID: shop.ID.String(),
		Sales:  saleRecords,
		Range: mlservice.DateRange{
			Start: s.windowStart(),
			End:   end,
		},
		Granularity: "daily",
	})
	if err != nil {
		return nil, err
	}

	board := &ShopDashboard{
		ShopID:          shop.ID,
		ShopName:        shop.Name,
		Platform:        shop.Platform,
		Active:          true,
		RevenueSeries:   []mlservice.TimeSeriesPoint{},
		TopProducts:     []mlservice.TopProduct{},
		Recommendations: []string{},
	}
	if insights.Series != nil {
		board.RevenueSeries = insights.Series
	}
	if insights.TopProducts != nil {
		board.TopProducts = insights.TopProducts
	}
	if insights.Recommendations != nil {
		board.Recommendations = insights.Recommendations
	}
	for _, point := range insights.Series {
		board.Metrics.TotalRevenue += point.Revenue
		board.Metrics.TotalUnits += point.Units
	}
	board.Metrics.ProductCount = len(inventory)
	return board, nil
}

// assemblePayload flattens the shop's products and recent sales into the
// wire records the analytics service expects.
func (s *service) assemblePayload(ctx context.Context, shopID uuid.UUID) ([]mlservice.InventoryRecord, []mlservice.SaleRecord, error) {
	products, err := s.products.ListByShop(ctx, shopID)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list products")
	}
	sales, err := s.sales.ListByShop(ctx, shopID, s.windowStart())
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list sales")
	}

	inventory := make([]mlservice.InventoryRecord, 0, len(products))
	for i := range products {
		p := &products[i]
		price, _ := p.Price.Float64()
		cost, _ := p.Cost.Float64()
		record := mlservice.InventoryRecord{
			ProductID: p.ID.String(),
			Name:      p.Name,
			Price:     price,
			Cost:      cost,
		}
		if p.Category != nil {
			record.Category = *p.Category
		}
		if p.Inventory != nil {
			record.Quantity = p.Inventory.Quantity
			record.LowStockThreshold = p.Inventory.LowStockThreshold
			record.ExpiryDate = p.Inventory.ExpiryDate
		}
		inventory = append(inventory, record)
	}

	var saleRecords []mlservice.SaleRecord
	for i := range sales {
		for _, item := range sales[i].Items {
			unitPrice, _ := item.UnitPrice.Float64()
			saleRecords = append(saleRecords, mlservice.SaleRecord{
				ProductID:  item.ProductID.String(),
				Quantity:   item.Quantity,
				UnitPrice:  unitPrice,
				OccurredAt: sales[i].OccurredAt,
			})
		}
	}
	return inventory, saleRecords, nil
}

func (s *service) windowStart() time.Time {
	return s.now().UTC().AddDate(0, 0, -salesWindowDays)
}

func placeholderDashboard(shop *models.Shop) ShopDashboard {
	return ShopDashboard{
		ShopID:          shop.ID,
		ShopName:        shop.Name,
		Platform:        shop.Platform,
		Active:          false,
		Metrics:         DashboardMetrics{},
		RevenueSeries:   []mlservice.TimeSeriesPoint{},
		TopProducts:     []mlservice.TopProduct{},
		Recommendations: []string{},
	}
}
