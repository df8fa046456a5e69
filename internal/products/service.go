package products

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/shoplink/bva-backend/pkg/db/models"
	"github.com/shoplink/bva-backend/pkg/enums"
	pkgerrors "github.com/shoplink/bva-backend/pkg/errors"
	"github.com/shoplink/bva-backend/pkg/logger"
)

// Service exposes product management plus the cross-shop aggregated view.
type Service interface {
	ListForUser(ctx context.Context, userID uuid.UUID) ([]ProductDTO, error)
	ListByShop(ctx context.Context, userID, shopID uuid.UUID) ([]ProductDTO, error)
	Create(ctx context.Context, userID uuid.UUID, req CreateProductRequest) (*ProductDTO, error)
	Update(ctx context.Context, userID, productID uuid.UUID, req UpdateProductRequest) (*ProductDTO, error)
	Delete(ctx context.Context, userID, productID uuid.UUID) error
}

type productRepository interface {
	Create(ctx context.Context, product *models.Product) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	ListByShop(ctx context.Context, shopID uuid.UUID) ([]models.Product, error)
	ListByShopIDs(ctx context.Context, shopIDs []uuid.UUID) ([]models.Product, error)
	Save(ctx context.Context, product *models.Product) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type accessChecker interface {
	UserHasAccess(ctx context.Context, userID, shopID uuid.UUID) (bool, error)
	ReadableShopIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
}

type shopFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Shop, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Shop, error)
}

// SalePlatformSource reports, per product, the platform of a sale line item
// referencing it. Products with no recorded sales are absent from the map.
type SalePlatformSource interface {
	PlatformsByProductIDs(ctx context.Context, productIDs []uuid.UUID) (map[uuid.UUID]enums.Platform, error)
}

type service struct {
	repo   productRepository
	access accessChecker
	shops  shopFinder
	sales  SalePlatformSource
	logg   *logger.Logger
}

// ServiceParams bundles the dependencies for the products service.
type ServiceParams struct {
	Repo       productRepository
	AccessRepo accessChecker
	ShopRepo   shopFinder
	Sales      SalePlatformSource
	Logger     *logger.Logger
}

// NewService constructs the products service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("product repository is required")
	}
	if params.AccessRepo == nil {
		return nil, fmt.Errorf("access repository is required")
	}
	if params.ShopRepo == nil {
		return nil, fmt.Errorf("shop repository is required")
	}
	return &service{
		repo:   params.Repo,
		access: params.AccessRepo,
		shops:  params.ShopRepo,
		sales:  params.Sales,
		logg:   params.Logger,
	}, nil
}

// ListForUser returns the union of products across every shop the user can
// read, deduplicated by id and annotated with the inferred platform.
func (s *service) ListForUser(ctx context.Context, userID uuid.UUID) ([]ProductDTO, error) {
	shopIDs, err := s.access.ReadableShopIDs(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list readable shops")
	}
	rows, err := s.repo.ListByShopIDs(ctx, shopIDs)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list products")
	}
	return s.annotate(ctx, rows)
}

func (s *service) ListByShop(ctx context.Context, userID, shopID uuid.UUID) ([]ProductDTO, error) {
	if err := s.requireAccess(ctx, userID, shopID); err != nil {
		return nil, err
	}
	rows, err := s.repo.ListByShop(ctx, shopID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list products")
	}
	return s.annotate(ctx, rows)
}

func (s *service) Create(ctx context.Context, userID uuid.UUID, req CreateProductRequest) (*ProductDTO, error) {
	if err := s.requireAccess(ctx, userID, req.ShopID); err != nil {
		return nil, err
	}

	product := &models.Product{
		ShopID:     req.ShopID,
		Name:       req.Name,
		SKU:        req.SKU,
		ExternalID: req.ExternalID,
		Category:   req.Category,
		Price:      req.Price,
		Cost:       req.Cost,
		Inventory: &models.InventoryItem{
			Quantity:          req.Quantity,
			LowStockThreshold: req.LowStockThreshold,
			ExpiryDate:        req.ExpiryDate,
		},
	}
	if req.LowStockThreshold == 0 {
		product.Inventory.LowStockThreshold = 10
	}
	if err := s.repo.Create(ctx, product); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create product")
	}
	return s.annotateOne(ctx, product)
}

func (s *service) Update(ctx context.Context, userID, productID uuid.UUID, req UpdateProductRequest) (*ProductDTO, error) {
	product, err := s.load(ctx, userID, productID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		product.Name = *req.Name
	}
	if req.Category != nil {
		product.Category = req.Category
	}
	if req.Price != nil {
		product.Price = *req.Price
	}
	if req.Cost != nil {
		product.Cost = *req.Cost
	}
	if product.Inventory == nil {
		product.Inventory = &models.InventoryItem{ProductID: product.ID}
	}
	if req.Quantity != nil {
		product.Inventory.Quantity = *req.Quantity
	}
	if req.LowStockThreshold != nil {
		product.Inventory.LowStockThreshold = *req.LowStockThreshold
	}
	if req.ExpiryDate != nil {
		product.Inventory.ExpiryDate = req.ExpiryDate
	}

	if err := s.repo.Save(ctx, product); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update product")
	}
	return s.annotateOne(ctx, product)
}

func (s *service) Delete(ctx context.Context, userID, productID uuid.UUID) error {
	if _, err := s.load(ctx, userID, productID); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, productID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete product")
	}
	return nil
}

func (s *service) load(ctx context.Context, userID, productID uuid.UUID) (*models.Product, error) {
	product, err := s.repo.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load product")
	}
	if err := s.requireAccess(ctx, userID, product.ShopID); err != nil {
		return nil, err
	}
	return product, nil
}

func (s *service) requireAccess(ctx context.Context, userID, shopID uuid.UUID) error {
	ok, err := s.access.UserHasAccess(ctx, userID, shopID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check shop access")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeForbidden, "shop access denied")
	}
	return nil
}

// annotate maps rows to DTOs, resolving each product's platform and
// dropping duplicate ids.
func (s *service) annotate(ctx context.Context, rows []models.Product) ([]ProductDTO, error) {
	if len(rows) == 0 {
		return []ProductDTO{}, nil
	}

	shopIDSet := map[uuid.UUID]struct{}{}
	productIDs := make([]uuid.UUID, 0, len(rows))
	for i := range rows {
		shopIDSet[rows[i].ShopID] = struct{}{}
		productIDs = append(productIDs, rows[i].ID)
	}
	shopIDs := make([]uuid.UUID, 0, len(shopIDSet))
	for id := range shopIDSet {
		shopIDs = append(shopIDs, id)
	}

	shops, err := s.shops.FindByIDs(ctx, shopIDs)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load shops")
	}
	shopPlatforms := make(map[uuid.UUID]enums.Platform, len(shops))
	for i := range shops {
		shopPlatforms[shops[i].ID] = shops[i].Platform
	}

	salePlatforms := map[uuid.UUID]enums.Platform{}
	if s.sales != nil {
		salePlatforms, err = s.sales.PlatformsByProductIDs(ctx, productIDs)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load sale platforms")
		}
	}

	seen := make(map[uuid.UUID]struct{}, len(rows))
	result := make([]ProductDTO, 0, len(rows))
	for i := range rows {
		row := &rows[i]
		if _, dup := seen[row.ID]; dup {
			continue
		}
		seen[row.ID] = struct{}{}

		var salePlatform *enums.Platform
		if p, ok := salePlatforms[row.ID]; ok {
			salePlatform = &p
		}
		platform := InferPlatform(salePlatform, row.ExternalID, shopPlatforms[row.ShopID])
		result = append(result, *FromModel(row, platform))
	}
	return result, nil
}

func (s *service) annotateOne(ctx context.Context, product *models.Product) (*ProductDTO, error) {
	dtos, err := s.annotate(ctx, []models.Product{*product})
	if err != nil {
		return nil, err
	}
	return &dtos[0], nil
}
