package ads

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/shoplink/bva-backend/pkg/db/models"
	pkgerrors "github.com/shoplink/bva-backend/pkg/errors"
	"github.com/shoplink/bva-backend/pkg/logger"
	"github.com/shoplink/bva-backend/pkg/mlservice"
)

// GenerateRequest asks for ad content for one of the caller's products.
type GenerateRequest struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Playbook  string    `json:"playbook" validate:"required"`
	Discount  *string   `json:"discount,omitempty"`
	ImageURL  string    `json:"image_url,omitempty" validate:"omitempty,url"`
}

// Service forwards ad generation to the content service.
type Service interface {
	Generate(ctx context.Context, userID uuid.UUID, req GenerateRequest) (*mlservice.AdContent, error)
}

type productFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

type accessChecker interface {
	UserHasAccess(ctx context.Context, userID, shopID uuid.UUID) (bool, error)
}

type adClient interface {
	GenerateAd(ctx context.Context, req mlservice.AdRequest) (*mlservice.AdResponse, error)
}

type service struct {
	products productFinder
	access   accessChecker
	ml       adClient
	logg     *logger.Logger
}

// ServiceParams bundles the dependencies for the ads service.
type ServiceParams struct {
	ProductRepo productFinder
	AccessRepo  accessChecker
	ML          adClient
	Logger      *logger.Logger
}

// NewService constructs the ads service.
func NewService(params ServiceParams) (Service, error) {
	if params.ProductRepo == nil {
		return nil, fmt.Errorf("product repository is required")
	}
	if params.AccessRepo == nil {
		return nil, fmt.Errorf("access repository is required")
	}
	if params.ML == nil {
		return nil, fmt.Errorf("ad client is required")
	}
	return &service{
		products: params.ProductRepo,
		access:   params.AccessRepo,
		ml:       params.ML,
		logg:     params.Logger,
	}, nil
}

func (s *service) Generate(ctx context.Context, userID uuid.UUID, req GenerateRequest) (*mlservice.AdContent, error) {
	if strings.TrimSpace(req.Playbook) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "playbook is required")
	}

	product, err := s.products.FindByID(ctx, req.ProductID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load product")
	}

	ok, err := s.access.UserHasAccess(ctx, userID, product.ShopID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check shop access")
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "shop access denied")
	}

	resp, err := s.ml.GenerateAd(ctx, mlservice.AdRequest{
		ProductName:     product.Name,
		Playbook:        req.Playbook,
		Discount:        req.Discount,
		ProductImageURL: req.ImageURL,
	})
	if err != nil {
		return nil, err
	}
	return &resp.Data, nil
}
