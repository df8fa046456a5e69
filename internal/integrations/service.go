package integrations

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/shoplink/bva-backend/pkg/db"
	"github.com/shoplink/bva-backend/pkg/db/models"
	"github.com/shoplink/bva-backend/pkg/enums"
	pkgerrors "github.com/shoplink/bva-backend/pkg/errors"
	"github.com/shoplink/bva-backend/pkg/logger"
)

// Service defines the integration operations used by controllers.
type Service interface {
	List(ctx context.Context, userID uuid.UUID) ([]IntegrationDTO, error)
	Create(ctx context.Context, userID uuid.UUID, req CreateIntegrationRequest) (*IntegrationDTO, error)
	Get(ctx context.Context, userID, id uuid.UUID) (*IntegrationDTO, error)
	Update(ctx context.Context, userID, id uuid.UUID, req UpdateIntegrationRequest) (*IntegrationDTO, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
	TestConnection(ctx context.Context, userID, id uuid.UUID) (*IntegrationDTO, error)
	Sync(ctx context.Context, userID, id uuid.UUID) (*SyncResult, error)
	HasActiveIntegration(ctx context.Context, shopID uuid.UUID, platform enums.Platform) (bool, error)
}

// SyncResult reports one best-effort product refresh.
type SyncResult struct {
	Integration *IntegrationDTO `json:"integration"`
	Synced      int             `json:"synced"`
}

type repository interface {
	Create(ctx context.Context, integration *models.Integration) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Integration, error)
	FindByShopAndPlatform(ctx context.Context, shopID uuid.UUID, platform enums.Platform) (*models.Integration, error)
	ListByShopIDs(ctx context.Context, shopIDs []uuid.UUID) ([]models.Integration, error)
	Update(ctx context.Context, integration *models.Integration) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type accessChecker interface {
	UserHasAccess(ctx context.Context, userID, shopID uuid.UUID) (bool, error)
	ReadableShopIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
}

// ConnectionTester probes the provider side of an integration.
type ConnectionTester interface {
	TestConnection(ctx context.Context, shopID uuid.UUID, platform enums.Platform) error
}

// ProductSyncer refreshes product rows from the provider for one shop.
type ProductSyncer interface {
	SyncShopProducts(ctx context.Context, shopID uuid.UUID, platform enums.Platform) (int, error)
}

type service struct {
	repo   repository
	access accessChecker
	tester ConnectionTester
	syncer ProductSyncer
	logg   *logger.Logger
}

// ServiceParams bundles the dependencies for the integrations service.
type ServiceParams struct {
	Repo       repository
	AccessRepo accessChecker
	Tester     ConnectionTester
	Syncer     ProductSyncer
	Logger     *logger.Logger
}

// NewService constructs the integrations service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("integration repository is required")
	}
	if params.AccessRepo == nil {
		return nil, fmt.Errorf("access repository is required")
	}
	return &service{
		repo:   params.Repo,
		access: params.AccessRepo,
		tester: params.Tester,
		syncer: params.Syncer,
		logg:   params.Logger,
	}, nil
}

func (s *service) List(ctx context.Context, userID uuid.UUID) ([]IntegrationDTO, error) {
	shopIDs, err := s.access.ReadableShopIDs(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list readable shops")
	}
	rows, err := s.repo.ListByShopIDs(ctx, shopIDs)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list integrations")
	}
	result := make([]IntegrationDTO, 0, len(rows))
	for i := range rows {
		result = append(result, *FromModel(&rows[i]))
	}
	return result, nil
}

func (s *service) Create(ctx context.Context, userID uuid.UUID, req CreateIntegrationRequest) (*IntegrationDTO, error) {
	if !req.Platform.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown platform")
	}
	if err := s.requireAccess(ctx, userID, req.ShopID); err != nil {
		return nil, err
	}

	integration := &models.Integration{
		ShopID:   req.ShopID,
		Platform: req.Platform,
		Settings: models.IntegrationSettings{
			TermsAccepted: req.TermsAccepted,
			IsActive:      req.IsActive,
			ShopName:      req.ShopName,
		},
	}
	if err := s.repo.Create(ctx, integration); err != nil {
		if db.IsUniqueViolation(err, "idx_integrations_shop_platform") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "integration already exists for this shop and platform")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create integration")
	}
	return FromModel(integration), nil
}

func (s *service) Get(ctx context.Context, userID, id uuid.UUID) (*IntegrationDTO, error) {
	integration, err := s.load(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	return FromModel(integration), nil
}

func (s *service) Update(ctx context.Context, userID, id uuid.UUID, req UpdateIntegrationRequest) (*IntegrationDTO, error) {
	integration, err := s.load(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	if req.TermsAccepted != nil {
		integration.Settings.TermsAccepted = *req.TermsAccepted
	}
	if req.IsActive != nil {
		integration.Settings.IsActive = req.IsActive
	}
	if req.ShopName != nil {
		integration.Settings.ShopName = *req.ShopName
	}

	if err := s.repo.Update(ctx, integration); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update integration")
	}
	return FromModel(integration), nil
}

func (s *service) Delete(ctx context.Context, userID, id uuid.UUID) error {
	if _, err := s.load(ctx, userID, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete integration")
	}
	return nil
}

func (s *service) TestConnection(ctx context.Context, userID, id uuid.UUID) (*IntegrationDTO, error) {
	integration, err := s.load(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if s.tester == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "connection testing is not configured")
	}
	if err := s.tester.TestConnection(ctx, integration.ShopID, integration.Platform); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "provider unreachable")
	}

	now := time.Now().UTC()
	integration.Settings.LastTestedAt = &now
	if err := s.repo.Update(ctx, integration); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "record test result")
	}
	return FromModel(integration), nil
}

// Sync refreshes product rows from the provider. Failures surface in the
// envelope and never abort anything beyond this request.
func (s *service) Sync(ctx context.Context, userID, id uuid.UUID) (*SyncResult, error) {
	integration, err := s.load(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if s.syncer == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "product sync is not configured")
	}

	count, err := s.syncer.SyncShopProducts(ctx, integration.ShopID, integration.Platform)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sync products")
	}

	now := time.Now().UTC()
	integration.Settings.LastSyncedAt = &now
	if err := s.repo.Update(ctx, integration); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "record sync result")
	}

	if s.logg != nil {
		s.logg.Info(s.logg.WithFields(ctx, map[string]any{
			"integration_id": id.String(),
			"synced":         count,
		}), "integrations.sync.complete")
	}
	return &SyncResult{Integration: FromModel(integration), Synced: count}, nil
}

// HasActiveIntegration is the gate predicate: false when no row exists, else
// termsAccepted must be exactly true and isActive counts as true unless
// explicitly false.
func (s *service) HasActiveIntegration(ctx context.Context, shopID uuid.UUID, platform enums.Platform) (bool, error) {
	integration, err := s.repo.FindByShopAndPlatform(ctx, shopID, platform)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load integration")
	}
	return integration.Active(), nil
}

func (s *service) load(ctx context.Context, userID, id uuid.UUID) (*models.Integration, error) {
	integration, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "integration not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load integration")
	}
	if err := s.requireAccess(ctx, userID, integration.ShopID); err != nil {
		return nil, err
	}
	return integration, nil
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
