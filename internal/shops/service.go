package shops

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/shoplink/bva-backend/pkg/db/models"
	pkgerrors "github.com/shoplink/bva-backend/pkg/errors"
	"github.com/shoplink/bva-backend/pkg/logger"
	"github.com/shoplink/bva-backend/pkg/metrics"
)

// Service defines the shop operations used by controllers.
type Service interface {
	GetShop(ctx context.Context, userID, shopID uuid.UUID) (*ShopDTO, error)
	ListOwned(ctx context.Context, userID uuid.UUID) ([]ShopDTO, error)
	UpdateShop(ctx context.Context, userID, shopID uuid.UUID, req UpdateShopRequest) (*ShopDTO, error)
	Sync(ctx context.Context, ownerID uuid.UUID, inputs []SyncShopInput) (*SyncResult, error)
	RevokeAccess(ctx context.Context, ownerID, shopID, userID uuid.UUID) error
}

// UpdateShopRequest carries the owner-editable fields.
type UpdateShopRequest struct {
	Name       *string  `json:"name,omitempty"`
	Categories []string `json:"categories,omitempty"`
}

// SyncResult summarizes an upsert pass over external storefront records.
type SyncResult struct {
	Created int       `json:"created"`
	Updated int       `json:"updated"`
	Failed  int       `json:"failed"`
	Shops   []ShopDTO `json:"shops"`
}

type shopRepository interface {
	Create(ctx context.Context, dto CreateShopDTO) (*models.Shop, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Shop, error)
	FindByExternalID(ctx context.Context, externalID string) (*models.Shop, error)
	FindByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Shop, error)
	Update(ctx context.Context, shop *models.Shop) error
}

type accessRepository interface {
	UserHasAccess(ctx context.Context, userID, shopID uuid.UUID) (bool, error)
	Revoke(ctx context.Context, shopID, userID uuid.UUID) error
}

type service struct {
	shops   shopRepository
	access  accessRepository
	logg    *logger.Logger
	metrics *metrics.SyncJobMetrics
}

// ServiceParams bundles the dependencies for the shops service.
type ServiceParams struct {
	ShopRepo    shopRepository
	AccessRepo  accessRepository
	Logger      *logger.Logger
	SyncMetrics *metrics.SyncJobMetrics
}

// NewService constructs the shops service.
func NewService(params ServiceParams) (Service, error) {
	if params.ShopRepo == nil {
		return nil, fmt.Errorf("shop repository is required")
	}
	if params.AccessRepo == nil {
		return nil, fmt.Errorf("access repository is required")
	}
	return &service{
		shops:   params.ShopRepo,
		access:  params.AccessRepo,
		logg:    params.Logger,
		metrics: params.SyncMetrics,
	}, nil
}

func (s *service) GetShop(ctx context.Context, userID, shopID uuid.UUID) (*ShopDTO, error) {
	ok, err := s.access.UserHasAccess(ctx, userID, shopID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check shop access")
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "shop access denied")
	}

	shop, err := s.shops.FindByID(ctx, shopID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "shop not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load shop")
	}
	return FromModel(shop), nil
}

func (s *service) ListOwned(ctx context.Context, userID uuid.UUID) ([]ShopDTO, error) {
	owned, err := s.shops.FindByOwner(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list shops")
	}
	result := make([]ShopDTO, 0, len(owned))
	for i := range owned {
		result = append(result, *FromModel(&owned[i]))
	}
	return result, nil
}

func (s *service) UpdateShop(ctx context.Context, userID, shopID uuid.UUID, req UpdateShopRequest) (*ShopDTO, error) {
	shop, err := s.shops.FindByID(ctx, shopID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "shop not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load shop")
	}
	if shop.OwnerID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only the owner can update a shop")
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "shop name cannot be empty")
		}
		shop.Name = name
	}
	if req.Categories != nil {
		shop.Categories = append([]string(nil), req.Categories...)
	}

	if err := s.shops.Update(ctx, shop); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update shop")
	}
	return FromModel(shop), nil
}

// Sync upserts external storefront records keyed by external id. Per-record
// failures are collected so one bad record never aborts the batch.
func (s *service) Sync(ctx context.Context, ownerID uuid.UUID, inputs []SyncShopInput) (*SyncResult, error) {
	if len(inputs) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one shop record is required")
	}

	result := &SyncResult{}
	var merged error
	start := time.Now()

	for _, input := range inputs {
		externalID := strings.TrimSpace(input.ExternalID)
		if externalID == "" {
			result.Failed++
			merged = multierr.Append(merged, fmt.Errorf("record %q: external id is required", input.Name))
			continue
		}
		if !input.Platform.IsValid() {
			result.Failed++
			merged = multierr.Append(merged, fmt.Errorf("record %q: unknown platform %q", externalID, input.Platform))
			continue
		}

		shop, err := s.shops.FindByExternalID(ctx, externalID)
		switch {
		case err == nil:
			if shop.OwnerID != ownerID {
				result.Failed++
				merged = multierr.Append(merged, fmt.Errorf("record %q: owned by another user", externalID))
				continue
			}
			shop.Name = input.Name
			shop.Platform = input.Platform
			if input.Categories != nil {
				shop.Categories = append([]string(nil), input.Categories...)
			}
			if err := s.shops.Update(ctx, shop); err != nil {
				result.Failed++
				merged = multierr.Append(merged, fmt.Errorf("record %q: %w", externalID, err))
				continue
			}
			result.Updated++
			result.Shops = append(result.Shops, *FromModel(shop))

		case errors.Is(err, gorm.ErrRecordNotFound):
			created, err := s.shops.Create(ctx, CreateShopDTO{
				Name:       input.Name,
				OwnerID:    ownerID,
				Platform:   input.Platform,
				ExternalID: &externalID,
				Categories: input.Categories,
			})
			if err != nil {
				result.Failed++
				merged = multierr.Append(merged, fmt.Errorf("record %q: %w", externalID, err))
				continue
			}
			result.Created++
			result.Shops = append(result.Shops, *FromModel(created))

		default:
			result.Failed++
			merged = multierr.Append(merged, fmt.Errorf("record %q: %w", externalID, err))
		}

		if s.metrics != nil {
			s.metrics.IncSuccess(input.Platform.String())
		}
	}

	if s.logg != nil {
		s.logg.Info(s.logg.WithFields(ctx, map[string]any{
			"created":     result.Created,
			"updated":     result.Updated,
			"failed":      result.Failed,
			"duration_ms": time.Since(start).Milliseconds(),
		}), "shops.sync.complete")
	}

	if merged != nil && result.Created == 0 && result.Updated == 0 {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, merged, "no shop records could be synced").
			WithDetails(map[string]any{"errors": errorStrings(merged)})
	}
	if merged != nil {
		if s.logg != nil {
			s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
				"errors": errorStrings(merged),
			}), "shops.sync.partial")
		}
	}
	return result, nil
}

func (s *service) RevokeAccess(ctx context.Context, ownerID, shopID, userID uuid.UUID) error {
	shop, err := s.shops.FindByID(ctx, shopID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "shop not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load shop")
	}
	if shop.OwnerID != ownerID && ownerID != userID {
		return pkgerrors.New(pkgerrors.CodeForbidden, "only the owner or the grantee can revoke access")
	}
	if err := s.access.Revoke(ctx, shopID, userID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "revoke access")
	}
	return nil
}

func errorStrings(err error) []string {
	errs := multierr.Errors(err)
	out := make([]string, 0, len(errs))
	for _, e := range errs {
		out = append(out, e.Error())
	}
	return out
}
