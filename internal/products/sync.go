package products

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/shoplink/bva-backend/pkg/db"
	"github.com/shoplink/bva-backend/pkg/db/models"
	"github.com/shoplink/bva-backend/pkg/enums"
	pkgerrors "github.com/shoplink/bva-backend/pkg/errors"
	"github.com/shoplink/bva-backend/pkg/gateway"
	"github.com/shoplink/bva-backend/pkg/logger"
)

// ExternalProduct is one listing as reported by a provider storefront.
type ExternalProduct struct {
	ExternalID string          `json:"external_id"`
	Name       string          `json:"name"`
	SKU        string          `json:"sku"`
	Category   *string         `json:"category,omitempty"`
	Price      decimal.Decimal `json:"price"`
	Cost       decimal.Decimal `json:"cost"`
	Quantity   int             `json:"quantity"`
	ExpiryDate *time.Time      `json:"expiry_date,omitempty"`
}

type externalLister interface {
	Get(ctx context.Context, path string, out any) error
}

type syncRepository interface {
	FindByExternalID(ctx context.Context, shopID uuid.UUID, externalID string) (*models.Product, error)
	Create(ctx context.Context, product *models.Product) error
	Save(ctx context.Context, product *models.Product) error
}

// Syncer pulls a shop's listings from the provider and upserts them by
// external id. It backs the integrations sync operation.
type Syncer struct {
	provider externalLister
	repo     syncRepository
	logg     *logger.Logger
}

// NewSyncer constructs a provider-backed product syncer.
func NewSyncer(provider *gateway.Client, repo *Repository, logg *logger.Logger) (*Syncer, error) {
	if provider == nil {
		return nil, fmt.Errorf("provider client is required")
	}
	if repo == nil {
		return nil, fmt.Errorf("product repository is required")
	}
	return &Syncer{provider: provider, repo: repo, logg: logg}, nil
}

// SyncShopProducts fetches the provider's listings for the shop and upserts
// them, returning the number of rows written.
func (s *Syncer) SyncShopProducts(ctx context.Context, shopID uuid.UUID, platform enums.Platform) (int, error) {
	var listings []ExternalProduct
	path := fmt.Sprintf("/api/products?shop_id=%s&platform=%s", shopID, platform)
	if err := s.provider.Get(ctx, path, &listings); err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "fetch provider listings")
	}

	written := 0
	for i := range listings {
		if err := s.upsert(ctx, shopID, &listings[i]); err != nil {
			if s.logg != nil {
				s.logg.Error(s.logg.WithFields(ctx, map[string]any{
					"shop_id":     shopID.String(),
					"external_id": listings[i].ExternalID,
				}), "products.sync.upsert_failed", err)
			}
			continue
		}
		written++
	}
	return written, nil
}

func (s *Syncer) upsert(ctx context.Context, shopID uuid.UUID, listing *ExternalProduct) error {
	existing, err := s.repo.FindByExternalID(ctx, shopID, listing.ExternalID)
	if err != nil && !db.IsNotFound(err) {
		return err
	}

	if existing == nil {
		externalID := listing.ExternalID
		return s.repo.Create(ctx, &models.Product{
			ShopID:     shopID,
			Name:       listing.Name,
			SKU:        listing.SKU,
			ExternalID: &externalID,
			Category:   listing.Category,
			Price:      listing.Price,
			Cost:       listing.Cost,
			Inventory: &models.InventoryItem{
				Quantity:   listing.Quantity,
				ExpiryDate: listing.ExpiryDate,
			},
		})
	}

	existing.Name = listing.Name
	existing.SKU = listing.SKU
	existing.Category = listing.Category
	existing.Price = listing.Price
	existing.Cost = listing.Cost
	if existing.Inventory == nil {
		existing.Inventory = &models.InventoryItem{ProductID: existing.ID}
	}
	existing.Inventory.Quantity = listing.Quantity
	existing.Inventory.ExpiryDate = listing.ExpiryDate
	return s.repo.Save(ctx, existing)
}
