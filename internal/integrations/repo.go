package integrations

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/shoplink/bva-backend/pkg/db/models"
	"github.com/shoplink/bva-backend/pkg/enums"
)

// Repository handles integration persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds a GORM DB to integration operations.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create persists a new integration row. The (shop, platform) unique index
// rejects duplicates.
func (r *Repository) Create(ctx context.Context, integration *models.Integration) error {
	if integration == nil {
		return fmt.Errorf("integration is required")
	}
	return r.db.WithContext(ctx).Create(integration).Error
}

// FindByID loads an integration by its UUID.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Integration, error) {
	var integration models.Integration
	if err := r.db.WithContext(ctx).First(&integration, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &integration, nil
}

// FindByShopAndPlatform loads at most one row for the unique pair.
func (r *Repository) FindByShopAndPlatform(ctx context.Context, shopID uuid.UUID, platform enums.Platform) (*models.Integration, error) {
	var integration models.Integration
	err := r.db.WithContext(ctx).
		Where("shop_id = ? AND platform = ?", shopID, platform).
		First(&integration).Error
	if err != nil {
		return nil, err
	}
	return &integration, nil
}

// ListByShopIDs returns every integration across the provided shops.
func (r *Repository) ListByShopIDs(ctx context.Context, shopIDs []uuid.UUID) ([]models.Integration, error) {
	if len(shopIDs) == 0 {
		return nil, nil
	}
	var result []models.Integration
	if err := r.db.WithContext(ctx).Where("shop_id IN ?", shopIDs).Find(&result).Error; err != nil {
		return nil, err
	}
	return result, nil
}

// Update saves the provided integration.
func (r *Repository) Update(ctx context.Context, integration *models.Integration) error {
	if integration == nil {
		return fmt.Errorf("integration is required")
	}
	return r.db.WithContext(ctx).Save(integration).Error
}

// Delete removes the row. Reconnecting afterwards requires a fresh consent.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.Integration{}, "id = ?", id).Error
}
