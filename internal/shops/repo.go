package shops

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/shoplink/bva-backend/pkg/db/models"
)

// Repository handles shop persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds a GORM DB to shop operations.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create persists a new shop row.
func (r *Repository) Create(ctx context.Context, dto CreateShopDTO) (*models.Shop, error) {
	shop := dto.ToModel()
	if err := r.db.WithContext(ctx).Create(shop).Error; err != nil {
		return nil, err
	}
	return shop, nil
}

// FindByID loads a shop by its UUID.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Shop, error) {
	var shop models.Shop
	if err := r.db.WithContext(ctx).First(&shop, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &shop, nil
}

// FindByExternalID loads the shop synced from an external storefront record.
func (r *Repository) FindByExternalID(ctx context.Context, externalID string) (*models.Shop, error) {
	var shop models.Shop
	if err := r.db.WithContext(ctx).Where("external_id = ?", externalID).First(&shop).Error; err != nil {
		return nil, err
	}
	return &shop, nil
}

// FindByOwner returns all shops owned by the provided user.
func (r *Repository) FindByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Shop, error) {
	var result []models.Shop
	if err := r.db.WithContext(ctx).Where("owner_id = ?", ownerID).Find(&result).Error; err != nil {
		return nil, err
	}
	return result, nil
}

// FindByIDs loads every shop in the provided id set.
func (r *Repository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Shop, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var result []models.Shop
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&result).Error; err != nil {
		return nil, err
	}
	return result, nil
}

// Update saves the provided shop.
func (r *Repository) Update(ctx context.Context, shop *models.Shop) error {
	if shop == nil {
		return fmt.Errorf("shop is required")
	}
	return r.db.WithContext(ctx).Save(shop).Error
}
