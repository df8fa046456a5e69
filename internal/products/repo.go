package products

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/shoplink/bva-backend/pkg/db/models"
)

// Repository provides product and inventory persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

func (r *Repository) Create(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).Create(product).Error
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).Preload("Inventory").First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *Repository) FindByExternalID(ctx context.Context, shopID uuid.UUID, externalID string) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).Preload("Inventory").
		First(&product, "shop_id = ? AND external_id = ?", shopID, externalID).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *Repository) ListByShop(ctx context.Context, shopID uuid.UUID) ([]models.Product, error) {
	var rows []models.Product
	err := r.db.WithContext(ctx).Preload("Inventory").
		Where("shop_id = ?", shopID).
		Order("created_at DESC").
		Find(&rows).Error
	return rows, err
}

func (r *Repository) ListByShopIDs(ctx context.Context, shopIDs []uuid.UUID) ([]models.Product, error) {
	if len(shopIDs) == 0 {
		return nil, nil
	}
	var rows []models.Product
	err := r.db.WithContext(ctx).Preload("Inventory").
		Where("shop_id IN ?", shopIDs).
		Order("created_at DESC").
		Find(&rows).Error
	return rows, err
}

// Save persists the product and its inventory row together.
func (r *Repository) Save(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).Session(&gorm.Session{FullSaveAssociations: true}).Save(product).Error
}

func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.Product{}, "id = ?", id).Error
}
