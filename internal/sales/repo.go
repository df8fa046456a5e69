package sales

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/shoplink/bva-backend/pkg/db/models"
	"github.com/shoplink/bva-backend/pkg/enums"
)

// Repository provides read access to synced sales rows.
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

func (r *Repository) Create(ctx context.Context, sale *models.Sale) error {
	return r.db.WithContext(ctx).Create(sale).Error
}

// ListByShop returns sales for one shop inside the window, newest first,
// with line items loaded.
func (r *Repository) ListByShop(ctx context.Context, shopID uuid.UUID, since time.Time) ([]models.Sale, error) {
	var rows []models.Sale
	err := r.db.WithContext(ctx).Preload("Items").
		Where("shop_id = ? AND occurred_at >= ?", shopID, since).
		Order("occurred_at DESC").
		Find(&rows).Error
	return rows, err
}

// PlatformsByProductIDs reports the platform of the most recent sale line
// item per product. Products that never sold are absent from the map.
func (r *Repository) PlatformsByProductIDs(ctx context.Context, productIDs []uuid.UUID) (map[uuid.UUID]enums.Platform, error) {
	if len(productIDs) == 0 {
		return map[uuid.UUID]enums.Platform{}, nil
	}

	type row struct {
		ProductID uuid.UUID
		Platform  enums.Platform
	}
	var rows []row
	err := r.db.WithContext(ctx).
		Table("sale_items").
		Select("sale_items.product_id, sales.platform").
		Joins("JOIN sales ON sales.id = sale_items.sale_id").
		Where("sale_items.product_id IN ?", productIDs).
		Order("sales.occurred_at ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	// Ascending scan order means the latest sale overwrites earlier ones.
	result := make(map[uuid.UUID]enums.Platform, len(rows))
	for _, r := range rows {
		result[r.ProductID] = r.Platform
	}
	return result, nil
}
