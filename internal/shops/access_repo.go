package shops

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/shoplink/bva-backend/pkg/db/models"
)

// AccessRepository handles ShopAccess grant rows.
type AccessRepository struct {
	db *gorm.DB
}

// NewAccessRepository binds a GORM DB to shop access operations.
func NewAccessRepository(db *gorm.DB) *AccessRepository {
	return &AccessRepository{db: db}
}

// Grant creates the (shop, user) access row. Granting twice is a no-op.
func (r *AccessRepository) Grant(ctx context.Context, shopID, userID uuid.UUID) (*models.ShopAccess, error) {
	access := &models.ShopAccess{ShopID: shopID, UserID: userID}
	err := r.db.WithContext(ctx).
		Where("shop_id = ? AND user_id = ?", shopID, userID).
		FirstOrCreate(access).Error
	if err != nil {
		return nil, err
	}
	return access, nil
}

// Revoke deletes the grant. Deleting the row is the only revocation.
func (r *AccessRepository) Revoke(ctx context.Context, shopID, userID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("shop_id = ? AND user_id = ?", shopID, userID).
		Delete(&models.ShopAccess{}).Error
}

// UserHasAccess reports whether the user owns the shop or holds a grant to it.
func (r *AccessRepository) UserHasAccess(ctx context.Context, userID, shopID uuid.UUID) (bool, error) {
	var shop models.Shop
	err := r.db.WithContext(ctx).
		Select("id").
		Where("id = ? AND owner_id = ?", shopID, userID).
		First(&shop).Error
	if err == nil {
		return true, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, err
	}

	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.ShopAccess{}).
		Where("shop_id = ? AND user_id = ?", shopID, userID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// ReadableShopIDs returns owned union linked shop ids with no duplicates.
func (r *AccessRepository) ReadableShopIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	var owned []uuid.UUID
	if err := r.db.WithContext(ctx).
		Model(&models.Shop{}).
		Where("owner_id = ?", userID).
		Pluck("id", &owned).Error; err != nil {
		return nil, err
	}

	linked, err := r.LinkedShopIDs(ctx, userID)
	if err != nil {
		return nil, err
	}

	seen := make(map[uuid.UUID]struct{}, len(owned)+len(linked))
	result := make([]uuid.UUID, 0, len(owned)+len(linked))
	for _, id := range append(owned, linked...) {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		result = append(result, id)
	}
	return result, nil
}

// LinkedShopIDs returns the shops the user can read through grants alone.
func (r *AccessRepository) LinkedShopIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&models.ShopAccess{}).
		Where("user_id = ?", userID).
		Pluck("shop_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}
