package models

import (
	"time"

	"github.com/google/uuid"
)

// ShopAccess grants a non-owning user read access to a shop for the
// aggregated dashboard view. Deleting the row is the only revocation.
type ShopAccess struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	ShopID    uuid.UUID `gorm:"column:shop_id;type:uuid;not null;uniqueIndex:idx_shop_access_pair"`
	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;not null;uniqueIndex:idx_shop_access_pair"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}
