package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/shoplink/bva-backend/pkg/enums"
)

// User represents the canonical identity entity. PasswordHash is nil for
// OAuth-only accounts. Users are never hard-deleted.
type User struct {
	ID           uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Email        string         `gorm:"type:text;not null;uniqueIndex"`
	PasswordHash *string        `gorm:"column:password_hash"`
	Name         string         `gorm:"column:name;not null"`
	Role         enums.UserRole `gorm:"column:role;type:text;not null;default:'SELLER'"`
	LastLoginAt  *time.Time     `gorm:"column:last_login_at"`
	CreatedAt    time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}
