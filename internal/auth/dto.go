package auth

import (
	"github.com/google/uuid"

	"github.com/shoplink/bva-backend/internal/users"
	"github.com/shoplink/bva-backend/pkg/enums"
)

// LoginRequest captures the credentials sent to the login endpoint.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// ShopSummary describes the shop metadata returned after login.
type ShopSummary struct {
	ID       uuid.UUID      `json:"id"`
	Name     string         `json:"name"`
	Platform enums.Platform `json:"platform"`
}

// LoginResponse carries the tokens, user, and shop list for a successful login.
type LoginResponse struct {
	AccessToken  string         `json:"access_token"`
	RefreshToken string         `json:"refresh_token"`
	Shops        []ShopSummary  `json:"shops"`
	User         *users.UserDTO `json:"user"`
}

// RefreshRequest presents the expired access token plus its refresh token.
type RefreshRequest struct {
	AccessToken  string `json:"access_token" validate:"required"`
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// RefreshResponse carries the rotated token pair.
type RefreshResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// ChangePasswordRequest rotates the caller's password.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8"`
}
