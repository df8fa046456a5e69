package auth

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/shoplink/bva-backend/internal/shops"
	"github.com/shoplink/bva-backend/internal/users"
	"github.com/shoplink/bva-backend/pkg/config"
	"github.com/shoplink/bva-backend/pkg/db"
	"github.com/shoplink/bva-backend/pkg/db/models"
	"github.com/shoplink/bva-backend/pkg/enums"
	pkgerrors "github.com/shoplink/bva-backend/pkg/errors"
	"github.com/shoplink/bva-backend/pkg/security"
)

const duplicateEmailMessage = "Email already exists. Please use a different email or login."

// RegisterRequest contains the payload for onboarding a seller with their
// first shop.
type RegisterRequest struct {
	Name     string         `json:"name" validate:"required"`
	Email    string         `json:"email" validate:"required,email"`
	Password string         `json:"password" validate:"required,min=8"`
	ShopName string         `json:"shop_name" validate:"required"`
	Platform enums.Platform `json:"platform,omitempty"`
}

// RegisterService handles the onboarding transaction.
type RegisterService interface {
	Register(ctx context.Context, req RegisterRequest) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type registerUserRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, dto users.CreateUserDTO) (*models.User, error)
}

type registerShopRepository interface {
	Create(ctx context.Context, dto shops.CreateShopDTO) (*models.Shop, error)
}

// RegisterServiceParams packages the dependencies for the registration flow.
// The repo factories default to the real repositories bound to the
// transaction handle.
type RegisterServiceParams struct {
	TxRunner        txRunner
	UserRepoFactory func(tx *gorm.DB) registerUserRepository
	ShopRepoFactory func(tx *gorm.DB) registerShopRepository
	PasswordConfig  config.PasswordConfig
}

type registerService struct {
	tx          txRunner
	userRepo    func(tx *gorm.DB) registerUserRepository
	shopRepo    func(tx *gorm.DB) registerShopRepository
	passwordCfg config.PasswordConfig
}

// NewRegisterService builds a registration service with the provided dependencies.
func NewRegisterService(params RegisterServiceParams) (RegisterService, error) {
	if params.TxRunner == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner required")
	}
	if params.UserRepoFactory == nil {
		params.UserRepoFactory = func(tx *gorm.DB) registerUserRepository {
			return users.NewRepository(tx)
		}
	}
	if params.ShopRepoFactory == nil {
		params.ShopRepoFactory = func(tx *gorm.DB) registerShopRepository {
			return shops.NewRepository(tx)
		}
	}
	return &registerService{
		tx:          params.TxRunner,
		userRepo:    params.UserRepoFactory,
		shopRepo:    params.ShopRepoFactory,
		passwordCfg: params.PasswordConfig,
	}, nil
}

// Register creates the user and their shop atomically. A duplicate email
// rolls back both rows.
func (s *registerService) Register(ctx context.Context, req RegisterRequest) error {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	platform := req.Platform
	if platform == "" {
		platform = enums.PlatformOther
	}
	if !platform.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "unknown platform")
	}

	passwordHash, err := security.HashPassword(req.Password, s.passwordCfg)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		userRepo := s.userRepo(tx)
		shopRepo := s.shopRepo(tx)

		if _, err := userRepo.FindByEmail(ctx, email); err == nil {
			return pkgerrors.New(pkgerrors.CodeConflict, duplicateEmailMessage)
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check user email")
		}

		user, err := userRepo.Create(ctx, users.CreateUserDTO{
			Email:        email,
			PasswordHash: &passwordHash,
			Name:         strings.TrimSpace(req.Name),
			Role:         enums.UserRoleSeller,
		})
		if err != nil {
			// The pre-check can lose a race with a concurrent registration,
			// so the insert's unique violation gets the same treatment.
			if db.IsUniqueViolation(err, "idx_users_email") {
				return pkgerrors.New(pkgerrors.CodeConflict, duplicateEmailMessage)
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create user")
		}

		if _, err := shopRepo.Create(ctx, shops.CreateShopDTO{
			Name:     strings.TrimSpace(req.ShopName),
			OwnerID:  user.ID,
			Platform: platform,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create shop")
		}

		return nil
	})
}
