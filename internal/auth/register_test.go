package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/shoplink/bva-backend/internal/shops"
	"github.com/shoplink/bva-backend/internal/users"
	"github.com/shoplink/bva-backend/pkg/config"
	"github.com/shoplink/bva-backend/pkg/db/models"
	"github.com/shoplink/bva-backend/pkg/enums"
	pkgerrors "github.com/shoplink/bva-backend/pkg/errors"
	"github.com/shoplink/bva-backend/pkg/security"
)

type stubTxRunner struct {
	rolledBack bool
}

func (s *stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	err := fn(nil)
	if err != nil {
		s.rolledBack = true
	}
	return err
}

type stubUserRepository struct {
	data      map[string]*models.User
	created   *models.User
	createErr error
}

func newStubUserRepository() *stubUserRepository {
	return &stubUserRepository{data: map[string]*models.User{}}
}

func (s *stubUserRepository) FindByEmail(_ context.Context, email string) (*models.User, error) {
	if user, ok := s.data[email]; ok {
		return user, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubUserRepository) Create(_ context.Context, dto users.CreateUserDTO) (*models.User, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	user := dto.ToModel()
	user.ID = uuid.New()
	s.data[dto.Email] = user
	s.created = user
	return user, nil
}

type stubShopRepository struct {
	created   *models.Shop
	createErr error
}

func (s *stubShopRepository) Create(_ context.Context, dto shops.CreateShopDTO) (*models.Shop, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	shop := dto.ToModel()
	shop.ID = uuid.New()
	s.created = shop
	return shop, nil
}

type registerTestSetup struct {
	service  RegisterService
	tx       *stubTxRunner
	userRepo *stubUserRepository
	shopRepo *stubShopRepository
}

func newRegisterTestSetup(t *testing.T) *registerTestSetup {
	t.Helper()
	tx := &stubTxRunner{}
	userRepo := newStubUserRepository()
	shopRepo := &stubShopRepository{}
	svc, err := NewRegisterService(RegisterServiceParams{
		TxRunner: tx,
		UserRepoFactory: func(_ *gorm.DB) registerUserRepository {
			return userRepo
		},
		ShopRepoFactory: func(_ *gorm.DB) registerShopRepository {
			return shopRepo
		},
		PasswordConfig: config.PasswordConfig{},
	})
	require.NoError(t, err)
	return &registerTestSetup{service: svc, tx: tx, userRepo: userRepo, shopRepo: shopRepo}
}

func validRegisterRequest() RegisterRequest {
	return RegisterRequest{
		Name:     "Dana Seller",
		Email:    "Dana@Example.com",
		Password: "correct horse battery",
		ShopName: "Dana's Shop",
		Platform: enums.PlatformShopee,
	}
}

func TestRegisterCreatesUserAndShop(t *testing.T) {
	setup := newRegisterTestSetup(t)

	require.NoError(t, setup.service.Register(context.Background(), validRegisterRequest()))

	user := setup.userRepo.created
	require.NotNil(t, user)
	require.Equal(t, "dana@example.com", user.Email)
	require.Equal(t, enums.UserRoleSeller, user.Role)
	require.NotNil(t, user.PasswordHash)

	match, err := security.VerifyPassword("correct horse battery", *user.PasswordHash)
	require.NoError(t, err)
	require.True(t, match)

	shop := setup.shopRepo.created
	require.NotNil(t, shop)
	require.Equal(t, user.ID, shop.OwnerID)
	require.Equal(t, "Dana's Shop", shop.Name)
	require.Equal(t, enums.PlatformShopee, shop.Platform)
}

func TestRegisterDuplicateEmailConflicts(t *testing.T) {
	setup := newRegisterTestSetup(t)
	require.NoError(t, setup.service.Register(context.Background(), validRegisterRequest()))
	setup.shopRepo.created = nil

	err := setup.service.Register(context.Background(), validRegisterRequest())
	require.Error(t, err)

	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeConflict, typed.Code())
	require.Contains(t, typed.Message(), "Email already exists")
	require.Equal(t, 400, pkgerrors.MetadataFor(typed.Code()).HTTPStatus)

	require.True(t, setup.tx.rolledBack)
	require.Nil(t, setup.shopRepo.created)
}

func TestRegisterDuplicateEmailRaceConflicts(t *testing.T) {
	setup := newRegisterTestSetup(t)
	setup.userRepo.createErr = errors.New(
		`duplicate key value violates unique constraint "idx_users_email" (SQLSTATE 23505)`)

	err := setup.service.Register(context.Background(), validRegisterRequest())
	require.Error(t, err)

	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeConflict, typed.Code())
	require.Contains(t, typed.Message(), "Email already exists")
	require.Equal(t, 400, pkgerrors.MetadataFor(typed.Code()).HTTPStatus)

	require.True(t, setup.tx.rolledBack)
	require.Nil(t, setup.shopRepo.created)
}

func TestRegisterShopFailureAbortsTransaction(t *testing.T) {
	setup := newRegisterTestSetup(t)
	setup.shopRepo.createErr = errors.New("insert failed")

	err := setup.service.Register(context.Background(), validRegisterRequest())
	require.Error(t, err)
	require.True(t, setup.tx.rolledBack)
}

func TestRegisterDefaultsPlatform(t *testing.T) {
	setup := newRegisterTestSetup(t)
	req := validRegisterRequest()
	req.Platform = ""

	require.NoError(t, setup.service.Register(context.Background(), req))
	require.Equal(t, enums.PlatformOther, setup.shopRepo.created.Platform)
}
