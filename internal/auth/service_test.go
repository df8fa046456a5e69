package auth

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	pkgauth "github.com/shoplink/bva-backend/pkg/auth"
	"github.com/shoplink/bva-backend/pkg/config"
	"github.com/shoplink/bva-backend/pkg/db/models"
	"github.com/shoplink/bva-backend/pkg/enums"
	pkgerrors "github.com/shoplink/bva-backend/pkg/errors"
	"github.com/shoplink/bva-backend/pkg/security"
)

type stubLoginUserRepo struct {
	byEmail       map[string]*models.User
	byID          map[uuid.UUID]*models.User
	lastLoginID   uuid.UUID
	passwordByID  map[uuid.UUID]string
	lastLoginAt   time.Time
	lastLoginHits int
}

func newStubLoginUserRepo() *stubLoginUserRepo {
	return &stubLoginUserRepo{
		byEmail:      map[string]*models.User{},
		byID:         map[uuid.UUID]*models.User{},
		passwordByID: map[uuid.UUID]string{},
	}
}

func (s *stubLoginUserRepo) add(user *models.User) {
	s.byEmail[user.Email] = user
	s.byID[user.ID] = user
}

func (s *stubLoginUserRepo) FindByEmail(_ context.Context, email string) (*models.User, error) {
	if user, ok := s.byEmail[email]; ok {
		return user, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubLoginUserRepo) FindByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	if user, ok := s.byID[id]; ok {
		return user, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubLoginUserRepo) UpdateLastLogin(_ context.Context, id uuid.UUID, at time.Time) error {
	s.lastLoginID = id
	s.lastLoginAt = at
	s.lastLoginHits++
	return nil
}

func (s *stubLoginUserRepo) UpdatePasswordHash(_ context.Context, id uuid.UUID, hash string) error {
	s.passwordByID[id] = hash
	return nil
}

type stubShopLister struct {
	shops []models.Shop
}

func (s *stubShopLister) FindByOwner(_ context.Context, _ uuid.UUID) ([]models.Shop, error) {
	return s.shops, nil
}

type stubSessionManager struct {
	generated []string
	revoked   []string
	rotateErr error
}

func (s *stubSessionManager) Generate(_ context.Context, accessID string) (string, error) {
	s.generated = append(s.generated, accessID)
	return "refresh-" + accessID, nil
}

func (s *stubSessionManager) Rotate(_ context.Context, oldAccessID, _ string) (string, string, error) {
	if s.rotateErr != nil {
		return "", "", s.rotateErr
	}
	newID := "rotated-" + oldAccessID
	return newID, "refresh-" + newID, nil
}

func (s *stubSessionManager) Revoke(_ context.Context, accessID string) error {
	s.revoked = append(s.revoked, accessID)
	return nil
}

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:            "test-secret",
		Issuer:            "shoplink-test",
		ExpirationMinutes: 15,
	}
}

type loginTestSetup struct {
	service  Service
	users    *stubLoginUserRepo
	shops    *stubShopLister
	sessions *stubSessionManager
}

func newLoginTestSetup(t *testing.T) *loginTestSetup {
	t.Helper()
	userRepo := newStubLoginUserRepo()
	shopRepo := &stubShopLister{}
	sessions := &stubSessionManager{}
	svc, err := NewService(ServiceParams{
		UserRepo:       userRepo,
		ShopRepo:       shopRepo,
		SessionManager: sessions,
		JWTConfig:      testJWTConfig(),
		PasswordConfig: config.PasswordConfig{},
	})
	require.NoError(t, err)
	return &loginTestSetup{service: svc, users: userRepo, shops: shopRepo, sessions: sessions}
}

func mustAddUser(t *testing.T, setup *loginTestSetup, email, password string) *models.User {
	t.Helper()
	hash, err := security.HashPassword(password, config.PasswordConfig{})
	require.NoError(t, err)
	user := &models.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: &hash,
		Name:         "Login Tester",
		Role:         enums.UserRoleSeller,
	}
	setup.users.add(user)
	return user
}

func TestLoginReturnsTokensAndShops(t *testing.T) {
	setup := newLoginTestSetup(t)
	user := mustAddUser(t, setup, "seller@example.com", "hunter2hunter2")
	shopID := uuid.New()
	setup.shops.shops = []models.Shop{
		{ID: shopID, Name: "Main Shop", OwnerID: user.ID, Platform: enums.PlatformShopee},
	}

	resp, err := setup.service.Login(context.Background(), LoginRequest{
		Email:    "Seller@Example.com",
		Password: "hunter2hunter2",
	})
	require.NoError(t, err)
	require.NotEmpty(t, resp.AccessToken)
	require.NotEmpty(t, resp.RefreshToken)
	require.Len(t, resp.Shops, 1)
	require.Equal(t, "Main Shop", resp.Shops[0].Name)
	require.Equal(t, user.ID, resp.User.ID)
	require.Equal(t, 1, setup.users.lastLoginHits)

	claims, err := pkgauth.ParseAccessToken(testJWTConfig(), resp.AccessToken)
	require.NoError(t, err)
	require.Equal(t, user.ID, claims.UserID)
	require.NotNil(t, claims.ActiveShopID)
	require.Equal(t, shopID, *claims.ActiveShopID)
	require.Equal(t, enums.UserRoleSeller, claims.Role)
	require.Len(t, setup.sessions.generated, 1)
	require.Equal(t, claims.ID, setup.sessions.generated[0])
}

func TestLoginWrongPasswordUnauthorized(t *testing.T) {
	setup := newLoginTestSetup(t)
	mustAddUser(t, setup, "seller@example.com", "hunter2hunter2")

	_, err := setup.service.Login(context.Background(), LoginRequest{
		Email:    "seller@example.com",
		Password: "wrong",
	})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeUnauthorized, typed.Code())
}

func TestLoginUnknownEmailUnauthorized(t *testing.T) {
	setup := newLoginTestSetup(t)

	_, err := setup.service.Login(context.Background(), LoginRequest{
		Email:    "ghost@example.com",
		Password: "whatever",
	})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeUnauthorized, typed.Code())
}

func TestRefreshRotatesSession(t *testing.T) {
	setup := newLoginTestSetup(t)
	user := mustAddUser(t, setup, "seller@example.com", "hunter2hunter2")

	login, err := setup.service.Login(context.Background(), LoginRequest{
		Email:    "seller@example.com",
		Password: "hunter2hunter2",
	})
	require.NoError(t, err)

	resp, err := setup.service.Refresh(context.Background(), RefreshRequest{
		AccessToken:  login.AccessToken,
		RefreshToken: login.RefreshToken,
	})
	require.NoError(t, err)
	require.NotEmpty(t, resp.AccessToken)
	require.NotEqual(t, login.RefreshToken, resp.RefreshToken)

	claims, err := pkgauth.ParseAccessToken(testJWTConfig(), resp.AccessToken)
	require.NoError(t, err)
	require.Equal(t, user.ID, claims.UserID)
}

func TestLogoutRevokesSession(t *testing.T) {
	setup := newLoginTestSetup(t)

	require.NoError(t, setup.service.Logout(context.Background(), "access-123"))
	require.Equal(t, []string{"access-123"}, setup.sessions.revoked)

	err := setup.service.Logout(context.Background(), "")
	require.Error(t, err)
}

func TestChangePassword(t *testing.T) {
	setup := newLoginTestSetup(t)
	user := mustAddUser(t, setup, "seller@example.com", "hunter2hunter2")

	err := setup.service.ChangePassword(context.Background(), user.ID, ChangePasswordRequest{
		CurrentPassword: "wrong",
		NewPassword:     "brand new secret",
	})
	require.Error(t, err)

	err = setup.service.ChangePassword(context.Background(), user.ID, ChangePasswordRequest{
		CurrentPassword: "hunter2hunter2",
		NewPassword:     "brand new secret",
	})
	require.NoError(t, err)

	match, err := security.VerifyPassword("brand new secret", setup.users.passwordByID[user.ID])
	require.NoError(t, err)
	require.True(t, match)
}
