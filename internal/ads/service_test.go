package ads

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/shoplink/bva-backend/pkg/db/models"
	pkgerrors "github.com/shoplink/bva-backend/pkg/errors"
	"github.com/shoplink/bva-backend/pkg/mlservice"
)

type stubAdProducts struct {
	rows map[uuid.UUID]*models.Product
}

func (s *stubAdProducts) FindByID(_ context.Context, id uuid.UUID) (*models.Product, error) {
	if row, ok := s.rows[id]; ok {
		return row, nil
	}
	return nil, gorm.ErrRecordNotFound
}

type stubAdAccess struct {
	allowed map[uuid.UUID]bool
}

func (s *stubAdAccess) UserHasAccess(_ context.Context, _, shopID uuid.UUID) (bool, error) {
	return s.allowed[shopID], nil
}

type stubAdClient struct {
	lastReq mlservice.AdRequest
	calls   int
}

func (s *stubAdClient) GenerateAd(_ context.Context, req mlservice.AdRequest) (*mlservice.AdResponse, error) {
	s.calls++
	s.lastReq = req
	return &mlservice.AdResponse{
		Success: true,
		Data: mlservice.AdContent{
			AdCopy:   "Fresh deal on " + req.ProductName,
			Hashtags: []string{"#deal"},
		},
	}, nil
}

func newAdsTestService(t *testing.T, products *stubAdProducts, access *stubAdAccess, ml *stubAdClient) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		ProductRepo: products,
		AccessRepo:  access,
		ML:          ml,
	})
	require.NoError(t, err)
	return svc
}

func TestGenerateForwardsProductDetails(t *testing.T) {
	shopID := uuid.New()
	product := &models.Product{ID: uuid.New(), ShopID: shopID, Name: "Moisturizer"}
	products := &stubAdProducts{rows: map[uuid.UUID]*models.Product{product.ID: product}}
	access := &stubAdAccess{allowed: map[uuid.UUID]bool{shopID: true}}
	ml := &stubAdClient{}
	svc := newAdsTestService(t, products, access, ml)

	content, err := svc.Generate(context.Background(), uuid.New(), GenerateRequest{
		ProductID: product.ID,
		Playbook:  "flash_sale",
	})
	require.NoError(t, err)
	require.Equal(t, 1, ml.calls)
	require.Equal(t, "Moisturizer", ml.lastReq.ProductName)
	require.Equal(t, "flash_sale", ml.lastReq.Playbook)
	require.Contains(t, content.AdCopy, "Moisturizer")
}

func TestGenerateDeniedForForeignProduct(t *testing.T) {
	product := &models.Product{ID: uuid.New(), ShopID: uuid.New(), Name: "Serum"}
	products := &stubAdProducts{rows: map[uuid.UUID]*models.Product{product.ID: product}}
	access := &stubAdAccess{allowed: map[uuid.UUID]bool{}}
	ml := &stubAdClient{}
	svc := newAdsTestService(t, products, access, ml)

	_, err := svc.Generate(context.Background(), uuid.New(), GenerateRequest{
		ProductID: product.ID,
		Playbook:  "flash_sale",
	})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeForbidden, typed.Code())
	require.Zero(t, ml.calls)
}

func TestGenerateUnknownProductNotFound(t *testing.T) {
	products := &stubAdProducts{rows: map[uuid.UUID]*models.Product{}}
	svc := newAdsTestService(t, products, &stubAdAccess{}, &stubAdClient{})

	_, err := svc.Generate(context.Background(), uuid.New(), GenerateRequest{
		ProductID: uuid.New(),
		Playbook:  "flash_sale",
	})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}
