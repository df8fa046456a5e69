package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/shoplink/bva-backend/internal/products"
	"github.com/shoplink/bva-backend/pkg/enums"
)

type stubProductService struct {
	list []products.ProductDTO
	dto  *products.ProductDTO
	err  error
}

func (s *stubProductService) ListForUser(ctx context.Context, userID uuid.UUID) ([]products.ProductDTO, error) {
	return s.list, s.err
}

func (s *stubProductService) ListByShop(ctx context.Context, userID, shopID uuid.UUID) ([]products.ProductDTO, error) {
	return s.list, s.err
}

func (s *stubProductService) Create(ctx context.Context, userID uuid.UUID, req products.CreateProductRequest) (*products.ProductDTO, error) {
	return s.dto, s.err
}

func (s *stubProductService) Update(ctx context.Context, userID, productID uuid.UUID, req products.UpdateProductRequest) (*products.ProductDTO, error) {
	return s.dto, s.err
}

func (s *stubProductService) Delete(ctx context.Context, userID, productID uuid.UUID) error {
	return s.err
}

func TestListUserProductsIncludesPlatform(t *testing.T) {
	svc := &stubProductService{list: []products.ProductDTO{
		{ID: uuid.New(), Name: "Lamp", Platform: enums.PlatformShopee},
		{ID: uuid.New(), Name: "Mug", Platform: enums.PlatformOther},
	}}
	handler := ListUserProducts(svc, nil)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, authedRequest(http.MethodGet, "/api/products/user/all", ""))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}

	var body struct {
		Data []struct {
			Name     string         `json:"name"`
			Platform enums.Platform `json:"platform"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(body.Data) != 2 {
		t.Fatalf("expected 2 products got %d", len(body.Data))
	}
	if body.Data[0].Platform != enums.PlatformShopee {
		t.Fatalf("expected platform annotation got %q", body.Data[0].Platform)
	}
}

func TestUpdateProductRejectsMalformedID(t *testing.T) {
	svc := &stubProductService{}
	handler := UpdateProduct(svc, nil)

	req := authedRequest(http.MethodPatch, "/api/products/not-a-uuid", `{}`)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}
