package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shoplink/bva-backend/pkg/auth"
	"github.com/shoplink/bva-backend/pkg/auth/session"
	"github.com/shoplink/bva-backend/pkg/config"
	"github.com/shoplink/bva-backend/pkg/enums"
)

var testJWTConfig = config.JWTConfig{Secret: "secret", Issuer: "issuer", ExpirationMinutes: 60}

type capturedIdentity struct {
	user string
	role string
	shop string
}

func authHandler(verifier session.AccessSessionChecker, captured *capturedIdentity) http.Handler {
	return Auth(testJWTConfig, verifier, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if captured != nil {
			captured.user = UserIDFromContext(r.Context())
			captured.role = RoleFromContext(r.Context())
			captured.shop = ShopIDFromContext(r.Context())
		}
		w.WriteHeader(http.StatusOK)
	}))
}

func serveWithToken(handler http.Handler, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	return resp
}

func mintTestToken(t *testing.T, role enums.UserRole, shopID *uuid.UUID) string {
	t.Helper()
	token, err := auth.MintAccessToken(testJWTConfig, time.Now(), auth.AccessTokenPayload{
		UserID:       uuid.New(),
		ActiveShopID: shopID,
		Role:         role,
		JTI:          session.NewAccessID(),
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func TestAuthRejectsMissingToken(t *testing.T) {
	resp := serveWithToken(authHandler(stubSessionVerifier{ok: true}, nil), "")
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAuthRejectsInvalidToken(t *testing.T) {
	resp := serveWithToken(authHandler(stubSessionVerifier{ok: true}, nil), "invalid")
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAuthRejectsRevokedSession(t *testing.T) {
	token := mintTestToken(t, enums.UserRoleSeller, nil)
	resp := serveWithToken(authHandler(stubSessionVerifier{ok: false}, nil), token)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAuthSeedsSellerContext(t *testing.T) {
	shopID := uuid.New()
	token := mintTestToken(t, enums.UserRoleSeller, &shopID)

	var captured capturedIdentity
	resp := serveWithToken(authHandler(stubSessionVerifier{ok: true}, &captured), token)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if captured.user == "" {
		t.Fatal("expected user id in context")
	}
	if captured.role != string(enums.UserRoleSeller) {
		t.Fatalf("expected seller role got %s", captured.role)
	}
	if captured.shop != shopID.String() {
		t.Fatalf("expected shop %s got %s", shopID, captured.shop)
	}
}

func TestAuthSeedsBuyerContextWithoutShop(t *testing.T) {
	token := mintTestToken(t, enums.UserRoleBuyer, nil)

	var captured capturedIdentity
	resp := serveWithToken(authHandler(stubSessionVerifier{ok: true}, &captured), token)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if captured.role != string(enums.UserRoleBuyer) {
		t.Fatalf("expected buyer role got %s", captured.role)
	}
	if captured.shop != "" {
		t.Fatalf("expected empty shop got %s", captured.shop)
	}
}

type stubSessionVerifier struct {
	ok  bool
	err error
}

func (s stubSessionVerifier) HasSession(ctx context.Context, accessID string) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	return s.ok, nil
}
