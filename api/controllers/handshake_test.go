package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/shoplink/bva-backend/api/middleware"
	"github.com/shoplink/bva-backend/internal/handshake"
	"github.com/shoplink/bva-backend/pkg/enums"
)

type stubHandshakeService struct {
	exchange *handshake.ExchangeDTO
	link     *handshake.LinkResult
	err      error

	deliveredID     string
	deliveredOrigin string
	deliveredMsg    handshake.Message
}

func (s *stubHandshakeService) Open(ctx context.Context, userID uuid.UUID, platform enums.Platform) (*handshake.ExchangeDTO, error) {
	return s.exchange, s.err
}

func (s *stubHandshakeService) Deliver(ctx context.Context, exchangeID, origin string, msg handshake.Message) error {
	s.deliveredID = exchangeID
	s.deliveredOrigin = origin
	s.deliveredMsg = msg
	return s.err
}

func (s *stubHandshakeService) Get(ctx context.Context, userID uuid.UUID, exchangeID string) (*handshake.ExchangeDTO, error) {
	return s.exchange, s.err
}

func (s *stubHandshakeService) Confirm(ctx context.Context, userID uuid.UUID, exchangeID string, req handshake.ConfirmRequest) (*handshake.LinkResult, error) {
	return s.link, s.err
}

func authedRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	ctx := middleware.WithUserID(req.Context(), uuid.NewString())
	return req.WithContext(ctx)
}

func TestOpenHandshakeReturnsExchange(t *testing.T) {
	svc := &stubHandshakeService{exchange: &handshake.ExchangeDTO{
		ID:         uuid.NewString(),
		Platform:   enums.PlatformShopee,
		Status:     handshake.StatusChecking,
		DeadlineAt: time.Now().Add(2 * time.Second),
	}}

	handler := OpenHandshake(svc, nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, authedRequest(http.MethodPost, "/api/handshake", `{"platform":"SHOPEE"}`))

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d body %s", resp.Code, resp.Body.String())
	}

	var body struct {
		Data handshake.ExchangeDTO `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Data.Status != handshake.StatusChecking {
		t.Fatalf("expected checking status got %s", body.Data.Status)
	}
}

func TestOpenHandshakeRejectsUnknownPlatform(t *testing.T) {
	svc := &stubHandshakeService{}
	handler := OpenHandshake(svc, nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, authedRequest(http.MethodPost, "/api/handshake", `{"platform":"minitel"}`))

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestDeliverHandshakeMessageForwardsOrigin(t *testing.T) {
	svc := &stubHandshakeService{}
	router := chi.NewRouter()
	router.Post("/api/handshake/{exchangeId}/message", DeliverHandshakeMessage(svc, nil))

	exchangeID := uuid.NewString()
	payload := `{"type":"AUTH_SUCCESS","shop":{"id":"shop-1","name":"Main Street"},"token":"provider-token"}`
	req := httptest.NewRequest(http.MethodPost, "/api/handshake/"+exchangeID+"/message", bytes.NewReader([]byte(payload)))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Origin", "http://localhost:3001")
	resp := httptest.NewRecorder()

	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d body %s", resp.Code, resp.Body.String())
	}
	if svc.deliveredID != exchangeID {
		t.Fatalf("expected exchange id %s got %s", exchangeID, svc.deliveredID)
	}
	if svc.deliveredOrigin != "http://localhost:3001" {
		t.Fatalf("expected origin header forwarded got %q", svc.deliveredOrigin)
	}
	if svc.deliveredMsg.Type != handshake.MessageAuthSuccess || svc.deliveredMsg.Token != "provider-token" {
		t.Fatalf("unexpected message %+v", svc.deliveredMsg)
	}
}

func TestConfirmHandshakeReturnsLink(t *testing.T) {
	link := &handshake.LinkResult{ShopID: uuid.New(), IntegrationID: uuid.New()}
	svc := &stubHandshakeService{link: link}

	router := chi.NewRouter()
	router.Post("/api/handshake/{exchangeId}/confirm", ConfirmHandshake(svc, nil))

	req := authedRequest(http.MethodPost, "/api/handshake/"+uuid.NewString()+"/confirm", `{"termsAccepted":true}`)
	resp := httptest.NewRecorder()

	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d body %s", resp.Code, resp.Body.String())
	}

	var body struct {
		Data handshake.LinkResult `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Data.ShopID != link.ShopID {
		t.Fatalf("expected shop id %s got %s", link.ShopID, body.Data.ShopID)
	}
}
