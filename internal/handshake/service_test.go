package handshake

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/shoplink/bva-backend/pkg/config"
	"github.com/shoplink/bva-backend/pkg/enums"
	pkgerrors "github.com/shoplink/bva-backend/pkg/errors"
)

const allowedOrigin = "http://localhost:3001"

type fakeClock struct {
	now time.Time
}

func (f *fakeClock) Now() time.Time { return f.now }

func (f *fakeClock) Advance(d time.Duration) { f.now = f.now.Add(d) }

type stubLinker struct {
	calls  int
	result *LinkResult
	err    error

	lastUserID   uuid.UUID
	lastExchange *Exchange
}

func (s *stubLinker) Link(_ context.Context, userID uuid.UUID, exchange *Exchange) (*LinkResult, error) {
	s.calls++
	s.lastUserID = userID
	s.lastExchange = exchange
	if s.err != nil {
		return nil, s.err
	}
	if s.result == nil {
		s.result = &LinkResult{ShopID: uuid.New(), IntegrationID: uuid.New()}
	}
	return s.result, nil
}

type handshakeTestSetup struct {
	service Service
	store   *MemoryStore
	linker  *stubLinker
	clock   *fakeClock
	userID  uuid.UUID
}

func newHandshakeTestSetup(t *testing.T) *handshakeTestSetup {
	t.Helper()
	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	store := NewMemoryStore()
	store.now = clock.Now
	linker := &stubLinker{}
	svc, err := NewService(ServiceParams{
		Store:  store,
		Linker: linker,
		Config: config.HandshakeConfig{
			ProviderOrigins: []string{allowedOrigin, "http://localhost:3002"},
			Timeout:         2 * time.Second,
			ExchangeTTL:     10 * time.Minute,
		},
		Now: clock.Now,
	})
	require.NoError(t, err)
	return &handshakeTestSetup{
		service: svc,
		store:   store,
		linker:  linker,
		clock:   clock,
		userID:  uuid.New(),
	}
}

func (s *handshakeTestSetup) open(t *testing.T) *ExchangeDTO {
	t.Helper()
	dto, err := s.service.Open(context.Background(), s.userID, enums.PlatformShopee)
	require.NoError(t, err)
	return dto
}

func successMessage() Message {
	return Message{
		Type:  MessageAuthSuccess,
		Shop:  &Shop{ID: "shop-778", Name: "Provider Shop"},
		Token: "opaque-provider-token",
	}
}

func TestOpenStartsChecking(t *testing.T) {
	setup := newHandshakeTestSetup(t)

	dto := setup.open(t)
	require.Equal(t, StatusChecking, dto.Status)
	require.Equal(t, setup.clock.Now().Add(2*time.Second), dto.DeadlineAt)
	require.Nil(t, dto.Shop)
}

func TestDeliverAuthSuccessAuthenticates(t *testing.T) {
	setup := newHandshakeTestSetup(t)
	dto := setup.open(t)

	require.NoError(t, setup.service.Deliver(context.Background(), dto.ID, allowedOrigin, successMessage()))

	got, err := setup.service.Get(context.Background(), setup.userID, dto.ID)
	require.NoError(t, err)
	require.Equal(t, StatusAuthenticated, got.Status)
	require.NotNil(t, got.Shop)
	require.Equal(t, "shop-778", got.Shop.ID)
	require.Empty(t, got.Error)
}

func TestDeliverAuthSuccessWithoutTokenIsDistinctError(t *testing.T) {
	setup := newHandshakeTestSetup(t)
	dto := setup.open(t)

	msg := successMessage()
	msg.Token = ""
	require.NoError(t, setup.service.Deliver(context.Background(), dto.ID, allowedOrigin, msg))

	got, err := setup.service.Get(context.Background(), setup.userID, dto.ID)
	require.NoError(t, err)
	require.Equal(t, StatusNotAuthenticated, got.Status)
	require.Equal(t, "token missing", got.Error)
}

func TestDeliverAuthErrorAndAuthRequired(t *testing.T) {
	setup := newHandshakeTestSetup(t)

	errored := setup.open(t)
	require.NoError(t, setup.service.Deliver(context.Background(), errored.ID, allowedOrigin, Message{
		Type:  MessageAuthError,
		Error: "account suspended",
	}))
	got, err := setup.service.Get(context.Background(), setup.userID, errored.ID)
	require.NoError(t, err)
	require.Equal(t, StatusNotAuthenticated, got.Status)
	require.Equal(t, "account suspended", got.Error)

	required := setup.open(t)
	require.NoError(t, setup.service.Deliver(context.Background(), required.ID, allowedOrigin, Message{
		Type: MessageAuthRequired,
	}))
	got, err = setup.service.Get(context.Background(), setup.userID, required.ID)
	require.NoError(t, err)
	require.Equal(t, StatusNotAuthenticated, got.Status)
	require.Empty(t, got.Error)
}

func TestDeliverUnknownOriginSilentlyDropped(t *testing.T) {
	setup := newHandshakeTestSetup(t)
	dto := setup.open(t)

	err := setup.service.Deliver(context.Background(), dto.ID, "http://evil.example.com", successMessage())
	require.NoError(t, err)

	got, err := setup.service.Get(context.Background(), setup.userID, dto.ID)
	require.NoError(t, err)
	require.Equal(t, StatusChecking, got.Status)
	require.Nil(t, got.Shop)
}

func TestDeliverAfterSettlementDropped(t *testing.T) {
	setup := newHandshakeTestSetup(t)
	dto := setup.open(t)

	require.NoError(t, setup.service.Deliver(context.Background(), dto.ID, allowedOrigin, Message{Type: MessageAuthRequired}))
	require.NoError(t, setup.service.Deliver(context.Background(), dto.ID, allowedOrigin, successMessage()))

	got, err := setup.service.Get(context.Background(), setup.userID, dto.ID)
	require.NoError(t, err)
	require.Equal(t, StatusNotAuthenticated, got.Status)
}

func TestGetAfterDeadlineTimesOut(t *testing.T) {
	setup := newHandshakeTestSetup(t)
	dto := setup.open(t)

	setup.clock.Advance(3 * time.Second)
	got, err := setup.service.Get(context.Background(), setup.userID, dto.ID)
	require.NoError(t, err)
	require.Equal(t, StatusNotAuthenticated, got.Status)
}

func TestLateMessageWinsWhileStillChecking(t *testing.T) {
	setup := newHandshakeTestSetup(t)
	dto := setup.open(t)

	setup.clock.Advance(5 * time.Second)
	require.NoError(t, setup.service.Deliver(context.Background(), dto.ID, allowedOrigin, successMessage()))

	got, err := setup.service.Get(context.Background(), setup.userID, dto.ID)
	require.NoError(t, err)
	require.Equal(t, StatusAuthenticated, got.Status)
}

func TestMessageAfterObservedTimeoutDropped(t *testing.T) {
	setup := newHandshakeTestSetup(t)
	dto := setup.open(t)

	setup.clock.Advance(3 * time.Second)
	_, err := setup.service.Get(context.Background(), setup.userID, dto.ID)
	require.NoError(t, err)

	require.NoError(t, setup.service.Deliver(context.Background(), dto.ID, allowedOrigin, successMessage()))
	got, err := setup.service.Get(context.Background(), setup.userID, dto.ID)
	require.NoError(t, err)
	require.Equal(t, StatusNotAuthenticated, got.Status)
}

func TestConfirmPersistsLink(t *testing.T) {
	setup := newHandshakeTestSetup(t)
	dto := setup.open(t)
	require.NoError(t, setup.service.Deliver(context.Background(), dto.ID, allowedOrigin, successMessage()))

	result, err := setup.service.Confirm(context.Background(), setup.userID, dto.ID, ConfirmRequest{TermsAccepted: true})
	require.NoError(t, err)
	require.NotNil(t, result)
	require.Equal(t, 1, setup.linker.calls)
	require.Equal(t, setup.userID, setup.linker.lastUserID)
	require.Equal(t, "opaque-provider-token", setup.linker.lastExchange.Token)

	_, err = setup.service.Get(context.Background(), setup.userID, dto.ID)
	require.Error(t, err)
}

func TestConfirmRequiresConsent(t *testing.T) {
	setup := newHandshakeTestSetup(t)
	dto := setup.open(t)
	require.NoError(t, setup.service.Deliver(context.Background(), dto.ID, allowedOrigin, successMessage()))

	_, err := setup.service.Confirm(context.Background(), setup.userID, dto.ID, ConfirmRequest{})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeValidation, typed.Code())
	require.Zero(t, setup.linker.calls)
}

func TestConfirmRequiresAuthenticated(t *testing.T) {
	setup := newHandshakeTestSetup(t)
	dto := setup.open(t)

	_, err := setup.service.Confirm(context.Background(), setup.userID, dto.ID, ConfirmRequest{TermsAccepted: true})
	require.Error(t, err)
	require.Zero(t, setup.linker.calls)
}

func TestGetForeignExchangeNotFound(t *testing.T) {
	setup := newHandshakeTestSetup(t)
	dto := setup.open(t)

	_, err := setup.service.Get(context.Background(), uuid.New(), dto.ID)
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}

func TestMemoryStoreExpiry(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	store := NewMemoryStore()
	store.now = clock.Now

	exchange := &Exchange{ID: "ex-1", Status: StatusChecking}
	require.NoError(t, store.Save(context.Background(), exchange, time.Minute))

	_, err := store.Get(context.Background(), "ex-1")
	require.NoError(t, err)

	clock.Advance(2 * time.Minute)
	_, err = store.Get(context.Background(), "ex-1")
	require.ErrorIs(t, err, ErrExchangeNotFound)
}
