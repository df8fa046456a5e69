package handshake

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/shoplink/bva-backend/pkg/config"
	"github.com/shoplink/bva-backend/pkg/enums"
	pkgerrors "github.com/shoplink/bva-backend/pkg/errors"
	"github.com/shoplink/bva-backend/pkg/logger"
	"github.com/shoplink/bva-backend/pkg/metrics"
)

const tokenMissingMessage = "token missing"

// ExchangeDTO is the polling view of an exchange. The provider token never
// leaves the server.
type ExchangeDTO struct {
	ID         string         `json:"id"`
	Platform   enums.Platform `json:"platform"`
	Status     Status         `json:"status"`
	Shop       *Shop          `json:"shop,omitempty"`
	Error      string         `json:"error,omitempty"`
	DeadlineAt time.Time      `json:"deadline_at"`
}

// ConfirmRequest carries the consent checkbox state from the dialog.
type ConfirmRequest struct {
	TermsAccepted bool `json:"termsAccepted"`
}

// Service drives link exchanges from open to confirm.
type Service interface {
	Open(ctx context.Context, userID uuid.UUID, platform enums.Platform) (*ExchangeDTO, error)
	Deliver(ctx context.Context, exchangeID, origin string, msg Message) error
	Get(ctx context.Context, userID uuid.UUID, exchangeID string) (*ExchangeDTO, error)
	Confirm(ctx context.Context, userID uuid.UUID, exchangeID string, req ConfirmRequest) (*LinkResult, error)
}

type service struct {
	store   Store
	linker  Linker
	cfg     config.HandshakeConfig
	metrics *metrics.HandshakeMetrics
	logg    *logger.Logger
	now     func() time.Time
}

// ServiceParams bundles the dependencies for the handshake service.
type ServiceParams struct {
	Store   Store
	Linker  Linker
	Config  config.HandshakeConfig
	Metrics *metrics.HandshakeMetrics
	Logger  *logger.Logger

	// Now overrides the clock in tests.
	Now func() time.Time
}

// NewService constructs the handshake service.
func NewService(params ServiceParams) (Service, error) {
	if params.Store == nil {
		return nil, fmt.Errorf("exchange store is required")
	}
	if params.Linker == nil {
		return nil, fmt.Errorf("linker is required")
	}
	if len(params.Config.ProviderOrigins) == 0 {
		return nil, fmt.Errorf("at least one provider origin is required")
	}
	if params.Config.Timeout <= 0 {
		params.Config.Timeout = 2 * time.Second
	}
	if params.Config.ExchangeTTL <= 0 {
		params.Config.ExchangeTTL = 10 * time.Minute
	}
	if params.Now == nil {
		params.Now = time.Now
	}
	return &service{
		store:   params.Store,
		linker:  params.Linker,
		cfg:     params.Config,
		metrics: params.Metrics,
		logg:    params.Logger,
		now:     params.Now,
	}, nil
}

func (s *service) Open(ctx context.Context, userID uuid.UUID, platform enums.Platform) (*ExchangeDTO, error) {
	if !platform.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown platform")
	}

	now := s.now().UTC()
	exchange := &Exchange{
		ID:         uuid.NewString(),
		UserID:     userID,
		Platform:   platform,
		Status:     StatusChecking,
		CreatedAt:  now,
		DeadlineAt: now.Add(s.cfg.Timeout),
	}
	if err := s.store.Save(ctx, exchange, s.cfg.ExchangeTTL); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "save exchange")
	}
	if s.metrics != nil {
		s.metrics.IncStarted()
	}
	return toDTO(exchange), nil
}

// Deliver applies one provider message. Messages from origins outside the
// allowlist, and messages for exchanges that already settled, are dropped
// without an error so the sender learns nothing. A late message still wins
// over the deadline as long as the exchange has not been read as timed out.
func (s *service) Deliver(ctx context.Context, exchangeID, origin string, msg Message) error {
	exchange, err := s.load(ctx, exchangeID)
	if err != nil {
		return err
	}

	if !s.originAllowed(origin) {
		s.drop(ctx, "origin_mismatch", exchangeID, origin)
		return nil
	}
	if !msg.Type.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "unknown message type")
	}
	if exchange.Settled() {
		s.drop(ctx, "settled", exchangeID, origin)
		return nil
	}

	switch msg.Type {
	case MessageAuthSuccess:
		if msg.Shop == nil || msg.Shop.ID == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "shop is required")
		}
		if msg.Token == "" {
			exchange.Status = StatusNotAuthenticated
			exchange.Shop = msg.Shop
			exchange.Error = tokenMissingMessage
			s.resolve(exchange, "token_missing")
		} else {
			exchange.Status = StatusAuthenticated
			exchange.Shop = msg.Shop
			exchange.Token = msg.Token
			exchange.Error = ""
			s.resolve(exchange, "authenticated")
		}
	case MessageAuthError:
		exchange.Status = StatusNotAuthenticated
		exchange.Error = msg.Error
		if exchange.Error == "" {
			exchange.Error = "authentication failed"
		}
		s.resolve(exchange, "error")
	case MessageAuthRequired:
		exchange.Status = StatusNotAuthenticated
		exchange.Error = ""
		s.resolve(exchange, "not_authenticated")
	}

	if err := s.store.Save(ctx, exchange, s.cfg.ExchangeTTL); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "save exchange")
	}
	return nil
}

// Get returns the exchange, first settling the timeout: an exchange still
// checking past its deadline with no shop recorded becomes not_authenticated.
func (s *service) Get(ctx context.Context, userID uuid.UUID, exchangeID string) (*ExchangeDTO, error) {
	exchange, err := s.loadOwned(ctx, userID, exchangeID)
	if err != nil {
		return nil, err
	}

	if !exchange.Settled() && exchange.Shop == nil && s.now().After(exchange.DeadlineAt) {
		exchange.Status = StatusNotAuthenticated
		s.resolve(exchange, "timeout")
		if err := s.store.Save(ctx, exchange, s.cfg.ExchangeTTL); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "save exchange")
		}
	}
	return toDTO(exchange), nil
}

func (s *service) Confirm(ctx context.Context, userID uuid.UUID, exchangeID string, req ConfirmRequest) (*LinkResult, error) {
	exchange, err := s.loadOwned(ctx, userID, exchangeID)
	if err != nil {
		return nil, err
	}
	if exchange.Status != StatusAuthenticated {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "exchange is not authenticated")
	}
	if !req.TermsAccepted {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "terms must be accepted to link the shop")
	}

	result, err := s.linker.Link(ctx, userID, exchange)
	if err != nil {
		return nil, err
	}
	if err := s.store.Delete(ctx, exchangeID); err != nil && s.logg != nil {
		s.logg.Error(ctx, "handshake.confirm.cleanup_failed", err)
	}
	if s.metrics != nil {
		s.metrics.IncResolved("confirmed")
	}
	return result, nil
}

func (s *service) load(ctx context.Context, exchangeID string) (*Exchange, error) {
	exchange, err := s.store.Get(ctx, exchangeID)
	if err != nil {
		if errors.Is(err, ErrExchangeNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "exchange not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load exchange")
	}
	return exchange, nil
}

func (s *service) loadOwned(ctx context.Context, userID uuid.UUID, exchangeID string) (*Exchange, error) {
	exchange, err := s.load(ctx, exchangeID)
	if err != nil {
		return nil, err
	}
	if exchange.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "exchange not found")
	}
	return exchange, nil
}

func (s *service) originAllowed(origin string) bool {
	for _, allowed := range s.cfg.ProviderOrigins {
		if origin == allowed {
			return true
		}
	}
	return false
}

func (s *service) resolve(exchange *Exchange, outcome string) {
	if s.metrics != nil {
		s.metrics.IncResolved(outcome)
		s.metrics.ObserveDuration(s.now().Sub(exchange.CreatedAt))
	}
}

func (s *service) drop(ctx context.Context, reason, exchangeID, origin string) {
	if s.metrics != nil {
		s.metrics.IncDropped(reason)
	}
	if s.logg != nil {
		s.logg.Debug(s.logg.WithFields(ctx, map[string]any{
			"exchange_id": exchangeID,
			"origin":      origin,
			"reason":      reason,
		}), "handshake.message.dropped")
	}
}

func toDTO(exchange *Exchange) *ExchangeDTO {
	return &ExchangeDTO{
		ID:         exchange.ID,
		Platform:   exchange.Platform,
		Status:     exchange.Status,
		Shop:       exchange.Shop,
		Error:      exchange.Error,
		DeadlineAt: exchange.DeadlineAt,
	}
}
