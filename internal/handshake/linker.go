package handshake

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/shoplink/bva-backend/internal/integrations"
	"github.com/shoplink/bva-backend/internal/shops"
	"github.com/shoplink/bva-backend/pkg/db/models"
	pkgerrors "github.com/shoplink/bva-backend/pkg/errors"
)

// LinkResult reports what a confirmed exchange persisted.
type LinkResult struct {
	ShopID        uuid.UUID `json:"shop_id"`
	IntegrationID uuid.UUID `json:"integration_id"`
}

// Linker persists a confirmed exchange: the shop row, the access grant, and
// the active integration, all in one transaction.
type Linker interface {
	Link(ctx context.Context, userID uuid.UUID, exchange *Exchange) (*LinkResult, error)
}

type linker struct {
	tx txRunner
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// NewLinker builds the transactional link writer.
func NewLinker(tx txRunner) (Linker, error) {
	if tx == nil {
		return nil, errors.New("transaction runner is required")
	}
	return &linker{tx: tx}, nil
}

func (l *linker) Link(ctx context.Context, userID uuid.UUID, exchange *Exchange) (*LinkResult, error) {
	if exchange.Shop == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "exchange has no shop recorded")
	}

	var result LinkResult
	err := l.tx.WithTx(ctx, func(tx *gorm.DB) error {
		shopRepo := shops.NewRepository(tx)
		accessRepo := shops.NewAccessRepository(tx)
		integrationRepo := integrations.NewRepository(tx)

		shop, err := shopRepo.FindByExternalID(ctx, exchange.Shop.ID)
		if err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup shop")
			}
			externalID := exchange.Shop.ID
			shop, err = shopRepo.Create(ctx, shops.CreateShopDTO{
				Name:       exchange.Shop.Name,
				OwnerID:    userID,
				Platform:   exchange.Platform,
				ExternalID: &externalID,
			})
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create shop")
			}
		}

		if _, err := accessRepo.Grant(ctx, shop.ID, userID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "grant access")
		}

		active := true
		settings := models.IntegrationSettings{
			TermsAccepted: true,
			IsActive:      &active,
			ShopName:      exchange.Shop.Name,
			AccessToken:   exchange.Token,
		}

		integration, err := integrationRepo.FindByShopAndPlatform(ctx, shop.ID, exchange.Platform)
		switch {
		case err == nil:
			integration.Settings = settings
			if err := integrationRepo.Update(ctx, integration); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "refresh integration")
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			integration = &models.Integration{
				ShopID:   shop.ID,
				Platform: exchange.Platform,
				Settings: settings,
			}
			if err := integrationRepo.Create(ctx, integration); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create integration")
			}
		default:
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup integration")
		}

		result = LinkResult{ShopID: shop.ID, IntegrationID: integration.ID}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}
