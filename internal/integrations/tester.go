package integrations

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/shoplink/bva-backend/pkg/enums"
	"github.com/shoplink/bva-backend/pkg/gateway"
)

type statusFetcher interface {
	Get(ctx context.Context, path string, out any) error
}

// GatewayTester probes provider connectivity for a shop through the
// marketplace aggregator API. It backs the integration test operation.
type GatewayTester struct {
	provider statusFetcher
}

// NewGatewayTester constructs a provider-backed connection tester.
func NewGatewayTester(provider *gateway.Client) (*GatewayTester, error) {
	if provider == nil {
		return nil, errors.New("provider client is required")
	}
	return &GatewayTester{provider: provider}, nil
}

// TestConnection asks the aggregator whether the shop's storefront responds
// on the given platform. Any error means the connection is not usable.
func (t *GatewayTester) TestConnection(ctx context.Context, shopID uuid.UUID, platform enums.Platform) error {
	var status struct {
		Reachable bool `json:"reachable"`
	}
	path := fmt.Sprintf("/api/shops/%s/status?platform=%s", shopID, platform)
	if err := t.provider.Get(ctx, path, &status); err != nil {
		return err
	}
	if !status.Reachable {
		return fmt.Errorf("shop %s is not reachable on %s", shopID, platform)
	}
	return nil
}
