package products

import (
	"strings"

	"github.com/shoplink/bva-backend/pkg/enums"
)

// InferPlatform resolves which storefront a product belongs to. A platform
// recorded on a sale line item wins, then a known platform token inside the
// external identifier, then the owning shop's own tag. The order matters:
// it decides which dashboard a product is grouped under.
func InferPlatform(salePlatform *enums.Platform, externalID *string, shopPlatform enums.Platform) enums.Platform {
	if salePlatform != nil && salePlatform.IsValid() {
		return *salePlatform
	}
	if externalID != nil {
		lowered := strings.ToLower(*externalID)
		for _, p := range enums.Platforms() {
			if strings.Contains(lowered, strings.ToLower(p.String())) {
				return p
			}
		}
	}
	return shopPlatform
}
