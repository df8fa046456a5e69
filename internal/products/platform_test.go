package products

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/shoplink/bva-backend/pkg/enums"
)

func platformPtr(p enums.Platform) *enums.Platform { return &p }

func strPtr(s string) *string { return &s }

func TestInferPlatformPrecedence(t *testing.T) {
	cases := []struct {
		name         string
		salePlatform *enums.Platform
		externalID   *string
		shopPlatform enums.Platform
		want         enums.Platform
	}{
		{
			name:         "sale line item wins over everything",
			salePlatform: platformPtr(enums.PlatformTikTok),
			externalID:   strPtr("shopee-123"),
			shopPlatform: enums.PlatformLazada,
			want:         enums.PlatformTikTok,
		},
		{
			name:         "external id token when no sale recorded",
			externalID:   strPtr("SHOPEE-998877"),
			shopPlatform: enums.PlatformLazada,
			want:         enums.PlatformShopee,
		},
		{
			name:         "external id match is case insensitive",
			externalID:   strPtr("order_LaZaDa_42"),
			shopPlatform: enums.PlatformShopee,
			want:         enums.PlatformLazada,
		},
		{
			name:         "shop tag when external id has no known token",
			externalID:   strPtr("legacy-0042"),
			shopPlatform: enums.PlatformTikTok,
			want:         enums.PlatformTikTok,
		},
		{
			name:         "shop tag for locally created products",
			shopPlatform: enums.PlatformShopee,
			want:         enums.PlatformShopee,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := InferPlatform(tc.salePlatform, tc.externalID, tc.shopPlatform)
			require.Equal(t, tc.want, got)
		})
	}
}
