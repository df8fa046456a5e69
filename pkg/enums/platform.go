package enums

import (
	"fmt"
	"strings"
)

// Platform tags which external storefront system a shop or sale came from.
type Platform string

const (
	PlatformShopee Platform = "SHOPEE"
	PlatformLazada Platform = "LAZADA"
	PlatformTikTok Platform = "TIKTOK"
	PlatformOther  Platform = "OTHER"
)

var validPlatforms = []Platform{
	PlatformShopee,
	PlatformLazada,
	PlatformTikTok,
	PlatformOther,
}

// String implements fmt.Stringer.
func (p Platform) String() string {
	return string(p)
}

// IsValid reports whether the value is a known Platform.
func (p Platform) IsValid() bool {
	for _, candidate := range validPlatforms {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePlatform converts raw input into a Platform, case-insensitively.
func ParsePlatform(value string) (Platform, error) {
	normalized := strings.ToUpper(strings.TrimSpace(value))
	for _, candidate := range validPlatforms {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid platform %q", value)
}

// Platforms returns every external platform excluding OTHER, in stable order.
// Used when matching platform name tokens inside external identifiers.
func Platforms() []Platform {
	return []Platform{PlatformShopee, PlatformLazada, PlatformTikTok}
}
