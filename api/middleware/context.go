package middleware

import "context"

type contextKey string

const (
	ctxUserID contextKey = "user_id"
	ctxRole   contextKey = "actor_role"
	ctxShopID contextKey = "shop_id"
)

func fromContext(ctx context.Context, key contextKey) string {
	if ctx == nil {
		return ""
	}
	v, _ := ctx.Value(key).(string)
	return v
}

// UserIDFromContext returns the authenticated user's id, or "" before Auth ran.
func UserIDFromContext(ctx context.Context) string {
	return fromContext(ctx, ctxUserID)
}

func RoleFromContext(ctx context.Context) string {
	return fromContext(ctx, ctxRole)
}

// ShopIDFromContext returns the token's active shop, "" when none was selected.
func ShopIDFromContext(ctx context.Context) string {
	return fromContext(ctx, ctxShopID)
}

// WithUserID injects the user identifier, mainly for tests and internal calls.
func WithUserID(ctx context.Context, userID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxUserID, userID)
}

// WithShopID injects the active shop identifier.
func WithShopID(ctx context.Context, shopID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxShopID, shopID)
}
