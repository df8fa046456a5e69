package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/shoplink/bva-backend/api/responses"
	pkgAuth "github.com/shoplink/bva-backend/pkg/auth"
	"github.com/shoplink/bva-backend/pkg/auth/session"
	"github.com/shoplink/bva-backend/pkg/config"
	pkgerrors "github.com/shoplink/bva-backend/pkg/errors"
	"github.com/shoplink/bva-backend/pkg/logger"
)

// Auth verifies the bearer token, checks its session is still live in redis,
// and seeds the request context with the caller's identity.
func Auth(cfg config.JWTConfig, verifier session.AccessSessionChecker, logg *logger.Logger) func(http.Handler) http.Handler {
	unauthorized := func(w http.ResponseWriter, r *http.Request, msg string, cause error) {
		responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, cause, msg))
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				unauthorized(w, r, "missing credentials", nil)
				return
			}

			claims, err := pkgAuth.ParseAccessToken(cfg, token)
			if err != nil {
				unauthorized(w, r, "invalid token", err)
				return
			}
			if claims.ID == "" {
				unauthorized(w, r, "missing session id", nil)
				return
			}

			if verifier != nil {
				live, err := verifier.HasSession(r.Context(), claims.ID)
				if err != nil {
					responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "validate session"))
					return
				}
				if !live {
					unauthorized(w, r, "session unavailable", nil)
					return
				}
			}

			ctx := context.WithValue(r.Context(), ctxUserID, claims.UserID.String())
			ctx = context.WithValue(ctx, ctxRole, string(claims.Role))

			fields := map[string]any{
				"user_id":    claims.UserID.String(),
				"actor_role": string(claims.Role),
			}
			if claims.ActiveShopID != nil {
				ctx = context.WithValue(ctx, ctxShopID, claims.ActiveShopID.String())
				fields["shop_id"] = claims.ActiveShopID.String()
			}
			if logg != nil {
				ctx = logg.WithFields(ctx, fields)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	raw := strings.TrimSpace(r.Header.Get("Authorization"))
	if strings.HasPrefix(strings.ToLower(raw), "bearer ") {
		return strings.TrimSpace(raw[7:])
	}
	return raw
}
