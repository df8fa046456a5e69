package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shoplink/bva-backend/api/controllers"
	"github.com/shoplink/bva-backend/api/middleware"
	adsvc "github.com/shoplink/bva-backend/internal/ads"
	authsvc "github.com/shoplink/bva-backend/internal/auth"
	handshakesvc "github.com/shoplink/bva-backend/internal/handshake"
	integrationsvc "github.com/shoplink/bva-backend/internal/integrations"
	productsvc "github.com/shoplink/bva-backend/internal/products"
	shopsvc "github.com/shoplink/bva-backend/internal/shops"
	smartshelfsvc "github.com/shoplink/bva-backend/internal/smartshelf"
	"github.com/shoplink/bva-backend/pkg/auth/session"
	"github.com/shoplink/bva-backend/pkg/config"
	"github.com/shoplink/bva-backend/pkg/enums"
	"github.com/shoplink/bva-backend/pkg/logger"
	"github.com/shoplink/bva-backend/pkg/redis"
)

type sessionManager interface {
	session.AccessSessionChecker
	Rotate(context.Context, string, string) (string, string, error)
	Revoke(context.Context, string) error
}

type pinger interface {
	Ping(ctx context.Context) error
}

// RouterParams collects everything the HTTP surface depends on.
type RouterParams struct {
	Config       *config.Config
	Logger       *logger.Logger
	DB           pinger
	Redis        *redis.Client
	Sessions     sessionManager
	AuthService  authsvc.Service
	Register     authsvc.RegisterService
	Shops        shopsvc.Service
	Integrations integrationsvc.Service
	Products     productsvc.Service
	Handshake    handshakesvc.Service
	SmartShelf   smartshelfsvc.Service
	Ads          adsvc.Service
	PromRegistry *prometheus.Registry
}

// NewRouter wires the full HTTP surface.
func NewRouter(p RouterParams) http.Handler {
	cfg := p.Config
	logg := p.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.CORS),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, p.DB, p.Redis))
	})

	if p.PromRegistry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(p.PromRegistry, promhttp.HandlerOpts{}))
	}

	r.Route("/api", func(r chi.Router) {
		// Public surface. The provider storefront posts handshake
		// messages from its own origin, so that route cannot sit
		// behind the bearer-token gate; the service checks the
		// Origin header against the allowlist instead.
		r.With(
			middleware.AuthRateLimit(registerPolicy, p.Redis, logg),
			middleware.Idempotency(p.Redis, logg),
		).Post("/users/register", controllers.AuthRegister(p.Register, logg))
		r.With(middleware.AuthRateLimit(loginPolicy, p.Redis, logg)).Post("/users/login", controllers.AuthLogin(p.AuthService, logg))
		r.Post("/users/refresh", controllers.AuthRefresh(p.AuthService, logg))
		r.Post("/users/logout", controllers.AuthLogout(p.AuthService, cfg.JWT, logg))
		r.Post("/handshake/{exchangeId}/message", controllers.DeliverHandshakeMessage(p.Handshake, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, p.Sessions, logg))
			r.Use(middleware.Idempotency(p.Redis, logg))

			// Buyers hold read-only dashboard accounts; anything that
			// mutates shop state requires a seller token.
			seller := middleware.RequireRole(enums.UserRoleSeller.String(), logg)

			r.Post("/users/change-password", controllers.AuthChangePassword(p.AuthService, logg))

			r.With(seller).Post("/handshake", controllers.OpenHandshake(p.Handshake, logg))
			r.Get("/handshake/{exchangeId}", controllers.GetHandshake(p.Handshake, logg))
			r.With(seller).Post("/handshake/{exchangeId}/confirm", controllers.ConfirmHandshake(p.Handshake, logg))

			r.Route("/integrations", func(r chi.Router) {
				r.Get("/", controllers.ListIntegrations(p.Integrations, logg))
				r.With(seller).Post("/", controllers.CreateIntegration(p.Integrations, logg))
				r.Get("/{integrationId}", controllers.GetIntegration(p.Integrations, logg))
				r.With(seller).Put("/{integrationId}", controllers.UpdateIntegration(p.Integrations, logg))
				r.With(seller).Delete("/{integrationId}", controllers.DeleteIntegration(p.Integrations, logg))
				r.With(seller).Post("/{integrationId}/test", controllers.TestIntegration(p.Integrations, logg))
				r.With(seller).Post("/{integrationId}/sync", controllers.SyncIntegration(p.Integrations, logg))
			})

			r.Route("/products", func(r chi.Router) {
				r.Get("/user/all", controllers.ListUserProducts(p.Products, logg))
				r.Get("/shop/{shopId}", controllers.ListShopProducts(p.Products, logg))
				r.With(seller).Post("/", controllers.CreateProduct(p.Products, logg))
				r.With(seller).Patch("/{productId}", controllers.UpdateProduct(p.Products, logg))
				r.With(seller).Delete("/{productId}", controllers.DeleteProduct(p.Products, logg))
			})

			r.Route("/shops", func(r chi.Router) {
				r.Get("/", controllers.ListShops(p.Shops, logg))
				r.With(seller).Post("/sync", controllers.SyncShops(p.Shops, logg))
				r.Get("/{shopId}", controllers.GetShop(p.Shops, logg))
				r.With(seller).Put("/{shopId}", controllers.UpdateShop(p.Shops, logg))
				r.With(seller).Post("/{shopId}/revoke-access", controllers.RevokeShopAccess(p.Shops, logg))
			})

			r.Route("/smart-shelf", func(r chi.Router) {
				r.Get("/dashboard/user", controllers.SmartShelfDashboard(p.SmartShelf, logg))
				r.Get("/at-risk/user", controllers.SmartShelfAtRisk(p.SmartShelf, logg))
			})

			r.Post("/restock/strategy", controllers.RestockStrategy(p.SmartShelf, logg))
			r.Post("/ads/generate", controllers.GenerateAd(p.Ads, logg))
		})
	})

	return r
}
