package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/shoplink/bva-backend/api/routes"
	adsvc "github.com/shoplink/bva-backend/internal/ads"
	"github.com/shoplink/bva-backend/internal/auth"
	"github.com/shoplink/bva-backend/internal/handshake"
	"github.com/shoplink/bva-backend/internal/integrations"
	"github.com/shoplink/bva-backend/internal/products"
	"github.com/shoplink/bva-backend/internal/sales"
	"github.com/shoplink/bva-backend/internal/shops"
	"github.com/shoplink/bva-backend/internal/smartshelf"
	"github.com/shoplink/bva-backend/internal/users"
	"github.com/shoplink/bva-backend/pkg/auth/session"
	"github.com/shoplink/bva-backend/pkg/config"
	"github.com/shoplink/bva-backend/pkg/db"
	"github.com/shoplink/bva-backend/pkg/gateway"
	"github.com/shoplink/bva-backend/pkg/logger"
	"github.com/shoplink/bva-backend/pkg/metrics"
	"github.com/shoplink/bva-backend/pkg/migrate"
	"github.com/shoplink/bva-backend/pkg/mlservice"
	"github.com/shoplink/bva-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		fail(logg, "failed to load config", err)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := openDatabase(context.Background(), cfg, logg)
	if err != nil {
		fail(logg, "failed to bootstrap database", err)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		fail(logg, "failed to run dev migrations", err)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		fail(logg, "failed to bootstrap redis", err)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		fail(logg, "failed to create session manager", err)
	}

	registry := prometheus.NewRegistry()
	handshakeMetrics := metrics.NewHandshakeMetrics(registry)
	mlMetrics := metrics.NewMLServiceMetrics(registry)
	syncMetrics := metrics.NewSyncJobMetrics(registry)

	gormDB := dbClient.DB()
	userRepo := users.NewRepository(gormDB)
	shopRepo := shops.NewRepository(gormDB)
	accessRepo := shops.NewAccessRepository(gormDB)
	integrationRepo := integrations.NewRepository(gormDB)
	productRepo := products.NewRepository(gormDB)
	saleRepo := sales.NewRepository(gormDB)

	providerClient, err := gateway.NewClient(
		cfg.Provider.BaseURL,
		gateway.TokenFunc(func(context.Context) string { return cfg.Provider.APIKey }),
		logg,
		gateway.WithHTTPClient(&http.Client{Timeout: cfg.Provider.Timeout}),
	)
	if err != nil {
		fail(logg, "failed to create provider client", err)
	}

	mlClient, err := mlservice.NewClient(cfg.ML, logg, mlMetrics)
	if err != nil {
		fail(logg, "failed to create analytics client", err)
	}

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       userRepo,
		ShopRepo:       shopRepo,
		SessionManager: sessionManager,
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
	})
	if err != nil {
		fail(logg, "failed to create auth service", err)
	}

	registerService, err := auth.NewRegisterService(auth.RegisterServiceParams{
		TxRunner:       dbClient,
		PasswordConfig: cfg.Password,
	})
	if err != nil {
		fail(logg, "failed to create register service", err)
	}

	shopService, err := shops.NewService(shops.ServiceParams{
		ShopRepo:    shopRepo,
		AccessRepo:  accessRepo,
		Logger:      logg,
		SyncMetrics: syncMetrics,
	})
	if err != nil {
		fail(logg, "failed to create shop service", err)
	}

	productSyncer, err := products.NewSyncer(providerClient, productRepo, logg)
	if err != nil {
		fail(logg, "failed to create product syncer", err)
	}

	connectionTester, err := integrations.NewGatewayTester(providerClient)
	if err != nil {
		fail(logg, "failed to create connection tester", err)
	}

	integrationService, err := integrations.NewService(integrations.ServiceParams{
		Repo:       integrationRepo,
		AccessRepo: accessRepo,
		Tester:     connectionTester,
		Syncer:     productSyncer,
		Logger:     logg,
	})
	if err != nil {
		fail(logg, "failed to create integration service", err)
	}

	productService, err := products.NewService(products.ServiceParams{
		Repo:       productRepo,
		AccessRepo: accessRepo,
		ShopRepo:   shopRepo,
		Sales:      saleRepo,
		Logger:     logg,
	})
	if err != nil {
		fail(logg, "failed to create product service", err)
	}

	exchangeStore, err := handshake.NewRedisStore(redisClient)
	if err != nil {
		fail(logg, "failed to create exchange store", err)
	}
	linker, err := handshake.NewLinker(dbClient)
	if err != nil {
		fail(logg, "failed to create shop linker", err)
	}
	handshakeService, err := handshake.NewService(handshake.ServiceParams{
		Store:   exchangeStore,
		Linker:  linker,
		Config:  cfg.Handshake,
		Metrics: handshakeMetrics,
		Logger:  logg,
	})
	if err != nil {
		fail(logg, "failed to create handshake service", err)
	}

	smartShelfService, err := smartshelf.NewService(smartshelf.ServiceParams{
		AccessRepo:   accessRepo,
		ShopRepo:     shopRepo,
		Integrations: integrationService,
		ProductRepo:  productRepo,
		SaleRepo:     saleRepo,
		ML:           mlClient,
		Logger:       logg,
	})
	if err != nil {
		fail(logg, "failed to create smart-shelf service", err)
	}

	adService, err := adsvc.NewService(adsvc.ServiceParams{
		ProductRepo: productRepo,
		AccessRepo:  accessRepo,
		ML:          mlClient,
		Logger:      logg,
	})
	if err != nil {
		fail(logg, "failed to create ad service", err)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	id := os.Getenv("DYNO")
	if id == "" {
		id = "local"
	}
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": id,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.RouterParams{
			Config:       cfg,
			Logger:       logg,
			DB:           dbClient,
			Redis:        redisClient,
			Sessions:     sessionManager,
			AuthService:  authService,
			Register:     registerService,
			Shops:        shopService,
			Integrations: integrationService,
			Products:     productService,
			Handshake:    handshakeService,
			SmartShelf:   smartShelfService,
			Ads:          adService,
			PromRegistry: registry,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

// openDatabase honors the sqlite feature flag used for local development;
// everything else goes through the pooled postgres client.
func openDatabase(ctx context.Context, cfg *config.Config, logg *logger.Logger) (*db.Client, error) {
	if !cfg.FeatureFlags.UseSQLite {
		return db.New(ctx, cfg.DB, logg)
	}
	conn, err := gorm.Open(sqlite.Open(cfg.DB.DSN), &gorm.Config{SkipDefaultTransaction: true})
	if err != nil {
		return nil, err
	}
	logg.Info(ctx, "sqlite database opened")
	return db.NewFromGorm(conn), nil
}

func fail(logg *logger.Logger, msg string, err error) {
	logg.Error(context.Background(), msg, err)
	os.Exit(1)
}
