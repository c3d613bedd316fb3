package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/GARAGE-POS/odoo-plugin-sub000/api"
	"github.com/GARAGE-POS/odoo-plugin-sub000/api/routes"
	"github.com/GARAGE-POS/odoo-plugin-sub000/internal/accounting"
	"github.com/GARAGE-POS/odoo-plugin-sub000/internal/catalog"
	"github.com/GARAGE-POS/odoo-plugin-sub000/internal/credentials"
	"github.com/GARAGE-POS/odoo-plugin-sub000/internal/idempotency"
	"github.com/GARAGE-POS/odoo-plugin-sub000/internal/ingest"
	"github.com/GARAGE-POS/odoo-plugin-sub000/internal/orders"
	"github.com/GARAGE-POS/odoo-plugin-sub000/internal/payments"
	"github.com/GARAGE-POS/odoo-plugin-sub000/internal/pricing"
	"github.com/GARAGE-POS/odoo-plugin-sub000/internal/products"
	"github.com/GARAGE-POS/odoo-plugin-sub000/internal/sessions"
	"github.com/GARAGE-POS/odoo-plugin-sub000/pkg/config"
	"github.com/GARAGE-POS/odoo-plugin-sub000/pkg/db"
	"github.com/GARAGE-POS/odoo-plugin-sub000/pkg/logger"
	"github.com/GARAGE-POS/odoo-plugin-sub000/pkg/metrics"
	"github.com/GARAGE-POS/odoo-plugin-sub000/pkg/migrate"
	"github.com/GARAGE-POS/odoo-plugin-sub000/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	conn := dbClient.DB()

	store := idempotency.NewStore(conn)
	ordersRepo := orders.NewRepository(conn)

	reconciler, err := orders.NewReconciler(cfg.Ingest.ToleranceMultiplier)
	if err != nil {
		logg.Error(context.Background(), "failed to create reconciler", err)
		os.Exit(1)
	}

	productResolver, err := products.NewResolver(products.NewRepository(conn), logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create product resolver", err)
		os.Exit(1)
	}
	paymentResolver, err := payments.NewResolver(payments.NewRepository(conn))
	if err != nil {
		logg.Error(context.Background(), "failed to create payment resolver", err)
		os.Exit(1)
	}

	assembler, err := orders.NewAssembler(productResolver, paymentResolver, pricing.NewCalculator(), orders.NewPartnerLookup(conn), logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create order assembler", err)
		os.Exit(1)
	}

	finalizers, err := orders.NewFinalizerSelector(ordersRepo, nil, nil, nil, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create finalizers", err)
		os.Exit(1)
	}

	poster, err := accounting.NewPoster(accounting.NewRepository(conn), logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create accounting poster", err)
		os.Exit(1)
	}

	sessionRepo := sessions.NewRepository(conn)
	sessionMgr, err := sessions.NewManager(sessionRepo, poster, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	ingestStats := metrics.NewIngestMetrics(prometheus.DefaultRegisterer)
	ingestSvc, err := ingest.NewService(dbClient, store, reconciler, assembler, ordersRepo, finalizers, sessionMgr, sessionRepo, cfg.Ingest, ingestStats, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create ingest service", err)
		os.Exit(1)
	}

	catalogSvc, err := catalog.NewService(catalog.NewRepository(conn))
	if err != nil {
		logg.Error(context.Background(), "failed to create catalog service", err)
		os.Exit(1)
	}

	authenticator, err := credentials.NewAuthenticator(credentials.NewRepository(conn), logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create authenticator", err)
		os.Exit(1)
	}

	router := routes.NewRouter(routes.Deps{
		Config:         cfg,
		Logger:         logg,
		DBPinger:       dbClient,
		RedisPinger:    redisClient,
		IngestService:  ingestSvc,
		CatalogService: catalogSvc,
		Authenticator:  authenticator,
		WebhookStore:   store,
		Metrics:        promhttp.Handler(),
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := api.NewServer(addr, router)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		logg.Info(ctx, "shutting down api server")
		if err := server.Shutdown(context.Background()); err != nil {
			logg.Error(ctx, "api server shutdown failed", err)
			os.Exit(1)
		}
	}

	logg.Info(ctx, "api server stopped")
}
