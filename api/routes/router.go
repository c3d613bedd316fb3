package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/GARAGE-POS/odoo-plugin-sub000/api/controllers"
	webhookcontrollers "github.com/GARAGE-POS/odoo-plugin-sub000/api/controllers/webhooks"
	"github.com/GARAGE-POS/odoo-plugin-sub000/api/middleware"
	"github.com/GARAGE-POS/odoo-plugin-sub000/internal/catalog"
	"github.com/GARAGE-POS/odoo-plugin-sub000/internal/credentials"
	"github.com/GARAGE-POS/odoo-plugin-sub000/internal/idempotency"
	"github.com/GARAGE-POS/odoo-plugin-sub000/internal/ingest"
	"github.com/GARAGE-POS/odoo-plugin-sub000/pkg/config"
	"github.com/GARAGE-POS/odoo-plugin-sub000/pkg/logger"
)

// Deps carries everything the router wires into handlers.
type Deps struct {
	Config         *config.Config
	Logger         *logger.Logger
	DBPinger       controllers.Pinger
	RedisPinger    controllers.Pinger
	IngestService  ingest.Service
	CatalogService catalog.Service
	Authenticator  credentials.Authenticator
	WebhookStore   idempotency.Store
	Metrics        http.Handler
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.DBPinger, deps.RedisPinger))
	})

	if deps.Metrics != nil {
		r.Handle("/metrics", deps.Metrics)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/webhooks/orders", func(r chi.Router) {
			r.Post("/", webhookcontrollers.SubmitOrder(deps.IngestService, deps.Authenticator, deps.WebhookStore, logg))
			r.Post("/bulk", webhookcontrollers.SubmitOrdersBulk(deps.IngestService, deps.Authenticator, deps.WebhookStore, logg))
		})

		r.Get("/health", controllers.HealthReady(cfg, logg, deps.DBPinger, deps.RedisPinger))
		r.Get("/products", controllers.CatalogProducts(deps.CatalogService, logg))
		r.Get("/vendors", controllers.CatalogVendors(deps.CatalogService, logg))
		r.Get("/uoms", controllers.CatalogUOMs(deps.CatalogService, logg))
	})

	return r
}
