package controllers

import (
	"context"
	"net/http"

	"github.com/GARAGE-POS/odoo-plugin-sub000/api/responses"
	"github.com/GARAGE-POS/odoo-plugin-sub000/pkg/config"
	pkgerrors "github.com/GARAGE-POS/odoo-plugin-sub000/pkg/errors"
	"github.com/GARAGE-POS/odoo-plugin-sub000/pkg/logger"
)

// Pinger is the health-check surface the readiness probe needs.
type Pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-PosBridge-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings the database and redis. Nil dependencies are skipped so
// the worker deployments can reuse the handler with a partial wiring.
func HealthReady(cfg *config.Config, logg *logger.Logger, dbP Pinger, redisP Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		w.Header().Set("X-PosBridge-Env", cfg.App.Env)

		checks := map[string]string{}
		failed := false
		for name, dep := range map[string]Pinger{"database": dbP, "redis": redisP} {
			if dep == nil {
				continue
			}
			if err := dep.Ping(ctx); err != nil {
				checks[name] = "unavailable"
				failed = true
				if logg != nil {
					logg.Error(logg.WithField(ctx, "dependency", name), "readiness check failed", err)
				}
				continue
			}
			checks[name] = "ok"
		}

		if failed {
			responses.WriteError(ctx, logg, w,
				pkgerrors.New(pkgerrors.CodeDependency, "dependency unavailable").WithDetails(checks))
			return
		}
		responses.WriteSuccess(w, map[string]any{"status": "ready", "checks": checks})
	}
}
