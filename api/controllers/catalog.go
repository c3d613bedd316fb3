package controllers

import (
	"net/http"
	"strings"

	"github.com/GARAGE-POS/odoo-plugin-sub000/api/responses"
	"github.com/GARAGE-POS/odoo-plugin-sub000/api/validators"
	"github.com/GARAGE-POS/odoo-plugin-sub000/internal/catalog"
	"github.com/GARAGE-POS/odoo-plugin-sub000/pkg/logger"
	"github.com/GARAGE-POS/odoo-plugin-sub000/pkg/pagination"
)

const maxCatalogQueryLen = 120

func catalogFilters(r *http.Request) catalog.ListFilters {
	query := r.URL.Query()
	activeOnly := true
	if raw := strings.TrimSpace(query.Get("active_only")); raw != "" {
		activeOnly = raw != "false" && raw != "0"
	}
	return catalog.ListFilters{
		ActiveOnly: activeOnly,
		Query:      validators.SanitizeString(query.Get("q"), maxCatalogQueryLen),
	}
}

func CatalogProducts(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		list, err := svc.ListProducts(ctx, pagination.FromRequest(r), catalogFilters(r))
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

func CatalogVendors(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		list, err := svc.ListVendors(ctx, pagination.FromRequest(r), catalogFilters(r))
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

func CatalogUOMs(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		list, err := svc.ListUOMs(ctx, pagination.FromRequest(r), catalogFilters(r))
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}
