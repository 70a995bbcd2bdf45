package main

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/xavierca1/ligue-leads/internal/infra/http/handlers"
	"github.com/xavierca1/ligue-leads/internal/infra/http/middleware"
)

type routerDeps struct {
	Logger         *slog.Logger
	AllowedOrigins []string
	Auth           func(http.Handler) http.Handler

	Leads       *handlers.LeadHandler
	Exports     *handlers.ExportHandler
	Conferences *handlers.ConferenceHandler
	Health      *handlers.HealthHandler
}

func newRouter(d routerDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(d.Logger))
	r.Use(chimw.Recoverer)
	r.Use(middleware.Metrics)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: d.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/healthz", d.Health.Handle)
	r.Handle("/metrics", promhttp.Handler())

	r.Post("/leads", d.Leads.CaptureLead)
	r.Get("/conference/{id}", d.Conferences.Get)
	r.Get("/exports/download", d.Exports.Download)

	r.Group(func(r chi.Router) {
		r.Use(d.Auth)
		r.Get("/leads", d.Leads.ListLeads)
		r.Get("/leads/{id}", d.Leads.GetLead)
		r.Patch("/leads/{id}", d.Leads.UpdateLead)
		r.Delete("/leads/{id}", d.Leads.DeleteLead)
		r.Post("/export", d.Exports.Export)
		r.Post("/conference", d.Conferences.Upsert)
	})

	return r
}
