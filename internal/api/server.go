// Package api serves the plantation HTTP API.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/AlchemistMonkey02/Geotree-server/internal/combined"
	"github.com/AlchemistMonkey02/Geotree-server/internal/plantation"
	"github.com/AlchemistMonkey02/Geotree-server/internal/store"
)

// Options configures a Server.
type Options struct {
	JWTSecret   string
	Debug       bool
	MaxLimit    int
	Pagination  combined.Strategy
	CORSOrigins []string
}

// Server holds the handler dependencies.
type Server struct {
	store    store.Store
	engine   *combined.Engine
	stats    *combined.Aggregator
	auth     *Authenticator
	debug    bool
	maxLimit int
	origins  []string
}

// NewServer wires handlers to st.
func NewServer(st store.Store, opts Options) *Server {
	maxLimit := opts.MaxLimit
	if maxLimit <= 0 {
		maxLimit = combined.DefaultMaxLimit
	}
	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return &Server{
		store:    st,
		engine:   combined.NewEngine(st, opts.Pagination),
		stats:    combined.NewAggregator(st),
		auth:     NewAuthenticator(opts.JWTSecret),
		debug:    opts.Debug,
		maxLimit: maxLimit,
		origins:  origins,
	}
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type", "If-Match"},
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         300,
	}))
	r.Use(instrument)
	r.Use(s.recoverer)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		s.fail(w, r, plantation.NotFound("route", r.URL.Path))
	})

	r.Get("/health", s.health)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Route("/combined-plantations", func(r chi.Router) {
			r.Get("/", s.listCombined)
			r.Get("/dashboard", s.dashboard)
		})

		r.Route("/individual-plantations", func(r chi.Router) {
			r.Get("/", s.listKind(plantation.KindIndividual))
			r.Get("/{id}", s.getIndividual)
			r.Group(func(r chi.Router) {
				r.Use(s.requireAuth)
				r.Post("/", s.createIndividual)
				r.Patch("/{id}", s.updateIndividual)
				r.With(s.requireRole(plantation.IsAdmin, "only admins can delete plantations")).
					Delete("/{id}", s.deleteIndividual)
				r.With(s.requireRole(plantation.CanVerify, "only verifiers can verify plantations")).
					Patch("/{id}/verify", s.verifyIndividual)
			})
		})

		r.Route("/block-plantations", func(r chi.Router) {
			r.Get("/", s.listKind(plantation.KindBlock))
			r.Get("/statistics", s.blockStatistics)
			r.Get("/{id}", s.getBlock)
			r.Group(func(r chi.Router) {
				r.Use(s.requireAuth)
				r.Post("/", s.createBlock)
				r.Patch("/{id}", s.updateBlock)
				r.With(s.requireRole(plantation.IsAdmin, "only admins can delete plantations")).
					Delete("/{id}", s.deleteBlock)
				r.With(s.requireRole(plantation.CanVerify, "only verifiers can verify plantations")).
					Patch("/{id}/verify", s.verifyBlock)
			})
		})

		r.Route("/land-ownerships", func(r chi.Router) {
			r.Use(s.requireAuth)
			r.Get("/", s.listLand)
			r.Post("/", s.createLand)
			r.Get("/{id}", s.getLand)
			r.Patch("/{id}", s.updateLand)
			r.With(s.requireRole(plantation.IsAdmin, "only admins can delete land ownership records")).
				Delete("/{id}", s.deleteLand)
		})
	})

	return r
}
