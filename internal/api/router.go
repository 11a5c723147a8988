// VeriLoc - GNSS Position Authenticity Verification Gateway
// Copyright 2026 VeriLoc Authors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/veriloc/veriloc

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Realm roles required per route group.
const (
	roleUserFeed   = "UserFeed"
	roleTest       = "Test"
	roleIoTFeed    = "IoTFeed"
	roleExtraction = "Extraction"
	roleAdmin      = "Administration"
)

// Router builds the HTTP routing tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(correlationMiddleware)
	r.Use(chimiddleware.Recoverer)
	r.Use(metricsMiddleware)

	if len(s.cfg.Server.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: s.cfg.Server.CORSOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Authorization", "Content-Type", "X-Correlation-ID"},
			MaxAge:         300,
		}))
	}
	r.Use(httprate.LimitByIP(s.cfg.Server.RateLimitReqs, s.cfg.Server.RateLimitWindow))

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health/live", s.handleLive)
		r.Get("/health/ready", s.handleReady)

		r.Group(func(r chi.Router) {
			r.Use(requireRole(s.cfg.Security, roleUserFeed))
			r.Post("/authenticate", s.handleAuthenticate)
		})

		r.Group(func(r chi.Router) {
			r.Use(requireRole(s.cfg.Security, roleTest))
			r.Post("/authenticate/test", s.handleAuthenticateTest)
		})

		r.Group(func(r chi.Router) {
			r.Use(requireRole(s.cfg.Security, roleIoTFeed))
			r.Post("/iot/authenticate", s.handleIoTAuthenticate)
			r.Post("/iot/authenticate/store", s.handleIoTStore)
		})

		r.Group(func(r chi.Router) {
			r.Use(requireRole(s.cfg.Security, roleExtraction))
			r.Get("/journey/{id}/mobility", s.handleJourneyMobility)
			r.Get("/journey/{id}/details", s.handleJourneyDetails)
		})

		r.Group(func(r chi.Router) {
			r.Use(requireRole(s.cfg.Security, roleAdmin))
			r.Post("/accounting/{source_app}", s.handleAccountingExtract)
		})
	})

	return r
}
