// Package router assembles the gateway's HTTP surface: a small control
// plane under /gateway plus the catch-all proxy that carries the host
// application's own traffic.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/courtsidehq/courtgate/internal/http/handlers"
	httpmiddleware "github.com/courtsidehq/courtgate/internal/http/middleware"
	"github.com/courtsidehq/courtgate/pkg/logging"
)

// Config holds router configuration.
type Config struct {
	Logger             *logging.Logger
	Control            *handlers.ControlHandler
	SignalsHandler     http.HandlerFunc
	Proxy              http.Handler
	MetricsHandler     http.Handler
	CORSAllowedOrigins []string
}

// New creates a chi router with all routes configured.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	r.Route("/gateway", func(gw chi.Router) {
		gw.Get("/health", cfg.Control.Health)
		gw.Get("/status", cfg.Control.Status)
		gw.Get("/view", cfg.Control.View)
		gw.Post("/select", cfg.Control.Select)
		gw.Get("/prefs", cfg.Control.GetPrefs)
		gw.Put("/prefs", cfg.Control.PutPrefs)
		if cfg.SignalsHandler != nil {
			gw.Get("/signals", cfg.SignalsHandler)
		}
		if cfg.MetricsHandler != nil {
			gw.Handle("/metrics", cfg.MetricsHandler)
		}
	})

	// Everything else is the host's own traffic and flows through the
	// intercepting proxy.
	if cfg.Proxy != nil {
		r.NotFound(cfg.Proxy.ServeHTTP)
	}

	return r
}
