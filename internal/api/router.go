// Package api wires the minter's read-only HTTP query surface onto a chi
// router, reusing the existing request-logging and localhost-only
// security middleware stack.
package api

import (
	"log/slog"

	"github.com/Fantasim/ckbtc-minter/internal/api/handlers"
	"github.com/Fantasim/ckbtc-minter/internal/api/middleware"
	"github.com/Fantasim/ckbtc-minter/internal/config"
	"github.com/go-chi/chi/v5"
)

// Version is set at build time via ldflags.
var Version = "dev"

// NewRouter creates and configures the chi router serving the minter's
// query endpoints. Every handler reads through minter.WithStateRead; none
// of them mutate state.
func NewRouter(cfg *config.Config) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestLogging)
	r.Use(middleware.HostCheck)
	r.Use(middleware.CORS)
	r.Use(middleware.CSRF)

	slog.Info("router initialized",
		"middleware", []string{"requestLogging", "hostCheck", "cors", "csrf"},
	)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", handlers.HealthHandler(cfg, Version))
		r.Get("/total_btc_managed", handlers.TotalBtcManaged)
		r.Get("/retrieve_btc_status_v2", handlers.RetrieveBtcStatusV2)

		r.Route("/utxos", func(r chi.Router) {
			r.Get("/ignored", handlers.IgnoredUtxos)
			r.Get("/quarantined", handlers.QuarantinedUtxos)
			r.Get("/mint_status_unknown", handlers.MintStatusUnknownUtxos)
			r.Get("/known", handlers.KnownUtxosForAccount)
		})
	})

	return r
}
