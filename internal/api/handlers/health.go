package handlers

import (
	"log/slog"
	"net/http"

	"github.com/Fantasim/ckbtc-minter/internal/config"
)

// HealthHandler returns a handler for GET /api/health.
func HealthHandler(cfg *config.Config, version string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slog.Debug("health check requested", "remoteAddr", r.RemoteAddr)

		writeJSON(w, http.StatusOK, map[string]string{
			"status":  "ok",
			"version": version,
			"network": cfg.BtcNetwork,
			"dbPath":  cfg.DBPath,
		})
	}
}
