package api

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/modelgate/gateway/internal/config"
	"github.com/modelgate/gateway/internal/upstream"
)

// ConfigHandler serves the running configuration and accepts replacements.
// A PUT validates the new configuration, persists it when a config path is
// set, and rebuilds the provider registry so new providers take effect
// without a restart. Server address and observability changes still need a
// restart.
func ConfigHandler(st *state, configPath string, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			cfg, _ := st.snapshot()
			writeJSON(w, http.StatusOK, cfg)
		case http.MethodPut:
			var cfg config.Config
			decoder := json.NewDecoder(io.LimitReader(r.Body, maxChatBodyBytes))
			decoder.DisallowUnknownFields()
			if err := decoder.Decode(&cfg); err != nil {
				writeError(w, http.StatusBadRequest, "malformed JSON body: "+err.Error())
				return
			}
			if err := config.Validate(cfg); err != nil {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
			if configPath != "" {
				if err := config.Save(configPath, cfg); err != nil {
					logger.ErrorContext(r.Context(), "persist config failed", "path", configPath, "error", err)
					writeError(w, http.StatusInternalServerError, "failed to persist configuration")
					return
				}
			}

			st.swap(cfg, upstream.FromConfig(cfg.Providers, st.transport))
			logger.InfoContext(r.Context(), "configuration replaced",
				"providers", cfg.EnabledProviders(), "persisted", configPath != "")
			writeJSON(w, http.StatusOK, cfg)
		default:
			w.Header().Set("Allow", "GET, PUT, OPTIONS")
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		}
	})
}
