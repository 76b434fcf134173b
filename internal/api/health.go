package api

import (
	"net/http"
	"time"

	"github.com/modelgate/gateway/internal/history"
)

type HealthOptions struct {
	Version   string
	StartedAt time.Time
	State     *state
}

type healthResponse struct {
	Status        string `json:"status"`
	Version       string `json:"version"`
	UptimeSec     int64  `json:"uptime_sec"`
	ProviderCount int    `json:"provider_count"`
}

func HealthHandler(options HealthOptions) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !requireMethod(w, r, http.MethodGet) {
			return
		}

		_, registry := options.State.snapshot()
		writeJSON(w, http.StatusOK, healthResponse{
			Status:        "ok",
			Version:       options.Version,
			UptimeSec:     int64(time.Since(options.StartedAt).Seconds()),
			ProviderCount: len(registry.Names()),
		})
	})
}

type historyResponse struct {
	Entries []history.Entry `json:"entries"`
	Count   int             `json:"count"`
}

// HistoryHandler returns the recent exchanges, newest first.
func HistoryHandler(log *history.Log) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !requireMethod(w, r, http.MethodGet) {
			return
		}

		entries := []history.Entry{}
		if log != nil {
			entries = log.Entries()
		}
		writeJSON(w, http.StatusOK, historyResponse{
			Entries: entries,
			Count:   len(entries),
		})
	})
}

type modelEntry struct {
	Provider     string `json:"provider"`
	DefaultModel string `json:"default_model"`
}

// ModelsHandler lists the registered providers and their default models.
func ModelsHandler(st *state) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !requireMethod(w, r, http.MethodGet) {
			return
		}

		_, registry := st.snapshot()
		models := make([]modelEntry, 0)
		for _, name := range registry.Names() {
			models = append(models, modelEntry{
				Provider:     name,
				DefaultModel: registry.DefaultModel(name),
			})
		}
		writeJSON(w, http.StatusOK, map[string]any{"models": models})
	})
}
