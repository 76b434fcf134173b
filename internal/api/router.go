// Package api is the gateway's HTTP surface. Every response, success or
// failure, is JSON; chat failures travel as canonical error envelopes so
// callers never see a raw provider error.
package api

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/modelgate/gateway/internal/config"
	"github.com/modelgate/gateway/internal/extract"
	"github.com/modelgate/gateway/internal/history"
	"github.com/modelgate/gateway/internal/limits"
	"github.com/modelgate/gateway/internal/normalize"
	"github.com/modelgate/gateway/internal/observability"
	"github.com/modelgate/gateway/internal/upstream"
)

type RouterOptions struct {
	AppVersion    string
	Config        config.Config
	ConfigPath    string
	Logger        *slog.Logger
	Normalizer    *normalize.Normalizer
	Extractor     *extract.Extractor
	Registry      *upstream.Registry
	Limiter       *limits.Limiter
	History       *history.Log
	Observability *observability.Runtime
}

// state is the mutable slice of router dependencies: the running config and
// the provider registry derived from it. PUT /api/config swaps both under
// the lock. The transport is kept so registry rebuilds stay instrumented.
type state struct {
	mu        sync.RWMutex
	cfg       config.Config
	registry  *upstream.Registry
	transport http.RoundTripper
}

func (s *state) snapshot() (config.Config, *upstream.Registry) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg, s.registry
}

func (s *state) swap(cfg config.Config, registry *upstream.Registry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg = cfg
	s.registry = registry
}

func NewRouter(options RouterOptions) http.Handler {
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}
	normalizer := options.Normalizer
	if normalizer == nil {
		normalizer = normalize.New(logger)
	}
	extractor := options.Extractor
	if extractor == nil {
		extractor = extract.New(logger)
	}
	transport := options.Observability.WrapHTTPTransport(nil)
	registry := options.Registry
	if registry == nil {
		registry = upstream.FromConfig(options.Config.Providers, transport)
	}
	st := &state{cfg: options.Config, registry: registry, transport: transport}

	startedAt := time.Now().UTC()
	mux := http.NewServeMux()

	mux.Handle("/api/chat", RateLimitMiddleware(options.Limiter, options.Observability,
		ChatHandler(ChatOptions{
			State:         st,
			Logger:        logger,
			Normalizer:    normalizer,
			Extractor:     extractor,
			History:       options.History,
			Observability: options.Observability,
		})))
	mux.Handle("/api/tokenize", TokenizeHandler())
	mux.Handle("/api/cost", CostHandler())
	mux.Handle("/api/config", ConfigHandler(st, options.ConfigPath, logger))
	mux.Handle("/api/history", HistoryHandler(options.History))
	mux.Handle("/api/models", ModelsHandler(st))
	mux.Handle("/api/health", HealthHandler(HealthOptions{
		Version:   options.AppVersion,
		StartedAt: startedAt,
		State:     st,
	}))
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{
			"name":    "modelgate gateway",
			"version": options.AppVersion,
			"status":  "ok",
		})
	})

	return withCORS(LoggingMiddleware(logger, mux))
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	var body bytes.Buffer
	if err := json.NewEncoder(&body).Encode(payload); err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("{\"error\":\"internal server error\"}\n"))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body.Bytes())
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{
		"error": message,
	})
}

// writeEnvelope emits a canonical error envelope with the HTTP status the
// envelope itself carries.
func writeEnvelope(w http.ResponseWriter, envelope *normalize.ErrorEnvelope) {
	writeJSON(w, envelope.StatusCode, envelope)
}

func requireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method == method {
		return true
	}
	w.Header().Set("Allow", method+", OPTIONS")
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	return false
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Api-Key")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
