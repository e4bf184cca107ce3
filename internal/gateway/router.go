package gateway

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/tutorloop/voice-service/internal/config"
	"github.com/tutorloop/voice-service/internal/observability"
	"github.com/tutorloop/voice-service/internal/session"
)

// NewRouter builds the service's HTTP surface: the WebSocket endpoint for
// voice sessions, a REST synthesis endpoint for clients that only need
// audio, and the operational endpoints.
func NewRouter(cfg *config.Config, deps Deps, readiness map[string]observability.HealthCheckFunc, logger zerolog.Logger) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
	}))

	r.Get("/health", observability.HealthCheckHandler())
	r.Get("/ready", observability.ReadinessHandler(readiness))
	if cfg.MetricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	r.Get("/ws", Handler(cfg, deps, logger))

	r.Route("/v1", func(v1 chi.Router) {
		v1.With(httprate.LimitByIP(cfg.SynthesisRateLimit, time.Minute)).
			Post("/synthesize", synthesizeHandler(cfg, deps, logger))
	})

	return r
}

type synthesizeRequest struct {
	Text     string `json:"text"`
	Language string `json:"language,omitempty"`
}

// synthesizeHandler is the sessionless REST path to speech synthesis.
// It shares the provider and clip store with the WebSocket sessions.
func synthesizeHandler(cfg *config.Config, deps Deps, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req synthesizeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSONError(w, http.StatusBadRequest, CodeBadRequest, "malformed request body")
			return
		}
		if strings.TrimSpace(req.Text) == "" {
			writeJSONError(w, http.StatusBadRequest, CodeBadRequest, "text is required")
			return
		}

		s := session.New(session.Config{
			Synthesizer:     deps.Synthesizer,
			Clips:           deps.Clips,
			DefaultLanguage: cfg.DefaultLanguage,
		})
		defer s.Close()

		result, err := s.Synthesize(r.Context(), req.Text, req.Language)
		if err != nil {
			logger.Warn().Err(err).Msg("REST synthesis failed")
			writeJSONError(w, http.StatusBadGateway, CodeSynthesis, err.Error())
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(result)
	}
}

func writeJSONError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(&ErrorPayload{Code: code, Message: message})
}
