package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tutorloop/voice-service/internal/config"
	"github.com/tutorloop/voice-service/internal/gateway"
	"github.com/tutorloop/voice-service/internal/observability"
	"github.com/tutorloop/voice-service/internal/store"
	"github.com/tutorloop/voice-service/internal/stt"
	"github.com/tutorloop/voice-service/internal/tts"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		// Use fmt for fatal errors before logger is initialized
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize structured logger
	observability.InitLogger(cfg.LogLevel, cfg.LogPretty)
	logger := observability.GetLogger()

	logger.Info().
		Str("port", cfg.Port).
		Str("stt_provider", cfg.STTProvider).
		Str("tts_provider", cfg.TTSProvider).
		Str("log_level", cfg.LogLevel).
		Bool("metrics_enabled", cfg.MetricsEnabled).
		Msg("Voice Service starting")

	transcriber, err := stt.NewTranscriber(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create transcription client")
	}

	synthesizer, err := tts.NewSynthesizer(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create synthesis client")
	}

	// Synthesis still works without a store; clips are inlined as
	// data URIs, which is fine for local development.
	var clips store.ClipStore
	if cfg.StoreConfigured() {
		s3, err := store.NewS3ClipStore(cfg)
		if err != nil {
			logger.Warn().Err(err).Msg("Clip store unavailable, falling back to inline audio")
		} else {
			clips = s3
		}
	} else {
		logger.Info().Msg("Clip store not configured, serving audio inline")
	}

	deps := gateway.Deps{
		Transcriber: transcriber,
		Synthesizer: synthesizer,
		Clips:       clips,
	}

	readiness := map[string]observability.HealthCheckFunc{
		"stt": func(ctx context.Context) (bool, error) {
			// Config-level check only; no API call, to avoid costs
			return transcriber != nil, nil
		},
		"tts": func(ctx context.Context) (bool, error) {
			return synthesizer != nil, nil
		},
	}
	if clips != nil {
		readiness["clip_store"] = clips.Healthy
	}

	router := gateway.NewRouter(cfg, deps, readiness, logger)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().
			Str("port", cfg.Port).
			Str("endpoint", fmt.Sprintf("ws://localhost:%s/ws", cfg.Port)).
			Msg("Server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	logger.Info().Msg("Server exited gracefully")
}
