package stt

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/tutorloop/voice-service/internal/config"
	"github.com/tutorloop/voice-service/internal/observability"
	"github.com/tutorloop/voice-service/internal/resilience"
)

// WhisperClient implements Transcriber using OpenAI's Whisper API
type WhisperClient struct {
	config         *config.Config
	client         *openai.Client
	circuitBreaker *resilience.CircuitBreaker
}

// NewWhisperClient creates a new Whisper transcription client
func NewWhisperClient(cfg *config.Config) *WhisperClient {
	return &WhisperClient{
		config: cfg,
		client: openai.NewClient(cfg.OpenAIAPIKey),
		circuitBreaker: resilience.NewCircuitBreaker(
			"whisper",
			cfg.CircuitBreakerMaxFailures,
			time.Duration(cfg.CircuitBreakerResetTimeout)*time.Second,
		),
	}
}

// Name identifies the provider
func (w *WhisperClient) Name() string { return "whisper" }

// Transcribe sends the WAV payload to Whisper
func (w *WhisperClient) Transcribe(ctx context.Context, wav []byte, languageTag string) (*Result, error) {
	lang := primaryLanguage(languageTag)
	if lang == "" {
		lang = primaryLanguage(w.config.DefaultLanguage)
	}

	req := openai.AudioRequest{
		Model:    openai.Whisper1,
		Reader:   bytes.NewReader(wav),
		FilePath: "capture.wav",
		Language: lang,
		Format:   openai.AudioResponseFormatVerboseJSON,
	}

	var result *Result
	err := w.circuitBreaker.Call(func() error {
		resp, err := w.client.CreateTranscription(ctx, req)
		if err != nil {
			return err
		}

		result = &Result{
			Text:     resp.Text,
			Language: languageTag,
		}

		// Whisper reports no overall confidence; derive one from the
		// per-segment average log probabilities when available.
		if n := len(resp.Segments); n > 0 {
			sum := 0.0
			for _, seg := range resp.Segments {
				sum += math.Exp(seg.AvgLogprob)
			}
			conf := sum / float64(n)
			if conf > 1.0 {
				conf = 1.0
			}
			result.Confidence = conf
		}
		if resp.Language != "" {
			result.Language = resp.Language
		}
		return nil
	})

	observability.UpdateCircuitBreakerState("whisper", int(w.circuitBreaker.GetState()))
	if err != nil {
		observability.IncrementCircuitBreakerFailures("whisper")
		return nil, fmt.Errorf("%w: %v", ErrTranscriptionFailed, err)
	}

	return result, nil
}

