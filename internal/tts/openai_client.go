package tts

import (
	"context"
	"fmt"
	"io"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/tutorloop/voice-service/internal/config"
	"github.com/tutorloop/voice-service/internal/observability"
	"github.com/tutorloop/voice-service/internal/resilience"
)

// OpenAIClient implements Synthesizer using OpenAI's speech API. The
// configured voice handles all languages; the language tag only matters to
// providers with per-language voices.
type OpenAIClient struct {
	config         *config.Config
	client         *openai.Client
	circuitBreaker *resilience.CircuitBreaker
}

// NewOpenAIClient creates a new OpenAI speech client
func NewOpenAIClient(cfg *config.Config) *OpenAIClient {
	return &OpenAIClient{
		config: cfg,
		client: openai.NewClient(cfg.OpenAIAPIKey),
		circuitBreaker: resilience.NewCircuitBreaker(
			"openai-tts",
			cfg.CircuitBreakerMaxFailures,
			time.Duration(cfg.CircuitBreakerResetTimeout)*time.Second,
		),
	}
}

// Name identifies the provider
func (o *OpenAIClient) Name() string { return "openai" }

// Synthesize converts text to an MP3 clip
func (o *OpenAIClient) Synthesize(ctx context.Context, text, languageTag string) (*Clip, error) {
	req := openai.CreateSpeechRequest{
		Model:          openai.TTSModel1,
		Input:          text,
		Voice:          openai.SpeechVoice(o.config.OpenAIVoice),
		ResponseFormat: openai.SpeechResponseFormatMp3,
	}

	var audio []byte
	err := o.circuitBreaker.Call(func() error {
		resp, err := o.client.CreateSpeech(ctx, req)
		if err != nil {
			return err
		}
		defer resp.Close()

		audio, err = io.ReadAll(resp)
		if err != nil {
			return err
		}
		if len(audio) == 0 {
			return fmt.Errorf("openai returned empty audio")
		}
		return nil
	})

	observability.UpdateCircuitBreakerState("openai-tts", int(o.circuitBreaker.GetState()))
	if err != nil {
		observability.IncrementCircuitBreakerFailures("openai-tts")
		return nil, fmt.Errorf("%w: %v", ErrSynthesisFailed, err)
	}

	return &Clip{
		Audio:        audio,
		ContentType:  "audio/mpeg",
		DurationHint: estimateDuration(text),
	}, nil
}
