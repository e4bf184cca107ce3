package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tutorloop/voice-service/internal/config"
	"github.com/tutorloop/voice-service/internal/observability"
	"github.com/tutorloop/voice-service/internal/resilience"
)

// CartesiaClient implements Synthesizer using Cartesia's TTS API
type CartesiaClient struct {
	config         *config.Config
	apiKey         string
	apiURL         string
	httpClient     *http.Client
	circuitBreaker *resilience.CircuitBreaker
}

// CartesiaRequest represents the request payload for Cartesia TTS API
type CartesiaRequest struct {
	Text         string  `json:"text"`
	VoiceID      string  `json:"voice_id"`
	ModelID      string  `json:"model_id,omitempty"`
	Language     string  `json:"language,omitempty"`
	OutputFormat string  `json:"output_format,omitempty"`
	SampleRate   int     `json:"sample_rate,omitempty"`
	Speed        float64 `json:"speed,omitempty"`
}

// NewCartesiaClient creates a new Cartesia TTS client
func NewCartesiaClient(cfg *config.Config) *CartesiaClient {
	return &CartesiaClient{
		config:     cfg,
		apiKey:     cfg.CartesiaAPIKey,
		apiURL:     "https://api.cartesia.ai/v1/tts",
		httpClient: &http.Client{Timeout: 30 * time.Second},
		circuitBreaker: resilience.NewCircuitBreaker(
			"cartesia",
			cfg.CircuitBreakerMaxFailures,
			time.Duration(cfg.CircuitBreakerResetTimeout)*time.Second,
		),
	}
}

// Name identifies the provider
func (c *CartesiaClient) Name() string { return "cartesia" }

// Synthesize converts text to an MP3 clip
func (c *CartesiaClient) Synthesize(ctx context.Context, text, languageTag string) (*Clip, error) {
	lang := languageTag
	if i := strings.IndexByte(lang, '-'); i > 0 {
		lang = lang[:i]
	}

	reqBody := CartesiaRequest{
		Text:         text,
		VoiceID:      c.config.CartesiaVoiceID,
		ModelID:      c.config.CartesiaModelID,
		Language:     lang,
		OutputFormat: "mp3",
		SampleRate:   44100,
		Speed:        1.0,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("%w: marshal request: %v", ErrSynthesisFailed, err)
	}

	var audio []byte
	err = c.circuitBreaker.Call(func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(jsonData))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("x-api-key", c.apiKey)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			return fmt.Errorf("cartesia API returned status %d: %s", resp.StatusCode, body)
		}

		audio, err = io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		if len(audio) == 0 {
			return fmt.Errorf("cartesia returned empty audio")
		}
		return nil
	})

	observability.UpdateCircuitBreakerState("cartesia", int(c.circuitBreaker.GetState()))
	if err != nil {
		observability.IncrementCircuitBreakerFailures("cartesia")
		return nil, fmt.Errorf("%w: %v", ErrSynthesisFailed, err)
	}

	return &Clip{
		Audio:        audio,
		ContentType:  "audio/mpeg",
		DurationHint: estimateDuration(text),
	}, nil
}
