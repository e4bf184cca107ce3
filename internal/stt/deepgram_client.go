package stt

import (
	"bytes"
	"context"
	"fmt"
	"time"

	restv1api "github.com/deepgram/deepgram-go-sdk/v3/pkg/api/listen/v1/rest"
	interfaces "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/interfaces"
	listenClient "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/listen"
	restv1client "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/listen/v1/rest"

	"github.com/tutorloop/voice-service/internal/config"
	"github.com/tutorloop/voice-service/internal/observability"
	"github.com/tutorloop/voice-service/internal/resilience"
)

// DeepgramClient implements Transcriber using Deepgram's prerecorded REST
// API. One assembled payload per request; no streaming connection is held.
type DeepgramClient struct {
	config         *config.Config
	client         *restv1client.Client
	circuitBreaker *resilience.CircuitBreaker
}

// NewDeepgramClient creates a new Deepgram prerecorded transcription client
func NewDeepgramClient(cfg *config.Config) *DeepgramClient {
	circuitBreaker := resilience.NewCircuitBreaker(
		"deepgram",
		cfg.CircuitBreakerMaxFailures,
		time.Duration(cfg.CircuitBreakerResetTimeout)*time.Second,
	)

	rest := listenClient.NewREST(cfg.DeepgramAPIKey, &interfaces.ClientOptions{})

	return &DeepgramClient{
		config:         cfg,
		client:         rest,
		circuitBreaker: circuitBreaker,
	}
}

// Name identifies the provider
func (d *DeepgramClient) Name() string { return "deepgram" }

// Transcribe posts the WAV payload to Deepgram and maps the best
// alternative into a Result. A response with no transcript is a success
// with empty text, not an error.
func (d *DeepgramClient) Transcribe(ctx context.Context, wav []byte, languageTag string) (*Result, error) {
	lang := primaryLanguage(languageTag)
	if lang == "" {
		lang = primaryLanguage(d.config.DefaultLanguage)
	}

	options := &interfaces.PreRecordedTranscriptionOptions{
		Model:       d.config.DeepgramModel,
		Language:    lang,
		Punctuate:   true,
		SmartFormat: true,
	}

	dg := restv1api.New(d.client)

	var result *Result
	err := d.circuitBreaker.Call(func() error {
		res, err := dg.FromStream(ctx, bytes.NewReader(wav), options)
		if err != nil {
			return err
		}

		result = &Result{Language: languageTag}

		if len(res.Results.Channels) == 0 || len(res.Results.Channels[0].Alternatives) == 0 {
			// No decodable speech; empty transcript is a valid result
			return nil
		}

		channel := res.Results.Channels[0]
		alt := channel.Alternatives[0]
		result.Text = alt.Transcript
		result.Confidence = alt.Confidence
		if channel.DetectedLanguage != "" {
			result.Language = channel.DetectedLanguage
		}
		return nil
	})

	observability.UpdateCircuitBreakerState("deepgram", int(d.circuitBreaker.GetState()))
	if err != nil {
		observability.IncrementCircuitBreakerFailures("deepgram")
		return nil, fmt.Errorf("%w: %v", ErrTranscriptionFailed, err)
	}

	return result, nil
}
