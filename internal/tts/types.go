package tts

import (
	"context"
	"errors"
	"strings"
)

// ErrSynthesisFailed marks a transport or service failure. Synthesis is
// never retried here; the caller decides.
var ErrSynthesisFailed = errors.New("speech synthesis request failed")

// Clip is synthesized audio returned by a provider. The clip store turns
// it into an addressable locator.
type Clip struct {
	Audio        []byte
	ContentType  string  // e.g. audio/mpeg
	DurationHint float64 // estimated seconds, 0 if unknown
}

// SpeechResult is what the voice core hands back to the UI: where the
// synthesized audio lives and roughly how long it plays.
type SpeechResult struct {
	AudioLocator string  `json:"audio_locator"`
	DurationHint float64 `json:"duration_hint"`
}

// Synthesizer converts text to speech audio
type Synthesizer interface {
	// Synthesize blocks until the service answers or ctx expires.
	// languageTag selects the voice/accent where the provider supports it.
	Synthesize(ctx context.Context, text, languageTag string) (*Clip, error)

	// Name identifies the provider for logs and metrics
	Name() string
}

// estimateDuration guesses clip length from the text at a conversational
// speaking rate, for providers that do not report duration.
func estimateDuration(text string) float64 {
	words := len(strings.Fields(text))
	if words == 0 {
		return 0
	}
	const wordsPerSecond = 2.5
	return float64(words) / wordsPerSecond
}
