package tts

import (
	"fmt"

	"github.com/tutorloop/voice-service/internal/config"
)

// NewSynthesizer returns the synthesis provider selected by the
// configuration.
func NewSynthesizer(cfg *config.Config) (Synthesizer, error) {
	switch cfg.TTSProvider {
	case "cartesia":
		return NewCartesiaClient(cfg), nil
	case "openai":
		return NewOpenAIClient(cfg), nil
	default:
		return nil, fmt.Errorf("unknown TTS provider %q", cfg.TTSProvider)
	}
}
