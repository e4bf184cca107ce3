package stt

import (
	"fmt"

	"github.com/tutorloop/voice-service/internal/config"
)

// NewTranscriber returns the transcription provider selected by the
// configuration.
func NewTranscriber(cfg *config.Config) (Transcriber, error) {
	switch cfg.STTProvider {
	case "deepgram":
		return NewDeepgramClient(cfg), nil
	case "whisper":
		return NewWhisperClient(cfg), nil
	default:
		return nil, fmt.Errorf("unknown STT provider %q", cfg.STTProvider)
	}
}
