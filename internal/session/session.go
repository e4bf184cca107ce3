package session

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/tutorloop/voice-service/internal/capture"
	"github.com/tutorloop/voice-service/internal/observability"
	"github.com/tutorloop/voice-service/internal/playback"
	"github.com/tutorloop/voice-service/internal/store"
	"github.com/tutorloop/voice-service/internal/stt"
	"github.com/tutorloop/voice-service/internal/tts"
)

// VoiceSession is the per-client facade over the voice core. It owns one
// capture controller and one playback coordinator and funnels capture
// payloads through transcription and text through synthesis. The UI layer
// talks only to this type.
type VoiceSession struct {
	id      string
	logger  zerolog.Logger
	metrics *observability.Metrics

	capture     *capture.Controller
	coordinator *playback.Coordinator
	transcriber stt.Transcriber
	synthesizer tts.Synthesizer
	clips       store.ClipStore

	defaultLanguage string

	mu           sync.Mutex
	transcribing bool
}

// Config wires a session's collaborators. Clips may be nil; synthesized
// audio is then returned inline as a data URI instead of a store locator.
// Capture and Coordinator may both be nil for a synthesis-only session.
// ID may be set to tie the session to an id the caller already logs under;
// a fresh one is generated otherwise.
type Config struct {
	ID              string
	Capture         *capture.Controller
	Coordinator     *playback.Coordinator
	Transcriber     stt.Transcriber
	Synthesizer     tts.Synthesizer
	Clips           store.ClipStore
	DefaultLanguage string
}

// New creates a voice session
func New(cfg Config) *VoiceSession {
	id := cfg.ID
	if id == "" {
		id = observability.NewSessionID()
	}
	return &VoiceSession{
		id:              id,
		logger:          observability.WithSession(id),
		metrics:         observability.NewSessionMetrics(id),
		capture:         cfg.Capture,
		coordinator:     cfg.Coordinator,
		transcriber:     cfg.Transcriber,
		synthesizer:     cfg.Synthesizer,
		clips:           cfg.Clips,
		defaultLanguage: cfg.DefaultLanguage,
	}
}

// ID returns the session identifier
func (s *VoiceSession) ID() string {
	return s.id
}

// StartCapture begins a recording session. Errors pass through from the
// capture controller unchanged so callers can match the sentinels.
func (s *VoiceSession) StartCapture(ctx context.Context) error {
	err := s.capture.Start(ctx)
	if err != nil {
		switch {
		case errors.Is(err, capture.ErrPermissionDenied):
			s.metrics.RecordCaptureFailure("permission_denied")
		case errors.Is(err, capture.ErrDeviceUnavailable):
			s.metrics.RecordCaptureFailure("device_unavailable")
		}
		s.metrics.RecordError("capture_start", "session")
		return err
	}

	s.metrics.RecordCaptureStart()
	return nil
}

// StopCapture finalizes the recording and returns the assembled payload
func (s *VoiceSession) StopCapture() (*capture.Payload, error) {
	payload, err := s.capture.Stop()
	if err != nil {
		return nil, err
	}

	s.metrics.RecordCaptureEnd()
	s.metrics.RecordAudioBytes("in", int64(len(payload.Data)))
	return payload, nil
}

// Transcribe sends a capture payload to the configured provider. An empty
// transcript is a successful result: the caller shows "no speech detected"
// rather than an error.
func (s *VoiceSession) Transcribe(ctx context.Context, payload *capture.Payload, languageTag string) (*stt.Result, error) {
	wav, err := payload.WAV()
	if err != nil {
		return nil, fmt.Errorf("failed to encode capture payload: %w", err)
	}

	if languageTag == "" {
		languageTag = s.defaultLanguage
	}

	s.setTranscribing(true)
	defer s.setTranscribing(false)

	s.metrics.RecordTranscriptionStart()
	result, err := s.transcriber.Transcribe(ctx, wav, languageTag)
	if err != nil {
		s.metrics.RecordTranscriptionEnd(false, false)
		s.metrics.RecordError("transcription", s.transcriber.Name())
		return nil, err
	}

	s.metrics.RecordTranscriptionEnd(true, result.Empty())
	s.logger.Debug().
		Str("provider", s.transcriber.Name()).
		Bool("empty", result.Empty()).
		Msg("Transcription completed")

	return result, nil
}

// StopAndTranscribe is the common stop-then-transcribe flow as one call
func (s *VoiceSession) StopAndTranscribe(ctx context.Context, languageTag string) (*stt.Result, error) {
	payload, err := s.StopCapture()
	if err != nil {
		return nil, err
	}
	return s.Transcribe(ctx, payload, languageTag)
}

// Synthesize converts text to speech and returns a locator the playback
// side can open. With a clip store configured the locator is a presigned
// URL; without one the audio is inlined as a data URI.
func (s *VoiceSession) Synthesize(ctx context.Context, text, languageTag string) (*tts.SpeechResult, error) {
	if languageTag == "" {
		languageTag = s.defaultLanguage
	}

	s.metrics.RecordSynthesisStart()
	clip, err := s.synthesizer.Synthesize(ctx, text, languageTag)
	if err != nil {
		s.metrics.RecordSynthesisEnd(false)
		s.metrics.RecordError("synthesis", s.synthesizer.Name())
		return nil, err
	}
	s.metrics.RecordSynthesisEnd(true)
	s.metrics.RecordAudioBytes("out", int64(len(clip.Audio)))

	locator, err := s.storeClip(ctx, clip)
	if err != nil {
		s.metrics.RecordError("clip_store", "session")
		return nil, err
	}

	s.logger.Debug().
		Str("provider", s.synthesizer.Name()).
		Int("bytes", len(clip.Audio)).
		Msg("Synthesis completed")

	return &tts.SpeechResult{
		AudioLocator: locator,
		DurationHint: clip.DurationHint,
	}, nil
}

func (s *VoiceSession) storeClip(ctx context.Context, clip *tts.Clip) (string, error) {
	if s.clips == nil {
		encoded := base64.StdEncoding.EncodeToString(clip.Audio)
		return fmt.Sprintf("data:%s;base64,%s", clip.ContentType, encoded), nil
	}
	return s.clips.PutClip(ctx, clip.Audio, clip.ContentType)
}

// Play hands an item to the playback coordinator. Failures are absorbed
// there; the UI observes state, not errors.
func (s *VoiceSession) Play(item playback.Item) {
	if item.Language == "" {
		item.Language = s.defaultLanguage
	}
	s.coordinator.Play(item)
}

// IsRecording reports whether a capture session is open
func (s *VoiceSession) IsRecording() bool {
	return s.capture.IsRecording()
}

// IsTranscribing reports whether a transcription request is in flight
func (s *VoiceSession) IsTranscribing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transcribing
}

// IsPlaying reports whether the given item is currently playing
func (s *VoiceSession) IsPlaying(itemID string) bool {
	return s.coordinator.IsPlaying(itemID)
}

// ActiveItem returns the id of the currently playing item, if any
func (s *VoiceSession) ActiveItem() (string, bool) {
	return s.coordinator.ActiveItem()
}

func (s *VoiceSession) setTranscribing(v bool) {
	s.mu.Lock()
	s.transcribing = v
	s.mu.Unlock()
}

// Close tears the session down: any open capture is stopped and discarded,
// any active playback is released.
func (s *VoiceSession) Close() {
	if s.capture != nil && s.capture.IsRecording() {
		if _, err := s.capture.Stop(); err != nil {
			s.logger.Warn().Err(err).Msg("Capture stop during session close failed")
		}
	}
	if s.coordinator != nil {
		s.coordinator.Shutdown()
	}
	s.metrics.RecordSessionEnd()
	s.logger.Debug().Msg("Voice session closed")
}
