package session

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/tutorloop/voice-service/internal/capture"
	"github.com/tutorloop/voice-service/internal/playback"
	"github.com/tutorloop/voice-service/internal/stt"
	"github.com/tutorloop/voice-service/internal/tts"
)

type fakeBroker struct {
	granted bool
	err     error
}

func (b *fakeBroker) Request(ctx context.Context) (bool, error) {
	return b.granted, b.err
}

type fakeStream struct {
	ch chan []byte
}

func newFakeStream(chunks ...[]byte) *fakeStream {
	ch := make(chan []byte, len(chunks))
	for _, c := range chunks {
		ch <- c
	}
	return &fakeStream{ch: ch}
}

func (s *fakeStream) Chunks() <-chan []byte { return s.ch }

func (s *fakeStream) Close() error {
	close(s.ch)
	return nil
}

type fakeDevice struct {
	stream *fakeStream
}

func (d *fakeDevice) Open(ctx context.Context) (capture.Stream, error) {
	return d.stream, nil
}

type fakeTranscriber struct {
	result *stt.Result
	err    error
	gotWAV []byte
	gotTag string
}

func (t *fakeTranscriber) Transcribe(ctx context.Context, wav []byte, tag string) (*stt.Result, error) {
	t.gotWAV = wav
	t.gotTag = tag
	if t.err != nil {
		return nil, t.err
	}
	return t.result, nil
}

func (t *fakeTranscriber) Name() string { return "fake-stt" }

type fakeSynthesizer struct {
	clip   *tts.Clip
	err    error
	gotTag string
}

func (s *fakeSynthesizer) Synthesize(ctx context.Context, text, tag string) (*tts.Clip, error) {
	s.gotTag = tag
	if s.err != nil {
		return nil, s.err
	}
	return s.clip, nil
}

func (s *fakeSynthesizer) Name() string { return "fake-tts" }

type fakeClipStore struct {
	locator string
	err     error
	gotData []byte
}

func (c *fakeClipStore) PutClip(ctx context.Context, data []byte, contentType string) (string, error) {
	c.gotData = data
	if c.err != nil {
		return "", c.err
	}
	return c.locator, nil
}

func (c *fakeClipStore) Healthy(ctx context.Context) (bool, error) { return true, nil }

type fakeOutput struct{}

func (o *fakeOutput) Play() error  { return nil }
func (o *fakeOutput) Pause() error { return nil }
func (o *fakeOutput) Stop() error  { return nil }
func (o *fakeOutput) Release()     {}

type fakeOpener struct{}

func (f *fakeOpener) Open(item playback.Item, ev playback.Events) (playback.Output, error) {
	return &fakeOutput{}, nil
}

func newTestSession(t *testing.T, cfg Config) *VoiceSession {
	t.Helper()
	if cfg.Capture == nil {
		cfg.Capture = capture.NewController(&fakeBroker{granted: true}, &fakeDevice{stream: newFakeStream()}, 16000, 1, nil, zerolog.Nop())
	}
	if cfg.Coordinator == nil {
		cfg.Coordinator = playback.NewCoordinator(&fakeOpener{}, zerolog.Nop())
	}
	if cfg.DefaultLanguage == "" {
		cfg.DefaultLanguage = "es"
	}
	return New(cfg)
}

func TestCaptureThenTranscribe(t *testing.T) {
	device := &fakeDevice{stream: newFakeStream([]byte{1, 0, 2, 0})}
	ctrl := capture.NewController(&fakeBroker{granted: true}, device, 16000, 1, nil, zerolog.Nop())
	transcriber := &fakeTranscriber{result: &stt.Result{Text: "hola", Confidence: 0.9, Language: "es"}}

	s := newTestSession(t, Config{Capture: ctrl, Transcriber: transcriber})

	if err := s.StartCapture(context.Background()); err != nil {
		t.Fatalf("StartCapture failed: %v", err)
	}
	if !s.IsRecording() {
		t.Error("expected session to be recording")
	}

	result, err := s.StopAndTranscribe(context.Background(), "")
	if err != nil {
		t.Fatalf("StopAndTranscribe failed: %v", err)
	}
	if result.Text != "hola" {
		t.Errorf("expected transcript %q, got %q", "hola", result.Text)
	}
	if s.IsRecording() {
		t.Error("expected recording to have stopped")
	}
	if transcriber.gotTag != "es" {
		t.Errorf("expected default language tag es, got %q", transcriber.gotTag)
	}
	if len(transcriber.gotWAV) < 44 {
		t.Errorf("expected WAV container, got %d bytes", len(transcriber.gotWAV))
	}
}

func TestStartCapture_ErrorsPassThrough(t *testing.T) {
	ctrl := capture.NewController(&fakeBroker{granted: false}, &fakeDevice{stream: newFakeStream()}, 16000, 1, nil, zerolog.Nop())
	s := newTestSession(t, Config{Capture: ctrl, Transcriber: &fakeTranscriber{}})

	err := s.StartCapture(context.Background())
	if !errors.Is(err, capture.ErrPermissionDenied) {
		t.Errorf("expected ErrPermissionDenied, got %v", err)
	}
}

func TestTranscribe_EmptyIsSuccess(t *testing.T) {
	transcriber := &fakeTranscriber{result: &stt.Result{Text: "  "}}
	s := newTestSession(t, Config{Transcriber: transcriber})

	payload := &capture.Payload{Data: []byte{0, 0}, SampleRate: 16000, Channels: 1}
	result, err := s.Transcribe(context.Background(), payload, "es")
	if err != nil {
		t.Fatalf("expected empty transcript as success, got error: %v", err)
	}
	if !result.Empty() {
		t.Error("expected Empty() to report true")
	}
}

func TestTranscribe_FailurePropagates(t *testing.T) {
	transcriber := &fakeTranscriber{err: stt.ErrTranscriptionFailed}
	s := newTestSession(t, Config{Transcriber: transcriber})

	payload := &capture.Payload{Data: []byte{0, 0}, SampleRate: 16000, Channels: 1}
	_, err := s.Transcribe(context.Background(), payload, "es")
	if !errors.Is(err, stt.ErrTranscriptionFailed) {
		t.Errorf("expected ErrTranscriptionFailed, got %v", err)
	}
	if s.IsTranscribing() {
		t.Error("expected transcribing flag cleared after failure")
	}
}

func TestSynthesize_StoresClip(t *testing.T) {
	synth := &fakeSynthesizer{clip: &tts.Clip{Audio: []byte{1, 2, 3}, ContentType: "audio/mpeg", DurationHint: 1.5}}
	clips := &fakeClipStore{locator: "https://store.example/clips/x.mp3"}
	s := newTestSession(t, Config{Transcriber: &fakeTranscriber{}, Synthesizer: synth, Clips: clips})

	result, err := s.Synthesize(context.Background(), "buenos dias", "")
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}
	if result.AudioLocator != clips.locator {
		t.Errorf("expected locator %q, got %q", clips.locator, result.AudioLocator)
	}
	if result.DurationHint != 1.5 {
		t.Errorf("expected duration hint 1.5, got %v", result.DurationHint)
	}
	if len(clips.gotData) != 3 {
		t.Errorf("expected clip bytes stored, got %d", len(clips.gotData))
	}
	if synth.gotTag != "es" {
		t.Errorf("expected default language tag es, got %q", synth.gotTag)
	}
}

func TestSynthesize_NoStoreInlinesDataURI(t *testing.T) {
	synth := &fakeSynthesizer{clip: &tts.Clip{Audio: []byte("abc"), ContentType: "audio/mpeg"}}
	s := newTestSession(t, Config{Transcriber: &fakeTranscriber{}, Synthesizer: synth})

	result, err := s.Synthesize(context.Background(), "hola", "es")
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}
	if !strings.HasPrefix(result.AudioLocator, "data:audio/mpeg;base64,") {
		t.Errorf("expected data URI locator, got %q", result.AudioLocator)
	}
}

func TestSynthesize_FailurePropagates(t *testing.T) {
	synth := &fakeSynthesizer{err: tts.ErrSynthesisFailed}
	s := newTestSession(t, Config{Transcriber: &fakeTranscriber{}, Synthesizer: synth})

	_, err := s.Synthesize(context.Background(), "hola", "es")
	if !errors.Is(err, tts.ErrSynthesisFailed) {
		t.Errorf("expected ErrSynthesisFailed, got %v", err)
	}
}

func TestSynthesize_StoreFailurePropagates(t *testing.T) {
	synth := &fakeSynthesizer{clip: &tts.Clip{Audio: []byte{1}, ContentType: "audio/mpeg"}}
	clips := &fakeClipStore{err: errors.New("bucket unreachable")}
	s := newTestSession(t, Config{Transcriber: &fakeTranscriber{}, Synthesizer: synth, Clips: clips})

	if _, err := s.Synthesize(context.Background(), "hola", "es"); err == nil {
		t.Error("expected store failure to propagate")
	}
}

func TestPlayAndPlaybackState(t *testing.T) {
	s := newTestSession(t, Config{Transcriber: &fakeTranscriber{}})

	s.Play(playback.Item{ID: "item-1", Locator: "https://store.example/a.mp3"})
	if !s.IsPlaying("item-1") {
		t.Error("expected item-1 to be playing")
	}
	if s.IsPlaying("item-2") {
		t.Error("expected item-2 not playing")
	}
	if id, ok := s.ActiveItem(); !ok || id != "item-1" {
		t.Errorf("expected active item item-1, got %q ok=%v", id, ok)
	}
}

func TestClose_ReleasesEverything(t *testing.T) {
	device := &fakeDevice{stream: newFakeStream()}
	ctrl := capture.NewController(&fakeBroker{granted: true}, device, 16000, 1, nil, zerolog.Nop())
	s := newTestSession(t, Config{Capture: ctrl, Transcriber: &fakeTranscriber{}})

	if err := s.StartCapture(context.Background()); err != nil {
		t.Fatalf("StartCapture failed: %v", err)
	}
	s.Play(playback.Item{ID: "item-1", Locator: "loc"})

	s.Close()

	if s.IsRecording() {
		t.Error("expected capture stopped after Close")
	}
	if s.IsPlaying("item-1") {
		t.Error("expected playback released after Close")
	}
}
