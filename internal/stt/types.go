package stt

import (
	"context"
	"errors"
	"strings"
)

// ErrTranscriptionFailed marks a transport or service failure. Transcription
// is never retried here; the caller decides what to do.
var ErrTranscriptionFailed = errors.New("transcription request failed")

// Result is the outcome of a successful transcription. An empty or
// whitespace-only Text is a valid result ("no speech detected" is a UX
// case, not a failure).
type Result struct {
	// Text is the transcribed text
	Text string

	// Confidence is the confidence score (0.0 to 1.0) if available
	Confidence float64

	// Language is the detected or requested language tag
	Language string
}

// Empty reports whether the transcript contains no speech
func (r *Result) Empty() bool {
	return strings.TrimSpace(r.Text) == ""
}

// Transcriber converts an assembled audio payload to text
type Transcriber interface {
	// Transcribe sends WAV audio to the service. languageTag is a hint
	// ("es", "es-HN"); implementations reduce it to what their service
	// accepts. Blocks until the service answers or ctx expires.
	Transcribe(ctx context.Context, wav []byte, languageTag string) (*Result, error)

	// Name identifies the provider for logs and metrics
	Name() string
}

// primaryLanguage reduces a BCP 47 tag to its primary subtag ("es-HN" ->
// "es"); regional variants are not uniformly supported across providers.
func primaryLanguage(tag string) string {
	if i := strings.IndexByte(tag, '-'); i > 0 {
		return tag[:i]
	}
	return tag
}
