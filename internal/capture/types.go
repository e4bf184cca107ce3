package capture

import (
	"context"
	"errors"

	"github.com/tutorloop/voice-service/internal/audio"
)

var (
	// ErrPermissionDenied is returned when the platform denies microphone
	// access. Terminal for the current attempt; not retryable.
	ErrPermissionDenied = errors.New("microphone permission denied")

	// ErrDeviceUnavailable is returned when no capture device can be opened
	ErrDeviceUnavailable = errors.New("capture device unavailable")

	// ErrNoActiveSession is returned by Stop when nothing is recording.
	// This is a caller contract violation, not a transient condition.
	ErrNoActiveSession = errors.New("no active recording session")

	// ErrSessionActive is returned by Start while a session is already open
	ErrSessionActive = errors.New("recording session already active")
)

// State is the capture state machine. Recording is binary; there is no
// paused state.
type State int

const (
	StateIdle State = iota
	StateRecording
	StateStopping
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRecording:
		return "recording"
	case StateStopping:
		return "stopping"
	}
	return "unknown"
}

// PermissionBroker grants or denies microphone access for one capture
// attempt. Request blocks until the platform answers or ctx expires.
type PermissionBroker interface {
	Request(ctx context.Context) (granted bool, err error)
}

// Device opens microphone capture streams
type Device interface {
	Open(ctx context.Context) (Stream, error)
}

// Stream is an open capture stream, exclusively owned by one recording
// session. The chunk channel closes after Close returns and the last
// buffered chunk has been delivered.
type Stream interface {
	Chunks() <-chan []byte
	Close() error
}

// Payload is the immutable audio blob assembled from a session's chunks at
// stop time. Ownership transfers to the caller.
type Payload struct {
	Data           []byte
	SampleRate     int
	Channels       int
	SpeechDetected bool
}

// WAV returns the payload wrapped in a RIFF/WAVE container
func (p *Payload) WAV() ([]byte, error) {
	return audio.EncodeWAV(p.Data, p.SampleRate, p.Channels)
}
