package capture

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"github.com/tutorloop/voice-service/internal/audio"
)

// Controller owns the microphone capture lifecycle: permission request,
// device stream ownership, ordered chunk accumulation, and single-payload
// assembly on stop.
//
// State machine: Idle -> (Start, success) -> Recording -> (Stop) -> Idle.
// Any failure during Start leaves the controller Idle with no partial
// session behind. The device stream is released on every exit path from
// Stop, independent of what the caller later does with the payload.
type Controller struct {
	broker PermissionBroker
	device Device
	logger zerolog.Logger

	sampleRate int
	channels   int

	mu       sync.Mutex
	state    State
	starting bool // a Start is between permission request and Recording
	stream   Stream
	buffer   *audio.ChunkBuffer
	vad      *audio.VADDetector
	drained  chan struct{}
}

// NewController creates a capture controller for 16-bit little-endian PCM
// input at the given format. vadConfig may be nil for defaults.
func NewController(broker PermissionBroker, device Device, sampleRate, channels int, vadConfig *audio.VADConfig, logger zerolog.Logger) *Controller {
	return &Controller{
		broker:     broker,
		device:     device,
		logger:     logger,
		sampleRate: sampleRate,
		channels:   channels,
		buffer:     audio.NewChunkBuffer(),
		vad:        audio.NewVADDetector(vadConfig),
		state:      StateIdle,
	}
}

// Start requests microphone permission and, on grant, opens a capture
// stream and begins buffering chunks. Returns ErrSessionActive if a session
// is already open or another Start is pending, ErrPermissionDenied if the
// broker denies access, and ErrDeviceUnavailable if the stream cannot be
// opened. On any failure the controller stays Idle.
//
// The permission request and the device open are suspension points: the
// lock is released around them so state queries (and Stop rejections) never
// wait behind a platform prompt. The starting flag claims the session slot
// for the duration.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateIdle || c.starting {
		c.mu.Unlock()
		return ErrSessionActive
	}
	c.starting = true
	c.mu.Unlock()

	granted, err := c.broker.Request(ctx)
	if err != nil {
		c.abortStart()
		return fmt.Errorf("%w: %v", ErrPermissionDenied, err)
	}
	if !granted {
		c.abortStart()
		return ErrPermissionDenied
	}

	stream, err := c.device.Open(ctx)
	if err != nil {
		c.abortStart()
		return fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}

	c.mu.Lock()
	c.stream = stream
	c.buffer.Reset()
	c.vad.Reset()
	c.drained = make(chan struct{})
	c.state = StateRecording
	c.starting = false
	drained := c.drained
	c.mu.Unlock()

	go c.pump(stream, drained)

	c.logger.Debug().Msg("Capture session started")
	return nil
}

// abortStart releases the session slot claimed by a failed Start
func (c *Controller) abortStart() {
	c.mu.Lock()
	c.starting = false
	c.mu.Unlock()
}

// pump drains the stream's chunk channel into the session buffer. It exits
// when the channel closes, which the stream guarantees after Close.
func (c *Controller) pump(stream Stream, drained chan struct{}) {
	defer close(drained)

	for chunk := range stream.Chunks() {
		c.buffer.Append(chunk)
		c.vad.ProcessChunk(chunk)
	}
}

// Stop finalizes the session: closes the device stream (all hardware tracks
// stopped, no lingering device lock), drains remaining chunks, and
// assembles them into one immutable payload. Returns ErrNoActiveSession if
// nothing is recording; state is untouched in that case.
func (c *Controller) Stop() (*Payload, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateRecording {
		return nil, ErrNoActiveSession
	}

	c.state = StateStopping

	if err := c.stream.Close(); err != nil {
		// The stream contract releases the device even on error; nothing
		// to do beyond recording the fact.
		c.logger.Warn().Err(err).Msg("Capture stream close reported an error")
	}

	// Wait for the pump to deliver chunks the device buffered before Close
	<-c.drained

	payload := &Payload{
		Data:           c.buffer.Assemble(),
		SampleRate:     c.sampleRate,
		Channels:       c.channels,
		SpeechDetected: c.vad.SawSpeech(),
	}

	c.buffer.Reset()
	c.stream = nil
	c.drained = nil
	c.state = StateIdle

	c.logger.Debug().
		Int("bytes", len(payload.Data)).
		Bool("speech_detected", payload.SpeechDetected).
		Msg("Capture session stopped")

	return payload, nil
}

// IsRecording reports whether a capture session is open
func (c *Controller) IsRecording() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == StateRecording
}

// CurrentState returns the controller's state
func (c *Controller) CurrentState() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}
