package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/tutorloop/voice-service/internal/audio"
	"github.com/tutorloop/voice-service/internal/capture"
	"github.com/tutorloop/voice-service/internal/config"
	"github.com/tutorloop/voice-service/internal/observability"
	"github.com/tutorloop/voice-service/internal/playback"
	"github.com/tutorloop/voice-service/internal/session"
	"github.com/tutorloop/voice-service/internal/store"
	"github.com/tutorloop/voice-service/internal/stt"
	"github.com/tutorloop/voice-service/internal/tts"
)

// Deps are the shared collaborators every connection's session is built on
type Deps struct {
	Transcriber stt.Transcriber
	Synthesizer tts.Synthesizer
	Clips       store.ClipStore
}

// Conn is the state of one browser client connection. It owns the socket,
// one voice session, and the routing of binary mic frames, permission
// replies, and playback reports to the session's collaborators.
type Conn struct {
	ws      *websocket.Conn
	writeMu sync.Mutex

	session *session.VoiceSession
	logger  zerolog.Logger

	mu             sync.Mutex
	stream         *wsStream
	playback       playback.Events
	playbackStream uint64
	permCh         chan bool
}

func newUpgrader(allowedOrigins []string) *websocket.Upgrader {
	return &websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true // non-browser client
			}
			for _, allowed := range allowedOrigins {
				if allowed == "*" || strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// Handler is the WebSocket entry point for browser clients
func Handler(cfg *config.Config, deps Deps, logger zerolog.Logger) http.HandlerFunc {
	upgrader := newUpgrader(cfg.AllowedOrigins)

	return func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Warn().Err(err).Msg("WebSocket upgrade failed")
			return
		}
		defer ws.Close()

		c := newConn(ws, cfg, deps)
		c.logger.Info().Msg("Client connected")
		defer func() {
			c.session.Close()
			c.logger.Info().Msg("Client disconnected")
		}()

		c.readLoop(r.Context())
	}
}

func newConn(ws *websocket.Conn, cfg *config.Config, deps Deps) *Conn {
	c := &Conn{
		ws:     ws,
		permCh: make(chan bool, 1),
	}

	sessionID := observability.NewSessionID()
	logger := observability.WithSession(sessionID)

	broker := &wsBroker{conn: c, timeout: time.Duration(cfg.PermissionTimeout) * time.Second}
	device := &wsDevice{conn: c}
	vadConfig := &audio.VADConfig{
		EnergyThreshold: cfg.VADEnergyThreshold,
		SilenceFrames:   cfg.VADSilenceFrames,
		FrameSize:       320, // 20ms at 16kHz
	}
	controller := capture.NewController(broker, device, cfg.CaptureSampleRate, cfg.CaptureChannels, vadConfig, logger)
	coordinator := playback.NewCoordinator(&wsOpener{conn: c}, logger)

	c.session = session.New(session.Config{
		ID:              sessionID,
		Capture:         controller,
		Coordinator:     coordinator,
		Transcriber:     deps.Transcriber,
		Synthesizer:     deps.Synthesizer,
		Clips:           deps.Clips,
		DefaultLanguage: cfg.DefaultLanguage,
	})

	c.logger = logger
	return c
}

// readLoop is the single reader for the socket. Blocking operations are
// dispatched to goroutines so replies the loop itself must read (permission
// results, playback reports) keep flowing.
func (c *Conn) readLoop(ctx context.Context) {
	for {
		msgType, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn().Err(err).Msg("WebSocket read error")
			}
			return
		}

		switch msgType {
		case websocket.BinaryMessage:
			c.deliverChunk(data)

		case websocket.TextMessage:
			var msg ClientMessage
			if err := json.Unmarshal(data, &msg); err != nil {
				c.logger.Error().Err(err).Msg("Failed to parse client message")
				c.sendError(CodeBadRequest, "malformed message")
				continue
			}
			c.dispatch(ctx, &msg)
		}
	}
}

func (c *Conn) dispatch(ctx context.Context, msg *ClientMessage) {
	switch msg.Event {
	case ClientEventStartCapture:
		// Runs off the loop: the permission handshake needs the loop free
		// to read the client's reply
		go c.handleStartCapture(ctx)

	case ClientEventStopCapture:
		go c.handleStopCapture(ctx, msg.Language)

	case ClientEventPlay:
		if msg.Item == nil || msg.Item.ID == "" {
			c.sendError(CodeBadRequest, "play requires an item")
			return
		}
		c.handlePlay(msg.Item)

	case ClientEventSynthesize:
		if strings.TrimSpace(msg.Text) == "" {
			c.sendError(CodeBadRequest, "synthesize requires text")
			return
		}
		go c.handleSynthesize(ctx, msg.Text, msg.Language)

	case ClientEventPermissionResult:
		if msg.Granted != nil {
			c.pushPermission(*msg.Granted)
		}

	case ClientEventPlayback:
		if msg.Playback != nil {
			c.routePlaybackReport(msg.Playback)
		}

	default:
		c.logger.Warn().Str("event", msg.Event).Msg("Unknown client event")
		c.sendError(CodeBadRequest, "unknown event "+msg.Event)
	}
}

func (c *Conn) handleStartCapture(ctx context.Context) {
	if err := c.session.StartCapture(ctx); err != nil {
		c.logger.Warn().Err(err).Msg("Capture start failed")
		c.sendError(captureErrorCode(err), err.Error())
		c.sendState()
		return
	}
	c.sendState()
}

func (c *Conn) handleStopCapture(ctx context.Context, language string) {
	payload, err := c.session.StopCapture()
	if err != nil {
		c.logger.Warn().Err(err).Msg("Capture stop failed")
		c.sendError(captureErrorCode(err), err.Error())
		c.sendState()
		return
	}
	c.sendState()

	// VAD verdict goes out before the transcription round-trip so the UI
	// can hint "no speech detected" immediately
	_ = c.send(&ServerMessage{
		Event:  ServerEventSpeech,
		Speech: &SpeechPayload{Detected: payload.SpeechDetected},
	})

	result, err := c.session.Transcribe(ctx, payload, language)
	if err != nil {
		c.logger.Warn().Err(err).Msg("Transcription failed")
		c.sendError(captureErrorCode(err), err.Error())
		return
	}

	_ = c.send(&ServerMessage{
		Event: ServerEventTranscript,
		Transcript: &TranscriptPayload{
			Text:       result.Text,
			Confidence: result.Confidence,
			Language:   result.Language,
			Empty:      result.Empty(),
		},
	})
}

func (c *Conn) handlePlay(item *PlayItem) {
	c.session.Play(playback.Item{ID: item.ID, Locator: item.Locator, Language: item.Language})
	c.sendState()
}

func (c *Conn) handleSynthesize(ctx context.Context, text, language string) {
	result, err := c.session.Synthesize(ctx, text, language)
	if err != nil {
		c.logger.Warn().Err(err).Msg("Synthesis failed")
		c.sendError(CodeSynthesis, err.Error())
		return
	}

	_ = c.send(&ServerMessage{
		Event: ServerEventAudio,
		Audio: &AudioPayload{
			Locator:      result.AudioLocator,
			DurationHint: result.DurationHint,
		},
	})
}

// deliverChunk routes a binary mic frame to the attached capture stream.
// Frames arriving with no stream attached (racing a stop) are dropped. The
// lock is held across the send so a concurrent detach-and-close cannot
// land between the nil check and the send; the send itself never blocks.
func (c *Conn) deliverChunk(data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stream == nil {
		return
	}

	select {
	case c.stream.ch <- data:
	default:
		c.logger.Warn().Msg("Capture stream backlogged, dropping chunk")
	}
}

func (c *Conn) attachStream() (*wsStream, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := &wsStream{ch: make(chan []byte, 64), conn: c}
	c.stream = s
	return s, nil
}

// detachStream stops frame routing to s. Holding the same lock as
// deliverChunk guarantees no send lands on the channel after this returns,
// so the caller may close it.
func (c *Conn) detachStream(s *wsStream) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stream == s {
		c.stream = nil
	}
}

// registerPlayback installs the callback set for a freshly opened output
// stream and returns the token the client must echo in its reports
func (c *Conn) registerPlayback(ev playback.Events) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.playbackStream++
	c.playback = ev
	return c.playbackStream
}

// routePlaybackReport forwards the client's audio element report to the
// callbacks of the stream it was issued for. A report echoing a superseded
// token comes from a dying element; it must not reach the current stream's
// callbacks, so it is dropped here.
func (c *Conn) routePlaybackReport(report *PlaybackReport) {
	c.mu.Lock()
	ev := c.playback
	current := c.playbackStream
	c.mu.Unlock()

	if report.Stream != current {
		c.logger.Debug().
			Uint64("stream", report.Stream).
			Uint64("current", current).
			Msg("Dropping playback report from superseded stream")
		return
	}

	switch report.Kind {
	case PlaybackEnded:
		if ev.OnEnded != nil {
			ev.OnEnded()
		}
	case PlaybackError:
		if ev.OnError != nil {
			ev.OnError(errors.New(report.Message))
		}
	case PlaybackPaused:
		if ev.OnPaused != nil {
			ev.OnPaused()
		}
	case PlaybackResumed:
		if ev.OnResumed != nil {
			ev.OnResumed()
		}
	default:
		c.logger.Warn().Str("kind", report.Kind).Msg("Unknown playback report")
	}
	c.sendState()
}

func (c *Conn) pushPermission(granted bool) {
	select {
	case c.permCh <- granted:
	default:
		// No request pending; stale reply
	}
}

func (c *Conn) drainPermission() {
	select {
	case <-c.permCh:
	default:
	}
}

// send writes one JSON frame. The websocket allows a single concurrent
// writer; every write in the package goes through here.
func (c *Conn) send(msg *ServerMessage) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.ws.WriteJSON(msg)
}

func (c *Conn) sendState() {
	state := &StatePayload{
		Recording:    c.session.IsRecording(),
		Transcribing: c.session.IsTranscribing(),
	}
	if id, ok := c.session.ActiveItem(); ok {
		state.PlayingItem = id
	}
	_ = c.send(&ServerMessage{Event: ServerEventState, State: state})
}

func (c *Conn) sendError(code, message string) {
	_ = c.send(&ServerMessage{
		Event: ServerEventError,
		Error: &ErrorPayload{Code: code, Message: message},
	})
}

// captureErrorCode maps capture and transcription sentinels to wire codes
func captureErrorCode(err error) string {
	switch {
	case errors.Is(err, capture.ErrPermissionDenied):
		return CodePermissionDenied
	case errors.Is(err, capture.ErrDeviceUnavailable):
		return CodeDeviceUnavailable
	case errors.Is(err, capture.ErrNoActiveSession):
		return CodeNoActiveSession
	case errors.Is(err, capture.ErrSessionActive):
		return CodeSessionActive
	case errors.Is(err, stt.ErrTranscriptionFailed):
		return CodeTranscription
	}
	return CodeBadRequest
}
