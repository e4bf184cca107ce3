package gateway

// Wire protocol between the browser client and the voice service. Text
// frames carry JSON envelopes in both directions; binary frames carry raw
// 16-bit PCM microphone chunks while a capture session is open.

// Client event types
const (
	ClientEventStartCapture     = "start_capture"
	ClientEventStopCapture      = "stop_capture"
	ClientEventPlay             = "play"
	ClientEventSynthesize       = "synthesize"
	ClientEventPermissionResult = "permission_result"
	ClientEventPlayback         = "playback_event"
)

// Server event types
const (
	ServerEventState             = "state"
	ServerEventTranscript        = "transcript"
	ServerEventSpeech            = "speech"
	ServerEventAudio             = "audio"
	ServerEventError             = "error"
	ServerEventPermissionRequest = "permission_request"
	ServerEventCommand           = "command"
)

// Playback event kinds reported by the client's audio element
const (
	PlaybackEnded   = "ended"
	PlaybackError   = "error"
	PlaybackPaused  = "paused"
	PlaybackResumed = "resumed"
)

// Playback command actions the server issues to the client
const (
	CommandPlay    = "play"
	CommandPause   = "pause"
	CommandStop    = "stop"
	CommandRelease = "release"
)

// ClientMessage is the envelope for all client-to-server text frames
type ClientMessage struct {
	Event    string          `json:"event"`
	Item     *PlayItem       `json:"item,omitempty"`     // play
	Text     string          `json:"text,omitempty"`     // synthesize
	Language string          `json:"language,omitempty"` // synthesize, stop_capture
	Granted  *bool           `json:"granted,omitempty"`  // permission_result
	Playback *PlaybackReport `json:"playback,omitempty"` // playback_event
}

// PlayItem identifies a playable item supplied by the client per play call
type PlayItem struct {
	ID       string `json:"id"`
	Locator  string `json:"locator"`
	Language string `json:"language,omitempty"`
}

// PlaybackReport is the client's report of its audio element's progress.
// Stream echoes the token from the play command that created the element;
// reports carrying a superseded token are dropped, so a dying element
// cannot disturb the stream that replaced it.
type PlaybackReport struct {
	Stream  uint64 `json:"stream"`
	Kind    string `json:"kind"` // ended, error, paused, resumed
	Message string `json:"message,omitempty"`
}

// ServerMessage is the envelope for all server-to-client text frames
type ServerMessage struct {
	Event      string             `json:"event"`
	State      *StatePayload      `json:"state,omitempty"`
	Transcript *TranscriptPayload `json:"transcript,omitempty"`
	Speech     *SpeechPayload     `json:"speech,omitempty"`
	Audio      *AudioPayload      `json:"audio,omitempty"`
	Error      *ErrorPayload      `json:"error,omitempty"`
	Command    *CommandPayload    `json:"command,omitempty"`
}

// StatePayload mirrors the session state the UI binds its affordances to
type StatePayload struct {
	Recording    bool   `json:"recording"`
	Transcribing bool   `json:"transcribing"`
	PlayingItem  string `json:"playing_item,omitempty"`
}

// TranscriptPayload carries a completed transcription. Empty is set when
// the service answered but heard no speech; the client shows a hint, not
// an error.
type TranscriptPayload struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	Language   string  `json:"language,omitempty"`
	Empty      bool    `json:"empty"`
}

// SpeechPayload reports whether voice activity was seen in the capture,
// available immediately at stop without a transcription round-trip
type SpeechPayload struct {
	Detected bool `json:"detected"`
}

// AudioPayload carries the locator of a synthesized clip
type AudioPayload struct {
	Locator      string  `json:"locator"`
	DurationHint float64 `json:"duration_hint,omitempty"`
}

// ErrorPayload carries a terminal operation failure. Code is one of the
// stable identifiers the client switches on.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Stable error codes
const (
	CodePermissionDenied  = "permission_denied"
	CodeDeviceUnavailable = "device_unavailable"
	CodeNoActiveSession   = "no_active_session"
	CodeSessionActive     = "session_active"
	CodeTranscription     = "transcription_failed"
	CodeSynthesis         = "synthesis_failed"
	CodeBadRequest        = "bad_request"
)

// CommandPayload instructs the client's audio element. For play the item
// and a fresh stream token are included; the client must echo the token in
// every PlaybackReport for that element. The other actions apply to the
// current element.
type CommandPayload struct {
	Action string    `json:"action"`
	Item   *PlayItem `json:"item,omitempty"`
	Stream uint64    `json:"stream,omitempty"`
}
