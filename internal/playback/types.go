package playback

import "errors"

// ErrPlaybackError marks a mid-stream decode or delivery failure. It is
// absorbed by the coordinator and never returned to the caller of Play;
// the UI observes the cleared active item instead.
var ErrPlaybackError = errors.New("playback stream failed")

// Item is a playable item supplied by the UI layer per call. The
// coordinator does not own items.
type Item struct {
	ID       string // opaque identifier, keys the "is playing" predicate
	Locator  string // URL or data reference of the audio source
	Language string // optional tag used upstream for voice selection
}

// Events carries the callbacks an Output fires as its stream progresses.
// Implementations must deliver events from their own goroutine, never from
// inside a synchronous Output method call.
type Events struct {
	OnEnded   func()      // stream reached end
	OnError   func(error) // decode or delivery failure mid-stream
	OnPaused  func()      // paused by the platform, position retained
	OnResumed func()
}

// Output is one audio output stream bound to a single item's source.
// At most one live Output exists process-wide; the coordinator enforces it.
type Output interface {
	Play() error  // start, or resume from the paused position
	Pause() error // halt delivery, retain position
	Stop() error  // pause and rewind to start
	Release()     // free the underlying resource; idempotent
}

// Opener creates a fresh Output for an item with callbacks registered
type Opener interface {
	Open(item Item, ev Events) (Output, error)
}
