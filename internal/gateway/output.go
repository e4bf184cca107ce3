package gateway

import (
	"github.com/tutorloop/voice-service/internal/playback"
)

// wsOpener creates playback outputs driven by the client's audio element.
// The server holds the single-slot invariant; the client holds the actual
// decoder. Commands go out over the socket, progress reports come back as
// playback_event frames and are routed to the registered callbacks.
type wsOpener struct {
	conn *Conn
}

func (o *wsOpener) Open(item playback.Item, ev playback.Events) (playback.Output, error) {
	stream := o.conn.registerPlayback(ev)
	return &wsOutput{
		conn:   o.conn,
		item:   &PlayItem{ID: item.ID, Locator: item.Locator, Language: item.Language},
		stream: stream,
	}, nil
}

// wsOutput relays playback commands to the client's audio element
type wsOutput struct {
	conn   *Conn
	item   *PlayItem
	stream uint64
}

func (w *wsOutput) Play() error {
	return w.conn.send(&ServerMessage{
		Event:   ServerEventCommand,
		Command: &CommandPayload{Action: CommandPlay, Item: w.item, Stream: w.stream},
	})
}

func (w *wsOutput) Pause() error {
	return w.conn.send(&ServerMessage{
		Event:   ServerEventCommand,
		Command: &CommandPayload{Action: CommandPause},
	})
}

func (w *wsOutput) Stop() error {
	return w.conn.send(&ServerMessage{
		Event:   ServerEventCommand,
		Command: &CommandPayload{Action: CommandStop},
	})
}

func (w *wsOutput) Release() {
	// Best effort; the connection may already be gone during teardown
	_ = w.conn.send(&ServerMessage{
		Event:   ServerEventCommand,
		Command: &CommandPayload{Action: CommandRelease},
	})
}
