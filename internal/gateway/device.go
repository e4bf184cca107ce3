package gateway

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/tutorloop/voice-service/internal/capture"
)

// wsBroker asks the browser for microphone permission over the socket and
// waits for the user's answer. One request at a time per connection.
type wsBroker struct {
	conn    *Conn
	timeout time.Duration
}

// Request sends a permission_request event and blocks until the client
// replies, the timeout fires, or ctx expires. Timeouts and transport
// failures surface as errors; the capture controller folds them into its
// permission-denied sentinel.
func (b *wsBroker) Request(ctx context.Context) (bool, error) {
	b.conn.drainPermission()

	if err := b.conn.send(&ServerMessage{Event: ServerEventPermissionRequest}); err != nil {
		return false, fmt.Errorf("failed to reach client: %w", err)
	}

	select {
	case granted := <-b.conn.permCh:
		return granted, nil
	case <-time.After(b.timeout):
		return false, fmt.Errorf("permission request timed out after %s", b.timeout)
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

// wsDevice opens capture streams fed by the connection's binary frames
type wsDevice struct {
	conn *Conn
}

func (d *wsDevice) Open(ctx context.Context) (capture.Stream, error) {
	return d.conn.attachStream()
}

// wsStream is one capture stream's chunk pipe. Binary frames arriving on
// the connection while this stream is attached land on its channel. The
// channel closes only after the stream is detached, so every chunk
// delivered before Close is still drained by the reader.
type wsStream struct {
	ch        chan []byte
	conn      *Conn
	closeOnce sync.Once
}

func (s *wsStream) Chunks() <-chan []byte {
	return s.ch
}

func (s *wsStream) Close() error {
	s.closeOnce.Do(func() {
		s.conn.detachStream(s)
		close(s.ch)
	})
	return nil
}
