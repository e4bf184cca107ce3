package audio

import (
	"sync"
)

// ChunkBuffer accumulates encoded audio chunks in arrival order during a
// capture session. Chunks are append-only; insertion order is significant.
// Assemble concatenates everything captured so far into a single payload.
type ChunkBuffer struct {
	mu     sync.Mutex
	chunks [][]byte
	bytes  int
}

// NewChunkBuffer creates an empty chunk buffer
func NewChunkBuffer() *ChunkBuffer {
	return &ChunkBuffer{}
}

// Append adds a chunk to the end of the buffer.
// The chunk is copied; the caller may reuse its slice.
func (cb *ChunkBuffer) Append(chunk []byte) {
	if len(chunk) == 0 {
		return
	}

	cb.mu.Lock()
	defer cb.mu.Unlock()

	c := make([]byte, len(chunk))
	copy(c, chunk)
	cb.chunks = append(cb.chunks, c)
	cb.bytes += len(c)
}

// Len returns the total number of buffered bytes
func (cb *ChunkBuffer) Len() int {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.bytes
}

// Count returns the number of buffered chunks
func (cb *ChunkBuffer) Count() int {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return len(cb.chunks)
}

// Assemble concatenates all chunks into one contiguous payload in insertion
// order. The returned slice is freshly allocated and never mutated by the
// buffer afterwards.
func (cb *ChunkBuffer) Assemble() []byte {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	out := make([]byte, 0, cb.bytes)
	for _, c := range cb.chunks {
		out = append(out, c...)
	}
	return out
}

// Reset discards all buffered chunks
func (cb *ChunkBuffer) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.chunks = nil
	cb.bytes = 0
}
