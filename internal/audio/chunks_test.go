package audio

import (
	"bytes"
	"testing"
)

func TestChunkBuffer_AppendAndAssemble(t *testing.T) {
	cb := NewChunkBuffer()

	cb.Append([]byte{1, 2, 3})
	cb.Append([]byte{4, 5})
	cb.Append([]byte{6})

	if cb.Count() != 3 {
		t.Errorf("Expected 3 chunks, got %d", cb.Count())
	}
	if cb.Len() != 6 {
		t.Errorf("Expected 6 bytes, got %d", cb.Len())
	}

	got := cb.Assemble()
	want := []byte{1, 2, 3, 4, 5, 6}
	if !bytes.Equal(got, want) {
		t.Errorf("Assemble() = %v, want %v (insertion order must be preserved)", got, want)
	}
}

func TestChunkBuffer_AppendCopies(t *testing.T) {
	cb := NewChunkBuffer()

	chunk := []byte{1, 2, 3}
	cb.Append(chunk)
	chunk[0] = 99 // caller reuses its slice

	got := cb.Assemble()
	if got[0] != 1 {
		t.Errorf("Buffer aliased caller's slice: got %v", got)
	}
}

func TestChunkBuffer_AssembleIsImmutable(t *testing.T) {
	cb := NewChunkBuffer()
	cb.Append([]byte{1, 2, 3})

	first := cb.Assemble()
	first[0] = 42

	second := cb.Assemble()
	if second[0] != 1 {
		t.Errorf("Mutating an assembled payload affected the buffer: got %v", second)
	}
}

func TestChunkBuffer_EmptyChunkIgnored(t *testing.T) {
	cb := NewChunkBuffer()
	cb.Append(nil)
	cb.Append([]byte{})

	if cb.Count() != 0 || cb.Len() != 0 {
		t.Errorf("Expected empty buffer, got %d chunks / %d bytes", cb.Count(), cb.Len())
	}
}

func TestChunkBuffer_Reset(t *testing.T) {
	cb := NewChunkBuffer()
	cb.Append([]byte{1, 2, 3})

	cb.Reset()

	if cb.Count() != 0 {
		t.Errorf("Expected 0 chunks after reset, got %d", cb.Count())
	}
	if cb.Len() != 0 {
		t.Errorf("Expected 0 bytes after reset, got %d", cb.Len())
	}
	if len(cb.Assemble()) != 0 {
		t.Error("Expected empty payload after reset")
	}
}
