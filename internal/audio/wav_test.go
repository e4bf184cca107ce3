package audio

import (
	"encoding/binary"
	"testing"
)

func TestEncodeWAV_Header(t *testing.T) {
	pcm := []byte{0x01, 0x00, 0x02, 0x00, 0x03, 0x00, 0x04, 0x00}

	wav, err := EncodeWAV(pcm, 16000, 1)
	if err != nil {
		t.Fatalf("EncodeWAV failed: %v", err)
	}

	if len(wav) != 44+len(pcm) {
		t.Fatalf("Expected %d bytes, got %d", 44+len(pcm), len(wav))
	}

	if string(wav[0:4]) != "RIFF" || string(wav[8:12]) != "WAVE" {
		t.Error("Missing RIFF/WAVE markers")
	}

	if got := binary.LittleEndian.Uint32(wav[24:28]); got != 16000 {
		t.Errorf("Expected sample rate 16000, got %d", got)
	}

	if got := binary.LittleEndian.Uint16(wav[22:24]); got != 1 {
		t.Errorf("Expected 1 channel, got %d", got)
	}

	// byte rate = rate * channels * 2
	if got := binary.LittleEndian.Uint32(wav[28:32]); got != 32000 {
		t.Errorf("Expected byte rate 32000, got %d", got)
	}

	if got := binary.LittleEndian.Uint32(wav[40:44]); got != uint32(len(pcm)) {
		t.Errorf("Expected data size %d, got %d", len(pcm), got)
	}
}

func TestEncodeWAV_Invalid(t *testing.T) {
	tests := []struct {
		name       string
		pcm        []byte
		sampleRate int
		channels   int
	}{
		{"empty data", nil, 16000, 1},
		{"odd length", []byte{1, 2, 3}, 16000, 1},
		{"zero sample rate", []byte{1, 2}, 0, 1},
		{"zero channels", []byte{1, 2}, 16000, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := EncodeWAV(tt.pcm, tt.sampleRate, tt.channels); err == nil {
				t.Error("Expected error, got nil")
			}
		})
	}
}

func TestDecodeSamples(t *testing.T) {
	// -1 and 256 in little-endian int16
	pcm := []byte{0xFF, 0xFF, 0x00, 0x01}

	samples := DecodeSamples(pcm)
	if len(samples) != 2 {
		t.Fatalf("Expected 2 samples, got %d", len(samples))
	}
	if samples[0] != -1 {
		t.Errorf("Expected -1, got %d", samples[0])
	}
	if samples[1] != 256 {
		t.Errorf("Expected 256, got %d", samples[1])
	}
}

func TestDecodeSamples_OddTrailingByte(t *testing.T) {
	samples := DecodeSamples([]byte{0x01, 0x00, 0x7F})
	if len(samples) != 1 {
		t.Errorf("Expected trailing odd byte to be dropped, got %d samples", len(samples))
	}
}
