package codec

import (
	"bytes"
	"io"
	"strings"
	"testing"
)

func TestCompressedEncodeDecodeRoundTrip(t *testing.T) {
	payload := []byte(strings.Repeat("the quick brown fox jumps ", 40))
	b := encode(t, Compressed.Encoder, payload)
	if len(b) >= len(payload) {
		t.Fatalf("expected compression to shrink a repetitive payload: got %d compressed vs %d raw", len(b), len(payload))
	}

	v, err := Compressed.Decode(io.NopCloser(bytes.NewReader(b)))
	if err != nil {
		t.Fatal(err)
	}
	out, ok := v.([]byte)
	if !ok || !bytes.Equal(out, payload) {
		t.Fatalf("round trip mismatch")
	}
}

func TestCompressedDecodeDetectsCorruption(t *testing.T) {
	payload := []byte("integrity check me")
	b := encode(t, Compressed.Encoder, payload)
	// Flip a byte in the compressed body (past the 8-byte frame header) to
	// corrupt the stream without destroying its frame-header length.
	if len(b) > 9 {
		b[9] ^= 0xff
	}

	if _, err := Compressed.Decode(io.NopCloser(bytes.NewReader(b))); err == nil {
		t.Fatal("expected corruption to be detected")
	}
}
