package proto

import (
	"bytes"
	"testing"
)

func TestAVRRoundTrip(t *testing.T) {
	msg := []byte{0x88, 0x48, 0x40, 0xd6, 0x20}
	wire := EncodeAVR(msg)

	r := NewAVRReader()
	got, err := r.Feed(wire)
	if err != nil {
		t.Fatalf("Feed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d frames, want 1", len(got))
	}
	if !bytes.Equal(got[0], msg) {
		t.Errorf("frame = %x, want %x", got[0], msg)
	}
}

func TestAVRReaderSplitAcrossFeeds(t *testing.T) {
	wire := EncodeAVR([]byte{0x5d, 0x3c, 0x65, 0x8a})
	r := NewAVRReader()

	mid := len(wire) / 2
	if got, err := r.Feed(wire[:mid]); err != nil || len(got) != 0 {
		t.Fatalf("got %d frames (err=%v) before complete, want 0", len(got), err)
	}
	got, err := r.Feed(wire[mid:])
	if err != nil {
		t.Fatalf("Feed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d frames, want 1", len(got))
	}
}

func TestAVRReaderMultipleFrames(t *testing.T) {
	var buf bytes.Buffer
	buf.Write(EncodeAVR([]byte{0x01, 0x02}))
	buf.Write(EncodeAVR([]byte{0x03, 0x04, 0x05}))

	r := NewAVRReader()
	got, err := r.Feed(buf.Bytes())
	if err != nil {
		t.Fatalf("Feed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d frames, want 2", len(got))
	}
}
