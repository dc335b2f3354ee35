package snapshot

import (
	"os"
	"testing"

	"github.com/go1090/trackserver/internal/track"
	"github.com/go1090/trackserver/internal/trace"
)

func TestInternalStateRoundTrip(t *testing.T) {
	dir := t.TempDir()
	addr := uint32(0x4840D6)

	ac := track.NewAircraft(addr, 1000)
	ac.Callsign = "BAW123"
	state := AircraftState{
		Aircraft: *ac,
		Trace:    []trace.Entry{{TimestampMs: 1000, LatE6: 515000, LonE6: -1000}},
	}

	if err := WriteInternalState(dir, addr, state); err != nil {
		t.Fatalf("WriteInternalState: %v", err)
	}

	got, ok, err := ReadInternalState(dir, addr)
	if err != nil {
		t.Fatalf("ReadInternalState: %v", err)
	}
	if !ok {
		t.Fatalf("ReadInternalState: ok = false")
	}
	if got.Aircraft.Callsign != "BAW123" {
		t.Errorf("Callsign = %q, want BAW123", got.Aircraft.Callsign)
	}
	if len(got.Trace) != 1 || got.Trace[0].LatE6 != 515000 {
		t.Fatalf("Trace = %+v", got.Trace)
	}
}

func TestReadInternalStateMissing(t *testing.T) {
	dir := t.TempDir()
	_, ok, err := ReadInternalState(dir, 0xABCDEF)
	if err != nil {
		t.Fatalf("ReadInternalState: %v", err)
	}
	if ok {
		t.Errorf("ok = true for a file that was never written")
	}
}

func TestReadInternalStateVersionMismatch(t *testing.T) {
	dir := t.TempDir()
	addr := uint32(0x1)
	if err := WriteInternalState(dir, addr, AircraftState{}); err != nil {
		t.Fatalf("WriteInternalState: %v", err)
	}

	// Corrupt the layout version so the read path must refuse to load it.
	path := stateFilePath(dir, addr)
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("os.ReadFile: %v", err)
	}
	data[0] ^= 0xff
	if err := writeAtomic(path, data); err != nil {
		t.Fatalf("writeAtomic: %v", err)
	}

	_, ok, err := ReadInternalState(dir, addr)
	if err != nil {
		t.Fatalf("ReadInternalState: %v", err)
	}
	if ok {
		t.Errorf("ok = true after corrupting the layout version")
	}
}
