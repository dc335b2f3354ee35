package snapshot

import (
	"compress/gzip"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/go1090/trackserver/internal/trace"
)

func sampleEntries() []trace.Entry {
	return []trace.Entry{
		{TimestampMs: 1_000_000, LatE6: 51_500_000, LonE6: -100_000, Alt25ft: 1400, GS10: 4500, Track10: 900},
		{TimestampMs: 1_010_000, LatE6: 51_510_000, LonE6: -99_000, Alt25ft: 1410, GS10: 4510, Track10: 905},
	}
}

func readGzipJSON(t *testing.T, path string) trace.TraceFile {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		t.Fatalf("gzip.NewReader: %v", err)
	}
	defer gz.Close()

	raw, err := io.ReadAll(gz)
	if err != nil {
		t.Fatalf("read gzip body: %v", err)
	}

	var tf trace.TraceFile
	if err := json.Unmarshal(raw, &tf); err != nil {
		t.Fatalf("unmarshal trace file: %v", err)
	}
	return tf
}

func TestWriteRecentTraceRoundTrips(t *testing.T) {
	dir := t.TempDir()
	addr := uint32(0x4840D6)

	if err := WriteRecentTrace(dir, 7, addr, sampleEntries()); err != nil {
		t.Fatalf("WriteRecentTrace: %v", err)
	}

	path := filepath.Join(dir, "traces", bucketDir(addr), "trace_recent_4840d6.json.gz")
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected trace file at %s: %v", path, err)
	}

	tf := readGzipJSON(t, path)
	if tf.ICAO != "4840d6" {
		t.Errorf("ICAO = %q, want 4840d6", tf.ICAO)
	}
	if tf.Receiver != 7 {
		t.Errorf("Receiver = %d, want 7", tf.Receiver)
	}
	if len(tf.Trace) != 2 {
		t.Fatalf("got %d trace entries, want 2", len(tf.Trace))
	}
}

func TestWriteFullTraceUsesBucketDirectory(t *testing.T) {
	dir := t.TempDir()
	addr := uint32(0x010203)

	if err := WriteFullTrace(dir, 1, addr, sampleEntries()); err != nil {
		t.Fatalf("WriteFullTrace: %v", err)
	}

	want := filepath.Join(dir, "traces", bucketDir(addr), "trace_full_010203.json.gz")
	if _, err := os.Stat(want); err != nil {
		t.Fatalf("expected trace file at %s: %v", want, err)
	}
}

func TestWriteHistoryTraceUsesDateDirectory(t *testing.T) {
	dir := t.TempDir()
	addr := uint32(0xABCDEF)

	if err := WriteHistoryTrace(dir, "2026-07-31", 3, addr, sampleEntries()); err != nil {
		t.Fatalf("WriteHistoryTrace: %v", err)
	}

	want := filepath.Join(dir, "2026-07-31", "traces", bucketDir(addr), "trace_full_abcdef.json.gz")
	if _, err := os.Stat(want); err != nil {
		t.Fatalf("expected history trace file at %s: %v", want, err)
	}
}

func TestBucketDirIsTwoHexDigits(t *testing.T) {
	tests := []struct {
		addr uint32
		want string
	}{
		{0x000000, "00"},
		{0x0000FF, "ff"},
		{0x010100, "00"},
	}
	for _, tt := range tests {
		if got := bucketDir(tt.addr); got != tt.want {
			t.Errorf("bucketDir(%06x) = %q, want %q", tt.addr, got, tt.want)
		}
	}
}
