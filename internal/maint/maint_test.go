package maint

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go1090/trackserver/internal/snapshot"
	"github.com/go1090/trackserver/internal/stats"
	"github.com/go1090/trackserver/internal/trace"
	"github.com/go1090/trackserver/internal/track"
)

func TestRemoveStaleDropsOldAircraft(t *testing.T) {
	store := track.NewStore()
	traces := trace.NewStore()

	now := time.Now()
	nowMs := now.UnixMilli()

	fresh, _ := store.GetOrCreate(0x111111, nowMs)
	fresh.SeenMs = nowMs

	old, _ := store.GetOrCreate(0x222222, nowMs)
	old.SeenMs = nowMs - int64(2*time.Minute/time.Millisecond)

	l := New(Config{Workers: 4, StaleWindow: 60 * time.Second}, store, traces, nil, nil)
	l.removeStale(nowMs)

	if store.Get(0x111111) == nil {
		t.Errorf("fresh aircraft was removed")
	}
	if store.Get(0x222222) != nil {
		t.Errorf("stale aircraft was not removed")
	}
}

func TestRunOnceWritesSnapshotsAndStats(t *testing.T) {
	dir := t.TempDir()
	store := track.NewStore()
	traces := trace.NewStore()
	collector := stats.NewCollector()
	collector.Add(stats.Counters{MessagesTotal: 1, MessagesByDF: map[int]int64{17: 1}})

	nowMs := time.Now().UnixMilli()
	ac, _ := store.GetOrCreate(0x4840D6, nowMs)
	ac.Position.Lat, ac.Position.Lon = 51.5, -0.1
	ac.Position.Valid = track.Validity{Source: track.SourceADSB, LastUpdatedMs: nowMs}
	ac.Reliability.PosOdd, ac.Reliability.PosEven = 4, 4

	l := New(Config{Workers: 2, StaleWindow: time.Hour, OutputDir: dir}, store, traces, collector, nil)
	l.AddMessages(3)
	l.runOnce(time.Now())

	rawAC, err := os.ReadFile(filepath.Join(dir, "aircraft.json"))
	if err != nil {
		t.Fatalf("aircraft.json not written: %v", err)
	}
	var aj snapshot.AircraftJSON
	if err := json.Unmarshal(rawAC, &aj); err != nil {
		t.Fatalf("unmarshal aircraft.json: %v", err)
	}
	if len(aj.Aircraft) != 1 {
		t.Fatalf("aircraft.json has %d entries, want 1", len(aj.Aircraft))
	}
	if aj.Messages != 3 {
		t.Errorf("aircraft.json messages = %d, want 3", aj.Messages)
	}

	if _, err := os.Stat(filepath.Join(dir, "stats.json")); err != nil {
		t.Errorf("stats.json not written: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "prom_file")); err != nil {
		t.Errorf("prom_file not written: %v", err)
	}
}
