// Package maint implements the periodic maintenance loop: the single
// fixed-order pass a track server runs once per tick to remove stale
// aircraft, roll up stats, and flush snapshots. Receivers are not aged
// here; internal/track.ReceiverTable expires idle ones on its own. It
// generalizes Regentag-go1090's ticker-driven main loop (which polls
// its decoder and redraws its console on a single time.Ticker) into a
// dedicated worker-partitioned sweep, following the bucket-partitioning
// design internal/track.Store already exposes via
// BucketRange/WalkBucket.
package maint

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go1090/trackserver/internal/logging"
	"github.com/go1090/trackserver/internal/snapshot"
	"github.com/go1090/trackserver/internal/stats"
	"github.com/go1090/trackserver/internal/trace"
	"github.com/go1090/trackserver/internal/track"
)

// Config bundles the maintenance loop's tunables, mirroring the subset
// of internal/config.Config the loop needs without importing it
// directly (keeps internal/maint free of a dependency on the config
// package's viper-based loader, following the same layering
// Regentag-go1090 keeps between its decoder and its UI).
type Config struct {
	Tick            time.Duration
	Workers         int
	StaleWindow     time.Duration
	JSONReliableThr int
	OutputDir       string
	GlobeHistoryDir string
}

// Loop owns one maintenance pass over a Store/trace.Store pair, plus
// the stats collector and snapshot writers the pass feeds.
type Loop struct {
	cfg    Config
	store  *track.Store
	traces *trace.Store
	stats  *stats.Collector
	log    *logging.Logger

	totalMessages int64
	mu            sync.Mutex

	lastStatsRotate time.Time
}

// New returns a Loop ready to Run.
func New(cfg Config, store *track.Store, traces *trace.Store, collector *stats.Collector, log *logging.Logger) *Loop {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	return &Loop{cfg: cfg, store: store, traces: traces, stats: collector, log: log}
}

// AddMessages adds n processed messages to the total reported as the next
// aircraft.json "messages" counter; called by the decode path, not by
// the maintenance tick itself.
func (l *Loop) AddMessages(n int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.totalMessages += n
}

func (l *Loop) messages() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.totalMessages
}

// Run blocks, executing one maintenance pass every cfg.Tick, until ctx
// is cancelled. Each pass runs in a fixed order: stale removal
// (partitioned across cfg.Workers), stats rollup, then snapshot
// writers.
func (l *Loop) Run(ctx context.Context) {
	ticker := time.NewTicker(l.cfg.Tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			l.runOnce(now)
		}
	}
}

func (l *Loop) runOnce(now time.Time) {
	nowMs := now.UnixMilli()

	l.removeStale(nowMs)
	l.rotateStats(now)

	if l.cfg.OutputDir != "" {
		if err := l.writeAircraftJSON(nowMs); err != nil {
			l.logf("write aircraft.json: %v", err)
		}
		if err := l.writeStats(nowMs); err != nil {
			l.logf("write stats.json: %v", err)
		}
	}
}

// removeStale partitions the store's NumBuckets across cfg.Workers
// goroutines, each walking its disjoint bucket range and deleting any
// aircraft whose Age exceeds cfg.StaleWindow.
func (l *Loop) removeStale(nowMs int64) {
	if l.cfg.StaleWindow <= 0 {
		return
	}
	now := time.UnixMilli(nowMs)

	var wg sync.WaitGroup
	for w := 0; w < l.cfg.Workers; w++ {
		start, end := track.BucketRange(w, l.cfg.Workers)
		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			var stale []uint32
			for b := start; b < end; b++ {
				l.store.WalkBucket(b, func(ac *track.Aircraft) {
					if ac.Age(now) > l.cfg.StaleWindow {
						stale = append(stale, ac.Addr)
					}
				})
			}
			for _, addr := range stale {
				l.store.Delete(addr)
				if l.traces != nil {
					l.traces.Remove(addr)
				}
			}
		}(start, end)
	}
	wg.Wait()
}

// rotateStats closes the in-progress 10-second counter bucket once per
// bucketIntervalMs of elapsed wall time, regardless of how often Run's
// ticker itself fires (the maintenance tick and the stats bucket width
// are independent tunables).
func (l *Loop) rotateStats(now time.Time) {
	if l.stats == nil {
		return
	}
	if l.lastStatsRotate.IsZero() || now.Sub(l.lastStatsRotate) >= 10*time.Second {
		l.stats.Rotate()
		l.lastStatsRotate = now
	}
}

func (l *Loop) writeAircraftJSON(nowMs int64) error {
	aircraft := l.store.Snapshot()
	staleAfterMs := l.cfg.StaleWindow.Milliseconds()
	aj := snapshot.BuildAircraftJSON(nowMs, l.messages(), aircraft, staleAfterMs)
	if err := snapshot.WriteAircraftJSON(l.cfg.OutputDir, aj); err != nil {
		return fmt.Errorf("maint: %w", err)
	}
	return nil
}

func (l *Loop) writeStats(nowMs int64) error {
	if l.stats == nil {
		return nil
	}
	sj := stats.BuildStatsJSON(nowMs, l.stats.Snapshot())
	if err := stats.WriteStatsJSON(l.cfg.OutputDir, sj); err != nil {
		return fmt.Errorf("maint: %w", err)
	}
	if err := stats.WritePromFile(l.cfg.OutputDir, l.stats.Snapshot()); err != nil {
		return fmt.Errorf("maint: %w", err)
	}
	return nil
}

func (l *Loop) logf(format string, args ...interface{}) {
	if l.log != nil {
		l.log.Printf(format, args...)
	}
}
