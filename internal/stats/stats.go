// Package stats implements counter/histogram rollups: fixed 10-second
// buckets aggregated into 1-minute/5-minute/15-minute/all-time windows,
// a stats.json writer, and an optional Prometheus-style prom_file text
// exposition. Built on the standard library only (see DESIGN.md's
// justification).
package stats

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

const bucketIntervalMs = 10_000

// window names the rollup windows this package maintains.
type window int

const (
	windowLastMinute window = iota
	windowLast5Minutes
	windowLast15Minutes
	windowAllTime
	windowCount
)

var windowBuckets = [windowCount]int{
	windowLastMinute:    6,  // 6 * 10s = 1 minute
	windowLast5Minutes:  30, // 30 * 10s = 5 minutes
	windowLast15Minutes: 90, // 90 * 10s = 15 minutes
	windowAllTime:       0,  // accumulated separately, never rotated out
}

// Counters is one 10-second bucket's worth of counter increments.
type Counters struct {
	MessagesTotal     int64
	MessagesByDF      map[int]int64
	PositionsAccepted int64
	PositionsRejected int64
	SpeedRejected     int64
	CPRGlobalOK       int64
	CPRLocalOK        int64
	ClientsConnected  int64
	BytesIn           int64
	BytesOut          int64
}

func newCounters() Counters {
	return Counters{MessagesByDF: make(map[int]int64)}
}

func (c *Counters) add(o Counters) {
	c.MessagesTotal += o.MessagesTotal
	c.PositionsAccepted += o.PositionsAccepted
	c.PositionsRejected += o.PositionsRejected
	c.SpeedRejected += o.SpeedRejected
	c.CPRGlobalOK += o.CPRGlobalOK
	c.CPRLocalOK += o.CPRLocalOK
	c.ClientsConnected += o.ClientsConnected
	c.BytesIn += o.BytesIn
	c.BytesOut += o.BytesOut
	for df, n := range o.MessagesByDF {
		c.MessagesByDF[df] += n
	}
}

// RangeHistogram mirrors internal/track.RangeHistogram's bucket shape
// for rollup purposes, since stats.json reports a range histogram
// alongside the counters.
type RangeHistogram struct {
	BucketWidthM float64
	Buckets      [64]int64
}

func (h *RangeHistogram) add(o RangeHistogram) {
	if h.BucketWidthM == 0 {
		h.BucketWidthM = o.BucketWidthM
	}
	for i := range h.Buckets {
		h.Buckets[i] += o.Buckets[i]
	}
}

// Collector accumulates 10-second Counters buckets and rolls them up
// into 1/5/15-minute and all-time windows, under a single mutex the
// same way Regentag-go1090 guards its decoder-global counters.
type Collector struct {
	mu sync.Mutex

	current   Counters
	ranges    RangeHistogram
	ring      []Counters // most recent bucket first
	allTime   Counters
	allRanges RangeHistogram
}

// NewCollector returns an empty Collector.
func NewCollector() *Collector {
	return &Collector{current: newCounters(), allTime: newCounters()}
}

// Add merges delta into the in-progress 10-second bucket.
func (c *Collector) Add(delta Counters) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current.add(delta)
}

// AddRange folds one position's range measurement into the
// in-progress bucket's histogram.
func (c *Collector) AddRange(rh RangeHistogram) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ranges.add(rh)
}

// Rotate closes out the current 10-second bucket, pushes it onto the
// ring (trimmed to the longest window's length), and folds it into the
// all-time accumulator. Called once per bucketIntervalMs by the
// maintenance loop.
func (c *Collector) Rotate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	closed := c.current
	c.current = newCounters()

	c.allTime.add(closed)
	c.allRanges.add(c.ranges)
	c.ranges = RangeHistogram{}

	c.ring = append([]Counters{closed}, c.ring...)
	maxLen := windowBuckets[windowLast15Minutes]
	if len(c.ring) > maxLen {
		c.ring = c.ring[:maxLen]
	}
}

// Snapshot computes the current rollup for every window.
func (c *Collector) Snapshot() Rollup {
	c.mu.Lock()
	defer c.mu.Unlock()

	var r Rollup
	r.LastMinute = c.sumWindow(windowLastMinute)
	r.Last5Minutes = c.sumWindow(windowLast5Minutes)
	r.Last15Minutes = c.sumWindow(windowLast15Minutes)
	r.AllTime = c.allTime
	r.RangeAllTime = c.allRanges
	return r
}

func (c *Collector) sumWindow(w window) Counters {
	n := windowBuckets[w]
	if n > len(c.ring) {
		n = len(c.ring)
	}
	sum := newCounters()
	for i := 0; i < n; i++ {
		sum.add(c.ring[i])
	}
	return sum
}

// Rollup is the full set of aggregated windows written to stats.json.
type Rollup struct {
	LastMinute    Counters
	Last5Minutes  Counters
	Last15Minutes Counters
	AllTime       Counters
	RangeAllTime  RangeHistogram
}

// FormatProm renders r as Prometheus text exposition format: one
// counter per all-time total (ClientsConnected is not exported), a
// per-DF message counter, and the range histogram as cumulative
// trackserver_range_m_bucket lines only (no +Inf bucket, _sum or
// _count series).
func FormatProm(r Rollup) string {
	var b strings.Builder

	writeGauge := func(name string, v int64) {
		fmt.Fprintf(&b, "# TYPE %s counter\n%s %d\n", name, name, v)
	}

	writeGauge("trackserver_messages_total", r.AllTime.MessagesTotal)
	writeGauge("trackserver_positions_accepted_total", r.AllTime.PositionsAccepted)
	writeGauge("trackserver_positions_rejected_total", r.AllTime.PositionsRejected)
	writeGauge("trackserver_speed_rejected_total", r.AllTime.SpeedRejected)
	writeGauge("trackserver_cpr_global_ok_total", r.AllTime.CPRGlobalOK)
	writeGauge("trackserver_cpr_local_ok_total", r.AllTime.CPRLocalOK)
	writeGauge("trackserver_bytes_in_total", r.AllTime.BytesIn)
	writeGauge("trackserver_bytes_out_total", r.AllTime.BytesOut)

	dfs := make([]int, 0, len(r.AllTime.MessagesByDF))
	for df := range r.AllTime.MessagesByDF {
		dfs = append(dfs, df)
	}
	sort.Ints(dfs)
	fmt.Fprintln(&b, "# TYPE trackserver_messages_by_df_total counter")
	for _, df := range dfs {
		fmt.Fprintf(&b, "trackserver_messages_by_df_total{df=\"%d\"} %d\n", df, r.AllTime.MessagesByDF[df])
	}

	fmt.Fprintln(&b, "# TYPE trackserver_range_m histogram")
	var cumulative int64
	for i, count := range r.RangeAllTime.Buckets {
		cumulative += count
		upper := float64(i+1) * r.RangeAllTime.BucketWidthM
		fmt.Fprintf(&b, "trackserver_range_m_bucket{le=\"%g\"} %d\n", upper, cumulative)
	}

	return b.String()
}
