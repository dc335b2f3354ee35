package stats

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// CountersJSON is the JSON-serializable projection of Counters for
// stats.json.
type CountersJSON struct {
	MessagesTotal     int64             `json:"messages_total"`
	MessagesByDF      map[string]int64  `json:"messages_by_df"`
	PositionsAccepted int64             `json:"positions_accepted"`
	PositionsRejected int64             `json:"positions_rejected"`
	SpeedRejected     int64             `json:"speed_rejected"`
	CPRGlobalOK       int64             `json:"cpr_global_ok"`
	CPRLocalOK        int64             `json:"cpr_local_ok"`
	ClientsConnected  int64             `json:"clients_connected"`
	BytesIn           int64             `json:"bytes_in"`
	BytesOut          int64             `json:"bytes_out"`
}

func toJSON(c Counters) CountersJSON {
	byDF := make(map[string]int64, len(c.MessagesByDF))
	for df, n := range c.MessagesByDF {
		byDF[fmt.Sprintf("%d", df)] = n
	}
	return CountersJSON{
		MessagesTotal:     c.MessagesTotal,
		MessagesByDF:      byDF,
		PositionsAccepted: c.PositionsAccepted,
		PositionsRejected: c.PositionsRejected,
		SpeedRejected:     c.SpeedRejected,
		CPRGlobalOK:       c.CPRGlobalOK,
		CPRLocalOK:        c.CPRLocalOK,
		ClientsConnected:  c.ClientsConnected,
		BytesIn:           c.BytesIn,
		BytesOut:          c.BytesOut,
	}
}

// RangeHistogramJSON is the JSON-serializable projection of a
// RangeHistogram.
type RangeHistogramJSON struct {
	BucketWidthM float64 `json:"bucket_width_m"`
	Buckets      []int64 `json:"buckets"`
}

func rangeToJSON(h RangeHistogram) RangeHistogramJSON {
	return RangeHistogramJSON{BucketWidthM: h.BucketWidthM, Buckets: h.Buckets[:]}
}

// StatsJSON is the on-disk shape of stats.json: the same four windows
// the in-memory Rollup carries, each ready to marshal directly.
type StatsJSON struct {
	Now           int64              `json:"now"`
	LastMinute    CountersJSON       `json:"last1min"`
	Last5Minutes  CountersJSON       `json:"last5min"`
	Last15Minutes CountersJSON       `json:"last15min"`
	AllTime       CountersJSON       `json:"total"`
	RangeAllTime  RangeHistogramJSON `json:"range_histogram"`
}

// BuildStatsJSON projects a Rollup into its on-disk form.
func BuildStatsJSON(nowMs int64, r Rollup) StatsJSON {
	return StatsJSON{
		Now:           nowMs,
		LastMinute:    toJSON(r.LastMinute),
		Last5Minutes:  toJSON(r.Last5Minutes),
		Last15Minutes: toJSON(r.Last15Minutes),
		AllTime:       toJSON(r.AllTime),
		RangeAllTime:  rangeToJSON(r.RangeAllTime),
	}
}

// WriteStatsJSON atomically writes stats.json under dir, mirroring
// internal/snapshot's temp-file-plus-rename pattern since both packages
// persist aggregator state that readers may poll mid-write.
func WriteStatsJSON(dir string, sj StatsJSON) error {
	data, err := json.Marshal(sj)
	if err != nil {
		return fmt.Errorf("marshal stats.json: %w", err)
	}
	return writeAtomic(filepath.Join(dir, "stats.json"), data)
}

// WritePromFile atomically writes the Prometheus text exposition for r
// under dir/prom_file.
func WritePromFile(dir string, r Rollup) error {
	return writeAtomic(filepath.Join(dir, "prom_file"), []byte(FormatProm(r)))
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".tmp-stats-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write %s: %w", tmpPath, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close %s: %w", tmpPath, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename %s to %s: %w", tmpPath, path, err)
	}
	return nil
}
