package snapshot

import (
	"fmt"
	"path/filepath"

	"github.com/go1090/trackserver/internal/trace"
)

// bucketDir returns the "<bucket>" path component used to shard trace
// files by hash bucket, mirroring internal/track.Store's bucket
// partitioning so a bucket's trace files and its aircraft bucket can
// be swept by the same maintenance worker.
func bucketDir(addr uint32) string {
	return fmt.Sprintf("%02x", addr%256)
}

// WriteRecentTrace writes json_dir/traces/<bucket>/trace_recent_<addr>.json.gz,
// the last Ring.Recent() entries for addr.
func WriteRecentTrace(jsonDir string, receiverID uint64, addr uint32, entries []trace.Entry) error {
	tf := trace.BuildTraceFile(hex6(addr), receiverID, entries)
	gz, err := trace.MarshalGzipJSON(tf)
	if err != nil {
		return fmt.Errorf("snapshot: recent trace for %06x: %w", addr, err)
	}
	path := filepath.Join(jsonDir, "traces", bucketDir(addr), fmt.Sprintf("trace_recent_%06x.json.gz", addr))
	return writeAtomic(path, gz)
}

// WriteFullTrace writes json_dir/traces/<bucket>/trace_full_<addr>.json.gz,
// the entire ring buffer for addr.
func WriteFullTrace(jsonDir string, receiverID uint64, addr uint32, entries []trace.Entry) error {
	tf := trace.BuildTraceFile(hex6(addr), receiverID, entries)
	gz, err := trace.MarshalGzipJSON(tf)
	if err != nil {
		return fmt.Errorf("snapshot: full trace for %06x: %w", addr, err)
	}
	path := filepath.Join(jsonDir, "traces", bucketDir(addr), fmt.Sprintf("trace_full_%06x.json.gz", addr))
	return writeAtomic(path, gz)
}

// WriteHistoryTrace writes the daily archive copy,
// globe_history_dir/<date>/traces/<bucket>/trace_full_<addr>.json.gz,
// where date is caller-supplied as "YYYY-MM-DD" from the local
// calendar date; the caller owns that decision since this package
// never calls time.Now directly.
func WriteHistoryTrace(globeHistoryDir, date string, receiverID uint64, addr uint32, entries []trace.Entry) error {
	tf := trace.BuildTraceFile(hex6(addr), receiverID, entries)
	gz, err := trace.MarshalGzipJSON(tf)
	if err != nil {
		return fmt.Errorf("snapshot: history trace for %06x: %w", addr, err)
	}
	path := filepath.Join(globeHistoryDir, date, "traces", bucketDir(addr), fmt.Sprintf("trace_full_%06x.json.gz", addr))
	return writeAtomic(path, gz)
}

func hex6(v uint32) string {
	const digits = "0123456789abcdef"
	b := make([]byte, 6)
	for i := 5; i >= 0; i-- {
		b[i] = digits[v&0xf]
		v >>= 4
	}
	return string(b)
}
