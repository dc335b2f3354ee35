package trace

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"fmt"
)

// WireEntry is one element of the trace JSON array:
//
//	[Δt, lat, lon, altOrGround, gs, track, bitfield, rate, fullSnapshotOrNull]
//
// where Δt is seconds since the file's `timestamp`.
type WireEntry struct {
	DeltaSeconds float64
	Lat          float64
	Lon          float64
	Alt          interface{} // float64 feet, or the string "ground"
	GS           float64
	Track        float64
	Bitfield     uint8
	Rate         int
	State        *StateSnapshot
}

// MarshalJSON renders a WireEntry as a flat heterogeneous array rather
// than a JSON object.
func (w WireEntry) MarshalJSON() ([]byte, error) {
	arr := []interface{}{
		w.DeltaSeconds, w.Lat, w.Lon, w.Alt, w.GS, w.Track, w.Bitfield, w.Rate, w.State,
	}
	return json.Marshal(arr)
}

// UnmarshalJSON parses the flat array form written by MarshalJSON.
func (w *WireEntry) UnmarshalJSON(data []byte) error {
	var arr []json.RawMessage
	if err := json.Unmarshal(data, &arr); err != nil {
		return err
	}
	fields := []interface{}{&w.DeltaSeconds, &w.Lat, &w.Lon, &w.Alt, &w.GS, &w.Track, &w.Bitfield, &w.Rate, &w.State}
	for i := 0; i < len(arr) && i < len(fields); i++ {
		if err := json.Unmarshal(arr[i], fields[i]); err != nil {
			return fmt.Errorf("trace: wire entry element %d: %w", i, err)
		}
	}
	return nil
}

// TraceFile is the top-level object written to
// trace_recent_<addr>.json.gz / trace_full_<addr>.json.gz.
type TraceFile struct {
	ICAO      string      `json:"icao"`
	Receiver  uint64      `json:"r"`
	Timestamp float64     `json:"timestamp"`
	Desc      string      `json:"desc,omitempty"`
	DBFlags   int         `json:"dbFlags,omitempty"`
	Trace     []WireEntry `json:"trace"`
}

// BuildTraceFile converts a Ring's entries into the wire representation,
// bucketing the reserved bits as
// `bitfield = (altGeom<<3)|(rateGeom<<2)|(legMarker<<1)|(stale<<0)`.
func BuildTraceFile(icao string, receiverID uint64, entries []Entry) TraceFile {
	if len(entries) == 0 {
		return TraceFile{ICAO: icao, Receiver: receiverID}
	}

	base := entries[0].TimestampMs
	tf := TraceFile{
		ICAO:      icao,
		Receiver:  receiverID,
		Timestamp: float64(base) / 1000.0,
		Trace:     make([]WireEntry, 0, len(entries)),
	}

	for _, e := range entries {
		var alt interface{}
		if e.Flags.OnGround {
			alt = "ground"
		} else {
			alt = float64(e.Alt25ft) * 25
		}

		bitfield := uint8(0)
		if e.Flags.AltitudeGeom {
			bitfield |= 1 << 3
		}
		if e.Flags.RateGeom {
			bitfield |= 1 << 2
		}
		if e.Flags.LegMarker {
			bitfield |= 1 << 1
		}
		if e.Flags.Stale {
			bitfield |= 1 << 0
		}

		tf.Trace = append(tf.Trace, WireEntry{
			DeltaSeconds: float64(e.TimestampMs-base) / 1000.0,
			Lat:          float64(e.LatE6) / 1e6,
			Lon:          float64(e.LonE6) / 1e6,
			Alt:          alt,
			GS:           float64(e.GS10) / 10,
			Track:        float64(e.Track10) / 10,
			Bitfield:     bitfield,
			Rate:         int(e.VRate32fpm) * 32,
			State:        e.State,
		})
	}

	return tf
}

// MarshalGzipJSON renders tf as gzipped JSON, the encoding used for
// every persisted trace artifact (recent/full/history files).
func MarshalGzipJSON(tf TraceFile) ([]byte, error) {
	raw, err := json.Marshal(tf)
	if err != nil {
		return nil, fmt.Errorf("trace: marshal: %w", err)
	}

	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	if _, err := gw.Write(raw); err != nil {
		return nil, fmt.Errorf("trace: gzip write: %w", err)
	}
	if err := gw.Close(); err != nil {
		return nil, fmt.Errorf("trace: gzip close: %w", err)
	}
	return buf.Bytes(), nil
}
