// Package snapshot implements the persisted artifacts a track server
// periodically writes out: aircraft.json, per-bucket trace files, the
// daily globe-history archive, the internal-state blob, and the binary
// globe tile format. It writes atomically (temp file + rename) the way
// any long-running aggregator must -- see DESIGN.md's standard-library
// justification for this package.
package snapshot

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go1090/trackserver/internal/track"
)

// AircraftEntry is one element of aircraft.json's "aircraft" array.
type AircraftEntry struct {
	Hex      string   `json:"hex"`
	Flight   string   `json:"flight,omitempty"`
	Lat      *float64 `json:"lat,omitempty"`
	Lon      *float64 `json:"lon,omitempty"`
	AltBaro  *int     `json:"alt_baro,omitempty"`
	AltGeom  *int     `json:"alt_geom,omitempty"`
	GS       *float64 `json:"gs,omitempty"`
	Track    *float64 `json:"track,omitempty"`
	BaroRate *int     `json:"baro_rate,omitempty"`
	GeomRate *int     `json:"geom_rate,omitempty"`
	Squawk   string   `json:"squawk,omitempty"`
	OnGround bool     `json:"ground,omitempty"`
	NIC      int      `json:"nic,omitempty"`
	RC       float64  `json:"rc,omitempty"`
	SeenPos  float64  `json:"seen_pos"`
	Seen     float64  `json:"seen"`
	Messages int64    `json:"messages"`
	RSSI     float64  `json:"rssi"`
}

// AircraftJSON is the top-level object written to aircraft.json.
type AircraftJSON struct {
	Now      float64         `json:"now"`
	Messages int64           `json:"messages"`
	Aircraft []AircraftEntry `json:"aircraft"`
}

// BuildAircraftJSON converts every aircraft with a known-reliable (or
// JAERO) position into the wire entry shape, applying the stale filter
// (age > staleAfterMs excludes the aircraft).
func BuildAircraftJSON(nowMs int64, totalMessages int64, aircraft []*track.Aircraft, staleAfterMs int64) AircraftJSON {
	out := AircraftJSON{Now: float64(nowMs) / 1000.0, Messages: totalMessages}

	for _, ac := range aircraft {
		if nowMs-ac.SeenMs > staleAfterMs {
			continue
		}
		reliable := ac.Reliability.Reliable(4) || ac.Position.Valid.Source == track.SourceJAERO
		if !reliable || ac.Position.Valid.Source == track.SourceInvalid {
			continue
		}

		e := AircraftEntry{
			Hex:      ac.HexAddr(),
			Flight:   ac.Callsign,
			OnGround: ac.Kinematics.OnGround,
			NIC:      ac.Position.NIC,
			RC:       ac.Position.Rc,
			SeenPos:  float64(nowMs-ac.Position.SeenPosMs) / 1000.0,
			Seen:     float64(nowMs-ac.SeenMs) / 1000.0,
			Messages: ac.Messages,
			RSSI:     ac.Signal.Mean(),
		}

		lat, lon := ac.Position.Lat, ac.Position.Lon
		e.Lat, e.Lon = &lat, &lon

		if ac.Kinematics.BaroAltValid.Valid() {
			v := ac.Kinematics.BaroAlt
			e.AltBaro = &v
		}
		if ac.Kinematics.GeomAltValid.Valid() {
			v := ac.Kinematics.GeomAlt
			e.AltGeom = &v
		}
		if ac.Kinematics.GSValid.Valid() {
			v := ac.Kinematics.GS
			e.GS = &v
		}
		if ac.Kinematics.TrackValid.Valid() {
			v := ac.Kinematics.Track
			e.Track = &v
		}
		if ac.Kinematics.BaroRateValid.Valid() {
			v := ac.Kinematics.BaroRate
			e.BaroRate = &v
		}
		if ac.Kinematics.GeomRateValid.Valid() {
			v := ac.Kinematics.GeomRate
			e.GeomRate = &v
		}
		if ac.SquawkValid.Valid() {
			e.Squawk = fmt.Sprintf("%04o", ac.Squawk)
		}

		out.Aircraft = append(out.Aircraft, e)
	}
	return out
}

// WriteAircraftJSON renders and atomically writes aircraft.json under
// dir.
func WriteAircraftJSON(dir string, aj AircraftJSON) error {
	raw, err := json.Marshal(aj)
	if err != nil {
		return fmt.Errorf("snapshot: marshal aircraft.json: %w", err)
	}
	return writeAtomic(filepath.Join(dir, "aircraft.json"), raw)
}

// writeAtomic writes data to path via a temp file in the same
// directory followed by rename, so readers never observe a partial
// write.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("snapshot: mkdir %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("snapshot: create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("snapshot: write %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("snapshot: close %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("snapshot: rename to %s: %w", path, err)
	}
	return nil
}
