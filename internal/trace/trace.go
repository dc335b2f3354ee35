// Package trace implements a per-aircraft trace ring and leg
// segmentation, plus gzipped-JSON persistence of trace files. It has
// no dependency on internal/track: entries are appended from plain
// values, so the position pipeline can call it without an import cycle
// (see internal/track/position.go's OnReliable hook).
package trace

// Entry is a fixed-layout trace record. Altitude, rate, gs and track
// are stored pre-scaled to their wire units so persistence is a direct
// field copy, following Regentag-go1090's "pointer graph" -> "typed
// accessor" shape: the bit-packed altitude word is kept as an on-disk
// concept (see Flags.Pack/Unpack) but callers only ever see the typed
// Entry/Flags values.
type Entry struct {
	TimestampMs int64
	LatE6       int32 // lat * 1e6
	LonE6       int32 // lon * 1e6
	Alt25ft     int16 // altitude in units of 25ft
	Flags       Flags
	VRate32fpm  int16 // vertical rate in units of 32fpm
	GS10        int16 // ground speed * 10
	Track10     int16 // track * 10

	// State is populated every 4th entry and nil otherwise.
	State *StateSnapshot
}

// Flags is the per-entry bitset. It is kept as a typed value so no
// other package manipulates the bits directly; Pack/Unpack are the only
// code that knows the packed one-byte layout.
type Flags struct {
	RateValid     bool
	RateGeom      bool
	Stale         bool
	OnGround      bool
	AltitudeValid bool
	GSValid       bool
	TrackValid    bool
	LegMarker     bool
	AltitudeGeom  bool
}

// Pack encodes Flags into one byte. The low four bits match the wire
// bitfield, (altGeom<<3)|(rateGeom<<2)|(legMarker<<1)|(stale<<0);
// RateValid, OnGround, AltitudeValid and GSValid occupy bits 4-7.
func (f Flags) Pack() uint8 {
	var b uint8
	if f.Stale {
		b |= 1 << 0
	}
	if f.LegMarker {
		b |= 1 << 1
	}
	if f.RateGeom {
		b |= 1 << 2
	}
	if f.AltitudeGeom {
		b |= 1 << 3
	}
	if f.RateValid {
		b |= 1 << 4
	}
	if f.OnGround {
		b |= 1 << 5
	}
	if f.AltitudeValid {
		b |= 1 << 6
	}
	if f.GSValid {
		b |= 1 << 7
	}
	return b
}

// Unpack decodes the bitfield back into typed flags. TrackValid is kept
// out of the 8-bit field (the public JSON wire bitfield is only 4 bits
// wide; the internal state blob carries the rest) and is tracked on
// Entry separately by callers that need it.
func Unpack(b uint8) Flags {
	return Flags{
		Stale:         b&(1<<0) != 0,
		LegMarker:     b&(1<<1) != 0,
		RateGeom:      b&(1<<2) != 0,
		AltitudeGeom:  b&(1<<3) != 0,
		RateValid:     b&(1<<4) != 0,
		OnGround:      b&(1<<5) != 0,
		AltitudeValid: b&(1<<6) != 0,
		GSValid:       b&(1<<7) != 0,
	}
}

// StateSnapshot is the "full slow-field snapshot" captured every 4th
// trace entry.
type StateSnapshot struct {
	Callsign string
	Squawk   int
	NIC      int
	Rc       float64
	NavAltitude int
	NavHeading  float64
	NavQNH      float64
	NavModes    uint16
	NACp, NACv  int
	NICBaro     int
	SIL         int
	SILType     string
}

// AppendInput is what callers supply when asking the ring to (maybe)
// sample a new entry; Ring decides internally whether its sampling
// rule is satisfied.
type AppendInput struct {
	NowMs       int64
	Lat, Lon    float64
	Reliable    bool
	AltitudeFt  int
	AltitudeValid bool
	OnGround    bool
	HeadingDeg  float64
	HeadingValid bool
	GS          float64
	GSValid     bool
	VRateFpm    int
	RateValid   bool
	RateGeom    bool
	AltitudeGeom bool
	State       *StateSnapshot
}

const traceIntervalMs = 30_000
const headingThresholdDeg = 2.0
const altitudeThresholdFt = 50

// Ring is one aircraft's trace buffer: a contiguous slice of Entry
// that grows geometrically as entries are appended beyond capacity.
type Ring struct {
	entries []Entry

	lastAppendMs int64
	lastHeading  float64
	haveHeading  bool
	lastAltitude int
	haveAltitude bool
	lastGround   bool
	appendCount  int

	originMs int64 // timestamp the whole trace is relative to (Δt basis)
}

// NewRing returns an empty trace ring.
func NewRing() *Ring {
	return &Ring{entries: make([]Entry, 0, 64)}
}

// Len returns the number of entries currently buffered.
func (r *Ring) Len() int { return len(r.entries) }

// Entries returns the full buffered entry slice (read-only view; callers
// must not mutate it).
func (r *Ring) Entries() []Entry { return r.entries }

// ShouldSample is the trace sampling rule: append only if the position
// is reliable and either enough time has passed, a heading/altitude
// threshold was crossed, or ground state changed.
func (r *Ring) ShouldSample(in AppendInput) bool {
	if !in.Reliable {
		return false
	}
	if len(r.entries) == 0 {
		return true
	}
	if in.NowMs-r.lastAppendMs >= traceIntervalMs {
		return true
	}
	if in.OnGround != r.lastGround {
		return true
	}
	if in.HeadingValid && r.haveHeading {
		diff := in.HeadingDeg - r.lastHeading
		for diff > 180 {
			diff -= 360
		}
		for diff < -180 {
			diff += 360
		}
		if diff < 0 {
			diff = -diff
		}
		if diff >= headingThresholdDeg {
			return true
		}
	}
	if in.AltitudeValid && r.haveAltitude {
		d := in.AltitudeFt - r.lastAltitude
		if d < 0 {
			d = -d
		}
		if d >= altitudeThresholdFt {
			return true
		}
	}
	return false
}

// Append appends a sample unconditionally (callers should gate on
// ShouldSample themselves so the decision can be logged/tested
// independently). Every 4th append captures in.State.
func (r *Ring) Append(in AppendInput) {
	if len(r.entries) == 0 {
		r.originMs = in.NowMs
	}

	e := Entry{
		TimestampMs: in.NowMs,
		LatE6:       int32(in.Lat * 1e6),
		LonE6:       int32(in.Lon * 1e6),
		Alt25ft:     int16(in.AltitudeFt / 25),
		VRate32fpm:  int16(in.VRateFpm / 32),
		GS10:        int16(in.GS * 10),
		Track10:     int16(in.HeadingDeg * 10),
		Flags: Flags{
			RateValid:     in.RateValid,
			RateGeom:      in.RateGeom,
			OnGround:      in.OnGround,
			AltitudeValid: in.AltitudeValid,
			GSValid:       in.GSValid,
			TrackValid:    in.HeadingValid,
			AltitudeGeom:  in.AltitudeGeom,
		},
	}

	r.appendCount++
	if r.appendCount%4 == 0 {
		e.State = in.State
	}

	r.entries = append(r.entries, e)

	r.lastAppendMs = in.NowMs
	r.lastGround = in.OnGround
	if in.HeadingValid {
		r.lastHeading = in.HeadingDeg
		r.haveHeading = true
	}
	if in.AltitudeValid {
		r.lastAltitude = in.AltitudeFt
		r.haveAltitude = true
	}
}

// Recent returns up to the last 142 entries, the cap used for the
// "recent" trace file.
func (r *Ring) Recent() []Entry {
	const cap = 142
	if len(r.entries) <= cap {
		return r.entries
	}
	return r.entries[len(r.entries)-cap:]
}
