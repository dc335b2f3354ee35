package track

import "time"

// AddrType distinguishes how an aircraft's address was assigned.
// Non-ICAO addresses (TIS-B, MLAT-assigned, ADS-R) set the high bit
// conceptually; here it is just an enum value rather than a literal
// 25th bit, since nothing downstream needs the bit-packed
// representation except the persisted internal-state blob
// (internal/snapshot handles that encoding).
type AddrType int

const (
	AddrICAO AddrType = iota
	AddrTISBICAO
	AddrTISBOther
	AddrADSROther
	AddrMLAT
	AddrOther
)

// CPRKind distinguishes surface, airborne, and coarse CPR frames; two
// frames may only be combined by the global decoder if their CPRKind
// matches.
type CPRKind int

const (
	CPRAirborne CPRKind = iota
	CPRSurface
	CPRCoarse
)

// CPRFrame is one buffered odd or even CPR frame, with its own
// validity, NIC and Rc.
type CPRFrame struct {
	Valid     Validity
	RawLat    int
	RawLon    int
	NIC       int
	Rc        float64
	Kind      CPRKind
	TimeMs    int64
	Surface   bool
	ReceiverID uint64
}

// SignalHistory is the ring of the last 8 RSSI samples.
type SignalHistory struct {
	samples      [8]float64
	count        int
	next         int
	noSignalHits int
}

func (s *SignalHistory) Add(rssi float64) {
	s.samples[s.next] = rssi
	s.next = (s.next + 1) % len(s.samples)
	if s.count < len(s.samples) {
		s.count++
	}
	s.noSignalHits = 0
}

func (s *SignalHistory) NoSignal() { s.noSignalHits++ }

func (s *SignalHistory) Mean() float64 {
	if s.count == 0 {
		return 0
	}
	var sum float64
	for i := 0; i < s.count; i++ {
		sum += s.samples[i]
	}
	return sum / float64(s.count)
}

// NavIntent holds the MCP/FMS navigation fields.
type NavIntent struct {
	SelectedAltitude int
	SelectedHeading  float64
	QNH              float64
	Modes            uint16 // bitmask: autopilot/vnav/althold/approach/lnav/tcas

	AltitudeValid Validity
	HeadingValid  Validity
	QNHValid      Validity
	ModesValid    Validity
}

// AccuracyEnvelope holds ADS-B integrity/accuracy metrics (NACp/NACv,
// NIC variants, SIL, GVA, SDA).
type AccuracyEnvelope struct {
	NACp        int
	NACv        int
	NICA        int
	NICB        int
	NICC        int
	NICBaro     int
	SIL         int
	SILType     string // "perhour" | "persample" | "unknown"
	GVA         int
	SDA         int
	ADSBVersion int // 0/1/2, from the metype 31 operational status message

	Valid Validity
}

// DerivedWeather holds the wind/OAT/TAT estimates computed from
// velocity+heading.
type DerivedWeather struct {
	WindSpeed   float64
	WindDir     float64
	WindValid   Validity
	WindAltFt   int // altitude at which wind was derived

	OAT       float64
	TAT       float64
	TempValid Validity
}

// Kinematics groups the altitude/speed/attitude fields.
type Kinematics struct {
	BaroAlt      int
	BaroAltValid Validity

	GeomAlt      int
	GeomAltValid Validity

	GeomBaroDelta      int
	GeomBaroDeltaValid Validity

	BaroRate      int
	BaroRateValid Validity

	GeomRate      int
	GeomRateValid Validity

	GS      float64
	GSValid Validity

	IAS      float64
	IASValid Validity

	TAS      float64
	TASValid Validity

	Mach      float64
	MachValid Validity

	Track      float64
	TrackValid Validity

	TrackRate      float64
	TrackRateValid Validity

	Roll      float64
	RollValid Validity

	MagHeading      float64
	MagHeadingValid Validity

	TrueHeading      float64
	TrueHeadingValid Validity

	OnGround      bool
	OnGroundValid Validity
}

// Position groups the position-related fields.
type Position struct {
	Lat, Lon         float64
	NIC              int
	Rc               float64
	Surface          bool
	Valid            Validity // position validity/source record
	SeenPosMs        int64    // timestamp of last position (any quality)
	SeenPosReliableMs int64   // timestamp of last *reliable* position

	LatReliable, LonReliable float64 // last-reliable anchor, kept separate

	ReceiverID uint64 // receiver of last position

	GlobeTile int // current globe tile index, valid only while reliable
}

// Reliability holds the odd/even position reliability counters and
// the altitude reliability counter.
type Reliability struct {
	PosOdd  int
	PosEven int

	AltReliable int
}

// Reliable reports whether both counters have reached threshold, the
// gate used for trace append / globe tile indexing.
func (r Reliability) Reliable(threshold int) bool {
	return r.PosOdd >= threshold && r.PosEven >= threshold
}

// Aircraft is the full per-aircraft mutable state.
type Aircraft struct {
	Addr     uint32
	AddrType AddrType
	Category int
	Callsign string // 8 chars, space-padded on the wire
	Squawk   int

	CallsignValid Validity
	SquawkValid   Validity

	// Emergency is the metype 28 subtype 1 3-bit emergency/priority
	// status (0 none .. 6 downed aircraft).
	Emergency      int
	EmergencyValid Validity

	Kinematics Kinematics
	Position   Position
	Reliability Reliability

	EvenFrame CPRFrame
	OddFrame  CPRFrame

	Nav      NavIntent
	Accuracy AccuracyEnvelope
	Weather  DerivedWeather
	Signal   SignalHistory

	// TraceIndex is an opaque handle into the trace store (internal/trace),
	// replacing Regentag-go1090's heap pointer into a trace array with a
	// stable lookup key.
	TraceIndex uint32
	HasTrace   bool

	SeenMs     int64 // last message of any kind
	Messages   int64

	// Next implements the store's hash-chain link; the Go store
	// additionally keeps a map for O(1) lookup, but chain order is
	// preserved so bucket-partitioned maintenance workers can walk a
	// bucket without touching the map.
	Next *Aircraft
}

// NewAircraft returns a freshly allocated, all-zero aircraft for addr,
// seen for the first time at nowMs.
func NewAircraft(addr uint32, nowMs int64) *Aircraft {
	return &Aircraft{
		Addr:   addr,
		SeenMs: nowMs,
	}
}

// HexAddr renders the ICAO address the conventional 6-hex-digit way,
// prefixed with '~' for non-ICAO addresses.
func (a *Aircraft) HexAddr() string {
	prefix := ""
	if a.AddrType != AddrICAO {
		prefix = "~"
	}
	return prefix + hex6(a.Addr)
}

func hex6(v uint32) string {
	const digits = "0123456789ABCDEF"
	b := make([]byte, 6)
	for i := 5; i >= 0; i-- {
		b[i] = digits[v&0xF]
		v >>= 4
	}
	return string(b)
}

// CheckInvariants validates structural invariants that must hold
// after every accepted message. It is used by tests and may be called
// defensively from the maintenance loop in debug builds.
func (a *Aircraft) CheckInvariants() []string {
	var problems []string
	if a.Position.Valid.Source == SourceInvalid {
		if a.Reliability.PosOdd != 0 || a.Reliability.PosEven != 0 {
			problems = append(problems, "position invalid but reliability counters nonzero")
		}
	}
	if a.Reliability.AltReliable < 0 {
		problems = append(problems, "alt_reliable negative")
	}
	if a.Reliability.AltReliable == 0 && a.Kinematics.BaroAltValid.Source != SourceInvalid {
		problems = append(problems, "alt_reliable zero but baro altitude still valid")
	}
	return problems
}

// Age returns how long ago (relative to now) this aircraft was last
// seen, for staleness/horizon checks in the maintenance loop.
func (a *Aircraft) Age(now time.Time) time.Duration {
	return now.Sub(time.UnixMilli(a.SeenMs))
}
