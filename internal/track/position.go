package track

import (
	"github.com/go1090/trackserver/internal/bits"
	"github.com/go1090/trackserver/internal/globeindex"
)

// PipelineConfig bundles the tunables the position pipeline needs,
// replacing the reference engine's global Modes record with an
// explicit, injected configuration.
type PipelineConfig struct {
	JSONReliable     int // reliability threshold; both counters must reach this
	MaxRangeM        float64
	HaveUserPosition bool
	UserLat, UserLon float64
	ReduceIntervalMs int64
}

// Pipeline implements the CPR position pipeline plus the bad-position
// path that decrements reliability counters on a rejected fix. It is
// stateless aside from its dependencies; all mutable state lives on
// the Aircraft passed to Handle.
type Pipeline struct {
	Cfg       PipelineConfig
	Receivers *ReceiverTable
	Globe     *globeindex.Index

	// OnReliable is invoked when an aircraft's position is reliable and
	// has just been (re)computed, so that callers can append a trace
	// sample without this package importing internal/trace and creating
	// an import cycle risk as the trace package grows.
	OnReliable func(ac *Aircraft, nowMs int64)
}

// CPRInput is one incoming CPR frame extracted from a decoded message.
type CPRInput struct {
	Source     Source
	ReceiverID uint64
	NowMs      int64
	RawLat     int
	RawLon     int
	NIC        int
	Rc         float64
	Odd        bool
	Surface    bool
	GSKnown    bool
	GS         float64
	SBSIn      bool
	ReduceHint int
}

// stats is the minimal counters the pipeline updates; a real deployment
// wires this into internal/stats's richer rollups, but the pipeline only
// needs to increment named counters, so it takes a narrow interface.
type Stats interface {
	Inc(name string)
}

type noopStats struct{}

func (noopStats) Inc(string) {}

// HandleCPRFrame stashes the frame, evaluates the global decode
// window, attempts global then local decode, and accepts/rejects the
// resulting position.
func (p *Pipeline) HandleCPRFrame(ac *Aircraft, in CPRInput, st Stats) {
	if st == nil {
		st = noopStats{}
	}

	kind := CPRAirborne
	if in.Surface {
		kind = CPRSurface
	}

	frame := CPRFrame{
		RawLat:     in.RawLat,
		RawLon:     in.RawLon,
		NIC:        in.NIC,
		Rc:         in.Rc,
		Kind:       kind,
		TimeMs:     in.NowMs,
		Surface:    in.Surface,
		ReceiverID: in.ReceiverID,
	}

	target := &ac.EvenFrame
	if in.Odd {
		target = &ac.OddFrame
	}

	accepted, forwardReduced := AcceptData(&target.Valid, in.Source, in.NowMs, in.SBSIn, true, in.ReduceHint, p.Cfg.ReduceIntervalMs)
	_ = forwardReduced // surfaced to the caller's message struct by the decoder layer
	if !accepted {
		return
	}
	frame.Valid = target.Valid
	*target = frame

	lat, lon, ok, bad, global := p.attemptDecode(ac, in, st)
	if !ok {
		return
	}

	if bad {
		p.positionBad(ac, in.NowMs)
		return
	}

	posAccepted, _ := AcceptData(&ac.Position.Valid, in.Source, in.NowMs, in.SBSIn, true, in.ReduceHint, p.Cfg.ReduceIntervalMs)
	if !posAccepted {
		return
	}

	p.setPosition(ac, in, lat, lon, global, st)
}

// attemptDecode runs the global-window test then the global decoder,
// falling back to local decode. ok reports whether a position was
// produced at all; bad reports whether that position failed
// range/speed checks and must take the bad-position path instead of
// being accepted; global reports whether the fix came from a
// combined even/odd global decode (as opposed to a local decode
// relative to a single reference position).
func (p *Pipeline) attemptDecode(ac *Aircraft, in CPRInput, st Stats) (lat, lon float64, ok bool, bad bool, global bool) {
	even, odd := ac.EvenFrame, ac.OddFrame

	windowMs := int64(10_000)
	if in.Surface {
		if !in.GSKnown || in.GS > 25 {
			windowMs = 25_000
		} else {
			windowMs = 50_000
		}
	}

	haveWindow := even.Valid.Valid() && odd.Valid.Valid() &&
		even.Valid.Source == odd.Valid.Source &&
		even.Kind == odd.Kind &&
		absInt64(odd.TimeMs-even.TimeMs) <= windowMs

	if haveWindow {
		var err error
		if in.Surface {
			refLat, refLon, haveRef := p.surfaceReference(ac, in.ReceiverID)
			if !haveRef {
				st.Inc("cpr_global_skipped")
				return p.tryLocal(ac, in, st)
			}
			lat, lon, err = bits.DecodeSurfaceGlobal(refLat, refLon, even.RawLat, even.RawLon, odd.RawLat, odd.RawLon, in.Odd)
		} else {
			lat, lon, err = bits.DecodeAirborneGlobal(even.RawLat, even.RawLon, odd.RawLat, odd.RawLon, in.Odd)
		}

		if err != nil {
			st.Inc("cpr_global_skipped")
			return p.tryLocal(ac, in, st)
		}

		if p.rangeBad(lat, lon) {
			st.Inc("cpr_global_range")
			return lat, lon, true, true, true
		}

		scr := SpeedCheck(p.speedInput(ac, in), lat, lon, in.Source)
		if !scr.OK {
			st.Inc("cpr_global_speed_checks")
			if scr.IgnoreOnly {
				return lat, lon, true, false, true
			}
			return lat, lon, true, true, true
		}

		st.Inc("cpr_global_ok")
		return lat, lon, true, false, true
	}

	return p.tryLocal(ac, in, st)
}

func (p *Pipeline) tryLocal(ac *Aircraft, in CPRInput, st Stats) (lat, lon float64, ok bool, bad bool, global bool) {
	frame := ac.EvenFrame
	if in.Odd {
		frame = ac.OddFrame
	}
	if !frame.Valid.Valid() {
		return 0, 0, false, false, false
	}

	var refLat, refLon float64
	var maxRangeM float64

	recentGlobal := in.NowMs < ac.Position.SeenPosReliableMs+10*60*1000 && ac.Position.Valid.Valid()
	switch {
	case recentGlobal:
		refLat, refLon = ac.Position.Lat, ac.Position.Lon
		maxRangeM = 100 * 1852 // 100 NM
	case p.Cfg.HaveUserPosition:
		refLat, refLon = p.Cfg.UserLat, p.Cfg.UserLon
		maxRangeM = p.Cfg.MaxRangeM
	default:
		var haveRef bool
		refLat, refLon, haveRef = p.surfaceReference(ac, in.ReceiverID)
		if !haveRef {
			st.Inc("cpr_local_skipped")
			return 0, 0, false, false, false
		}
		maxRangeM = p.Cfg.MaxRangeM
	}

	lat, lon, err := bits.DecodeLocalRelative(refLat, refLon, frame.RawLat, frame.RawLon, in.Odd, in.Surface)
	if err != nil {
		st.Inc("cpr_local_bad")
		return 0, 0, false, false, false
	}

	if maxRangeM > 0 {
		if Haversine(refLat, refLon, lat, lon) > maxRangeM {
			st.Inc("cpr_local_range")
			return lat, lon, true, true, false
		}
	}

	scr := SpeedCheck(p.speedInput(ac, in), lat, lon, in.Source)
	if !scr.OK {
		st.Inc("cpr_local_speed_checks")
		if scr.IgnoreOnly {
			return lat, lon, true, false, false
		}
		return lat, lon, true, true, false
	}

	st.Inc("cpr_local_ok")
	return lat, lon, true, false, false
}

func (p *Pipeline) surfaceReference(ac *Aircraft, receiverID uint64) (lat, lon float64, ok bool) {
	// Preference order: receiver-learned reference, then the aircraft's
	// last known position, then the configured user position, then any
	// recorded aircraft position (identical to "last known" here since
	// we don't separately track a stale position).
	if p.Receivers != nil {
		if r := p.Receivers.GetOrCreate(receiverID); r != nil {
			if lat, lon, ok = r.SurfaceReference(); ok {
				return
			}
		}
	}
	if ac.Position.Valid.Valid() {
		return ac.Position.Lat, ac.Position.Lon, true
	}
	if p.Cfg.HaveUserPosition {
		return p.Cfg.UserLat, p.Cfg.UserLon, true
	}
	return 0, 0, false
}

func (p *Pipeline) rangeBad(lat, lon float64) bool {
	if p.Cfg.MaxRangeM <= 0 || !p.Cfg.HaveUserPosition {
		return false
	}
	return Haversine(p.Cfg.UserLat, p.Cfg.UserLon, lat, lon) > p.Cfg.MaxRangeM
}

func (p *Pipeline) speedInput(ac *Aircraft, in CPRInput) SpeedCheckInput {
	return SpeedCheckInput{
		NowMs:           in.NowMs,
		OldLat:          ac.Position.Lat,
		OldLon:          ac.Position.Lon,
		PositionValid:   ac.Position.Valid,
		PosReliableOdd:  ac.Reliability.PosOdd,
		PosReliableEven: ac.Reliability.PosEven,
		Surface:         in.Surface,
		GS:              ac.Kinematics.GS,
		GSLastPos:       ac.Kinematics.GS,
		GSValid:         ac.Kinematics.GSValid,
		TAS:             ac.Kinematics.TAS,
		TASValid:        ac.Kinematics.TASValid,
		IAS:             ac.Kinematics.IAS,
		IASValid:        ac.Kinematics.IASValid,
		Track:           ac.Kinematics.Track,
		TrackValid:      ac.Kinematics.TrackValid,
		JSONReliable:    p.Cfg.JSONReliable,
	}
}

// setPosition handles duplicate detection, field update, reliability
// promotion, globe tile/trace maintenance, and the receiver's learned
// reference bounding box.
func (p *Pipeline) setPosition(ac *Aircraft, in CPRInput, lat, lon float64, global bool, st Stats) {
	duplicate := in.NowMs < ac.Position.SeenPosMs+3_000 && lat == ac.Position.Lat && lon == ac.Position.Lon
	if duplicate {
		st.Inc("cpr_duplicate")
		return
	}

	ac.Position.Lat = lat
	ac.Position.Lon = lon
	ac.Position.Surface = in.Surface
	ac.Position.SeenPosMs = in.NowMs
	ac.Position.ReceiverID = in.ReceiverID
	ac.Position.NIC = in.NIC
	ac.Position.Rc = in.Rc

	// A global decode combines one even and one odd frame, so both
	// parities are confirmed at once; a local decode only confirms the
	// parity of the frame just received.
	if global {
		incrementReliable(&ac.Reliability.PosOdd, true)
		incrementReliable(&ac.Reliability.PosEven, true)
	} else {
		incrementReliable(&ac.Reliability.PosOdd, in.Odd)
		incrementReliable(&ac.Reliability.PosEven, !in.Odd)
	}

	if ac.Reliability.Reliable(p.Cfg.JSONReliable) {
		if p.Globe != nil {
			ac.Position.GlobeTile = p.Globe.Of(lat, lon)
		}
		ac.Position.LatReliable = lat
		ac.Position.LonReliable = lon
		ac.Position.SeenPosReliableMs = in.NowMs

		if p.OnReliable != nil {
			p.OnReliable(ac, in.NowMs)
		}

		if in.Source == SourceADSB && ac.Reliability.PosOdd >= 2 && ac.Reliability.PosEven >= 2 && p.Receivers != nil {
			p.Receivers.ObservePosition(in.ReceiverID, lat, lon)
		}
	}

	switch in.Source {
	case SourceADSB:
		ac.AddrType = AddrICAO
	case SourceTISB:
		ac.AddrType = AddrTISBICAO
	case SourceADSR:
		ac.AddrType = AddrADSROther
	case SourceMLAT:
		ac.AddrType = AddrMLAT
	}
}

// positionBad decrements both reliability counters, and if either
// hits zero, invalidates position and both CPR buffers.
func (p *Pipeline) positionBad(ac *Aircraft, nowMs int64) {
	ac.Reliability.PosOdd--
	ac.Reliability.PosEven--
	if ac.Reliability.PosOdd < 0 {
		ac.Reliability.PosOdd = 0
	}
	if ac.Reliability.PosEven < 0 {
		ac.Reliability.PosEven = 0
	}

	if ac.Reliability.PosOdd == 0 || ac.Reliability.PosEven == 0 {
		ac.Position.Valid = Validity{}
		ac.EvenFrame.Valid = Validity{}
		ac.OddFrame.Valid = Validity{}
	}
}

func incrementReliable(counter *int, match bool) {
	if !match {
		return
	}
	if *counter < FilterPersistence {
		*counter++
	}
}

func absInt64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
