package track

// Validity is a per-field validity record and its acceptance/merge
// rules. The arbitration logic (AcceptData,
// CombineValidity, CompareValidity) is ported from
// original_source/track.c's accept_data/combine_validity/compare_validity,
// generalized to take its configuration (stale window, reduce interval)
// as explicit parameters instead of reading a package-global Modes
// record.
type Validity struct {
	Source            Source
	LastSource        Source
	LastUpdatedMs     int64
	Stale             bool
	NextReduceForward int64 // ms; deadline for the next reduced-stream forward
}

// StaleWindowMs is the window after which a previously-superior source
// is considered stale enough that a lower-priority source may override
// it. Matches readsb's TRACK_STALE default.
const StaleWindowMs int64 = 60_000

// AcceptData performs the per-field acceptance rule. reduceIntervalMs
// is the configured net_output_beast_reduce_interval; reduceHint is
// 0/1/2 (no hint / often / very often); sbsIn marks whether
// the incoming message originated from an SBS client (SBS messages never
// advance NextReduceForward); cprValid marks whether the accepted field
// carries a CPR frame (caps the reduce deadline at 7s when the
// interval is longer).
//
// Returns whether the data was accepted, and whether the message should
// be marked for forwarding on the reduced output stream.
func AcceptData(v *Validity, source Source, nowMs int64, sbsIn bool, cprValid bool, reduceHint int, reduceIntervalMs int64) (accepted, forwardReduced bool) {
	if source == SourceInvalid {
		return false, false
	}

	if nowMs < v.LastUpdatedMs {
		return false, false
	}

	if source < v.Source && nowMs < v.LastUpdatedMs+StaleWindowMs {
		return false, false
	}

	// Prevent JAERO and other low sources from disrupting a better
	// source too quickly.
	if source < v.LastSource {
		if source <= SourceMLAT && nowMs < v.LastUpdatedMs+30_000 {
			return false, false
		}
		if source == SourceJAERO && nowMs < v.LastUpdatedMs+600_000 {
			return false, false
		}
	}

	if source == SourcePrio {
		v.Source = SourceADSB
	} else {
		v.Source = source
	}
	v.LastSource = v.Source
	v.LastUpdatedMs = nowMs
	v.Stale = false

	if nowMs > v.NextReduceForward && !sbsIn {
		next := nowMs + reduceIntervalMs*4
		switch reduceHint {
		case 1:
			next = nowMs + reduceIntervalMs
		case 2:
			next = nowMs + reduceIntervalMs/2
		}
		if reduceIntervalMs > 7_000 && cprValid {
			next = nowMs + 7_000
		}
		v.NextReduceForward = next
		forwardReduced = true
	}

	return true, forwardReduced
}

// CombineValidity merges two validities into a derived one, used e.g.
// for "geometric altitude derived from baro + delta". The merged
// source is the worse (lower) of the two; the merged update time is
// the later of the two.
func CombineValidity(from1, from2 Validity, nowMs int64) Validity {
	if from1.Source == SourceInvalid {
		return from2
	}
	if from2.Source == SourceInvalid {
		return from1
	}

	to := Validity{}
	if from1.Source < from2.Source {
		to.Source = from1.Source
	} else {
		to.Source = from2.Source
	}
	to.LastSource = to.Source
	if from1.LastUpdatedMs > from2.LastUpdatedMs {
		to.LastUpdatedMs = from1.LastUpdatedMs
	} else {
		to.LastUpdatedMs = from2.LastUpdatedMs
	}
	to.Stale = nowMs > to.LastUpdatedMs+StaleWindowMs
	return to
}

// CompareValidity orders two validities by "is this data better": a
// non-stale higher source wins outright; otherwise the more recently
// updated wins, with equal update times going to lhs. Returns 1 if lhs
// wins and -1 otherwise.
func CompareValidity(lhs, rhs Validity) int {
	switch {
	case !lhs.Stale && lhs.Source > rhs.Source:
		return 1
	case !rhs.Stale && lhs.Source < rhs.Source:
		return -1
	case lhs.LastUpdatedMs >= rhs.LastUpdatedMs:
		return 1
	case lhs.LastUpdatedMs < rhs.LastUpdatedMs:
		return -1
	default:
		return 0
	}
}

// Valid reports whether the field currently carries usable data -- a
// source of INVALID means the field has never been (successfully)
// populated. If AltReliable reaches 0, baro-altitude validity drops
// back to INVALID.
func (v Validity) Valid() bool { return v.Source != SourceInvalid }

// AgeMs returns how long ago (in ms) the field was last updated,
// relative to nowMs (trackDataAge in Regentag-go1090).
func (v Validity) AgeMs(nowMs int64) int64 { return nowMs - v.LastUpdatedMs }
