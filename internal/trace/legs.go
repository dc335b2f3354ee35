package trace

// MarkLegs segments a trace into legs, run on each full-trace write.
// It mutates e.Flags.LegMarker in place on the entries that begin a
// new leg.
//
// Two passes:
//  1. threshold = mean altitude / 3, clamped to [minLegThresholdFt,
//     maxLegThresholdFt]. Dividing by trace length alone gives a
//     spuriously small threshold for short traces, so the result is
//     clamped below at minLegThresholdFt (1000ft) rather than inventing
//     a different formula.
//  2. pairwise scan tracking running high/low, recording climb/descent
//     gaps and idle-time boundaries, and placing the marker on the
//     earliest qualifying sample in each gap.
func MarkLegs(entries []Entry) {
	for i := range entries {
		entries[i].Flags.LegMarker = false
	}
	if len(entries) < 2 {
		return
	}

	threshold := computeThreshold(entries)

	var high, low = altFt(entries[0]), altFt(entries[0])
	lastLowIdx, lastLowMs := 0, entries[0].TimestampMs
	lastHighIdx, lastHighMs := 0, entries[0].TimestampMs
	lastAirborneIdx := -1
	if !entries[0].Flags.OnGround {
		lastAirborneIdx = 0
	}

	markAt := func(gapStartIdx, gapEndIdx int) {
		// Prefer the first sample that follows a >=5 minute idle gap
		// inside the range; otherwise the midpoint of the range.
		best := gapEndIdx
		bestFound := false
		for i := gapStartIdx; i < gapEndIdx; i++ {
			if entries[i+1].TimestampMs-entries[i].TimestampMs >= 5*60*1000 {
				best = i + 1
				bestFound = true
				break
			}
		}
		if !bestFound {
			best = (gapStartIdx + gapEndIdx) / 2
		}
		if best < 0 {
			best = 0
		}
		if best >= len(entries) {
			best = len(entries) - 1
		}
		entries[best].Flags.LegMarker = true
	}

	for i := 1; i < len(entries); i++ {
		alt := altFt(entries[i])
		now := entries[i].TimestampMs

		if alt > high {
			high = alt
		}
		if alt < low {
			low = alt
		}

		if high-low > threshold {
			isClimb := alt == high
			if isClimb {
				// Climb detected: the leg boundary belongs between the
				// last low point and here, if at least 10 minutes have
				// passed since that low point.
				if now-lastLowMs >= 10*60*1000 && lastLowIdx < i {
					markAt(lastLowIdx, i)
				}
				low = int(float64(high) * 0.9)
				lastLowIdx, lastLowMs = i, now
			} else {
				if now-lastHighMs >= 10*60*1000 && lastHighIdx < i {
					markAt(lastHighIdx, i)
				}
				high = int(float64(low) / 0.9)
				lastHighIdx, lastHighMs = i, now
			}
		}

		if entries[i].Flags.OnGround {
			if lastAirborneIdx >= 0 && now-entries[lastAirborneIdx].TimestampMs >= 25*60*1000 {
				markAt(lastAirborneIdx, i)
			}
		} else {
			if lastAirborneIdx >= 0 && now-entries[lastAirborneIdx].TimestampMs >= 45*60*1000 {
				markAt(lastAirborneIdx, i)
			}
			lastAirborneIdx = i
		}
	}
}

const minLegThresholdFt = 1000
const maxLegThresholdFt = 10000

func computeThreshold(entries []Entry) int {
	var sum, count int
	for _, e := range entries {
		if e.Flags.AltitudeValid {
			sum += altFt(e)
			count++
		}
	}
	if count == 0 {
		return minLegThresholdFt
	}
	t := (sum / count) / 3
	if t < minLegThresholdFt {
		t = minLegThresholdFt
	}
	if t > maxLegThresholdFt {
		t = maxLegThresholdFt
	}
	return t
}

func altFt(e Entry) int { return int(e.Alt25ft) * 25 }
