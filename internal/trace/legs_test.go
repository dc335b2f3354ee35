package trace

import "testing"

func mkEntry(ms int64, altFt int, onGround bool) Entry {
	return Entry{
		TimestampMs: ms,
		Alt25ft:     int16(altFt / 25),
		Flags:       Flags{AltitudeValid: true, OnGround: onGround},
	}
}

func TestMarkLegsTooShortIsNoop(t *testing.T) {
	entries := []Entry{mkEntry(0, 1000, false)}
	MarkLegs(entries)
	if entries[0].Flags.LegMarker {
		t.Error("a single-entry trace should never get a leg marker")
	}
}

func TestMarkLegsEmptyIsNoop(t *testing.T) {
	MarkLegs(nil) // must not panic
}

func TestMarkLegsClearsExistingMarkers(t *testing.T) {
	entries := []Entry{
		mkEntry(0, 1000, false),
		mkEntry(1000, 1000, false),
	}
	entries[0].Flags.LegMarker = true
	MarkLegs(entries)
	if entries[0].Flags.LegMarker {
		t.Error("MarkLegs should clear pre-existing markers before recomputing")
	}
}

func TestMarkLegsGroundIdleGapMarksNewLeg(t *testing.T) {
	entries := []Entry{
		mkEntry(0, 5000, false),      // airborne
		mkEntry(30*60*1000, 0, true), // 30 minutes later, landed
	}
	MarkLegs(entries)

	found := false
	for _, e := range entries {
		if e.Flags.LegMarker {
			found = true
		}
	}
	if !found {
		t.Error("a 30-minute airborne-to-ground gap (>=25min threshold) should mark a new leg")
	}
}

func TestMarkLegsShortGroundGapNoLegMarker(t *testing.T) {
	entries := []Entry{
		mkEntry(0, 5000, false),
		mkEntry(5*60*1000, 0, true),
	}
	MarkLegs(entries)
	for _, e := range entries {
		if e.Flags.LegMarker {
			t.Error("a 5-minute airborne-to-ground gap should not mark a new leg")
		}
	}
}

func TestComputeThresholdClampsToMinimum(t *testing.T) {
	entries := []Entry{mkEntry(0, 300, false), mkEntry(1000, 300, false)}
	if got := computeThreshold(entries); got != minLegThresholdFt {
		t.Errorf("computeThreshold(low altitude) = %d, want %d", got, minLegThresholdFt)
	}
}

func TestComputeThresholdClampsToMaximum(t *testing.T) {
	entries := []Entry{mkEntry(0, 100_000, false), mkEntry(1000, 100_000, false)}
	if got := computeThreshold(entries); got != maxLegThresholdFt {
		t.Errorf("computeThreshold(high altitude) = %d, want %d", got, maxLegThresholdFt)
	}
}

func TestComputeThresholdNoValidAltitudeDefaultsToMinimum(t *testing.T) {
	entries := []Entry{
		{TimestampMs: 0, Flags: Flags{AltitudeValid: false}},
		{TimestampMs: 1000, Flags: Flags{AltitudeValid: false}},
	}
	if got := computeThreshold(entries); got != minLegThresholdFt {
		t.Errorf("computeThreshold(no valid altitude) = %d, want %d", got, minLegThresholdFt)
	}
}
