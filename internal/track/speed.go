package track

import "math"

// FilterPersistence is the clamp ceiling for pos_reliable_odd/even.
// json_reliable in Regentag-go1090's config is the threshold both
// counters must reach for "reliable"; that threshold is passed
// explicitly to the functions below rather than read from a global.
const FilterPersistence = 4

const earthRadiusM = 6371e3

// Haversine returns the great-circle distance in meters between two
// lat/lon points, using the small-angle haversine formula for short
// distances and the spherical law of cosines otherwise -- ported from
// original_source/track.c's greatcircle().
func Haversine(lat0, lon0, lat1, lon1 float64) float64 {
	rlat0 := lat0 * math.Pi / 180
	rlon0 := lon0 * math.Pi / 180
	rlat1 := lat1 * math.Pi / 180
	rlon1 := lon1 * math.Pi / 180

	dlat := math.Abs(rlat1 - rlat0)
	dlon := math.Abs(rlon1 - rlon0)

	if dlat < 0.001 && dlon < 0.001 {
		a := math.Sin(dlat/2)*math.Sin(dlat/2) + math.Cos(rlat0)*math.Cos(rlat1)*math.Sin(dlon/2)*math.Sin(dlon/2)
		return earthRadiusM * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1.0-a))
	}

	return earthRadiusM * math.Acos(math.Sin(rlat0)*math.Sin(rlat1)+math.Cos(rlat0)*math.Cos(rlat1)*math.Cos(dlon))
}

// Bearing returns the initial bearing in degrees [0,360) from (lat0,lon0)
// to (lat1,lon1), ported from original_source/track.c's bearing().
func Bearing(lat0, lon0, lat1, lon1 float64) float64 {
	rlat0 := lat0 * math.Pi / 180
	rlon0 := lon0 * math.Pi / 180
	rlat1 := lat1 * math.Pi / 180
	rlon1 := lon1 * math.Pi / 180

	y := math.Sin(rlon1-rlon0) * math.Cos(rlat1)
	x := math.Cos(rlat0)*math.Sin(rlat1) - math.Sin(rlat0)*math.Cos(rlat1)*math.Cos(rlon1-rlon0)
	res := math.Atan2(y, x)*180/math.Pi + 360
	for res >= 360 {
		res -= 360
	}
	return res
}

// normDiff folds d into (-halfRange, halfRange].
func normDiff(d, halfRange float64) float64 {
	for d <= -halfRange {
		d += 2 * halfRange
	}
	for d > halfRange {
		d -= 2 * halfRange
	}
	return d
}

// SpeedCheckInput bundles the aircraft fields SpeedCheck needs to
// evaluate, decoupling it from the Aircraft struct's locking so that
// callers can pass in a checkpointed snapshot taken under a shorter
// critical section.
type SpeedCheckInput struct {
	NowMs int64

	OldLat, OldLon float64
	PositionValid  Validity
	PosReliableOdd, PosReliableEven int

	Surface bool

	GS, GSLastPos float64
	GSValid       Validity
	TAS           float64
	TASValid      Validity
	IAS           float64
	IASValid      Validity

	Track      float64
	TrackValid Validity

	JSONReliable int // threshold; -1 disables the speed check entirely
}

// SpeedCheckResult reports the outcome plus whether the failure should
// be excluded from reliability-counter decrementing (a track-diff >
// 160deg is ignored for reliability purposes, as is the bogus lat/lon
// short-circuit).
type SpeedCheckResult struct {
	OK         bool
	IgnoreOnly bool // if true and !OK, don't decrement pos_reliable
}

// SpeedCheck is ported from original_source/track.c's speed_check().
func SpeedCheck(in SpeedCheckInput, newLat, newLon float64, source Source) SpeedCheckResult {
	if in.JSONReliable == -1 {
		return SpeedCheckResult{OK: true}
	}

	if bogusLatLon(newLat, newLon) {
		return SpeedCheckResult{OK: false, IgnoreOnly: true}
	}

	if in.PosReliableOdd < 1 && in.PosReliableEven < 1 {
		return SpeedCheckResult{OK: true}
	}
	if in.NowMs > in.PositionValid.LastUpdatedMs+120_000 {
		return SpeedCheckResult{OK: true}
	}
	if source > in.PositionValid.LastSource {
		return SpeedCheckResult{OK: true}
	}

	elapsed := in.PositionValid.AgeMs(in.NowMs)

	speed := 900.0
	if in.Surface {
		speed = 150.0
	}

	switch {
	case in.GSValid.Valid():
		speed = in.GS
		if in.GSLastPos > speed {
			speed = in.GSLastPos
		}
		speed += 3 * float64(in.GSValid.AgeMs(in.NowMs)) / 1000.0
	case in.TASValid.Valid():
		speed = in.TAS * 4 / 3
	case in.IASValid.Valid():
		speed = in.IAS * 2
	}

	if source <= SourceMLAT {
		if elapsed > 25_000 {
			return SpeedCheckResult{OK: true}
		}
		speed *= 2
		if speed > 2400 {
			speed = 2400
		}
	}

	speed *= 1.3
	if in.Surface {
		if speed < 20 {
			speed = 20
		}
		if speed > 150 {
			speed = 150
		}
	} else if speed < 200 {
		speed = 200
	}

	distance := Haversine(in.OldLat, in.OldLon, newLat, newLon)

	ignoreOnly := false
	if !in.Surface && distance > 1 && source > SourceMLAT &&
		in.TrackValid.AgeMs(in.NowMs) < 7_000 &&
		in.PositionValid.AgeMs(in.NowMs) < 7_000 &&
		(in.OldLat != newLat || in.OldLon != newLon) &&
		in.PosReliableOdd >= in.JSONReliable && in.PosReliableEven >= in.JSONReliable {

		calcTrack := Bearing(in.OldLat, in.OldLon, newLat, newLon)
		trackDiff := math.Abs(normDiff(in.Track-calcTrack, 180))
		trackBonus := speed * (90.0 - trackDiff) / 90.0
		speed += trackBonus * (1.1 - float64(in.TrackValid.AgeMs(in.NowMs))/5000)
		if trackDiff > 160 {
			ignoreOnly = true
		}
	}

	base := 0.0
	if in.Surface {
		base = 100 // meters
	}
	allowed := base + (float64(elapsed)+1000.0)/1000.0*(speed*1852.0/3600.0)

	if distance <= allowed {
		return SpeedCheckResult{OK: true}
	}
	return SpeedCheckResult{OK: false, IgnoreOnly: ignoreOnly}
}

func bogusLatLon(lat, lon float64) bool {
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return true
	}
	return lat == 0 && lon == 0
}
