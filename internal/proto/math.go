package proto

import "math"

func sqrt(v float64) float64 { return math.Sqrt(v) }

// atan2deg returns the bearing in degrees for a (east, north) velocity
// pair, matching Regentag-go1090's decodeVelocity convention of atan2(ew, ns).
func atan2deg(ew, ns float64) float64 {
	return math.Atan2(ew, ns) * 180 / math.Pi
}
