package amqpout

import (
	"testing"

	"github.com/go1090/trackserver/internal/track"
)

func TestToMessagePopulatesOptionalFields(t *testing.T) {
	ac := track.NewAircraft(0x4840D6, 1000)
	ac.Callsign = "BAW123"
	ac.Position.Lat, ac.Position.Lon = 51.5, -0.1
	ac.Kinematics.BaroAlt = 35000
	ac.Kinematics.BaroAltValid = track.Validity{Source: track.SourceADSB, LastUpdatedMs: 1000}
	ac.Kinematics.BaroRate = -500
	ac.Kinematics.BaroRateValid = track.Validity{Source: track.SourceADSB, LastUpdatedMs: 1000}
	ac.Squawk = 7000
	ac.SquawkValid = track.Validity{Source: track.SourceADSB, LastUpdatedMs: 1000}

	msg := toMessage(ac, "test-station")

	if msg.Hex != "4840D6" {
		t.Errorf("Hex = %q, want 4840D6", msg.Hex)
	}
	if msg.Flight != "BAW123" {
		t.Errorf("Flight = %q, want BAW123", msg.Flight)
	}
	if msg.Altitude != 35000 {
		t.Errorf("Altitude = %d, want 35000", msg.Altitude)
	}
	if msg.VertRate != -500 {
		t.Errorf("VertRate = %d, want -500", msg.VertRate)
	}
	if msg.Squawk != "7000" {
		t.Errorf("Squawk = %q, want 7000", msg.Squawk)
	}
	if msg.StationName != "test-station" {
		t.Errorf("StationName = %q, want test-station", msg.StationName)
	}
}

func TestToMessageOmitsInvalidAltitude(t *testing.T) {
	ac := track.NewAircraft(0x123456, 1000)
	msg := toMessage(ac, "")
	if msg.Altitude != 0 {
		t.Errorf("Altitude = %d, want 0 for an aircraft with no valid altitude", msg.Altitude)
	}
	if msg.Squawk != "" {
		t.Errorf("Squawk = %q, want empty for an aircraft with no valid squawk", msg.Squawk)
	}
}
