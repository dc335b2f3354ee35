package proto

import (
	"testing"
	"time"
)

func TestSBSRoundTrip(t *testing.T) {
	alt := 35000
	gs := 412.0
	track := 271.5
	lat, lon := 51.5, -0.1
	vrate := -64

	now := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
	m := SBSMessage{
		TransmissionType: SBSTransmissionAirborne,
		AircraftID:       1,
		HexIdent:         "4840D6",
		FlightID:         1,
		DateGenerated:    now,
		DateLogged:       now,
		Callsign:         "BAW123",
		Altitude:         &alt,
		GroundSpeed:      &gs,
		Track:            &track,
		Lat:              &lat,
		Lon:              &lon,
		VerticalRate:     &vrate,
		Squawk:           "2317",
		OnGround:         false,
	}

	line := EncodeSBS(m, SBSPlain)
	got, err := DecodeSBS(line)
	if err != nil {
		t.Fatalf("DecodeSBS: %v", err)
	}

	if got.HexIdent != m.HexIdent {
		t.Errorf("HexIdent = %q, want %q", got.HexIdent, m.HexIdent)
	}
	if got.Callsign != m.Callsign {
		t.Errorf("Callsign = %q, want %q", got.Callsign, m.Callsign)
	}
	if got.Altitude == nil || *got.Altitude != alt {
		t.Errorf("Altitude = %v, want %d", got.Altitude, alt)
	}
	if got.Lat == nil || *got.Lat != lat {
		t.Errorf("Lat = %v, want %v", got.Lat, lat)
	}
	if got.Squawk != m.Squawk {
		t.Errorf("Squawk = %q, want %q", got.Squawk, m.Squawk)
	}
	if got.SessionID != SBSPlain.sessionID() {
		t.Errorf("SessionID = %d, want %d", got.SessionID, SBSPlain.sessionID())
	}
}

func TestSBSFlavorSessionIDs(t *testing.T) {
	testCases := []struct {
		name   string
		flavor SBSPortFlavor
		want   int
	}{
		{"plain", SBSPlain, 1},
		{"mlat", SBSMLAT, 2},
		{"prio", SBSPrio, 3},
		{"jaero", SBSJAERO, 4},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			m := SBSMessage{HexIdent: "ABCDEF", DateGenerated: time.Now(), DateLogged: time.Now()}
			line := EncodeSBS(m, tc.flavor)
			got, err := DecodeSBS(line)
			if err != nil {
				t.Fatalf("DecodeSBS: %v", err)
			}
			if got.SessionID != tc.want {
				t.Errorf("SessionID = %d, want %d", got.SessionID, tc.want)
			}
		})
	}
}

func TestDecodeSBSRejectsShortLine(t *testing.T) {
	if _, err := DecodeSBS("MSG,3,1,1"); err == nil {
		t.Errorf("expected an error for a short SBS line")
	}
}
