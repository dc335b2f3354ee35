package ingest

import (
	"testing"

	"github.com/go1090/trackserver/internal/proto"
)

func floatPtr(v float64) *float64 { return &v }
func intPtr(v int) *int           { return &v }

func TestApplySBSUpdatesPositionAndAltitude(t *testing.T) {
	cfg, store := newTestConfig()
	m := &proto.SBSMessage{
		HexIdent: "4840D6",
		Callsign: "BAW123",
		Altitude: intPtr(35000),
		Lat:      floatPtr(51.5),
		Lon:      floatPtr(-0.1),
	}

	if err := ApplySBS(cfg, m, 1, 1000); err != nil {
		t.Fatalf("ApplySBS: %v", err)
	}

	ac := store.Get(0x4840D6)
	if ac == nil {
		t.Fatal("aircraft not created")
	}
	if ac.Position.Lat != 51.5 || ac.Position.Lon != -0.1 {
		t.Errorf("Position = (%v, %v), want (51.5, -0.1)", ac.Position.Lat, ac.Position.Lon)
	}
	if ac.Kinematics.BaroAlt != 35000 {
		t.Errorf("BaroAlt = %d, want 35000", ac.Kinematics.BaroAlt)
	}
	if ac.Callsign != "BAW123" {
		t.Errorf("Callsign = %q, want BAW123", ac.Callsign)
	}
}

func TestApplySBSRejectsBadHexIdent(t *testing.T) {
	cfg, _ := newTestConfig()
	m := &proto.SBSMessage{HexIdent: "not-hex"}
	if err := ApplySBS(cfg, m, 1, 1000); err == nil {
		t.Fatal("ApplySBS accepted a malformed HexIdent")
	}
}
