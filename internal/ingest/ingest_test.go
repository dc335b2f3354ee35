package ingest

import (
	"testing"
	"time"

	"github.com/go1090/trackserver/internal/globeindex"
	"github.com/go1090/trackserver/internal/proto"
	"github.com/go1090/trackserver/internal/track"
)

func newTestConfig() (Config, *track.Store) {
	store := track.NewStore()
	receivers := track.NewReceiverTable(time.Hour)
	pipeline := &track.Pipeline{
		Cfg:       track.PipelineConfig{JSONReliable: 1, MaxRangeM: 0},
		Receivers: receivers,
		Globe:     globeindex.NewIndex(globeindex.DefaultTiles),
	}
	return Config{Store: store, Pipeline: pipeline, Receivers: receivers}, store
}

func TestApplyRejectsBadChecksum(t *testing.T) {
	cfg, _ := newTestConfig()
	msg := &proto.Message{ICAO: 0x4840D6, CRCOK: false}
	if err := Apply(cfg, msg, 1, 1000, false); err == nil {
		t.Fatal("Apply accepted a message with CRCOK=false")
	}
}

func TestApplyUpdatesCallsignAndAltitude(t *testing.T) {
	cfg, store := newTestConfig()
	msg := &proto.Message{
		DF: 17, ICAO: 0x4840D6, CRCOK: true, ErrorBit: -1,
		Callsign: "BAW123", Category: 3,
		Altitude: 35000, AltitudeOK: true,
	}

	if err := Apply(cfg, msg, 1, 1000, false); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	ac := store.Get(0x4840D6)
	if ac == nil {
		t.Fatal("aircraft not created")
	}
	if ac.Callsign != "BAW123" {
		t.Errorf("Callsign = %q, want BAW123", ac.Callsign)
	}
	if ac.Kinematics.BaroAlt != 35000 {
		t.Errorf("BaroAlt = %d, want 35000", ac.Kinematics.BaroAlt)
	}
	if ac.Messages != 1 {
		t.Errorf("Messages = %d, want 1", ac.Messages)
	}
}

func TestApplyFeedsCPRFrameThroughPipeline(t *testing.T) {
	cfg, store := newTestConfig()

	even := &proto.Message{
		DF: 17, ICAO: 0x4840D6, CRCOK: true, ErrorBit: -1,
		MeType: 11, CPRValid: true, CPRLat: 92095, CPRLon: 39846, CPROdd: false,
	}
	odd := &proto.Message{
		DF: 17, ICAO: 0x4840D6, CRCOK: true, ErrorBit: -1,
		MeType: 11, CPRValid: true, CPRLat: 88385, CPRLon: 125818, CPROdd: true,
	}

	if err := Apply(cfg, even, 1, 0, false); err != nil {
		t.Fatalf("Apply (even): %v", err)
	}
	if err := Apply(cfg, odd, 1, 5_000, false); err != nil {
		t.Fatalf("Apply (odd): %v", err)
	}

	ac := store.Get(0x4840D6)
	if ac == nil {
		t.Fatal("aircraft not created")
	}
	if ac.Position.Lat == 0 && ac.Position.Lon == 0 {
		t.Fatal("position never computed from the CPR frame pair")
	}
	if !ac.Position.Valid.Valid() {
		t.Error("Position.Valid still reports SourceInvalid after a CPR decode")
	}
}

func TestApplyUpdatesSquawkFromSurveillance(t *testing.T) {
	cfg, store := newTestConfig()
	msg := &proto.Message{
		DF: 5, ICAO: 0xABCDEF, CRCOK: true, ErrorBit: -1,
		FlightStatus: 0, Identity: 7700,
	}

	if err := Apply(cfg, msg, 1, 1000, false); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	ac := store.Get(0xABCDEF)
	if ac == nil {
		t.Fatal("aircraft not created")
	}
	if ac.Squawk != 7700 {
		t.Errorf("Squawk = %d, want 7700", ac.Squawk)
	}
}
