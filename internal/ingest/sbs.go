package ingest

import (
	"strconv"

	"github.com/go1090/trackserver/internal/proto"
	"github.com/go1090/trackserver/internal/stats"
	"github.com/go1090/trackserver/internal/track"
)

// ApplySBS folds one decoded Basestation line onto the aircraft store.
// Unlike Apply, an SBS line arrives pre-decoded (no CRC, no CPR frame
// to stash): an SBS feed is treated as a lower-trust source that
// reports an already-resolved lat/lon rather than raw CPR halves, so
// this path updates position directly through AcceptData instead of
// routing through track.Pipeline.HandleCPRFrame.
func ApplySBS(cfg Config, m *proto.SBSMessage, receiverID uint64, nowMs int64) error {
	addr, err := parseHexIdent(m.HexIdent)
	if err != nil {
		return err
	}

	ac, _ := cfg.Store.GetOrCreate(addr, nowMs)

	cfg.Store.DecodeMu.Lock()
	defer cfg.Store.DecodeMu.Unlock()

	ac.SeenMs = nowMs
	ac.Messages++
	if cfg.Collector != nil {
		cfg.Collector.Add(stats.Counters{MessagesTotal: 1})
	}

	const source = track.SourceSBS

	if m.Lat != nil && m.Lon != nil {
		if accepted, _ := track.AcceptData(&ac.Position.Valid, source, nowMs, true, false, 0, 0); accepted {
			ac.Position.Lat = *m.Lat
			ac.Position.Lon = *m.Lon
			ac.Position.SeenPosMs = nowMs
			ac.Position.ReceiverID = receiverID
			incrementReliable(&ac.Reliability.PosOdd)
			incrementReliable(&ac.Reliability.PosEven)
		}
	}

	if m.Altitude != nil {
		if accepted, _ := track.AcceptData(&ac.Kinematics.BaroAltValid, source, nowMs, true, false, 0, 0); accepted {
			ac.Kinematics.BaroAlt = *m.Altitude
			ac.Reliability.AltReliable = track.FilterPersistence
		}
	}

	if m.GroundSpeed != nil {
		if accepted, _ := track.AcceptData(&ac.Kinematics.GSValid, source, nowMs, true, false, 0, 0); accepted {
			ac.Kinematics.GS = *m.GroundSpeed
		}
	}

	if m.Track != nil {
		if accepted, _ := track.AcceptData(&ac.Kinematics.TrackValid, source, nowMs, true, false, 0, 0); accepted {
			ac.Kinematics.Track = *m.Track
		}
	}

	if m.VerticalRate != nil {
		if accepted, _ := track.AcceptData(&ac.Kinematics.BaroRateValid, source, nowMs, true, false, 0, 0); accepted {
			ac.Kinematics.BaroRate = *m.VerticalRate
		}
	}

	if m.Callsign != "" {
		if accepted, _ := track.AcceptData(&ac.CallsignValid, source, nowMs, true, false, 0, 0); accepted {
			ac.Callsign = m.Callsign
		}
	}

	if m.Squawk != "" {
		if sq, err := strconv.Atoi(m.Squawk); err == nil {
			if accepted, _ := track.AcceptData(&ac.SquawkValid, source, nowMs, true, false, 0, 0); accepted {
				ac.Squawk = sq
			}
		}
	}

	ac.Kinematics.OnGround = m.OnGround

	if cfg.Receivers != nil {
		cfg.Receivers.Touch(receiverID, true)
	}

	return nil
}

func incrementReliable(counter *int) {
	if *counter < track.FilterPersistence {
		*counter++
	}
}

func parseHexIdent(hexIdent string) (uint32, error) {
	v, err := strconv.ParseUint(hexIdent, 16, 32)
	if err != nil {
		return 0, err
	}
	return uint32(v), nil
}
