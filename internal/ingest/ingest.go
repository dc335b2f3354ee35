// Package ingest wires a decoded internal/proto.Message onto a
// internal/track.Aircraft, the step the reference engine calls
// trackUpdateFromMessage. internal/track deliberately stops at the CPR
// position pipeline and the field-acceptance primitives, keeping that
// package free of any wire-format dependency; this package is the one
// place that knows how a Mode-S DF/metype maps onto which Aircraft
// field, generalizing Regentag-go1090's Sky.UpdateData into the full
// per-aircraft field set internal/track.Aircraft tracks.
package ingest

import (
	"fmt"

	"github.com/go1090/trackserver/internal/proto"
	"github.com/go1090/trackserver/internal/stats"
	"github.com/go1090/trackserver/internal/track"
)

// Config bundles everything the ingest step needs beyond the message
// itself: which store to mutate, the position pipeline, and where to
// send per-message counters.
type Config struct {
	Store     *track.Store
	Pipeline  *track.Pipeline
	Receivers *track.ReceiverTable
	Collector *stats.Collector
}

// countersAdapter satisfies track.Stats by feeding named increments
// into a stats.Collector's current bucket, so the CPR pipeline's
// Inc("cpr_global_ok") calls land in the same rollups
// FormatProm/BuildStatsJSON report.
type countersAdapter struct{ c *stats.Collector }

func (a countersAdapter) Inc(name string) {
	if a.c == nil {
		return
	}
	delta := stats.Counters{MessagesByDF: map[int]int64{}}
	switch name {
	case "cpr_global_ok":
		delta.CPRGlobalOK = 1
	case "cpr_local_ok":
		delta.CPRLocalOK = 1
	case "cpr_global_range", "cpr_local_range", "cpr_global_speed_checks", "cpr_local_speed_checks":
		delta.PositionsRejected = 1
	case "cpr_duplicate":
		return
	}
	a.c.Add(delta)
}

// Apply folds one decoded message, received from receiverID at nowMs,
// onto the aircraft store: it resolves (or creates) the Aircraft,
// classifies the message's Source, and updates every field that
// applies for that DF/metype, matching decode order to
// original_source/track.c's trackUpdateFromMessage (position before
// velocity before identity, since later fields never gate on earlier
// ones here).
func Apply(cfg Config, msg *proto.Message, receiverID uint64, nowMs int64, sbsIn bool) error {
	if !msg.CRCOK {
		return fmt.Errorf("ingest: refusing to apply a message with a bad checksum")
	}

	ac, _ := cfg.Store.GetOrCreate(msg.ICAO, nowMs)

	cfg.Store.DecodeMu.Lock()
	defer cfg.Store.DecodeMu.Unlock()

	ac.SeenMs = nowMs
	ac.Messages++
	if cfg.Collector != nil {
		cfg.Collector.Add(stats.Counters{MessagesTotal: 1, MessagesByDF: map[int]int64{msg.DF: 1}})
	}

	source := classifySource(msg, sbsIn)

	if msg.CPRValid {
		nicA := ac.Accuracy.NICA != 0
		nicC := ac.Accuracy.NICC != 0
		nic := proto.ComputeNIC(msg.MeType, ac.Accuracy.ADSBVersion, nicA, msg.NICSuppB, nicC)
		rc := proto.ComputeRC(msg.MeType, ac.Accuracy.ADSBVersion, nicA, msg.NICSuppB, nicC)
		rcM := float64(rc)
		if rc == proto.RCUnknown {
			rcM = 0
		}

		// ADS-B v0 never carries an explicit NACp/SIL sub-field; ED-102A
		// Table N-7/N-8 instead imply a fixed value from the position
		// message's metype alone. Only applies once the aircraft's
		// version is known to be 0, so a later v1/v2 operational-status
		// message naturally stops this fallback from firing again.
		if ac.Accuracy.ADSBVersion == 0 {
			if nacp, ok := proto.ComputeV0NACp(msg.MeType); ok {
				if accepted, _ := track.AcceptData(&ac.Accuracy.Valid, source, nowMs, sbsIn, false, 0, 0); accepted {
					ac.Accuracy.NACp = nacp
				}
			}
			if sil, ok := proto.ComputeV0SIL(msg.MeType); ok {
				ac.Accuracy.SIL = sil
				ac.Accuracy.SILType = "persample"
			}
		}

		in := track.CPRInput{
			Source:     source,
			ReceiverID: receiverID,
			NowMs:      nowMs,
			RawLat:     msg.CPRLat,
			RawLon:     msg.CPRLon,
			NIC:        nic,
			Rc:         rcM,
			Odd:        msg.CPROdd,
			Surface:    msg.Surface,
			GSKnown:    msg.VelocityValid,
			GS:         msg.GS,
			SBSIn:      sbsIn,
		}
		if cfg.Pipeline != nil {
			cfg.Pipeline.HandleCPRFrame(ac, in, countersAdapter{cfg.Collector})
		}
	}

	if msg.AltitudeOK {
		if accepted, _ := track.AcceptData(&ac.Kinematics.BaroAltValid, source, nowMs, sbsIn, false, 0, 0); accepted {
			ac.Kinematics.BaroAlt = msg.Altitude
			ac.Reliability.AltReliable = track.FilterPersistence
		}
	}

	if msg.VelocityValid {
		if accepted, _ := track.AcceptData(&ac.Kinematics.GSValid, source, nowMs, sbsIn, false, 0, 0); accepted {
			ac.Kinematics.GS = msg.GS
		}
		if msg.Track != 0 {
			if accepted, _ := track.AcceptData(&ac.Kinematics.TrackValid, source, nowMs, sbsIn, false, 0, 0); accepted {
				ac.Kinematics.Track = msg.Track
			}
		}
	}

	if msg.VRateValid {
		if accepted, _ := track.AcceptData(&ac.Kinematics.BaroRateValid, source, nowMs, sbsIn, false, 0, 0); accepted {
			ac.Kinematics.BaroRate = msg.VRate
		}
	}

	if msg.GeomRateValid {
		if accepted, _ := track.AcceptData(&ac.Kinematics.GeomRateValid, source, nowMs, sbsIn, false, 0, 0); accepted {
			ac.Kinematics.GeomRate = msg.GeomRate
		}
	}

	if msg.IASValid {
		if accepted, _ := track.AcceptData(&ac.Kinematics.IASValid, source, nowMs, sbsIn, false, 0, 0); accepted {
			ac.Kinematics.IAS = msg.IAS
		}
	}

	if msg.TASValid {
		if accepted, _ := track.AcceptData(&ac.Kinematics.TASValid, source, nowMs, sbsIn, false, 0, 0); accepted {
			ac.Kinematics.TAS = msg.TAS
		}
	}

	if msg.MagHeadingValid {
		if accepted, _ := track.AcceptData(&ac.Kinematics.MagHeadingValid, source, nowMs, sbsIn, false, 0, 0); accepted {
			ac.Kinematics.MagHeading = msg.MagHeading
		}
	}

	if msg.GeomBaroDeltaValid {
		if accepted, _ := track.AcceptData(&ac.Kinematics.GeomBaroDeltaValid, source, nowMs, sbsIn, false, 0, 0); accepted {
			ac.Kinematics.GeomBaroDelta = msg.GeomBaroDelta
		}
		// Geometric altitude is never transmitted directly; it is
		// derived from barometric altitude plus this delta, so its
		// validity is the combination of both sources (track.c's
		// geom_alt derivation in trackUpdateFromMessage). The combined
		// validity only overwrites what's already there if it's at
		// least as good, so a stale delta can't regress a better
		// existing geometric-altitude fix.
		if ac.Kinematics.BaroAltValid.Valid() {
			combined := track.CombineValidity(ac.Kinematics.BaroAltValid, ac.Kinematics.GeomBaroDeltaValid, nowMs)
			if track.CompareValidity(combined, ac.Kinematics.GeomAltValid) >= 0 {
				ac.Kinematics.GeomAlt = ac.Kinematics.BaroAlt + ac.Kinematics.GeomBaroDelta
				ac.Kinematics.GeomAltValid = combined
			}
		}
	}

	if msg.Callsign != "" {
		if accepted, _ := track.AcceptData(&ac.CallsignValid, source, nowMs, sbsIn, false, 0, 0); accepted {
			ac.Callsign = msg.Callsign
			ac.Category = msg.Category
		}
	}

	if msg.DF == 4 || msg.DF == 5 || msg.DF == 20 || msg.DF == 21 {
		if accepted, _ := track.AcceptData(&ac.SquawkValid, source, nowMs, sbsIn, false, 0, 0); accepted {
			ac.Squawk = msg.Identity
		}
		ac.Kinematics.OnGround = msg.FlightStatus == 1 || msg.FlightStatus == 3
	}

	if msg.EmergencyValid {
		if accepted, _ := track.AcceptData(&ac.EmergencyValid, source, nowMs, sbsIn, false, 0, 0); accepted {
			ac.Emergency = msg.Emergency
		}
	}

	if msg.TargetStateValid {
		if accepted, _ := track.AcceptData(&ac.Nav.AltitudeValid, source, nowMs, sbsIn, false, 0, 0); accepted {
			ac.Nav.SelectedAltitude = msg.SelectedAltitude
		}
		if msg.SelectedHeadingOK {
			if accepted, _ := track.AcceptData(&ac.Nav.HeadingValid, source, nowMs, sbsIn, false, 0, 0); accepted {
				ac.Nav.SelectedHeading = msg.SelectedHeading
			}
		}
		if accepted, _ := track.AcceptData(&ac.Nav.QNHValid, source, nowMs, sbsIn, false, 0, 0); accepted {
			ac.Nav.QNH = msg.QNH
		}
		if accepted, _ := track.AcceptData(&ac.Nav.ModesValid, source, nowMs, sbsIn, false, 0, 0); accepted {
			ac.Nav.Modes = navModesBitmask(msg)
		}
	}

	applyAccuracy(ac, msg, source, nowMs, sbsIn)

	if cfg.Receivers != nil {
		cfg.Receivers.Touch(receiverID, true)
	}

	return nil
}

// navModesBitmask packs the target-state-and-status engaged-mode
// flags the same way Regentag-go1090 packs its own status bitmasks,
// so internal/snapshot can persist Nav.Modes as a single uint16.
func navModesBitmask(msg *proto.Message) uint16 {
	var bits uint16
	if msg.AutopilotEngaged {
		bits |= 1 << 0
	}
	if msg.VNAVEngaged {
		bits |= 1 << 1
	}
	if msg.AltHoldEngaged {
		bits |= 1 << 2
	}
	if msg.ApproachEngaged {
		bits |= 1 << 3
	}
	if msg.LNAVEngaged {
		bits |= 1 << 4
	}
	return bits
}

// applyAccuracy folds the NACp/NACv/SIL/GVA/SDA/NIC-supplement/version
// fields carried by metype 19/29/31 messages onto the aircraft's
// AccuracyEnvelope, gated by the same field-level AcceptData rule as
// every other tracked field.
func applyAccuracy(ac *track.Aircraft, msg *proto.Message, source track.Source, nowMs int64, sbsIn bool) {
	if msg.NACpValid {
		if accepted, _ := track.AcceptData(&ac.Accuracy.Valid, source, nowMs, sbsIn, false, 0, 0); accepted {
			ac.Accuracy.NACp = msg.NACp
		}
	}
	if msg.NACvValid {
		ac.Accuracy.NACv = msg.NACv
	}
	if msg.SILValid {
		ac.Accuracy.SIL = msg.SIL
		if msg.SILPerHour {
			ac.Accuracy.SILType = "perhour"
		} else {
			ac.Accuracy.SILType = "persample"
		}
	}
	if msg.GVAValid {
		ac.Accuracy.GVA = msg.GVA
	}
	if msg.OpStatusValid {
		ac.Accuracy.ADSBVersion = msg.ADSBVersion
		ac.Accuracy.SDA = msg.SDA
		if msg.NICSuppA {
			ac.Accuracy.NICA = 1
		} else {
			ac.Accuracy.NICA = 0
		}
	}
	if msg.NICBaroValid {
		if msg.NICBaro {
			ac.Accuracy.NICBaro = 1
		} else {
			ac.Accuracy.NICBaro = 0
		}
	}
}

// classifySource maps a decoded message onto the Source ordering:
// DF17/18 extended squitter is genuine ADS-B, everything
// else arriving over a raw Mode-S feed is Mode-S (elevated to
// ModeSChecked once its CRC is independently verified rather than
// brute-forced), and SBS-sourced lines are marked accordingly by the
// caller via sbsIn.
func classifySource(msg *proto.Message, sbsIn bool) track.Source {
	switch {
	case sbsIn:
		return track.SourceSBS
	case msg.DF == 17 || msg.DF == 18:
		return track.SourceADSB
	case msg.ErrorBit == -1 && msg.DF == 11:
		return track.SourceModeSChecked
	default:
		return track.SourceModeS
	}
}
