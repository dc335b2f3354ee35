// Package proto implements the track server's wire protocols: the
// Mode-S message decoder (shared by every framer) and the Beast/AVR/SBS
// encoders and decoders.
package proto

import (
	"fmt"
	"time"

	cache "github.com/patrickmn/go-cache"

	"github.com/go1090/trackserver/internal/bits"
)

// icaoCacheTTL mirrors Regentag-go1090's MODES_ICAO_CACHE_TTL: how long
// a Mode-S/DF17 address with a verified checksum stays in the
// recently-seen set used to brute-force the AP field on DF0/4/5/16/20/21/24.
const icaoCacheTTL = 60 * time.Second

// Message is the normalized decode of one Mode-S frame, independent of
// the wire format it arrived in (Beast/AVR/SBS all funnel through
// Decode). Field names follow Regentag-go1090's ModeSMessage but are
// exported and trimmed to what the aircraft store actually consumes
// downstream.
type Message struct {
	Raw      []byte
	DF       int
	CA       int
	ICAO     uint32
	CRCOK    bool
	ErrorBit int

	// DF17/18 extended squitter fields.
	MeType int
	MeSub  int

	// Identification (metype 1-4).
	Callsign string
	Category int

	// Airborne/surface position (metype 9-18, 5-8).
	CPRValid   bool
	CPROdd     bool
	CPRLat     int
	CPRLon     int
	Altitude   int
	AltitudeOK bool
	Surface    bool

	// Velocity (metype 19 subtype 1-2: ground speed; subtype 3-4: airspeed).
	VelocityValid bool
	GS            float64
	Track         float64
	VRate         int
	VRateValid    bool

	GeomRate      int
	GeomRateValid bool

	IAS      float64
	IASValid bool
	TAS      float64
	TASValid bool

	MagHeading      float64
	MagHeadingValid bool

	GeomBaroDelta      int
	GeomBaroDeltaValid bool

	// NIC supplement-B, carried in the low bit of the position message's
	// own ME byte (metype 9-18) rather than in a separate message.
	NICSuppB bool

	// Operational status (metype 31).
	OpStatusValid bool
	ADSBVersion   int
	NICSuppA      bool
	SDA           int

	// Target state and status (metype 29 subtype 1).
	TargetStateValid  bool
	SelectedAltitude  int
	SelectedHeading   float64
	SelectedHeadingOK bool
	QNH               float64
	AutopilotEngaged  bool
	VNAVEngaged       bool
	AltHoldEngaged    bool
	ApproachEngaged   bool
	LNAVEngaged       bool

	// Accuracy/integrity fields shared by metype 19/29/31.
	NACp         int
	NACpValid    bool
	NACv         int
	NACvValid    bool
	SIL          int
	SILValid     bool
	SILPerHour   bool
	GVA          int
	GVAValid     bool
	NICBaro      bool
	NICBaroValid bool

	// Aircraft status / emergency (metype 28 subtype 1).
	Emergency      int
	EmergencyValid bool

	// DF4/5/20/21 surveillance fields.
	FlightStatus int
	Identity     int // squawk
}

// Decoder parses raw Mode-S byte frames into Message, with single-bit
// error correction and ICAO brute-forcing, generalizing
// Regentag-go1090's mode_s.Decoder.
type Decoder struct {
	FixErrors  bool
	Aggressive bool

	icaoCache *cache.Cache
}

// NewDecoder returns a Decoder configured the way Regentag-go1090's
// modesInitConfig does: error fixing on, aggressive mode off.
func NewDecoder() *Decoder {
	return &Decoder{
		FixErrors: true,
		icaoCache: cache.New(icaoCacheTTL, icaoCacheTTL/6),
	}
}

func (d *Decoder) addRecentICAO(addr uint32) {
	d.icaoCache.SetDefault(fmt.Sprintf("%06x", addr), addr)
}

func (d *Decoder) recentlySeen(addr uint32) bool {
	_, found := d.icaoCache.Get(fmt.Sprintf("%06x", addr))
	return found
}

// Decode parses a raw Mode-S frame (length implied by the DF in msg[0]).
func (d *Decoder) Decode(msg []byte) (*Message, error) {
	if len(msg) == 0 {
		return nil, fmt.Errorf("proto: empty message")
	}

	df := int(msg[0]) >> 3
	msgBits := bits.MessageLenByType(df)
	msgBytes := msgBits / 8
	if len(msg) < msgBytes {
		return nil, fmt.Errorf("proto: short message for DF%d: got %d bytes, want %d", df, len(msg), msgBytes)
	}

	buf := make([]byte, msgBytes)
	copy(buf, msg)

	crc := uint32(buf[msgBytes-3])<<16 | uint32(buf[msgBytes-2])<<8 | uint32(buf[msgBytes-1])
	crc2 := bits.Checksum(buf, msgBits)

	m := &Message{Raw: buf, DF: df, ErrorBit: -1}
	m.CRCOK = crc == crc2

	if !m.CRCOK && d.FixErrors && (df == 11 || df == 17) {
		if eb := bits.FixSingleBitError(buf, msgBits); eb != -1 {
			m.ErrorBit = eb
			m.CRCOK = true
		} else if d.Aggressive && df == 17 {
			if eb := bits.FixTwoBitErrors(buf, msgBits); eb != -1 {
				m.ErrorBit = eb
				m.CRCOK = true
			}
		}
	}

	m.CA = int(buf[0]) & 7
	m.ICAO = uint32(buf[1])<<16 | uint32(buf[2])<<8 | uint32(buf[3])

	if df != 11 && df != 17 {
		if addr, ok := d.bruteForceAP(buf, df, msgBits); ok {
			m.ICAO = addr
			m.CRCOK = true
		}
	} else if m.CRCOK && m.ErrorBit == -1 {
		d.addRecentICAO(m.ICAO)
	}

	if df == 0 || df == 4 || df == 16 || df == 20 {
		m.Altitude, _ = bits.DecodeAC13Field(buf)
		m.AltitudeOK = true
	}

	if df == 4 || df == 5 || df == 20 || df == 21 {
		m.FlightStatus = int(buf[0]) & 7
		m.Identity = decodeIdentity(buf)
	}

	if df == 17 || df == 18 {
		decodeExtendedSquitter(m, buf)
	}

	return m, nil
}

func (d *Decoder) bruteForceAP(msg []byte, df, msgBits int) (uint32, bool) {
	switch df {
	case 0, 4, 5, 16, 20, 21, 24:
	default:
		return 0, false
	}

	msgBytes := msgBits / 8
	aux := make([]byte, msgBytes)
	copy(aux, msg)

	crc := bits.Checksum(aux, msgBits)
	last := msgBytes - 1
	aux[last] ^= byte(crc & 0xff)
	aux[last-1] ^= byte((crc >> 8) & 0xff)
	aux[last-2] ^= byte((crc >> 16) & 0xff)

	addr := uint32(aux[last-2])<<16 | uint32(aux[last-1])<<8 | uint32(aux[last])
	if d.recentlySeen(addr) {
		return addr, true
	}
	return 0, false
}

var aisCharset = []rune("?ABCDEFGHIJKLMNOPQRSTUVWXYZ????? ???????????????0123456789??????")

func decodeIdentity(msg []byte) int {
	a := ((msg[3] & 0x80) >> 5) | ((msg[2] & 0x02) >> 0) | ((msg[2] & 0x08) >> 3)
	b := ((msg[3] & 0x02) << 1) | ((msg[3] & 0x08) >> 2) | ((msg[3] & 0x20) >> 5)
	c := ((msg[2] & 0x01) << 2) | ((msg[2] & 0x04) >> 1) | ((msg[2] & 0x10) >> 4)
	dd := ((msg[3] & 0x01) << 2) | ((msg[3] & 0x04) >> 1) | ((msg[3] & 0x10) >> 4)
	return int(a)*1000 + int(b)*100 + int(c)*10 + int(dd)
}

func decodeExtendedSquitter(m *Message, msg []byte) {
	m.MeType = int(msg[4]) >> 3
	m.MeSub = int(msg[4]) & 7

	switch {
	case m.MeType >= 1 && m.MeType <= 4:
		m.Category = m.MeType - 1
		cs := make([]rune, 8)
		cs[0] = aisCharset[msg[5]>>2]
		cs[1] = aisCharset[((msg[5]&3)<<4)|(msg[6]>>4)]
		cs[2] = aisCharset[((msg[6]&15)<<2)|(msg[7]>>6)]
		cs[3] = aisCharset[msg[7]&63]
		cs[4] = aisCharset[msg[8]>>2]
		cs[5] = aisCharset[((msg[8]&3)<<4)|(msg[9]>>4)]
		cs[6] = aisCharset[((msg[9]&15)<<2)|(msg[10]>>6)]
		cs[7] = aisCharset[msg[10]&63]
		m.Callsign = string(cs)

	case m.MeType >= 5 && m.MeType <= 8:
		m.Surface = true
		decodeCPRFields(m, msg)

	case m.MeType >= 9 && m.MeType <= 18:
		m.Altitude, _ = bits.DecodeAC12Field(msg, bits.UnitFeet)
		m.AltitudeOK = true
		m.NICSuppB = msg[4]&1 != 0
		decodeCPRFields(m, msg)

	case m.MeType == 19 && m.MeSub >= 1 && m.MeSub <= 4:
		decodeVelocity(m, msg)

	case m.MeType == 28 && m.MeSub == 1:
		decodeEmergency(m, msg)

	case m.MeType == 29 && m.MeSub == 1:
		decodeTargetState(m, msg)

	case m.MeType == 31 && (m.MeSub == 0 || m.MeSub == 1):
		decodeOperationalStatus(m, msg, m.MeSub)
	}
}

func decodeCPRFields(m *Message, msg []byte) {
	m.CPROdd = int(msg[6])&(1<<2) != 0
	m.CPRLat = ((int(msg[6]) & 3) << 15) | (int(msg[7]) << 7) | (int(msg[8]) >> 1)
	m.CPRLon = ((int(msg[8]) & 1) << 16) | (int(msg[9]) << 8) | int(msg[10])
	m.CPRValid = true
}

func decodeVelocity(m *Message, msg []byte) {
	switch m.MeSub {
	case 1, 2:
		decodeGroundVelocity(m, msg)
	case 3, 4:
		decodeAirspeedHeading(m, msg, m.MeSub)
	}
}

func decodeGroundVelocity(m *Message, msg []byte) {
	m.NACv, m.NACvValid = (int(msg[5])>>3)&0x07, true

	ewDir := (int(msg[5]) & 4) >> 2
	ewV := ((int(msg[5]) & 3) << 8) | int(msg[6])
	nsDir := (int(msg[7]) & 0x80) >> 7
	nsV := ((int(msg[7]) & 0x7f) << 3) | ((int(msg[8]) & 0xe0) >> 5)
	vSign := (int(msg[8]) & 0x8) >> 3
	vRate := ((int(msg[8]) & 7) << 6) | ((int(msg[9]) & 0xfc) >> 2)

	ewv, nsv := float64(ewV), float64(nsV)
	if ewDir == 1 {
		ewv = -ewv
	}
	if nsDir == 1 {
		nsv = -nsv
	}

	gs := sqrt(ewv*ewv + nsv*nsv)
	m.GS = gs
	m.VelocityValid = true

	if gs != 0 {
		track := atan2deg(ewv, nsv)
		if track < 0 {
			track += 360
		}
		m.Track = track
	}

	rate := (vRate - 1) * 64
	if vSign == 1 {
		rate = -rate
	}
	m.VRate = rate
	m.VRateValid = true
}

// decodeAirspeedHeading decodes the metype 19 subtype 3 (subsonic) and 4
// (supersonic) airspeed/heading message: magnetic heading, IAS or TAS,
// GNSS- or baro-sourced vertical rate, and the GNSS/baro altitude delta
// that feeds geometric altitude (track.CombineValidity combines it with
// the barometric altitude).
func decodeAirspeedHeading(m *Message, msg []byte, sub int) {
	mult := 1.0
	if sub == 4 {
		mult = 4
	}

	if headingStatus := (int(msg[5]) & 4) >> 2; headingStatus != 0 {
		headingRaw := ((int(msg[5]) & 3) << 8) | int(msg[6])
		heading := float64(headingRaw) * (360.0 / 1024.0) * mult
		for heading >= 360 {
			heading -= 360
		}
		m.MagHeading, m.MagHeadingValid = heading, true
	}

	airspeedType := (int(msg[7]) & 0x80) >> 7
	if airspeedRaw := ((int(msg[7]) & 0x7f) << 3) | (int(msg[8]) >> 5); airspeedRaw != 0 {
		spd := float64(airspeedRaw-1) * mult
		if airspeedType == 1 {
			m.TAS, m.TASValid = spd, true
		} else {
			m.IAS, m.IASValid = spd, true
		}
	}

	vrSrc := (int(msg[8]) >> 4) & 1
	vrSign := (int(msg[8]) >> 3) & 1
	if vrRaw := ((int(msg[8]) & 7) << 6) | (int(msg[9]) >> 2); vrRaw != 0 {
		rate := (vrRaw - 1) * 64
		if vrSign == 1 {
			rate = -rate
		}
		if vrSrc == 1 {
			m.VRate, m.VRateValid = rate, true
		} else {
			m.GeomRate, m.GeomRateValid = rate, true
		}
	}

	gnssBaroSign := (int(msg[10]) >> 7) & 1
	if mag := int(msg[10]) & 0x7f; mag != 0 {
		delta := (mag - 1) * 25
		if gnssBaroSign == 1 {
			delta = -delta
		}
		m.GeomBaroDelta, m.GeomBaroDeltaValid = delta, true
	}
}

// decodeEmergency decodes the metype 28 subtype 1 aircraft-status
// emergency/priority field (a 3-bit enum: 0 none, 1 general, 2
// lifeguard/medical, 3 minimum fuel, 4 no communications, 5 unlawful
// interference, 6 downed aircraft, 7 reserved).
func decodeEmergency(m *Message, msg []byte) {
	m.Emergency = (int(msg[5]) >> 5) & 0x07
	m.EmergencyValid = true
}

// decodeTargetState decodes the metype 29 subtype 1 target state and
// status message: the MCP/FCU selected altitude and heading, the
// barometric pressure setting, and the engaged autopilot modes.
func decodeTargetState(m *Message, msg []byte) {
	m.TargetStateValid = true

	if altRaw := (int(msg[5])&0x7f)<<4 | (int(msg[6]) >> 4); altRaw != 0 {
		m.SelectedAltitude = (altRaw - 1) * 32
	}

	if qnhRaw := (int(msg[6])&0x0f)<<5 | (int(msg[7]) >> 3); qnhRaw != 0 {
		m.QNH = 800 + float64(qnhRaw-1)*0.1
	}

	if headingStatus := (int(msg[7]) >> 1) & 1; headingStatus != 0 {
		headingRaw := (int(msg[7])&1)<<8 | int(msg[8])
		m.SelectedHeading = float64(headingRaw) * 180.0 / 256.0
		m.SelectedHeadingOK = true
	}

	m.NACp, m.NACpValid = (int(msg[9])>>4)&0x0f, true
	m.NICBaro, m.NICBaroValid = (int(msg[9])>>3)&1 != 0, true
	m.SIL, m.SILValid = (int(msg[9])>>1)&0x03, true

	m.AutopilotEngaged = (int(msg[10])>>7)&1 != 0
	m.VNAVEngaged = (int(msg[10])>>6)&1 != 0
	m.AltHoldEngaged = (int(msg[10])>>5)&1 != 0
	m.ApproachEngaged = (int(msg[10])>>3)&1 != 0
	m.LNAVEngaged = (int(msg[10])>>1)&1 != 0
}

// decodeOperationalStatus decodes the metype 31 operational status
// message (subtype 0 airborne, subtype 1 surface): the ADS-B version
// number, NIC supplement-A, SDA, and the NACp/SIL/GVA integrity fields.
func decodeOperationalStatus(m *Message, msg []byte, sub int) {
	m.OpStatusValid = true
	m.SDA = (int(msg[5]) >> 6) & 0x03
	m.ADSBVersion = (int(msg[9]) >> 5) & 0x07
	m.NICSuppA = (int(msg[9])>>4)&1 != 0
	m.NACp, m.NACpValid = int(msg[9])&0x0f, true
	m.GVA, m.GVAValid = (int(msg[10])>>6)&0x03, true
	m.SIL, m.SILValid = (int(msg[10])>>4)&0x03, true
	m.SILPerHour = (int(msg[10])>>1)&1 == 0
	if sub == 0 {
		m.NICBaro, m.NICBaroValid = (int(msg[10])>>3)&1 != 0, true
	}
}
