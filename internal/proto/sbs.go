package proto

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// SBS transmission types, per the Basestation protocol (generalized
// from other_examples' saviobatista-go1090 basestation.go).
const (
	SBSTransmissionIDCat          = 1
	SBSTransmissionSurface        = 2
	SBSTransmissionAirborne       = 3
	SBSTransmissionVelocity       = 4
	SBSTransmissionSurveillance   = 5
	SBSTransmissionSurveillanceID = 6
	SBSTransmissionAirToAir       = 7
	SBSTransmissionAllCall        = 8
)

// SBSPortFlavor selects the port-specific field convention: a plain
// SBS listener, the MLAT-tagged variant (session id fixed to a
// sentinel so clients can tell multilateration apart), the PRIO
// variant (masquerades as an ADS-B source), and the JAERO
// satellite-feed variant.
type SBSPortFlavor int

const (
	SBSPlain SBSPortFlavor = iota
	SBSMLAT
	SBSPrio
	SBSJAERO
)

func (f SBSPortFlavor) sessionID() int {
	switch f {
	case SBSMLAT:
		return 2
	case SBSPrio:
		return 3
	case SBSJAERO:
		return 4
	default:
		return 1
	}
}

// SBSMessage is one Basestation "MSG" line's 22 comma-separated fields.
type SBSMessage struct {
	TransmissionType int
	SessionID        int
	AircraftID       int
	HexIdent         string
	FlightID         int
	DateGenerated    time.Time
	DateLogged       time.Time
	Callsign         string
	Altitude         *int
	GroundSpeed      *float64
	Track            *float64
	Lat, Lon         *float64
	VerticalRate     *int
	Squawk           string
	Alert            bool
	Emergency        bool
	SPI              bool
	OnGround         bool
}

// EncodeSBS renders m as a Basestation "MSG,..." CSV line (no trailing
// newline), using flavor's session-id convention to signal the source.
func EncodeSBS(m SBSMessage, flavor SBSPortFlavor) string {
	m.SessionID = flavor.sessionID()

	fInt := func(p *int) string {
		if p == nil {
			return ""
		}
		return strconv.Itoa(*p)
	}
	fFloat := func(p *float64, prec int) string {
		if p == nil {
			return ""
		}
		return strconv.FormatFloat(*p, 'f', prec, 64)
	}
	fBool := func(b bool) string {
		if b {
			return "1"
		}
		return "0"
	}

	fields := []string{
		"MSG",
		strconv.Itoa(m.TransmissionType),
		strconv.Itoa(m.SessionID),
		strconv.Itoa(m.AircraftID),
		m.HexIdent,
		strconv.Itoa(m.FlightID),
		m.DateGenerated.Format("2006/01/02"),
		m.DateGenerated.Format("15:04:05.000"),
		m.DateLogged.Format("2006/01/02"),
		m.DateLogged.Format("15:04:05.000"),
		m.Callsign,
		fInt(m.Altitude),
		fFloat(m.GroundSpeed, 1),
		fFloat(m.Track, 1),
		fFloat(m.Lat, 6),
		fFloat(m.Lon, 6),
		fInt(m.VerticalRate),
		m.Squawk,
		fBool(m.Alert),
		fBool(m.Emergency),
		fBool(m.SPI),
		fBool(m.OnGround),
	}
	return strings.Join(fields, ",")
}

// DecodeSBS parses one Basestation "MSG,..." CSV line.
func DecodeSBS(line string) (*SBSMessage, error) {
	fields := strings.Split(strings.TrimRight(line, "\r\n"), ",")
	if len(fields) < 22 {
		return nil, fmt.Errorf("proto: sbs: expected 22 fields, got %d", len(fields))
	}
	if fields[0] != "MSG" {
		return nil, fmt.Errorf("proto: sbs: unsupported message type %q", fields[0])
	}

	m := &SBSMessage{HexIdent: fields[4], Callsign: strings.TrimSpace(fields[10]), Squawk: fields[17]}

	m.TransmissionType, _ = strconv.Atoi(fields[1])
	m.SessionID, _ = strconv.Atoi(fields[2])
	m.AircraftID, _ = strconv.Atoi(fields[3])
	m.FlightID, _ = strconv.Atoi(fields[5])

	if dg, err := time.Parse("2006/01/02 15:04:05.000", fields[6]+" "+fields[7]); err == nil {
		m.DateGenerated = dg
	}
	if dl, err := time.Parse("2006/01/02 15:04:05.000", fields[8]+" "+fields[9]); err == nil {
		m.DateLogged = dl
	}

	m.Altitude = parseIntField(fields[11])
	m.GroundSpeed = parseFloatField(fields[12])
	m.Track = parseFloatField(fields[13])
	m.Lat = parseFloatField(fields[14])
	m.Lon = parseFloatField(fields[15])
	m.VerticalRate = parseIntField(fields[16])
	m.Alert = fields[18] == "1"
	m.Emergency = fields[19] == "1"
	m.SPI = fields[20] == "1"
	m.OnGround = fields[21] == "1"

	return m, nil
}

func parseIntField(s string) *int {
	if s == "" {
		return nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return nil
	}
	return &v
}

func parseFloatField(s string) *float64 {
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}
