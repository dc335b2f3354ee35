package bits

// Altitude field decoders, ported from Regentag-go1090's decodeAC13Field and
// decodeAC12Field (mode_s/decoder.go).

const (
	UnitFeet = iota
	UnitMeters
)

// DecodeAC13Field decodes the 13-bit AC altitude field used by DF0/4/16/20.
func DecodeAC13Field(msg []byte) (altitude, unit int) {
	mBit := msg[3] & (1 << 6)
	qBit := msg[3] & (1 << 4)

	if mBit == 0 {
		unit = UnitFeet
		if qBit != 0 {
			n := (int(msg[2]&31) << 6) |
				(int(msg[3]&0x80) >> 2) |
				(int(msg[3]&0x20) >> 1) |
				int(msg[3]&15)
			altitude = n*25 - 1000
		}
		// Q=0, M=0 (Gillham-coded altitude) is not decoded, matching
		// Regentag-go1090's own explicit TODO in decodeAC13Field.
	} else {
		unit = UnitMeters
	}
	return
}

// DecodeAC12Field decodes the 12-bit AC altitude field used by DF17/18
// airborne position messages.
func DecodeAC12Field(msg []byte, fallbackUnit int) (altitude, unit int) {
	qBit := msg[5] & 1
	if qBit != 0 {
		unit = UnitFeet
		n := (int(msg[5]>>1) << 4) | int((msg[6]&0xF0)>>4)
		altitude = n*25 - 1000
	} else {
		unit = fallbackUnit
	}
	return
}
