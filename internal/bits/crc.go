package bits

// Mode-S message length/CRC helpers, ported from Regentag-go1090's
// mode_s/decoder.go (modesChecksumTable, modesChecksum,
// fixSingleBitErrors, fixTwoBitsErrors, modesMessageLenByType) and
// generalized to operate without Regentag-go1090's package-global Decoder
// config (fix_errors/aggressive become explicit parameters).

const (
	LongMsgBits   = 112
	ShortMsgBits  = 56
	LongMsgBytes  = LongMsgBits / 8
	ShortMsgBytes = ShortMsgBits / 8
)

var checksumTable = [112]uint32{
	0x3935ea, 0x1c9af5, 0xf1b77e, 0x78dbbf, 0xc397db, 0x9e31e9, 0xb0e2f0, 0x587178,
	0x2c38bc, 0x161c5e, 0x0b0e2f, 0xfa7d13, 0x82c48d, 0xbe9842, 0x5f4c21, 0xd05c14,
	0x682e0a, 0x341705, 0xe5f186, 0x72f8c3, 0xc68665, 0x9cb936, 0x4e5c9b, 0xd8d449,
	0x939020, 0x49c810, 0x24e408, 0x127204, 0x093902, 0x049c81, 0xfdb444, 0x7eda22,
	0x3f6d11, 0xe04c8c, 0x702646, 0x381323, 0xe3f395, 0x8e03ce, 0x4701e7, 0xdc7af7,
	0x91c77f, 0xb719bb, 0xa476d9, 0xadc168, 0x56e0b4, 0x2b705a, 0x15b82d, 0xf52612,
	0x7a9309, 0xc2b380, 0x6159c0, 0x30ace0, 0x185670, 0x0c2b38, 0x06159c, 0x030ace,
	0x018567, 0xff38b7, 0x80665f, 0xbfc92b, 0xa01e91, 0xaff54c, 0x57faa6, 0x2bfd53,
	0xea04ad, 0x8af852, 0x457c29, 0xdd4410, 0x6ea208, 0x375104, 0x1ba882, 0x0dd441,
	0xf91024, 0x7c8812, 0x3e4409, 0xe0d800, 0x706c00, 0x383600, 0x1c1b00, 0x0e0d80,
	0x0706c0, 0x038360, 0x01c1b0, 0x00e0d8, 0x00706c, 0x003836, 0x001c1b, 0xfff409,
	0x000000, 0x000000, 0x000000, 0x000000, 0x000000, 0x000000, 0x000000, 0x000000,
	0x000000, 0x000000, 0x000000, 0x000000, 0x000000, 0x000000, 0x000000, 0x000000,
	0x000000, 0x000000, 0x000000, 0x000000, 0x000000, 0x000000, 0x000000, 0x000000,
}

// MessageLenByType returns the wire length in bits of a Mode-S message
// with the given downlink format, per Regentag-go1090's
// modesMessageLenByType.
func MessageLenByType(df int) int {
	switch df {
	case 16, 17, 19, 20, 21:
		return LongMsgBits
	default:
		return ShortMsgBits
	}
}

// Checksum computes the 24-bit Mode-S CRC over the first bits bits of
// msg (modesChecksum in Regentag-go1090).
func Checksum(msg []byte, bitsLen int) uint32 {
	var crc uint32
	// The table offset follows the message's own length (len(msg));
	// bitsLen only limits how many leading bits are summed.
	offset := LongMsgBits - len(msg)*8
	if offset < 0 {
		offset = 0
	}
	for j := 0; j < bitsLen; j++ {
		sByte := j / 8
		sBit := byte(j) % 8
		mask := byte(1) << (7 - sBit)
		if msg[sByte]&mask != 0 {
			crc ^= checksumTable[j+offset]
		}
	}
	return crc
}

// FixSingleBitError attempts single-bit error correction using the CRC,
// mutating msg in place on success and returning the corrected bit
// position, or -1 if no single-bit fix restores a valid checksum.
func FixSingleBitError(msg []byte, bitsLen int) int {
	msgBytes := bitsLen / 8
	aux := make([]byte, msgBytes)

	for j := 0; j < bitsLen; j++ {
		sByte := j / 8
		mask := byte(1) << (7 - (j % 8))

		copy(aux, msg)
		aux[sByte] ^= mask

		crc1 := uint32(aux[msgBytes-3])<<16 | uint32(aux[msgBytes-2])<<8 | uint32(aux[msgBytes-1])
		crc2 := Checksum(aux, bitsLen)

		if crc1 == crc2 {
			copy(msg, aux)
			return j
		}
	}
	return -1
}

// FixTwoBitErrors is the two-bit analog of FixSingleBitError. It is
// O(bits^2) and, per Regentag-go1090's comment, should only be attempted on
// DF17 in aggressive mode.
func FixTwoBitErrors(msg []byte, bitsLen int) int {
	msgBytes := bitsLen / 8
	aux := make([]byte, msgBytes)

	for j := 0; j < bitsLen; j++ {
		byte1 := j / 8
		mask1 := byte(1) << (7 - (j % 8))

		for i := j + 1; i < bitsLen; i++ {
			byte2 := i / 8
			mask2 := byte(1) << (7 - (i % 8))

			copy(aux, msg)
			aux[byte1] ^= mask1
			aux[byte2] ^= mask2

			crc1 := uint32(aux[msgBytes-3])<<16 | uint32(aux[msgBytes-2])<<8 | uint32(aux[msgBytes-1])
			crc2 := Checksum(aux, bitsLen)

			if crc1 == crc2 {
				copy(msg, aux)
				return j | (i << 8)
			}
		}
	}
	return -1
}
