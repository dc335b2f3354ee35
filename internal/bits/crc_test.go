package bits

import "testing"

func TestMessageLenByType(t *testing.T) {
	testCases := []struct {
		name string
		df   int
		want int
	}{
		{"df16_long", 16, LongMsgBits},
		{"df17_long", 17, LongMsgBits},
		{"df19_long", 19, LongMsgBits},
		{"df20_long", 20, LongMsgBits},
		{"df21_long", 21, LongMsgBits},
		{"df0_short", 0, ShortMsgBits},
		{"df4_short", 4, ShortMsgBits},
		{"df11_short", 11, ShortMsgBits},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := MessageLenByType(tc.df); got != tc.want {
				t.Errorf("MessageLenByType(%d) = %d, want %d", tc.df, got, tc.want)
			}
		})
	}
}

func TestChecksumZeroMessage(t *testing.T) {
	msg := make([]byte, LongMsgBytes)
	if got := Checksum(msg, LongMsgBits); got != 0 {
		t.Errorf("Checksum(all-zero) = %x, want 0", got)
	}
}

func TestFixSingleBitError(t *testing.T) {
	msg := make([]byte, LongMsgBytes)
	msg[0] = 0x8d
	msg[1] = 0x48
	msg[2] = 0x44
	msg[3] = 0xd2

	crc := Checksum(msg, LongMsgBits-24)
	msg[LongMsgBytes-3] = byte(crc >> 16)
	msg[LongMsgBytes-2] = byte(crc >> 8)
	msg[LongMsgBytes-1] = byte(crc)

	corrupted := make([]byte, LongMsgBytes)
	copy(corrupted, msg)
	corrupted[5] ^= 1 << 3

	bitPos := FixSingleBitError(corrupted, LongMsgBits)
	if bitPos < 0 {
		t.Fatalf("FixSingleBitError returned -1, want a corrected bit position")
	}
	for i := range msg {
		if msg[i] != corrupted[i] {
			t.Errorf("byte %d: got %x, want %x after correction", i, corrupted[i], msg[i])
		}
	}
}

func TestFixSingleBitErrorNoFix(t *testing.T) {
	msg := make([]byte, LongMsgBytes)
	msg[0] = 0xff
	msg[1] = 0xff
	if got := FixSingleBitError(msg, LongMsgBits); got != -1 {
		t.Errorf("FixSingleBitError(garbage) = %d, want -1", got)
	}
}

func TestFixTwoBitErrors(t *testing.T) {
	msg := make([]byte, LongMsgBytes)
	msg[0] = 0x8d
	msg[1] = 0x48
	msg[2] = 0x44
	msg[3] = 0xd2

	crc := Checksum(msg, LongMsgBits-24)
	msg[LongMsgBytes-3] = byte(crc >> 16)
	msg[LongMsgBytes-2] = byte(crc >> 8)
	msg[LongMsgBytes-1] = byte(crc)

	corrupted := make([]byte, LongMsgBytes)
	copy(corrupted, msg)
	corrupted[5] ^= 1 << 3
	corrupted[7] ^= 1 << 1

	result := FixTwoBitErrors(corrupted, LongMsgBits)
	if result < 0 {
		t.Fatalf("FixTwoBitErrors returned -1, want a corrected bit pair")
	}
	for i := range msg {
		if msg[i] != corrupted[i] {
			t.Errorf("byte %d: got %x, want %x after correction", i, corrupted[i], msg[i])
		}
	}
}
