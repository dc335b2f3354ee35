package proto

import (
	"bytes"
	"encoding/hex"
	"fmt"
)

// AVRReader incrementally splits a raw-hex AVR stream ("*8d4840d6...;\n"
// framed messages) into individual hex payloads, the "AVR/raw" format
// Regentag-go1090's main.go consumes from an RTL-SDR companion tool.
type AVRReader struct {
	buf []byte
}

// NewAVRReader returns an empty incremental AVR line reader.
func NewAVRReader() *AVRReader { return &AVRReader{} }

// Feed appends newly read bytes and returns the raw Mode-S bytes for
// every complete "*...;" frame found.
func (r *AVRReader) Feed(data []byte) ([][]byte, error) {
	r.buf = append(r.buf, data...)

	var out [][]byte
	for {
		start := bytes.IndexByte(r.buf, '*')
		if start == -1 {
			r.buf = nil
			break
		}
		end := bytes.IndexByte(r.buf[start:], ';')
		if end == -1 {
			r.buf = r.buf[start:]
			break
		}
		hexStr := r.buf[start+1 : start+end]
		r.buf = r.buf[start+end+1:]

		msg, err := hex.DecodeString(string(bytes.TrimSpace(hexStr)))
		if err != nil {
			return out, fmt.Errorf("proto: avr: bad hex frame: %w", err)
		}
		out = append(out, msg)
	}
	return out, nil
}

// EncodeAVR renders msg as a "*<hex>;\n" AVR frame.
func EncodeAVR(msg []byte) []byte {
	out := make([]byte, 0, len(msg)*2+3)
	out = append(out, '*')
	out = append(out, []byte(fmt.Sprintf("%X", msg))...)
	out = append(out, ';', '\n')
	return out
}
