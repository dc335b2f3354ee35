package netio

import "github.com/go1090/trackserver/internal/proto"

// frameDecoder adapts internal/proto's per-protocol incremental readers
// (each with a slightly different Feed signature) to one shape the
// read loop can drive uniformly.
type frameDecoder interface {
	feed(data []byte) (frames [][]byte, garbage int)
	shouldDisconnect() bool
}

func newFrameDecoder(p Protocol) frameDecoder {
	switch p {
	case ProtoBeast:
		return &beastDecoder{r: proto.NewBeastReader()}
	case ProtoSBS:
		return &lineDecoder{}
	default:
		return &avrDecoder{r: proto.NewAVRReader()}
	}
}

type beastDecoder struct {
	r *proto.BeastReader
}

func (d *beastDecoder) feed(data []byte) ([][]byte, int) {
	frames := d.r.Feed(data)
	out := make([][]byte, 0, len(frames))
	for _, f := range frames {
		out = append(out, f.Payload)
	}
	return out, 0
}

func (d *beastDecoder) shouldDisconnect() bool { return d.r.Disconnect }

type avrDecoder struct {
	r *proto.AVRReader
}

func (d *avrDecoder) feed(data []byte) ([][]byte, int) {
	frames, err := d.r.Feed(data)
	if err != nil {
		return frames, 1
	}
	return frames, 0
}

func (d *avrDecoder) shouldDisconnect() bool { return false }

// lineDecoder splits SBS's newline-delimited CSV text into raw lines;
// internal/proto.DecodeSBS parses each line independently, so framing
// here is just "split on \n".
type lineDecoder struct {
	buf []byte
}

func (d *lineDecoder) feed(data []byte) ([][]byte, int) {
	d.buf = append(d.buf, data...)

	var out [][]byte
	for {
		idx := -1
		for i, b := range d.buf {
			if b == '\n' {
				idx = i
				break
			}
		}
		if idx == -1 {
			break
		}
		line := d.buf[:idx]
		d.buf = d.buf[idx+1:]
		if len(line) > 0 {
			out = append(out, line)
		}
	}
	return out, 0
}

func (d *lineDecoder) shouldDisconnect() bool { return false }
