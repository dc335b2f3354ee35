package snapshot

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/go1090/trackserver/internal/globeindex"
)

// binCraftSize is the fixed, padded size of one binCraft record in the
// globeBin wire format. Padding keeps every record at a constant
// offset so a reader can seek directly to the Nth aircraft without
// parsing the others.
const binCraftSize = 32

// BinCraft is one aircraft's fixed-size binary position record, a
// trimmed, bit-packed analog of AircraftEntry for the globeBin format.
type BinCraft struct {
	Addr    uint32
	LatE6   int32
	LonE6   int32
	AltFt   int32
	GS10    int16
	Track10 int16
	Flags   uint16
	Squawk  uint16
	SeenS   uint16
}

func (b BinCraft) marshal() []byte {
	buf := make([]byte, binCraftSize)
	binary.LittleEndian.PutUint32(buf[0:4], b.Addr)
	binary.LittleEndian.PutUint32(buf[4:8], uint32(b.LatE6))
	binary.LittleEndian.PutUint32(buf[8:12], uint32(b.LonE6))
	binary.LittleEndian.PutUint32(buf[12:16], uint32(b.AltFt))
	binary.LittleEndian.PutUint16(buf[16:18], uint16(b.GS10))
	binary.LittleEndian.PutUint16(buf[18:20], uint16(b.Track10))
	binary.LittleEndian.PutUint16(buf[20:22], b.Flags)
	binary.LittleEndian.PutUint16(buf[22:24], b.Squawk)
	binary.LittleEndian.PutUint16(buf[24:26], b.SeenS)
	// bytes 26..32 reserved padding.
	return buf
}

// GlobeTileHeader is the little-endian header written at the start of
// each globeBin file.
type GlobeTileHeader struct {
	Now         uint64
	ElementSize uint32
	PosCount    uint32
	Index       uint32
	South       int16
	West        int16
	North       int16
	East        int16
}

// BuildGlobeBin renders one tile's globeBin payload: the header
// followed by posCount binCraft records.
func BuildGlobeBin(nowMs int64, tileIndex int, tile globeindex.Tile, craft []BinCraft) []byte {
	hdr := GlobeTileHeader{
		Now:         uint64(nowMs),
		ElementSize: binCraftSize,
		PosCount:    uint32(len(craft)),
		Index:       uint32(tileIndex),
		South:       int16(tile.South),
		West:        int16(tile.West),
		North:       int16(tile.North),
		East:        int16(tile.East),
	}

	var buf bytes.Buffer
	binary.Write(&buf, binary.LittleEndian, hdr)
	for _, c := range craft {
		buf.Write(c.marshal())
	}
	return buf.Bytes()
}

// WriteGlobeBin writes one tile's globeBin file under
// json_dir/globe_BBBB.binCraft (BBBB being the zero-padded tile index,
// the original C implementation's on-disk naming convention).
func WriteGlobeBin(jsonDir string, nowMs int64, tileIndex int, tile globeindex.Tile, craft []BinCraft) error {
	data := BuildGlobeBin(nowMs, tileIndex, tile, craft)
	path := fmt.Sprintf("%s/globe_%04d.binCraft", jsonDir, tileIndex)
	return writeAtomic(path, data)
}
