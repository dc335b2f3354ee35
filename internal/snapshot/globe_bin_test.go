package snapshot

import (
	"encoding/binary"
	"testing"

	"github.com/go1090/trackserver/internal/globeindex"
)

func TestBuildGlobeBinHeaderAndRecordLayout(t *testing.T) {
	tile := globeindex.Tile{Name: "test", South: -10, West: -20, North: 10, East: 20}
	craft := []BinCraft{
		{Addr: 0x4840D6, LatE6: 51_500_000, LonE6: -100_000, AltFt: 35000, GS10: 4120, Track10: 2715},
		{Addr: 0x123456, LatE6: 40_000_000, LonE6: 0, AltFt: 1000},
	}

	data := BuildGlobeBin(123456789, 3, tile, craft)

	hdrSize := 8 + 4 + 4 + 4 + 2 + 2 + 2 + 2
	if len(data) != hdrSize+len(craft)*binCraftSize {
		t.Fatalf("len(data) = %d, want %d", len(data), hdrSize+len(craft)*binCraftSize)
	}

	now := binary.LittleEndian.Uint64(data[0:8])
	if now != 123456789 {
		t.Errorf("now = %d, want 123456789", now)
	}
	elementSize := binary.LittleEndian.Uint32(data[8:12])
	if elementSize != binCraftSize {
		t.Errorf("elementSize = %d, want %d", elementSize, binCraftSize)
	}
	posCount := binary.LittleEndian.Uint32(data[12:16])
	if posCount != uint32(len(craft)) {
		t.Errorf("posCount = %d, want %d", posCount, len(craft))
	}
	idx := binary.LittleEndian.Uint32(data[16:20])
	if idx != 3 {
		t.Errorf("index = %d, want 3", idx)
	}

	firstRecord := data[hdrSize : hdrSize+binCraftSize]
	addr := binary.LittleEndian.Uint32(firstRecord[0:4])
	if addr != 0x4840D6 {
		t.Errorf("first record addr = %#x, want %#x", addr, 0x4840D6)
	}
}

func TestWriteGlobeBinAtomic(t *testing.T) {
	dir := t.TempDir()
	tile := globeindex.Tile{Name: "t", South: 0, West: 0, North: 10, East: 10}
	if err := WriteGlobeBin(dir, 1000, 0, tile, []BinCraft{{Addr: 1}}); err != nil {
		t.Fatalf("WriteGlobeBin: %v", err)
	}
}
