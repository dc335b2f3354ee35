package console

import (
	"testing"

	"github.com/go1090/trackserver/internal/track"
)

func TestSortedAircraftOrdersByAddress(t *testing.T) {
	a := track.NewAircraft(0x300000, 0)
	b := track.NewAircraft(0x100000, 0)
	c := track.NewAircraft(0x200000, 0)

	got := sortedAircraft([]*track.Aircraft{a, b, c})
	if len(got) != 3 || got[0].Addr != 0x100000 || got[1].Addr != 0x200000 || got[2].Addr != 0x300000 {
		t.Fatalf("sortedAircraft did not order by address: %+v", got)
	}
}
