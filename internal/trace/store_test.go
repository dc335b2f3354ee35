package trace

import "testing"

func TestStoreAppendCreatesRingLazily(t *testing.T) {
	s := NewStore()
	ok := s.Append(1, AppendInput{Reliable: true, NowMs: 1000})
	if !ok {
		t.Fatal("Append should succeed for a fresh aircraft's first sample")
	}

	addrs := s.Addresses()
	if len(addrs) != 1 || addrs[0] != 1 {
		t.Errorf("Addresses() = %v, want [1]", addrs)
	}
}

func TestStoreAppendRespectsShouldSample(t *testing.T) {
	s := NewStore()
	s.Append(1, AppendInput{Reliable: true, NowMs: 0})

	ok := s.Append(1, AppendInput{Reliable: true, NowMs: 1000})
	if ok {
		t.Error("Append should return false when ShouldSample rejects the sample")
	}
}

func TestStoreWithSnapshotSeesAppendedEntries(t *testing.T) {
	s := NewStore()
	s.Append(1, AppendInput{Reliable: true, NowMs: 0})

	var n int
	s.WithSnapshot(1, func(entries []Entry) { n = len(entries) })
	if n != 1 {
		t.Errorf("WithSnapshot saw %d entries, want 1", n)
	}
}

func TestStoreRemoveDropsAddress(t *testing.T) {
	s := NewStore()
	s.Append(1, AppendInput{Reliable: true, NowMs: 0})
	s.Remove(1)

	if len(s.Addresses()) != 0 {
		t.Errorf("Addresses() after Remove = %v, want empty", s.Addresses())
	}
}

func TestStoreMarkLegsOperatesOnStoredRing(t *testing.T) {
	s := NewStore()
	s.Append(1, AppendInput{Reliable: true, NowMs: 0, AltitudeValid: true, AltitudeFt: 5000, OnGround: false})
	s.Append(1, AppendInput{Reliable: true, NowMs: 30 * 60 * 1000, AltitudeValid: true, AltitudeFt: 0, OnGround: true})

	s.MarkLegs(1)

	var marked bool
	s.WithSnapshot(1, func(entries []Entry) {
		for _, e := range entries {
			if e.Flags.LegMarker {
				marked = true
			}
		}
	})
	if !marked {
		t.Error("MarkLegs should have set a leg marker for this airborne-to-ground gap")
	}
}
