package track

import "testing"

func TestGetOrCreateCreatesOnce(t *testing.T) {
	s := NewStore()

	ac1, created1 := s.GetOrCreate(0xABCDEF, 1000)
	if !created1 {
		t.Fatal("first GetOrCreate should report created=true")
	}
	if ac1.Addr != 0xABCDEF {
		t.Errorf("Addr = %x, want abcdef", ac1.Addr)
	}

	ac2, created2 := s.GetOrCreate(0xABCDEF, 2000)
	if created2 {
		t.Fatal("second GetOrCreate for the same address should report created=false")
	}
	if ac1 != ac2 {
		t.Fatal("GetOrCreate returned a different pointer for the same address")
	}
}

func TestGetMissing(t *testing.T) {
	s := NewStore()
	if got := s.Get(0x123456); got != nil {
		t.Errorf("Get(unknown) = %v, want nil", got)
	}
}

func TestDeleteRemovesFromMapAndBucketChain(t *testing.T) {
	s := NewStore()
	s.GetOrCreate(1, 0)
	s.GetOrCreate(2, 0)
	s.GetOrCreate(1+NumBuckets, 0) // shares bucket 1's chain

	s.Delete(1)

	if s.Get(1) != nil {
		t.Error("Get(1) still returns an aircraft after Delete")
	}
	if s.Len() != 2 {
		t.Errorf("Len() = %d, want 2", s.Len())
	}

	var seen []uint32
	s.WalkBucket(bucketOf(1), func(ac *Aircraft) { seen = append(seen, ac.Addr) })
	if len(seen) != 1 || seen[0] != 1+NumBuckets {
		t.Errorf("bucket chain after delete = %v, want [%d]", seen, 1+NumBuckets)
	}
}

func TestDeleteHeadOfChain(t *testing.T) {
	s := NewStore()
	s.GetOrCreate(5, 0)
	s.Delete(5)
	if s.Get(5) != nil {
		t.Error("Get(5) still returns an aircraft after deleting the sole bucket entry")
	}
}

func TestSnapshotLength(t *testing.T) {
	s := NewStore()
	for _, addr := range []uint32{1, 2, 3} {
		s.GetOrCreate(addr, 0)
	}
	if got := len(s.Snapshot()); got != 3 {
		t.Errorf("len(Snapshot()) = %d, want 3", got)
	}
}

func TestBucketRangeCoversAllBuckets(t *testing.T) {
	const workers = 7
	seen := make(map[int]bool)
	for w := 0; w < workers; w++ {
		start, end := BucketRange(w, workers)
		for b := start; b < end; b++ {
			if seen[b] {
				t.Fatalf("bucket %d assigned to more than one worker", b)
			}
			seen[b] = true
		}
	}
	if len(seen) != NumBuckets {
		t.Errorf("BucketRange covered %d buckets, want %d", len(seen), NumBuckets)
	}
}

func TestBucketRangeSingleWorker(t *testing.T) {
	start, end := BucketRange(0, 1)
	if start != 0 || end != NumBuckets {
		t.Errorf("BucketRange(0,1) = (%d,%d), want (0,%d)", start, end, NumBuckets)
	}
}

func TestBucketRangeZeroWorkersClampsToOne(t *testing.T) {
	start, end := BucketRange(0, 0)
	if start != 0 || end != NumBuckets {
		t.Errorf("BucketRange(0,0) = (%d,%d), want (0,%d)", start, end, NumBuckets)
	}
}
