package trace

import "sync"

// perAircraft bundles a Ring with its own mutex: each aircraft gets its
// own trace mutex, held by the updater for the duration of an append
// and by the trace writer for the duration of a snapshot.
type perAircraft struct {
	mu   sync.Mutex
	ring *Ring
}

// Store maps an aircraft address to its trace ring. Structural
// changes (creating/removing an aircraft's ring) go through structMu,
// separate from the per-aircraft mutex that guards append/snapshot,
// mirroring internal/track.Store's split between structural and
// per-entity locking.
type Store struct {
	structMu sync.RWMutex
	rings    map[uint32]*perAircraft
}

// NewStore returns an empty trace store.
func NewStore() *Store {
	return &Store{rings: make(map[uint32]*perAircraft)}
}

func (s *Store) entry(addr uint32) *perAircraft {
	s.structMu.RLock()
	pa := s.rings[addr]
	s.structMu.RUnlock()
	if pa != nil {
		return pa
	}

	s.structMu.Lock()
	defer s.structMu.Unlock()
	if pa = s.rings[addr]; pa != nil {
		return pa
	}
	pa = &perAircraft{ring: NewRing()}
	s.rings[addr] = pa
	return pa
}

// Append appends a sample for addr if the sampling rule (Ring.ShouldSample)
// is satisfied, returning whether it actually appended.
func (s *Store) Append(addr uint32, in AppendInput) bool {
	pa := s.entry(addr)
	pa.mu.Lock()
	defer pa.mu.Unlock()

	if !pa.ring.ShouldSample(in) {
		return false
	}
	pa.ring.Append(in)
	return true
}

// WithSnapshot invokes fn with a stable view of addr's entries, holding
// the aircraft's trace mutex for the duration, so a concurrent append
// cannot interleave with the snapshot a trace writer is building.
func (s *Store) WithSnapshot(addr uint32, fn func(entries []Entry)) {
	pa := s.entry(addr)
	pa.mu.Lock()
	defer pa.mu.Unlock()
	fn(pa.ring.Entries())
}

// MarkLegs recomputes leg markers for addr's full trace, taking the
// per-aircraft mutex for the duration; leg markers are rewritten on
// every full-trace write rather than incrementally maintained.
func (s *Store) MarkLegs(addr uint32) {
	pa := s.entry(addr)
	pa.mu.Lock()
	defer pa.mu.Unlock()
	MarkLegs(pa.ring.entries)
}

// Remove drops addr's trace ring entirely, once its aircraft has been
// removed from the store.
func (s *Store) Remove(addr uint32) {
	s.structMu.Lock()
	defer s.structMu.Unlock()
	delete(s.rings, addr)
}

// Addresses returns every address with a live trace ring, for
// bucket-partitioned trace-writer workers to walk.
func (s *Store) Addresses() []uint32 {
	s.structMu.RLock()
	defer s.structMu.RUnlock()
	out := make([]uint32, 0, len(s.rings))
	for addr := range s.rings {
		out = append(out, addr)
	}
	return out
}
