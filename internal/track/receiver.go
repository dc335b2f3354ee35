package track

import (
	"sync"
	"time"

	cache "github.com/patrickmn/go-cache"
)

// Receiver is the per-remote-feed reputation record.
type Receiver struct {
	ID          uint64
	GoodCounter int64
	BadCounter  int64

	MinLat, MaxLat float64
	MinLon, MaxLon float64
	haveBounds     bool

	LastSeen time.Time
}

// BadThreshold is the bad-counter threshold above which a receiver's
// messages contribute to the per-message "garbage" flag.
const BadThreshold = 1000

// Garbage reports whether this receiver has accumulated enough bad
// messages to be considered unreliable.
func (r *Receiver) Garbage() bool { return r.BadCounter > BadThreshold }

// SurfaceReference returns the receiver's learned reference point for
// surface CPR decode: the midpoint of its observed lat/lon bounding
// box.
func (r *Receiver) SurfaceReference() (lat, lon float64, ok bool) {
	if !r.haveBounds {
		return 0, 0, false
	}
	return (r.MinLat + r.MaxLat) / 2, (r.MinLon + r.MaxLon) / 2, true
}

func (r *Receiver) observe(lat, lon float64) {
	if !r.haveBounds {
		r.MinLat, r.MaxLat = lat, lat
		r.MinLon, r.MaxLon = lon, lon
		r.haveBounds = true
		return
	}
	if lat < r.MinLat {
		r.MinLat = lat
	}
	if lat > r.MaxLat {
		r.MaxLat = lat
	}
	if lon < r.MinLon {
		r.MinLon = lon
	}
	if lon > r.MaxLon {
		r.MaxLon = lon
	}
}

// RangeHistogram buckets observed ADS-B range.
type RangeHistogram struct {
	BucketWidthM float64
	Buckets      [64]int64
}

func (h *RangeHistogram) Add(rangeM float64) {
	if h.BucketWidthM <= 0 {
		return
	}
	b := int(rangeM / h.BucketWidthM)
	if b < 0 {
		b = 0
	}
	if b >= len(h.Buckets) {
		b = len(h.Buckets) - 1
	}
	h.Buckets[b]++
}

// ReceiverTable maintains per-receiver reputation records: message and
// bad-message counts, observed range, and last-seen time. It uses a
// TTL cache (the same library Regentag-go1090 uses for its ICAO
// recently-seen cache, github.com/patrickmn/go-cache) to age out
// receivers that stop sending traffic, without a dedicated sweep.
type ReceiverTable struct {
	mu    sync.Mutex
	cache *cache.Cache
}

// NewReceiverTable returns a table that expires a receiver after it has
// been silent for idleTTL.
func NewReceiverTable(idleTTL time.Duration) *ReceiverTable {
	return &ReceiverTable{
		cache: cache.New(idleTTL, idleTTL/2),
	}
}

func (t *ReceiverTable) key(id uint64) string {
	// go-cache keys on strings; render the 64-bit id as fixed-width hex
	// so lookups stay allocation-light and collision-free.
	const digits = "0123456789abcdef"
	b := make([]byte, 16)
	for i := 15; i >= 0; i-- {
		b[i] = digits[id&0xF]
		id >>= 4
	}
	return string(b)
}

// GetOrCreate returns the receiver record for id, creating it if this is
// the first time it has been seen.
func (t *ReceiverTable) GetOrCreate(id uint64) *Receiver {
	t.mu.Lock()
	defer t.mu.Unlock()

	k := t.key(id)
	if v, ok := t.cache.Get(k); ok {
		return v.(*Receiver)
	}
	r := &Receiver{ID: id, LastSeen: time.Now()}
	t.cache.SetDefault(k, r)
	return r
}

// Touch records receipt of a message from id, bumping good/bad counters
// and extending the receiver's TTL.
func (t *ReceiverTable) Touch(id uint64, good bool) *Receiver {
	r := t.GetOrCreate(id)
	t.mu.Lock()
	defer t.mu.Unlock()
	if good {
		r.GoodCounter++
	} else {
		r.BadCounter++
	}
	r.LastSeen = time.Now()
	t.cache.SetDefault(t.key(id), r)
	return r
}

// ObservePosition folds a decoded position into the receiver's
// learned reference bounding box.
func (t *ReceiverTable) ObservePosition(id uint64, lat, lon float64) {
	r := t.GetOrCreate(id)
	t.mu.Lock()
	defer t.mu.Unlock()
	r.observe(lat, lon)
}

// Len returns the number of receivers currently tracked (not yet
// expired).
func (t *ReceiverTable) Len() int {
	return t.cache.ItemCount()
}
