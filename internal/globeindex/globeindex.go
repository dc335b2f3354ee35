// Package globeindex implements a globe tile decomposition: a small
// list of named regions searched first, falling back to a regular
// lat/lon grid. Ported from original_source/globe_index.c's
// globe_index()/globe_index_index(), generalized so the tile list is
// runtime configuration (loaded via SetTiles) rather than compiled in.
package globeindex

// Grid is GLOBE_INDEX_GRID from the reference: the regular-grid cell
// size in degrees.
const Grid = 15

// LatMult is GLOBE_LAT_MULT: the multiplier used to fold a 2D grid
// (lat,lon) cell into a single integer index.
const LatMult = 360 / Grid

// SpecialReserved is GLOBE_SPECIAL_INDEX: indices below this are
// reserved for the named tile list; the regular grid starts at 1000.
const SpecialReserved = 1000

// Tile is one named region of the special tile list. West > East means
// the tile wraps the antimeridian.
type Tile struct {
	Name                     string
	South, West, North, East int
}

// DefaultTiles is a reasonable starting configuration mirroring the
// named regions readsb ships (continent-scale boxes); operators are
// expected to load their own list via Index.SetTiles.
var DefaultTiles = []Tile{
	{Name: "north-america", South: 15, West: -170, North: 75, East: -50},
	{Name: "south-america", South: -60, West: -90, North: 15, East: -30},
	{Name: "europe", South: 35, West: -15, North: 72, East: 40},
	{Name: "africa", South: -35, West: -20, North: 38, East: 52},
	{Name: "middle-east", South: 12, West: 35, North: 42, East: 65},
	{Name: "south-asia", South: 5, West: 60, North: 40, East: 100},
	{Name: "east-asia", South: 0, West: 100, North: 55, East: 150},
	{Name: "oceania", South: -50, West: 100, North: 0, East: -170}, // wraps antimeridian
}

// Index is the tile index: named tiles plus the regular grid.
type Index struct {
	tiles []Tile
}

// NewIndex returns an Index seeded with tiles (use DefaultTiles if the
// caller has no operator-supplied configuration).
func NewIndex(tiles []Tile) *Index {
	idx := &Index{}
	idx.SetTiles(tiles)
	return idx
}

// SetTiles replaces the named tile list at runtime (e.g. on config
// reload).
func (idx *Index) SetTiles(tiles []Tile) {
	idx.tiles = append([]Tile(nil), tiles...)
}

// Of returns the tile id containing (lat, lon): the named list is
// searched first (in order), then the regular grid. Named tiles whose
// West > East wrap the antimeridian.
func (idx *Index) Of(latIn, lonIn float64) int {
	lat := Grid*int((latIn+90)/Grid) - 90
	lon := Grid*int((lonIn+180)/Grid) - 180

	for i, t := range idx.tiles {
		if lat >= t.South && lat < t.North {
			if t.West < t.East && lon >= t.West && lon < t.East {
				return i
			}
			if t.West > t.East && (lon >= t.West || lon < t.East) {
				return i
			}
		}
	}

	i := (lat + 90) / Grid
	j := (lon + 180) / Grid
	return i*LatMult + j + SpecialReserved
}

// Inverse re-derives the representative lat/lon of regular-grid tile
// `index` and looks it up again (globe_index_index in the reference).
// For a reachable grid index this is idempotent: idx.Inverse(i) == i.
// Named/special tile ids (< SpecialReserved) have no grid coordinate to
// derive from and are returned unchanged.
func (idx *Index) Inverse(index int) int {
	if index < SpecialReserved {
		return index
	}
	lat := float64((index-SpecialReserved)/LatMult)*Grid - 90
	lon := float64((index-SpecialReserved)%LatMult)*Grid - 180
	return idx.Of(lat, lon)
}
