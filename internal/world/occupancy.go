package world

// PackCoord packs a signed tile coordinate into one collision-free key.
// Each int32 is reinterpreted as uint32 before packing so negative
// coordinates keep distinct keys.
func PackCoord(x, y int32) uint64 {
	return uint64(uint32(x))<<32 | uint64(uint32(y))
}

// UnpackCoord is the inverse of PackCoord.
func UnpackCoord(key uint64) (x, y int32) {
	return int32(uint32(key >> 32)), int32(uint32(key))
}

// OccupancyMap is a tile occupancy set for O(1) collision checks.
// It tracks coordinates only; which actor sits on a tile is the caller's
// business. Single-writer: concurrent readers are fine while nobody writes.
// The zero value is an empty set, and a nil *OccupancyMap reads as empty.
type OccupancyMap struct {
	tiles map[uint64]struct{}
}

func NewOccupancyMap() *OccupancyMap {
	return &OccupancyMap{tiles: make(map[uint64]struct{})}
}

// IsOccupied returns true if the tile is marked occupied.
func (o *OccupancyMap) IsOccupied(x, y int32) bool {
	if o == nil {
		return false
	}
	_, ok := o.tiles[PackCoord(x, y)]
	return ok
}

// SetOccupied marks a tile occupied. Marking twice is a no-op.
func (o *OccupancyMap) SetOccupied(x, y int32) {
	if o.tiles == nil {
		o.tiles = make(map[uint64]struct{})
	}
	o.tiles[PackCoord(x, y)] = struct{}{}
}

// SetUnoccupied clears a tile. Clearing a free tile is a no-op.
func (o *OccupancyMap) SetUnoccupied(x, y int32) {
	delete(o.tiles, PackCoord(x, y))
}

// Move vacates the old tile and occupies the new one. The old tile is not
// checked; the new tile is always occupied afterwards.
func (o *OccupancyMap) Move(fromX, fromY, toX, toY int32) {
	o.SetUnoccupied(fromX, fromY)
	o.SetOccupied(toX, toY)
}

// Clear drops every entry (level load).
func (o *OccupancyMap) Clear() {
	clear(o.tiles)
}

// Reserve pre-sizes the set for about n entries. Existing entries are kept.
func (o *OccupancyMap) Reserve(n int) {
	if n <= len(o.tiles) {
		return
	}
	grown := make(map[uint64]struct{}, n)
	for k := range o.tiles {
		grown[k] = struct{}{}
	}
	o.tiles = grown
}

// Len returns the number of occupied tiles.
func (o *OccupancyMap) Len() int {
	if o == nil {
		return 0
	}
	return len(o.tiles)
}
