package data

import "fmt"

// TileKind is the terrain stored in one grid cell.
// The numeric values are the codes used by the map text format.
type TileKind uint8

const (
	TileEmpty TileKind = 0
	TileFloor TileKind = 1
	TileWall  TileKind = 2
	TileWater TileKind = 3
)

func (k TileKind) String() string {
	switch k {
	case TileEmpty:
		return "empty"
	case TileFloor:
		return "floor"
	case TileWall:
		return "wall"
	case TileWater:
		return "water"
	}
	return "unknown"
}

// Valid reports whether k is one of the known tile kinds.
func (k TileKind) Valid() bool {
	return k <= TileWater
}

// MaxCells caps width*height of maps read from files or built from config
// (64M cells, 64MB of tiles).
const MaxCells = 1 << 26

// CheckSize reports whether a width×height map is positive and within
// MaxCells.
func CheckSize(width, height int64) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("invalid map size %dx%d", width, height)
	}
	if width > MaxCells || height > MaxCells || width*height > MaxCells {
		return fmt.Errorf("map size %dx%d exceeds %d cells", width, height, MaxCells)
	}
	return nil
}

// GridMap is a flat row-major tile grid: cells[y*Width + x].
// Reads outside the grid resolve to TileEmpty; writes outside are ignored.
// Not safe for concurrent mutation.
type GridMap struct {
	Name   string
	Width  int32
	Height int32
	cells  []TileKind
}

// NewGridMap allocates a width×height grid filled with TileEmpty.
// Non-positive dimensions are clamped to 1.
func NewGridMap(name string, width, height int32) *GridMap {
	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}
	return &GridMap{
		Name:   name,
		Width:  width,
		Height: height,
		cells:  make([]TileKind, int(width)*int(height)),
	}
}

// NewGridMapFromCells wraps an existing cell buffer without copying.
// Returns nil if len(cells) != width*height.
func NewGridMapFromCells(name string, width, height int32, cells []TileKind) *GridMap {
	if width < 1 || height < 1 || len(cells) != int(width)*int(height) {
		return nil
	}
	return &GridMap{Name: name, Width: width, Height: height, cells: cells}
}

// InBounds reports whether (x,y) addresses a cell of the grid.
func (m *GridMap) InBounds(x, y int32) bool {
	return x >= 0 && y >= 0 && x < m.Width && y < m.Height
}

func (m *GridMap) index(x, y int32) int {
	return int(y)*int(m.Width) + int(x)
}

// Get returns the tile at (x,y), or TileEmpty when out of bounds.
func (m *GridMap) Get(x, y int32) TileKind {
	if !m.InBounds(x, y) {
		return TileEmpty
	}
	return m.cells[m.index(x, y)]
}

// GetUnchecked returns the tile at (x,y). The caller guarantees InBounds.
func (m *GridMap) GetUnchecked(x, y int32) TileKind {
	return m.cells[m.index(x, y)]
}

// Set writes the tile at (x,y). Out-of-bounds writes are ignored.
func (m *GridMap) Set(x, y int32, kind TileKind) {
	if !m.InBounds(x, y) {
		return
	}
	m.cells[m.index(x, y)] = kind
}

// Fill sets every cell to kind.
func (m *GridMap) Fill(kind TileKind) {
	for i := range m.cells {
		m.cells[i] = kind
	}
}

// Count returns how many cells hold kind.
func (m *GridMap) Count(kind TileKind) int {
	n := 0
	for _, c := range m.cells {
		if c == kind {
			n++
		}
	}
	return n
}

// Cells exposes the backing buffer (row-major). Callers must not resize it.
func (m *GridMap) Cells() []TileKind {
	return m.cells
}
