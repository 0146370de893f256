package pathfind

import (
	"math"

	"github.com/l1jgo/gridnav/internal/data"
)

// Point is a tile coordinate. Paths are sequences of Points.
type Point struct {
	X, Y int32
}

// Step costs. Diagonal uses the exact sqrt(2) so that two orthogonal steps
// (2.0) always lose against one diagonal step.
const (
	CostOrthogonal = 1.0
	CostDiagonal   = math.Sqrt2
)

// Occupancy reports tiles blocked by mobile actors.
// *world.OccupancyMap satisfies it.
type Occupancy interface {
	IsOccupied(x, y int32) bool
}

type neighbor struct {
	dx, dy   int32
	cost     float64
	diagonal bool
}

// Orthogonals first so equal-f expansions prefer straight steps.
var neighborOffsets = [8]neighbor{
	{0, -1, CostOrthogonal, false},
	{1, 0, CostOrthogonal, false},
	{0, 1, CostOrthogonal, false},
	{-1, 0, CostOrthogonal, false},
	{1, -1, CostDiagonal, true},
	{1, 1, CostDiagonal, true},
	{-1, 1, CostDiagonal, true},
	{-1, -1, CostDiagonal, true},
}

// IsTileWalkable reports whether (x,y) is a Floor tile. Out-of-bounds tiles
// are not walkable.
func IsTileWalkable(m *data.GridMap, x, y int32) bool {
	return m.Get(x, y) == data.TileFloor
}

// Octile is the 8-directional distance heuristic for the step costs above.
// Admissible and consistent.
func Octile(dx, dy int32) float64 {
	if dx < 0 {
		dx = -dx
	}
	if dy < 0 {
		dy = -dy
	}
	hi, lo := dx, dy
	if lo > hi {
		hi, lo = lo, hi
	}
	return float64(hi) + (CostDiagonal-CostOrthogonal)*float64(lo)
}

// Pathfinder runs A* over a GridMap. Its scratch buffers are reused across
// queries, so one Pathfinder must not be used by two goroutines at once;
// give each goroutine its own.
type Pathfinder struct {
	// Per-cell scratch, valid only where the stamp equals gen.
	// Bumping gen invalidates every entry from the previous query.
	gen      uint32
	scored   []uint32 // scored[i] == gen: g[i] and parent[i] are set
	closed   []uint32 // closed[i] == gen: i is finalized
	g        []float64
	parent   []int32
	open     nodeHeap
	seq      uint64
	expanded int
}

// New creates a Pathfinder with empty scratch buffers. Buffers grow on
// first use to fit the map.
func New() *Pathfinder {
	return &Pathfinder{}
}

// Expanded returns how many nodes the last query finalized.
func (p *Pathfinder) Expanded() int {
	return p.expanded
}

// FindPath returns the cheapest route from (sx,sy) to (ex,ey) treating
// only non-Floor tiles as obstacles. The result excludes the start tile and
// ends with the goal. Nil means no path: either endpoint not walkable,
// start == end, or the goal is unreachable.
func (p *Pathfinder) FindPath(m *data.GridMap, sx, sy, ex, ey int32) []Point {
	return p.search(m, nil, sx, sy, ex, ey)
}

// FindPathAvoiding is FindPath that also treats occupied tiles as
// obstacles. The goal tile is judged on terrain alone, so an actor can
// path onto an occupied destination. The start tile is where the caller
// stands and is never tested for occupancy. A nil occ behaves as FindPath.
func (p *Pathfinder) FindPathAvoiding(m *data.GridMap, occ Occupancy, sx, sy, ex, ey int32) []Point {
	return p.search(m, occ, sx, sy, ex, ey)
}

func (p *Pathfinder) search(m *data.GridMap, occ Occupancy, sx, sy, ex, ey int32) []Point {
	p.expanded = 0
	if m == nil {
		return nil
	}
	if !IsTileWalkable(m, sx, sy) || !IsTileWalkable(m, ex, ey) {
		return nil
	}
	if sx == ex && sy == ey {
		return nil
	}

	p.reset(int(m.Width) * int(m.Height))

	width := m.Width
	startIdx := int32(int(sy)*int(width) + int(sx))
	goalIdx := int32(int(ey)*int(width) + int(ex))

	p.score(startIdx, 0, -1)
	p.push(startIdx, sx, sy, 0, Octile(ex-sx, ey-sy))

	for len(p.open) > 0 {
		cur := p.pop()
		if p.closed[cur.idx] == p.gen {
			continue // stale duplicate
		}
		p.closed[cur.idx] = p.gen
		p.expanded++

		if cur.idx == goalIdx {
			return p.reconstruct(goalIdx, startIdx, width)
		}

		for _, d := range neighborOffsets {
			nx := cur.x + d.dx
			ny := cur.y + d.dy
			if !m.InBounds(nx, ny) {
				continue
			}
			ni := int32(int(ny)*int(width) + int(nx))
			if p.closed[ni] == p.gen {
				continue
			}
			if m.GetUnchecked(nx, ny) != data.TileFloor {
				continue
			}
			if occ != nil && ni != goalIdx && occ.IsOccupied(nx, ny) {
				continue
			}
			// No corner cutting: both orthogonal neighbours must be open
			// terrain. Both lie inside the grid since cur and (nx,ny) do.
			if d.diagonal &&
				(m.GetUnchecked(nx, cur.y) != data.TileFloor || m.GetUnchecked(cur.x, ny) != data.TileFloor) {
				continue
			}

			ng := cur.g + d.cost
			if p.scored[ni] == p.gen && ng >= p.g[ni] {
				continue
			}
			p.score(ni, ng, cur.idx)
			p.push(ni, nx, ny, ng, ng+Octile(ex-nx, ey-ny))
		}
	}
	return nil
}

// reset prepares the scratch buffers for a grid of n cells.
func (p *Pathfinder) reset(n int) {
	if len(p.scored) < n {
		p.scored = make([]uint32, n)
		p.closed = make([]uint32, n)
		p.g = make([]float64, n)
		p.parent = make([]int32, n)
		p.gen = 0
	}
	p.gen++
	if p.gen == 0 {
		// Stamp wrapped: old stamps could collide with the new gen.
		clear(p.scored)
		clear(p.closed)
		p.gen = 1
	}
	p.open = p.open[:0]
	p.seq = 0
}

func (p *Pathfinder) score(idx int32, g float64, parent int32) {
	p.scored[idx] = p.gen
	p.g[idx] = g
	p.parent[idx] = parent
}

func (p *Pathfinder) push(idx, x, y int32, g, f float64) {
	p.open.push(node{idx: idx, x: x, y: y, g: g, f: f, seq: p.seq})
	p.seq++
}

func (p *Pathfinder) pop() node {
	return p.open.pop()
}

// reconstruct walks parent pointers from goal back to start (exclusive)
// and returns the route in travel order.
func (p *Pathfinder) reconstruct(goal, start, width int32) []Point {
	n := 0
	for i := goal; i != start; i = p.parent[i] {
		n++
	}
	path := make([]Point, n)
	for i, k := goal, n-1; i != start; i, k = p.parent[i], k-1 {
		path[k] = Point{X: i % width, Y: i / width}
	}
	return path
}
