package pathfind

import (
	"context"
	"math"
	"testing"

	"github.com/l1jgo/gridnav/internal/data"
	"github.com/l1jgo/gridnav/internal/mapgen"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gridFromRows builds a map from ASCII rows: '.' floor, '#' wall,
// '~' water, anything else empty.
func gridFromRows(t *testing.T, rows ...string) *data.GridMap {
	t.Helper()
	require.NotEmpty(t, rows)
	m := data.NewGridMap("test", int32(len(rows[0])), int32(len(rows)))
	for y, row := range rows {
		require.Len(t, row, len(rows[0]), "ragged row %d", y)
		for x, c := range row {
			kind := data.TileEmpty
			switch c {
			case '.':
				kind = data.TileFloor
			case '#':
				kind = data.TileWall
			case '~':
				kind = data.TileWater
			}
			m.Set(int32(x), int32(y), kind)
		}
	}
	return m
}

type occSet map[Point]bool

func (o occSet) IsOccupied(x, y int32) bool { return o[Point{x, y}] }

func pathCost(start Point, path []Point) float64 {
	cost := 0.0
	prev := start
	for _, p := range path {
		if p.X != prev.X && p.Y != prev.Y {
			cost += CostDiagonal
		} else {
			cost += CostOrthogonal
		}
		prev = p
	}
	return cost
}

// assertValidPath checks walkability, contiguity, uniqueness and the goal.
func assertValidPath(t *testing.T, m *data.GridMap, start, goal Point, path []Point) {
	t.Helper()
	require.NotEmpty(t, path)
	assert.Equal(t, goal, path[len(path)-1])

	seen := map[Point]bool{start: true}
	prev := start
	for _, p := range path {
		assert.True(t, IsTileWalkable(m, p.X, p.Y), "waypoint %v not walkable", p)
		dx, dy := p.X-prev.X, p.Y-prev.Y
		assert.True(t, dx >= -1 && dx <= 1 && dy >= -1 && dy <= 1, "jump %v -> %v", prev, p)
		assert.False(t, seen[p], "duplicate waypoint %v", p)
		if dx != 0 && dy != 0 {
			assert.True(t, IsTileWalkable(m, prev.X+dx, prev.Y), "corner cut at %v", p)
			assert.True(t, IsTileWalkable(m, prev.X, prev.Y+dy), "corner cut at %v", p)
		}
		seen[p] = true
		prev = p
	}
}

// dijkstraCost is a brute-force reference using the same movement rules.
func dijkstraCost(m *data.GridMap, start, goal Point) float64 {
	n := int(m.Width) * int(m.Height)
	dist := make([]float64, n)
	done := make([]bool, n)
	for i := range dist {
		dist[i] = math.Inf(1)
	}
	dist[int(start.Y)*int(m.Width)+int(start.X)] = 0
	for {
		best := -1
		for i := 0; i < n; i++ {
			if !done[i] && !math.IsInf(dist[i], 1) && (best < 0 || dist[i] < dist[best]) {
				best = i
			}
		}
		if best < 0 {
			return math.Inf(1)
		}
		done[best] = true
		x, y := int32(best)%m.Width, int32(best)/m.Width
		if x == goal.X && y == goal.Y {
			return dist[best]
		}
		for _, d := range neighborOffsets {
			nx, ny := x+d.dx, y+d.dy
			if !IsTileWalkable(m, nx, ny) {
				continue
			}
			if d.diagonal && (!IsTileWalkable(m, nx, y) || !IsTileWalkable(m, x, ny)) {
				continue
			}
			ni := int(ny)*int(m.Width) + int(nx)
			if nd := dist[best] + d.cost; nd < dist[ni] {
				dist[ni] = nd
			}
		}
	}
}

func TestFindPathStraightCorridor(t *testing.T) {
	m := gridFromRows(t, "..........")
	path := New().FindPath(m, 0, 0, 9, 0)

	require.Len(t, path, 9)
	for i, p := range path {
		assert.Equal(t, Point{int32(i + 1), 0}, p)
	}
}

func TestFindPathCornerCutting(t *testing.T) {
	pf := New()

	blocked := gridFromRows(t,
		".#",
		"#.",
	)
	assert.Empty(t, pf.FindPath(blocked, 0, 0, 1, 1))

	open := gridFromRows(t,
		"..",
		"..",
	)
	assert.Equal(t, []Point{{1, 1}}, pf.FindPath(open, 0, 0, 1, 1))

	// One wall on either side is already enough to forbid the diagonal.
	half := gridFromRows(t,
		"..",
		"#.",
	)
	assert.Equal(t, []Point{{1, 0}, {1, 1}}, pf.FindPath(half, 0, 0, 1, 1))
}

func TestFindPathRejects(t *testing.T) {
	m := gridFromRows(t,
		"..#",
		".~.",
		"...",
	)
	pf := New()

	assert.Nil(t, pf.FindPath(m, 0, 0, 0, 0), "start == end")
	assert.Nil(t, pf.FindPath(m, 2, 0, 0, 0), "start is wall")
	assert.Nil(t, pf.FindPath(m, 0, 0, 1, 1), "end is water")
	assert.Nil(t, pf.FindPath(m, -1, 0, 0, 0), "start out of bounds")
	assert.Nil(t, pf.FindPath(m, 0, 0, 3, 3), "end out of bounds")
	assert.Nil(t, pf.FindPath(nil, 0, 0, 1, 0), "nil map")
}

func TestFindPathAllWall(t *testing.T) {
	m := data.NewGridMap("solid", 8, 8)
	m.Fill(data.TileWall)
	assert.Empty(t, New().FindPath(m, 1, 1, 6, 6))
}

func TestFindPathUnreachable(t *testing.T) {
	m := gridFromRows(t,
		"..#..",
		"..#..",
		"..#..",
	)
	pf := New()
	assert.Empty(t, pf.FindPath(m, 0, 0, 4, 2))
	assert.Equal(t, 6, pf.Expanded(), "whole left component is exhausted")
}

func TestFindPathDetour(t *testing.T) {
	m := gridFromRows(t,
		".......",
		".#####.",
		".#...#.",
		".#.#.#.",
		"...#...",
	)
	start, goal := Point{2, 4}, Point{4, 4}
	path := New().FindPath(m, start.X, start.Y, goal.X, goal.Y)

	assertValidPath(t, m, start, goal, path)
	assert.InDelta(t, dijkstraCost(m, start, goal), pathCost(start, path), 1e-9)
}

func TestFindPathPrefersDiagonal(t *testing.T) {
	m := gridFromRows(t,
		"....",
		"....",
		"....",
		"....",
	)
	path := New().FindPath(m, 0, 0, 3, 3)
	assert.Equal(t, []Point{{1, 1}, {2, 2}, {3, 3}}, path)
	assert.InDelta(t, 3*math.Sqrt2, pathCost(Point{0, 0}, path), 1e-9)
}

func TestFindPathOptimalOnGeneratedMaps(t *testing.T) {
	for _, seed := range []int64{1, 7, 99, 2024} {
		cfg := mapgen.DefaultConfig()
		cfg.Width, cfg.Height = 24, 18
		cfg.Seed = seed
		m := mapgen.Generate(cfg)

		var floors []Point
		for y := int32(0); y < m.Height; y++ {
			for x := int32(0); x < m.Width; x++ {
				if IsTileWalkable(m, x, y) {
					floors = append(floors, Point{x, y})
				}
			}
		}
		if len(floors) < 2 {
			continue
		}

		pf := New()
		for i := 0; i < 12; i++ {
			start := floors[(i*7919)%len(floors)]
			goal := floors[(i*104729+len(floors)/2)%len(floors)]
			if start == goal {
				continue
			}
			want := dijkstraCost(m, start, goal)
			path := pf.FindPath(m, start.X, start.Y, goal.X, goal.Y)
			if math.IsInf(want, 1) {
				assert.Empty(t, path, "seed %d %v->%v should be unreachable", seed, start, goal)
				continue
			}
			assertValidPath(t, m, start, goal, path)
			assert.InDelta(t, want, pathCost(start, path), 1e-9, "seed %d %v->%v", seed, start, goal)
		}
	}
}

func TestFindPathAvoidingDestinationExempt(t *testing.T) {
	m := gridFromRows(t, ".....")
	occ := occSet{{4, 0}: true}

	path := New().FindPathAvoiding(m, occ, 0, 0, 4, 0)
	require.Len(t, path, 4)
	assert.Equal(t, Point{4, 0}, path[3])
}

func TestFindPathAvoidingBlocksIntermediate(t *testing.T) {
	pf := New()

	corridor := gridFromRows(t, ".....")
	occ := occSet{{2, 0}: true}
	assert.Empty(t, pf.FindPathAvoiding(corridor, occ, 0, 0, 4, 0))
	assert.Len(t, pf.FindPath(corridor, 0, 0, 4, 0), 4, "static mode ignores occupancy")

	room := gridFromRows(t,
		".....",
		".....",
		".....",
	)
	occ = occSet{{1, 1}: true, {2, 1}: true, {3, 1}: true}
	start, goal := Point{0, 1}, Point{4, 1}
	path := pf.FindPathAvoiding(room, occ, start.X, start.Y, goal.X, goal.Y)
	assertValidPath(t, room, start, goal, path)
	for _, p := range path {
		assert.False(t, occ.IsOccupied(p.X, p.Y), "walked through occupied %v", p)
	}
}

func TestFindPathAvoidingOccupiedCornerIsNotAWall(t *testing.T) {
	m := gridFromRows(t,
		"..",
		"..",
	)
	occ := occSet{{1, 0}: true, {0, 1}: true}
	assert.Equal(t, []Point{{1, 1}}, New().FindPathAvoiding(m, occ, 0, 0, 1, 1))
}

func TestFindPathAvoidingOccupiedStart(t *testing.T) {
	m := gridFromRows(t, "...")
	occ := occSet{{0, 0}: true}
	assert.Equal(t, []Point{{1, 0}, {2, 0}}, New().FindPathAvoiding(m, occ, 0, 0, 2, 0))
}

func TestFindPathAvoidingNilOccupancy(t *testing.T) {
	m := gridFromRows(t, "...")
	assert.Len(t, New().FindPathAvoiding(m, nil, 0, 0, 2, 0), 2)
}

func TestPathfinderReuse(t *testing.T) {
	big := gridFromRows(t,
		"......",
		".####.",
		"......",
	)
	small := gridFromRows(t,
		"...",
		"#.#",
		"...",
	)

	shared := New()
	for i := 0; i < 3; i++ {
		assert.Equal(t, New().FindPath(big, 0, 0, 5, 2), shared.FindPath(big, 0, 0, 5, 2))
		assert.Equal(t, New().FindPath(small, 0, 0, 2, 2), shared.FindPath(small, 0, 0, 2, 2))
		assert.Empty(t, shared.FindPath(small, 0, 0, 0, 1))
	}
}

func TestPathfinderGenerationWrap(t *testing.T) {
	m := gridFromRows(t,
		"....",
		".##.",
		"....",
	)
	pf := New()
	want := pf.FindPath(m, 0, 0, 3, 2)
	require.NotEmpty(t, want)

	pf.gen = math.MaxUint32
	assert.Equal(t, want, pf.FindPath(m, 0, 0, 3, 2))
	assert.Equal(t, uint32(1), pf.gen)
	assert.Equal(t, want, pf.FindPath(m, 0, 0, 3, 2))
}

func TestOctile(t *testing.T) {
	assert.Equal(t, 0.0, Octile(0, 0))
	assert.InDelta(t, 10.0, Octile(10, 0), 1e-12)
	assert.InDelta(t, 10.0, Octile(0, -10), 1e-12)
	assert.InDelta(t, 10*math.Sqrt2, Octile(-10, 10), 1e-12)
	assert.InDelta(t, 5+3*(math.Sqrt2-1), Octile(5, 3), 1e-12)
}

func TestNodeHeapOrder(t *testing.T) {
	var h nodeHeap
	h.push(node{idx: 1, f: 10, seq: 0})
	h.push(node{idx: 2, f: 5, seq: 1})
	h.push(node{idx: 3, f: 5, seq: 2})
	h.push(node{idx: 4, f: 15, seq: 3})
	h.push(node{idx: 5, f: 1, seq: 4})

	var got []int32
	for len(h) > 0 {
		got = append(got, h.pop().idx)
	}
	assert.Equal(t, []int32{5, 2, 3, 1, 4}, got)
}

func TestFindPathsMatchesSequential(t *testing.T) {
	cfg := mapgen.DefaultConfig()
	cfg.Width, cfg.Height, cfg.Seed = 40, 30, 5
	m := mapgen.Generate(cfg)

	var floors []Point
	for y := int32(0); y < m.Height; y++ {
		for x := int32(0); x < m.Width; x++ {
			if IsTileWalkable(m, x, y) {
				floors = append(floors, Point{x, y})
			}
		}
	}
	require.NotEmpty(t, floors)

	occ := occSet{floors[len(floors)/3]: true}
	var queries []Query
	for i := 0; i < 20; i++ {
		queries = append(queries, Query{
			From:  floors[(i*31)%len(floors)],
			To:    floors[(i*97+11)%len(floors)],
			Avoid: i%2 == 0,
		})
	}

	got, err := FindPaths(context.Background(), m, occ, queries, 4)
	require.NoError(t, err)
	require.Len(t, got, len(queries))

	pf := New()
	for i, q := range queries {
		var want []Point
		if q.Avoid {
			want = pf.FindPathAvoiding(m, occ, q.From.X, q.From.Y, q.To.X, q.To.Y)
		} else {
			want = pf.FindPath(m, q.From.X, q.From.Y, q.To.X, q.To.Y)
		}
		assert.Equal(t, want, got[i], "query %d", i)
	}
}

func TestFindPathsCancelled(t *testing.T) {
	m := gridFromRows(t, "...")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := FindPaths(ctx, m, nil, []Query{{From: Point{0, 0}, To: Point{2, 0}}}, 2)
	assert.ErrorIs(t, err, context.Canceled)
}
