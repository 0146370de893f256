package mapgen

import (
	"math/rand"
	"time"

	"github.com/l1jgo/gridnav/internal/data"
	"go.uber.org/zap"
)

// GeneratedName is the display name given to every generated map.
const GeneratedName = "Generated Dungeon"

const (
	waterMargin   = 5 // pools never start this close to an edge
	minPoolRadius = 2
	maxPoolRadius = 5
)

// Config controls cave generation. All fields have usable defaults
// (see DefaultConfig).
type Config struct {
	Width, Height int32

	// WallDensity is the chance an interior cell starts as Wall (0..1).
	WallDensity float64
	// SmoothIterations is the number of cellular automata passes.
	SmoothIterations int
	// WallThreshold: a cell with more wall neighbours than this becomes
	// Wall, fewer becomes Floor, exactly this many stays as it was.
	WallThreshold int
	// WaterChance is the chance each eligible Floor cell seeds a pool (0..1).
	WaterChance float64

	Seed int64 // 0 = random
}

// DefaultConfig returns the stock cave settings.
func DefaultConfig() Config {
	return Config{
		Width:            100,
		Height:           100,
		WallDensity:      0.45,
		SmoothIterations: 5,
		WallThreshold:    4,
		WaterChance:      0.02,
	}
}

// Normalized clamps out-of-range values: sizes to at least 1 and at most
// data.MaxCells cells (height shrinks first), chances into [0,1],
// iterations and threshold to at least 0.
func (c Config) Normalized() Config {
	if c.Width < 1 {
		c.Width = 1
	}
	if c.Height < 1 {
		c.Height = 1
	}
	if int64(c.Width) > data.MaxCells {
		c.Width = data.MaxCells
	}
	if int64(c.Width)*int64(c.Height) > data.MaxCells {
		c.Height = int32(data.MaxCells / int64(c.Width))
	}
	c.WallDensity = clamp01(c.WallDensity)
	c.WaterChance = clamp01(c.WaterChance)
	if c.SmoothIterations < 0 {
		c.SmoothIterations = 0
	}
	if c.WallThreshold < 0 {
		c.WallThreshold = 0
	}
	return c
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Result is a generated map plus the seed that produced it, so a random
// (seed 0) map can be reproduced later.
type Result struct {
	Map  *data.GridMap
	Seed int64
}

// Generator builds cave maps. It keeps no state between calls; each
// Generate owns its own random source.
type Generator struct {
	log *zap.Logger
}

// NewGenerator creates a Generator. A nil logger disables logging.
func NewGenerator(log *zap.Logger) *Generator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Generator{log: log}
}

// Generate is shorthand for NewGenerator(nil).Generate(cfg).Map.
func Generate(cfg Config) *data.GridMap {
	return NewGenerator(nil).Generate(cfg).Map
}

// Generate synthesizes a cave: seeded noise fill, cellular automata
// smoothing, then water pools. The same normalized config and non-zero
// seed always produce the same cells.
func (g *Generator) Generate(cfg Config) Result {
	start := time.Now()
	cfg = cfg.Normalized()

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	w, h := cfg.Width, cfg.Height
	cells := make([]data.TileKind, int(w)*int(h))

	fillNoise(cells, w, h, cfg.WallDensity, rng)

	scratch := make([]data.TileKind, len(cells))
	for i := 0; i < cfg.SmoothIterations; i++ {
		smooth(cells, scratch, w, h, cfg.WallThreshold)
		cells, scratch = scratch, cells
	}

	m := data.NewGridMapFromCells(GeneratedName, w, h, cells)
	placeWater(m, cfg.WaterChance, rng)

	g.log.Debug("map generated",
		zap.Int64("seed", seed),
		zap.Int32("width", w),
		zap.Int32("height", h),
		zap.Int("floor", m.Count(data.TileFloor)),
		zap.Int("water", m.Count(data.TileWater)),
		zap.Duration("took", time.Since(start)),
	)
	return Result{Map: m, Seed: seed}
}

func isBorder(x, y, w, h int32) bool {
	return x == 0 || y == 0 || x == w-1 || y == h-1
}

// fillNoise walls the border and randomly walls interior cells. The rng is
// drawn once per interior cell in row-major order.
func fillNoise(cells []data.TileKind, w, h int32, density float64, rng *rand.Rand) {
	for y := int32(0); y < h; y++ {
		for x := int32(0); x < w; x++ {
			i := int(y)*int(w) + int(x)
			switch {
			case isBorder(x, y, w, h):
				cells[i] = data.TileWall
			case rng.Float64() < density:
				cells[i] = data.TileWall
			default:
				cells[i] = data.TileFloor
			}
		}
	}
}

// smooth runs one cellular automata pass reading src and writing dst.
// src is never written, so every cell sees the previous generation.
func smooth(src, dst []data.TileKind, w, h int32, threshold int) {
	for y := int32(0); y < h; y++ {
		for x := int32(0); x < w; x++ {
			i := int(y)*int(w) + int(x)
			if isBorder(x, y, w, h) {
				dst[i] = data.TileWall
				continue
			}
			walls := wallNeighbors(src, x, y, w, h)
			switch {
			case walls > threshold:
				dst[i] = data.TileWall
			case walls < threshold:
				dst[i] = data.TileFloor
			default:
				dst[i] = src[i]
			}
		}
	}
}

// wallNeighbors counts Wall cells among the 8 neighbours of (x,y).
// Neighbours outside the grid count as Wall.
func wallNeighbors(cells []data.TileKind, x, y, w, h int32) int {
	n := 0
	for dy := int32(-1); dy <= 1; dy++ {
		for dx := int32(-1); dx <= 1; dx++ {
			if dx == 0 && dy == 0 {
				continue
			}
			nx, ny := x+dx, y+dy
			if nx < 0 || ny < 0 || nx >= w || ny >= h {
				n++
				continue
			}
			if cells[int(ny)*int(w)+int(nx)] == data.TileWall {
				n++
			}
		}
	}
	return n
}

// placeWater seeds roughly circular pools on Floor cells away from the
// edges. Pools only convert Floor; walls inside the circle stay.
func placeWater(m *data.GridMap, chance float64, rng *rand.Rand) {
	for y := int32(waterMargin); y < m.Height-waterMargin; y++ {
		for x := int32(waterMargin); x < m.Width-waterMargin; x++ {
			if m.GetUnchecked(x, y) != data.TileFloor {
				continue
			}
			if rng.Float64() >= chance {
				continue
			}
			r := int32(minPoolRadius + rng.Intn(maxPoolRadius-minPoolRadius+1))
			for dy := -r; dy <= r; dy++ {
				for dx := -r; dx <= r; dx++ {
					if dx*dx+dy*dy > r*r {
						continue
					}
					if m.Get(x+dx, y+dy) == data.TileFloor {
						m.Set(x+dx, y+dy, data.TileWater)
					}
				}
			}
		}
	}
}
