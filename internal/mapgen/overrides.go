package mapgen

import "github.com/l1jgo/gridnav/internal/data"

// WithOverrides applies per-map catalog settings on top of c.
func (c Config) WithOverrides(o data.GeneratorOverrides) Config {
	if o.Width != nil {
		c.Width = *o.Width
	}
	if o.Height != nil {
		c.Height = *o.Height
	}
	if o.WallDensity != nil {
		c.WallDensity = *o.WallDensity
	}
	if o.SmoothIterations != nil {
		c.SmoothIterations = *o.SmoothIterations
	}
	if o.WallThreshold != nil {
		c.WallThreshold = *o.WallThreshold
	}
	if o.WaterChance != nil {
		c.WaterChance = *o.WaterChance
	}
	if o.Seed != nil {
		c.Seed = *o.Seed
	}
	return c
}
