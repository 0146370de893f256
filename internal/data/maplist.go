package data

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/traditionalchinese"
	"gopkg.in/yaml.v3"
)

// MapInfo describes one map in map_list.yaml. File is resolved relative to
// the catalog's directory. Generator overrides are applied on top of the
// [generator] config section when the file is missing and the map has to
// be generated instead.
type MapInfo struct {
	MapID   int16  `yaml:"map_id"`
	Name    string `yaml:"name"`
	File    string `yaml:"file"`
	Charset string `yaml:"charset"` // "", "utf-8", "big5", "ms950"

	Generator GeneratorOverrides `yaml:"generator"`
}

// GeneratorOverrides holds optional per-map generator settings.
// Nil fields keep the global value.
type GeneratorOverrides struct {
	Width            *int32   `yaml:"width"`
	Height           *int32   `yaml:"height"`
	WallDensity      *float64 `yaml:"wall_density"`
	SmoothIterations *int     `yaml:"smooth_iterations"`
	WallThreshold    *int     `yaml:"wall_threshold"`
	WaterChance      *float64 `yaml:"water_chance"`
	Seed             *int64   `yaml:"seed"`
}

// MapCatalog indexes map_list.yaml entries by map ID.
type MapCatalog struct {
	dir  string
	maps map[int16]*MapInfo
	ids  []int16
}

type mapListFile struct {
	Maps []MapInfo `yaml:"maps"`
}

// LoadMapCatalog loads map metadata from YAML.
func LoadMapCatalog(yamlPath string) (*MapCatalog, error) {
	raw, err := os.ReadFile(yamlPath)
	if err != nil {
		return nil, fmt.Errorf("read map list %s: %w", yamlPath, err)
	}
	var file mapListFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse map list: %w", err)
	}

	c := &MapCatalog{
		dir:  filepath.Dir(yamlPath),
		maps: make(map[int16]*MapInfo, len(file.Maps)),
	}
	for i := range file.Maps {
		info := &file.Maps[i]
		if _, dup := c.maps[info.MapID]; dup {
			return nil, fmt.Errorf("duplicate map_id %d", info.MapID)
		}
		if _, err := CharsetByName(info.Charset); err != nil {
			return nil, fmt.Errorf("map %d: %w", info.MapID, err)
		}
		c.maps[info.MapID] = info
		c.ids = append(c.ids, info.MapID)
	}
	return c, nil
}

// Count returns the number of catalogued maps.
func (c *MapCatalog) Count() int {
	return len(c.maps)
}

// IDs returns map IDs in file order.
func (c *MapCatalog) IDs() []int16 {
	return c.ids
}

// Get returns metadata for a map, or nil if not found.
func (c *MapCatalog) Get(mapID int16) *MapInfo {
	return c.maps[mapID]
}

// Path returns the absolute-or-relative path of the map's tile file.
func (c *MapCatalog) Path(info *MapInfo) string {
	if info.File == "" || filepath.IsAbs(info.File) {
		return info.File
	}
	return filepath.Join(c.dir, info.File)
}

// Load reads the tile file of a catalogued map.
func (c *MapCatalog) Load(mapID int16) (*GridMap, error) {
	info := c.maps[mapID]
	if info == nil {
		return nil, fmt.Errorf("map %d not in catalog", mapID)
	}
	cs, _ := CharsetByName(info.Charset)
	m, err := LoadGridFile(c.Path(info), CodecOptions{Charset: cs})
	if err != nil {
		return nil, err
	}
	if info.Name != "" {
		m.Name = info.Name
	}
	return m, nil
}

// CharsetByName maps a charset label to its encoding. The empty label and
// "utf-8" return nil (no transcoding).
func CharsetByName(name string) (encoding.Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "utf-8", "utf8":
		return nil, nil
	case "big5", "ms950", "cp950":
		return traditionalchinese.Big5, nil
	}
	return nil, fmt.Errorf("unsupported charset %q", name)
}
