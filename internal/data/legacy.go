package data

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Passability flags of legacy L1J tile files.
const (
	legacyPassableEast  byte = 0x01
	legacyPassableNorth byte = 0x02
	legacyImpassable    byte = 0x80 // dynamic mob block, never persisted meaningfully
)

// LoadLegacyTiles reads a legacy passability file: each line is a row of
// comma-separated byte values, one per X column. Lines starting with '#'
// are comments. The result is converted to Floor/Wall: a tile is Floor
// when it allows passage in at least one direction.
func LoadLegacyTiles(path, name string, width, height int32) (*GridMap, error) {
	if err := CheckSize(int64(width), int64(height)); err != nil {
		return nil, fmt.Errorf("legacy map %s: %w", path, err)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open legacy map %s: %w", path, err)
	}
	defer f.Close()

	m := NewGridMap(name, width, height)
	m.Fill(TileWall)

	scanner := bufio.NewScanner(f)
	// Legacy mainland rows run ~5KB; leave headroom.
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	y := int32(0)
	for scanner.Scan() && y < height {
		line := strings.TrimSpace(scanner.Text())
		if len(line) == 0 || line[0] == '#' {
			continue
		}

		x := int32(0)
		for _, tok := range strings.Split(line, ",") {
			if x >= width {
				break
			}
			val, err := strconv.ParseInt(strings.TrimSpace(tok), 10, 16)
			if err != nil {
				val = 0
			}
			m.Set(x, y, legacyTileKind(byte(val)))
			x++
		}
		y++
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read legacy map %s: %w", path, err)
	}
	return m, nil
}

func legacyTileKind(tile byte) TileKind {
	tile &^= legacyImpassable
	if tile&(legacyPassableEast|legacyPassableNorth) != 0 {
		return TileFloor
	}
	return TileWall
}
