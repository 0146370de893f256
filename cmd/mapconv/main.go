// mapconv converts legacy L1J passability tiles to the gridnav text map
// format, or dumps a generated cave with "gen".
package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/l1jgo/gridnav/internal/data"
	"github.com/l1jgo/gridnav/internal/mapgen"
)

const usage = `Usage:
  mapconv <legacy.txt> <width> <height> <output.txt> [name] [charset]
  mapconv gen <width> <height> <seed> <output.txt> [charset]`

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) >= 5 && args[0] == "gen" {
		return runGen(args[1:])
	}
	if len(args) < 4 {
		return fmt.Errorf("%s", usage)
	}

	width, height, err := parseSize(args[1], args[2])
	if err != nil {
		return err
	}
	name := args[0]
	if len(args) > 4 {
		name = args[4]
	}
	opt, err := codecOptions(args, 5)
	if err != nil {
		return err
	}

	m, err := data.LoadLegacyTiles(args[0], name, width, height)
	if err != nil {
		return err
	}
	if err := data.SaveGridFile(args[3], m, opt); err != nil {
		return err
	}
	report(args[3], m)
	return nil
}

func runGen(args []string) error {
	width, height, err := parseSize(args[0], args[1])
	if err != nil {
		return err
	}
	seed, err := strconv.ParseInt(args[2], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid seed %q", args[2])
	}
	opt, err := codecOptions(args, 4)
	if err != nil {
		return err
	}

	cfg := mapgen.DefaultConfig()
	cfg.Width, cfg.Height, cfg.Seed = width, height, seed
	res := mapgen.NewGenerator(nil).Generate(cfg)
	if err := data.SaveGridFile(args[3], res.Map, opt); err != nil {
		return err
	}
	fmt.Printf("seed %d\n", res.Seed)
	report(args[3], res.Map)
	return nil
}

func parseSize(ws, hs string) (int32, int32, error) {
	w, err := strconv.ParseInt(ws, 10, 32)
	if err != nil || w <= 0 {
		return 0, 0, fmt.Errorf("invalid width %q", ws)
	}
	h, err := strconv.ParseInt(hs, 10, 32)
	if err != nil || h <= 0 {
		return 0, 0, fmt.Errorf("invalid height %q", hs)
	}
	return int32(w), int32(h), nil
}

// codecOptions reads the optional charset argument at args[i].
func codecOptions(args []string, i int) (data.CodecOptions, error) {
	if len(args) <= i {
		return data.CodecOptions{}, nil
	}
	cs, err := data.CharsetByName(args[i])
	if err != nil {
		return data.CodecOptions{}, err
	}
	return data.CodecOptions{Charset: cs}, nil
}

func report(path string, m *data.GridMap) {
	fmt.Printf("wrote %s: %dx%d, floor %d, wall %d, water %d\n",
		path, m.Width, m.Height,
		m.Count(data.TileFloor), m.Count(data.TileWall), m.Count(data.TileWater))
	fmt.Printf("checksum %s\n", data.ChecksumHex(m))
}
