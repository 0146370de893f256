package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"math/rand"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/l1jgo/gridnav/internal/config"
	"github.com/l1jgo/gridnav/internal/core/event"
	coresys "github.com/l1jgo/gridnav/internal/core/system"
	"github.com/l1jgo/gridnav/internal/data"
	"github.com/l1jgo/gridnav/internal/mapgen"
	"github.com/l1jgo/gridnav/internal/pathfind"
	"github.com/l1jgo/gridnav/internal/persist"
	"github.com/l1jgo/gridnav/internal/scripting"
	"github.com/l1jgo/gridnav/internal/system"
	"github.com/l1jgo/gridnav/internal/world"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// ── Startup display helpers ────────────────────────────────────────

func printBanner(name string) {
	fmt.Println()
	fmt.Println("\033[36;1m  ┌───────────────────────────────────────────┐\033[0m")
	fmt.Println("\033[36;1m  │\033[0m              gridnav  v0.1.0              \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  │\033[0m     cave maps · A* routing · actors       \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  └───────────────────────────────────────────┘\033[0m")
	fmt.Println()
	fmt.Printf("  \033[1mInstance:\033[0m %s\n\n", name)
}

func printSection(title string) {
	lineLen := 46 - len(title) - 1
	if lineLen < 3 {
		lineLen = 3
	}
	fmt.Printf("  \033[33m── %s %s\033[0m\n", title, strings.Repeat("─", lineLen))
}

func printStat(label string, count int) {
	numStr := fmt.Sprintf("%d", count)
	dotsLen := 42 - len(label) - len(numStr)
	if dotsLen < 3 {
		dotsLen = 3
	}
	fmt.Printf("  %s \033[90m%s\033[0m \033[32m%s\033[0m\n", label, strings.Repeat("·", dotsLen), numStr)
}

func printOK(msg string) {
	fmt.Printf("  \033[32m✓\033[0m %s\n", msg)
}

func printReady(msg string) {
	fmt.Printf("  \033[32m▶\033[0m %s\n", msg)
}

// ── Main loop ─────────────────────────────────────────────────────

func run() error {
	// 1. Load config
	cfgPath := "config/gridnav.toml"
	if p := os.Getenv("GRIDNAV_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if errors.Is(err, fs.ErrNotExist) {
		cfg = config.Default()
	} else if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 2. Init logger
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	printBanner(cfg.Server.Name)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// 3. Optional PostgreSQL snapshots
	var repo *persist.MapRepo
	if cfg.Database.Enabled {
		printSection("Database")
		db, err := persist.NewDB(ctx, cfg.Database, log)
		if err != nil {
			return fmt.Errorf("database: %w", err)
		}
		defer db.Close()
		printOK("PostgreSQL connected")

		version, err := persist.RunMigrations(ctx, db.Pool, log)
		if err != nil {
			return fmt.Errorf("migrations: %w", err)
		}
		printOK(fmt.Sprintf("Migrations applied (version %d)", version))
		repo = persist.NewMapRepo(db)

		snaps, err := repo.List(ctx, 5)
		if err != nil {
			return fmt.Errorf("list snapshots: %w", err)
		}
		printStat("Recent snapshots", len(snaps))
		for _, row := range snaps {
			log.Debug("stored snapshot",
				zap.Int64("id", row.ID),
				zap.String("map", row.Name),
				zap.Int32("width", row.Width),
				zap.Int32("height", row.Height),
				zap.Int64("seed", row.Seed),
				zap.Time("created_at", row.CreatedAt),
			)
		}
		fmt.Println()
	}

	// 4. Pick the map
	printSection("Map")
	grid, seed, stored, err := loadMap(ctx, cfg, repo, log)
	if err != nil {
		return err
	}
	printOK(fmt.Sprintf("%s (%dx%d)", grid.Name, grid.Width, grid.Height))
	printStat("Floor tiles", grid.Count(data.TileFloor))
	printStat("Wall tiles", grid.Count(data.TileWall))
	printStat("Water tiles", grid.Count(data.TileWater))
	log.Info("map ready", zap.String("map", grid.Name), zap.String("checksum", data.ChecksumHex(grid)))
	fmt.Println()

	ws := world.NewState(grid)
	if repo == nil || stored {
		ws.MarkSaved()
	}

	// 5. Route planning warm-up
	if cfg.Simulation.PlanQueries > 0 {
		printSection("Routing")
		found, took, err := planBatch(ctx, grid, cfg.Simulation.PlanQueries, cfg.Simulation.PlanWorkers)
		if err != nil {
			return fmt.Errorf("route batch: %w", err)
		}
		printStat("Routes found", found)
		printStat("Routes queried", cfg.Simulation.PlanQueries)
		printOK(fmt.Sprintf("Batch took %s on %d workers", took.Round(time.Microsecond), cfg.Simulation.PlanWorkers))
		fmt.Println()
	}

	// 6. Lua AI
	var scripts *scripting.Engine
	if cfg.Scripting.Enabled {
		scripts, err = scripting.NewEngine(cfg.Scripting.Dir, log)
		if err != nil {
			return fmt.Errorf("scripting: %w", err)
		}
		defer scripts.Close()
	}

	// 7. Actors
	printSection("Actors")
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	spawned := spawnActors(ws, cfg.Simulation, rng)
	printStat("Actors spawned", spawned)
	fmt.Println()

	// 8. Systems
	bus := event.NewBus()
	runner := coresys.NewRunner()
	stats := system.NewStatsSystem(bus, log, 50)
	runner.Register(system.NewEventDispatchSystem(bus))
	runner.Register(system.NewWanderSystem(ws, scripts, bus, rng, cfg.Simulation.WanderRadius, log))
	runner.Register(system.NewMovementSystem(ws, bus, log))
	runner.Register(stats)
	var snapshots *system.SnapshotSystem
	if repo != nil {
		snapshots = system.NewSnapshotSystem(ws, repo, bus, seed, log, 1500)
		runner.Register(snapshots)
	}

	// 9. Tick loop
	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(cfg.Simulation.TickRate)
	defer ticker.Stop()

	printSection("Running")
	printReady(fmt.Sprintf("Tick loop started (tick: %s)", cfg.Simulation.TickRate))
	if cfg.Simulation.Ticks > 0 {
		printReady(fmt.Sprintf("Stopping after %d ticks", cfg.Simulation.Ticks))
	}
	fmt.Println()

	shutdown := func() {
		if snapshots != nil {
			snapshots.SaveIfDirty()
		}
		stats.Flush()
		t := stats.Totals()
		log.Info("simulation stopped",
			zap.Uint64("ticks", runner.Ticks()),
			zap.Duration("uptime", time.Since(time.Unix(cfg.Server.StartTime, 0)).Round(time.Second)),
			zap.Int("completed", t.Completed),
			zap.Int("blocked", t.Blocked),
			zap.Int("not_found", t.NotFound),
		)
	}

	for {
		select {
		case <-ticker.C:
			runner.Tick(cfg.Simulation.TickRate)
			if cfg.Simulation.Ticks > 0 && runner.Ticks() >= uint64(cfg.Simulation.Ticks) {
				shutdown()
				return nil
			}
		case sig := <-shutdownCh:
			log.Info("shutdown signal received", zap.String("signal", sig.String()))
			shutdown()
			return nil
		}
	}
}

// loadMap picks the active map: [map].file, then the catalog entry, then
// the newest stored snapshot, then a freshly generated cave. stored reports
// whether the map came from the snapshot store.
func loadMap(ctx context.Context, cfg *config.Config, repo *persist.MapRepo, log *zap.Logger) (m *data.GridMap, seed int64, stored bool, err error) {
	gen := genConfig(cfg.Generator)

	if cfg.Map.File != "" {
		cs, err := data.CharsetByName(cfg.Map.Charset)
		if err != nil {
			return nil, 0, false, err
		}
		m, err = data.LoadGridFile(cfg.Map.File, data.CodecOptions{Charset: cs})
		if err != nil {
			return nil, 0, false, fmt.Errorf("load map file: %w", err)
		}
		printOK("Loaded " + cfg.Map.File)
		return m, 0, false, nil
	}

	catalog, err := data.LoadMapCatalog(cfg.Map.CatalogPath)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		log.Debug("no map catalog", zap.String("path", cfg.Map.CatalogPath))
	case err != nil:
		return nil, 0, false, err
	default:
		printStat("Catalogued maps", catalog.Count())
		if info := catalog.Get(cfg.Map.MapID); info != nil {
			gen = gen.WithOverrides(info.Generator)
			if info.File != "" {
				m, err := catalog.Load(cfg.Map.MapID)
				if err == nil {
					printOK("Loaded " + catalog.Path(info))
					return m, 0, false, nil
				}
				log.Warn("catalog map unreadable, generating", zap.Int16("map_id", info.MapID), zap.Error(err))
			}
		}
	}

	if repo != nil {
		m, seed, err = repo.LoadLatest(ctx, mapgen.GeneratedName)
		if err != nil {
			return nil, 0, false, err
		}
		if m != nil {
			printOK(fmt.Sprintf("Restored snapshot (seed %d)", seed))
			return m, seed, true, nil
		}
	}

	res := mapgen.NewGenerator(log).Generate(gen)
	printOK(fmt.Sprintf("Generated (seed %d)", res.Seed))
	if cfg.Map.SaveGenerated != "" {
		cs, err := data.CharsetByName(cfg.Map.Charset)
		if err != nil {
			return nil, 0, false, err
		}
		if err := data.SaveGridFile(cfg.Map.SaveGenerated, res.Map, data.CodecOptions{Charset: cs}); err != nil {
			return nil, 0, false, fmt.Errorf("save generated map: %w", err)
		}
		printOK("Saved to " + cfg.Map.SaveGenerated)
	}
	return res.Map, res.Seed, false, nil
}

func genConfig(c config.GeneratorConfig) mapgen.Config {
	return mapgen.Config{
		Width:            c.Width,
		Height:           c.Height,
		WallDensity:      c.WallDensity,
		SmoothIterations: c.SmoothIterations,
		WallThreshold:    c.WallThreshold,
		WaterChance:      c.WaterChance,
		Seed:             c.Seed,
	}
}

// randomFloor samples floor tiles; falls back to a scan on sparse maps.
func randomFloor(m *data.GridMap, rng *rand.Rand) (int32, int32, bool) {
	for i := 0; i < 64; i++ {
		x, y := int32(rng.Intn(int(m.Width))), int32(rng.Intn(int(m.Height)))
		if m.Get(x, y) == data.TileFloor {
			return x, y, true
		}
	}
	for y := int32(0); y < m.Height; y++ {
		for x := int32(0); x < m.Width; x++ {
			if m.Get(x, y) == data.TileFloor {
				return x, y, true
			}
		}
	}
	return 0, 0, false
}

// planBatch routes random floor pairs concurrently and reports how many
// were reachable.
func planBatch(ctx context.Context, m *data.GridMap, n, workers int) (int, time.Duration, error) {
	rng := rand.New(rand.NewSource(int64(n)))
	queries := make([]pathfind.Query, 0, n)
	for len(queries) < n {
		sx, sy, ok := randomFloor(m, rng)
		if !ok {
			return 0, 0, nil
		}
		ex, ey, _ := randomFloor(m, rng)
		queries = append(queries, pathfind.Query{
			From: pathfind.Point{X: sx, Y: sy},
			To:   pathfind.Point{X: ex, Y: ey},
		})
	}

	start := time.Now()
	results, err := pathfind.FindPaths(ctx, m, nil, queries, workers)
	if err != nil {
		return 0, 0, err
	}
	found := 0
	for _, r := range results {
		if len(r) > 0 {
			found++
		}
	}
	return found, time.Since(start), nil
}

func spawnActors(ws *world.State, sim config.SimulationConfig, rng *rand.Rand) int {
	grid := ws.Grid()
	radius := grid.Width
	if grid.Height > radius {
		radius = grid.Height
	}
	spawned := 0
	for i := 0; i < sim.Actors; i++ {
		x, y, ok := randomFloor(grid, rng)
		if !ok {
			break
		}
		fx, fy, ok := ws.FindFreeTile(x, y, radius)
		if !ok {
			break
		}
		a := &world.Actor{
			ID:        world.NextActorID(),
			Name:      fmt.Sprintf("actor-%d", i+1),
			X:         fx,
			Y:         fy,
			HomeX:     fx,
			HomeY:     fy,
			Speed:     sim.ActorSpeed,
			WanderDir: int16(rng.Intn(8)),
		}
		if ws.AddActor(a) {
			spawned++
		}
	}
	return spawned
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
