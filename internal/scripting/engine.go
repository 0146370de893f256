package scripting

import (
	"fmt"
	"os"
	"path/filepath"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// Engine wraps a single gopher-lua VM for actor decision logic.
// Single-goroutine access only (game loop).
type Engine struct {
	vm  *lua.LState
	log *zap.Logger
}

// NewEngine creates a Lua engine and loads all scripts from the given
// directory: core/ first, then ai/. Missing sub-directories are skipped.
func NewEngine(scriptsDir string, log *zap.Logger) (*Engine, error) {
	e := newEngine(log)
	for _, sub := range []string{"core", "ai"} {
		p := filepath.Join(scriptsDir, sub)
		if err := e.loadDir(p); err != nil {
			e.Close()
			return nil, fmt.Errorf("load %s scripts: %w", sub, err)
		}
	}
	return e, nil
}

// NewEngineFromString creates an engine from a single chunk of Lua source.
func NewEngineFromString(src string, log *zap.Logger) (*Engine, error) {
	e := newEngine(log)
	if err := e.vm.DoString(src); err != nil {
		e.Close()
		return nil, fmt.Errorf("load lua source: %w", err)
	}
	return e, nil
}

func newEngine(log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	vm := lua.NewState(lua.Options{
		SkipOpenLibs: false,
	})
	vm.SetGlobal("API_VERSION", lua.LNumber(1))
	return &Engine{vm: vm, log: log}
}

// Close releases the VM.
func (e *Engine) Close() {
	e.vm.Close()
}

// loadDir loads all .lua files in a directory.
func (e *Engine) loadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".lua" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := e.vm.DoFile(path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		e.log.Debug("loaded lua script", zap.String("file", path))
	}
	return nil
}

// HasActorAI reports whether actor_ai is defined.
func (e *Engine) HasActorAI() bool {
	return e.vm.GetGlobal("actor_ai") != lua.LNil
}

// ActorContext holds pre-packed data for one actor decision.
type ActorContext struct {
	ActorID int
	X, Y    int
	HomeX   int
	HomeY   int

	HomeDist   int // Chebyshev distance to home
	WanderDist int // remaining steps of the current wander leg
	Heading    int
	HasPath    bool
	Radius     int // wander leash

	// Open[d] is true when a single step in heading d is possible now:
	// walkable terrain, no occupant, no corner cut.
	Open [8]bool

	// Random target picked by Go (walkable, inside the leash), for
	// scripts that want to plan a longer trip. Valid when HasTarget.
	HasTarget bool
	TargetX   int
	TargetY   int
}

// ActorCommand is a single action returned by Lua AI.
type ActorCommand struct {
	Type string // "wander", "move_to", "home", "idle"
	Dir  int    // heading 0-7 for wander (-1 = continue current)
	Dist int    // wander leg length (0 = keep)
	X, Y int    // move_to target
}

// RunActorAI calls Lua actor_ai(ctx) and returns its commands. Returns nil
// when the function is missing or fails.
func (e *Engine) RunActorAI(ctx ActorContext) []ActorCommand {
	fn := e.vm.GetGlobal("actor_ai")
	if fn == lua.LNil {
		return nil
	}

	t := e.vm.NewTable()
	t.RawSetString("actor_id", lua.LNumber(ctx.ActorID))
	t.RawSetString("x", lua.LNumber(ctx.X))
	t.RawSetString("y", lua.LNumber(ctx.Y))
	t.RawSetString("home_x", lua.LNumber(ctx.HomeX))
	t.RawSetString("home_y", lua.LNumber(ctx.HomeY))
	t.RawSetString("home_dist", lua.LNumber(ctx.HomeDist))
	t.RawSetString("wander_dist", lua.LNumber(ctx.WanderDist))
	t.RawSetString("heading", lua.LNumber(ctx.Heading))
	t.RawSetString("has_path", lua.LBool(ctx.HasPath))
	t.RawSetString("radius", lua.LNumber(ctx.Radius))

	// Lua arrays are 1-based: open[heading+1].
	open := e.vm.NewTable()
	for _, ok := range ctx.Open {
		open.Append(lua.LBool(ok))
	}
	t.RawSetString("open", open)

	t.RawSetString("has_target", lua.LBool(ctx.HasTarget))
	t.RawSetString("target_x", lua.LNumber(ctx.TargetX))
	t.RawSetString("target_y", lua.LNumber(ctx.TargetY))

	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, t); err != nil {
		e.log.Error("lua actor_ai error", zap.Int("actor", ctx.ActorID), zap.Error(err))
		return nil
	}

	ret := e.vm.Get(-1)
	e.vm.Pop(1)

	rt, ok := ret.(*lua.LTable)
	if !ok {
		return nil
	}

	var cmds []ActorCommand
	rt.ForEach(func(_, v lua.LValue) {
		if row, ok := v.(*lua.LTable); ok {
			cmds = append(cmds, ActorCommand{
				Type: lStr(row, "type"),
				Dir:  lIntDefault(row, "dir", -1),
				Dist: lInt(row, "dist"),
				X:    lInt(row, "x"),
				Y:    lInt(row, "y"),
			})
		}
	})
	return cmds
}

func lInt(t *lua.LTable, key string) int {
	return lIntDefault(t, key, 0)
}

func lIntDefault(t *lua.LTable, key string, def int) int {
	if v, ok := t.RawGetString(key).(lua.LNumber); ok {
		return int(v)
	}
	return def
}

func lStr(t *lua.LTable, key string) string {
	if v, ok := t.RawGetString(key).(lua.LString); ok {
		return string(v)
	}
	return ""
}
