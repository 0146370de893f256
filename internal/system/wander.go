package system

import (
	"math/rand"
	"time"

	"github.com/l1jgo/gridnav/internal/core/event"
	coresys "github.com/l1jgo/gridnav/internal/core/system"
	"github.com/l1jgo/gridnav/internal/pathfind"
	"github.com/l1jgo/gridnav/internal/scripting"
	"github.com/l1jgo/gridnav/internal/world"
	"go.uber.org/zap"
)

const (
	idleTicks      = 2 // pause after an "idle" decision
	targetAttempts = 8 // random samples when picking a trip target
	minWanderLeg   = 2
	maxWanderLeg   = 6
)

// WanderSystem decides what idle actors do: Lua picks the command, Go
// checks the map and plans routes. Actors already following a path are
// left to MovementSystem. Phase 1 (Update).
type WanderSystem struct {
	world   *world.State
	pf      *pathfind.Pathfinder
	scripts *scripting.Engine // nil = built-in wandering
	bus     *event.Bus
	rng     *rand.Rand
	radius  int32
	log     *zap.Logger
}

func NewWanderSystem(ws *world.State, scripts *scripting.Engine, bus *event.Bus, rng *rand.Rand, radius int32, log *zap.Logger) *WanderSystem {
	if scripts != nil && !scripts.HasActorAI() {
		scripts = nil
	}
	return &WanderSystem{
		world:   ws,
		pf:      pathfind.New(),
		scripts: scripts,
		bus:     bus,
		rng:     rng,
		radius:  radius,
		log:     log,
	}
}

func (s *WanderSystem) Phase() coresys.Phase { return coresys.PhaseUpdate }

func (s *WanderSystem) Update(_ time.Duration) {
	for _, a := range s.world.ActorList() {
		if a.HasPath() {
			continue
		}
		if a.MoveTimer > 0 {
			a.MoveTimer--
			continue
		}
		for _, cmd := range s.decide(a) {
			s.execute(a, cmd)
		}
	}
}

// canStep reports whether a single step in heading dir is possible now.
// Diagonal steps also need both orthogonal tiles open terrain.
func (s *WanderSystem) canStep(a *world.Actor, dir int16) bool {
	grid := s.world.Grid()
	dx, dy := world.HeadingDelta(dir)
	nx, ny := a.X+dx, a.Y+dy
	if !s.world.IsWalkable(nx, ny) {
		return false
	}
	if dx != 0 && dy != 0 {
		return pathfind.IsTileWalkable(grid, nx, a.Y) && pathfind.IsTileWalkable(grid, a.X, ny)
	}
	return true
}

// pickTarget samples a walkable tile inside the leash around home.
func (s *WanderSystem) pickTarget(a *world.Actor) (int32, int32, bool) {
	if s.radius <= 0 {
		return 0, 0, false
	}
	span := int(s.radius)*2 + 1
	for i := 0; i < targetAttempts; i++ {
		tx := a.HomeX + int32(s.rng.Intn(span)) - s.radius
		ty := a.HomeY + int32(s.rng.Intn(span)) - s.radius
		if (tx != a.X || ty != a.Y) && s.world.IsWalkable(tx, ty) {
			return tx, ty, true
		}
	}
	return 0, 0, false
}

func (s *WanderSystem) context(a *world.Actor) scripting.ActorContext {
	ctx := scripting.ActorContext{
		ActorID:    int(a.ID),
		X:          int(a.X),
		Y:          int(a.Y),
		HomeX:      int(a.HomeX),
		HomeY:      int(a.HomeY),
		HomeDist:   int(world.Chebyshev(a.X, a.Y, a.HomeX, a.HomeY)),
		WanderDist: a.WanderDist,
		Heading:    int(a.WanderDir),
		HasPath:    a.HasPath(),
		Radius:     int(s.radius),
	}
	for d := int16(0); d < 8; d++ {
		ctx.Open[d] = s.canStep(a, d)
	}
	if tx, ty, ok := s.pickTarget(a); ok {
		ctx.HasTarget = true
		ctx.TargetX, ctx.TargetY = int(tx), int(ty)
	}
	return ctx
}

func (s *WanderSystem) decide(a *world.Actor) []scripting.ActorCommand {
	ctx := s.context(a)
	if s.scripts != nil {
		if cmds := s.scripts.RunActorAI(ctx); cmds != nil {
			return cmds
		}
	}
	return s.builtinDecide(ctx)
}

// builtinDecide is the fallback when no Lua actor_ai is loaded.
func (s *WanderSystem) builtinDecide(ctx scripting.ActorContext) []scripting.ActorCommand {
	if ctx.HomeDist > ctx.Radius {
		return []scripting.ActorCommand{{Type: "home"}}
	}
	if ctx.WanderDist > 0 && ctx.Open[ctx.Heading&7] {
		return []scripting.ActorCommand{{Type: "wander", Dir: -1}}
	}
	if s.rng.Intn(3) == 0 {
		var open []int
		for d, ok := range ctx.Open {
			if ok {
				open = append(open, d)
			}
		}
		if len(open) > 0 {
			return []scripting.ActorCommand{{Type: "wander", Dir: open[s.rng.Intn(len(open))]}}
		}
	}
	return []scripting.ActorCommand{{Type: "idle"}}
}

func (s *WanderSystem) execute(a *world.Actor, cmd scripting.ActorCommand) {
	switch cmd.Type {
	case "wander":
		s.wander(a, cmd.Dir, cmd.Dist)
	case "move_to":
		s.planRoute(a, int32(cmd.X), int32(cmd.Y))
	case "home":
		s.planRoute(a, a.HomeX, a.HomeY)
	case "idle":
		a.MoveTimer = idleTicks
	default:
		s.log.Warn("unknown actor command", zap.Int32("actor", a.ID), zap.String("type", cmd.Type))
	}
}

// wander queues a one-tile step. dir: 0-7 = new direction, -1 = continue.
func (s *WanderSystem) wander(a *world.Actor, dir, dist int) {
	if dir >= 0 {
		a.WanderDir = int16(dir & 7)
		a.WanderDist = dist
		if a.WanderDist <= 0 {
			a.WanderDist = minWanderLeg + s.rng.Intn(maxWanderLeg-minWanderLeg+1)
		}
	}
	if a.WanderDist <= 0 {
		return
	}
	if !s.canStep(a, a.WanderDir) {
		a.WanderDist = 0
		return
	}
	dx, dy := world.HeadingDelta(a.WanderDir)
	a.WanderDist--
	a.SetPath([]pathfind.Point{{X: a.X + dx, Y: a.Y + dy}})
}

// planRoute sets an occupancy-aware route to (tx,ty).
func (s *WanderSystem) planRoute(a *world.Actor, tx, ty int32) {
	if a.X == tx && a.Y == ty {
		return
	}
	path := s.pf.FindPathAvoiding(s.world.Grid(), s.world.Occupancy(), a.X, a.Y, tx, ty)
	if len(path) == 0 {
		event.Emit(s.bus, event.PathNotFound{ActorID: a.ID, FromX: a.X, FromY: a.Y, ToX: tx, ToY: ty})
		a.MoveTimer = idleTicks
		return
	}
	a.WanderDist = 0
	a.SetPath(path)
	s.log.Debug("route planned",
		zap.Int32("actor", a.ID),
		zap.Int("steps", len(path)),
		zap.Int("expanded", s.pf.Expanded()),
	)
}
