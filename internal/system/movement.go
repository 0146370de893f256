package system

import (
	"math"
	"time"

	"github.com/l1jgo/gridnav/internal/core/event"
	coresys "github.com/l1jgo/gridnav/internal/core/system"
	"github.com/l1jgo/gridnav/internal/pathfind"
	"github.com/l1jgo/gridnav/internal/world"
	"go.uber.org/zap"
)

// MovementSystem advances actors along their routes. Occupancy is only
// committed when an actor reaches a waypoint, so at most one actor holds
// each tile. Phase 2 (Movement).
type MovementSystem struct {
	world *world.State
	bus   *event.Bus
	log   *zap.Logger
}

func NewMovementSystem(ws *world.State, bus *event.Bus, log *zap.Logger) *MovementSystem {
	return &MovementSystem{world: ws, bus: bus, log: log}
}

func (s *MovementSystem) Phase() coresys.Phase { return coresys.PhaseMovement }

func (s *MovementSystem) Update(dt time.Duration) {
	secs := dt.Seconds()
	for _, a := range s.world.ActorList() {
		if !a.HasPath() || a.Speed <= 0 {
			continue
		}
		s.advance(a, a.Speed*secs)
	}
}

// advance spends budget tiles of travel. Diagonal legs are √2 long, so they
// consume progress at 1/√2 the orthogonal rate.
func (s *MovementSystem) advance(a *world.Actor, budget float64) {
	occ := s.world.Occupancy()
	for budget > 0 {
		wp, ok := a.NextWaypoint()
		if !ok {
			return
		}
		// The waypoint was taken or walled off after the route was planned.
		if occ.IsOccupied(wp.X, wp.Y) || !pathfind.IsTileWalkable(s.world.Grid(), wp.X, wp.Y) {
			s.block(a, wp.X, wp.Y)
			return
		}

		legLen := 1.0
		if wp.X != a.X && wp.Y != a.Y {
			legLen = math.Sqrt2
		}
		remaining := (1 - a.Progress) * legLen
		if budget < remaining {
			a.Progress += budget / legLen
			return
		}
		budget -= remaining

		s.world.MoveActor(a.ID, wp.X, wp.Y, world.CalcHeading(a.X, a.Y, wp.X, wp.Y))
		a.PathIndex++
		a.Progress = 0

		if !a.HasPath() {
			a.Arrivals++
			event.Emit(s.bus, event.PathCompleted{ActorID: a.ID, X: a.X, Y: a.Y, Steps: len(a.Path)})
			a.ClearPath()
			return
		}
	}
}

func (s *MovementSystem) block(a *world.Actor, x, y int32) {
	a.Blocked++
	a.ClearPath()
	a.WanderDist = 0
	event.Emit(s.bus, event.PathBlocked{ActorID: a.ID, X: x, Y: y})
	s.log.Debug("route blocked", zap.Int32("actor", a.ID), zap.Int32("x", x), zap.Int32("y", y))
}
