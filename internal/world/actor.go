package world

import (
	"sync/atomic"

	"github.com/l1jgo/gridnav/internal/pathfind"
)

// actorIDCounter generates unique actor IDs.
var actorIDCounter atomic.Int32

// NextActorID returns a unique actor ID.
func NextActorID() int32 {
	return actorIDCounter.Add(1)
}

// Actor is a mobile entity that occupies exactly one tile.
// Accessed only from the game loop goroutine, no locks.
type Actor struct {
	ID      int32
	Name    string
	X       int32 // committed tile
	Y       int32
	Heading int16 // 0=N, 1=NE, 2=E, 3=SE, 4=S, 5=SW, 6=W, 7=NW

	HomeX int32
	HomeY int32

	// Speed is in tiles per second along orthogonal legs.
	Speed float64

	// Route being followed. Path[PathIndex] is the next waypoint; Progress
	// is how far (0..1) the actor has travelled from (X,Y) towards it.
	Path      []pathfind.Point
	PathIndex int
	Progress  float64

	// Wander state
	WanderDir  int16
	WanderDist int
	MoveTimer  int // ticks until the AI may act again

	// Counters for stats output.
	Arrivals int
	Blocked  int
}

// HasPath reports whether the actor is following a route.
func (a *Actor) HasPath() bool {
	return a.PathIndex < len(a.Path)
}

// NextWaypoint returns the waypoint being walked towards.
func (a *Actor) NextWaypoint() (pathfind.Point, bool) {
	if !a.HasPath() {
		return pathfind.Point{}, false
	}
	return a.Path[a.PathIndex], true
}

// SetPath starts following path from the actor's current tile.
func (a *Actor) SetPath(path []pathfind.Point) {
	a.Path = path
	a.PathIndex = 0
	a.Progress = 0
}

// ClearPath drops the current route.
func (a *Actor) ClearPath() {
	a.Path = nil
	a.PathIndex = 0
	a.Progress = 0
}

// Position returns the interpolated position between the committed tile
// and the next waypoint, for rendering or proximity checks.
func (a *Actor) Position() (float64, float64) {
	wp, ok := a.NextWaypoint()
	if !ok {
		return float64(a.X), float64(a.Y)
	}
	fx := float64(a.X) + (float64(wp.X)-float64(a.X))*a.Progress
	fy := float64(a.Y) + (float64(wp.Y)-float64(a.Y))*a.Progress
	return fx, fy
}

var headingDX = [8]int32{0, 1, 1, 1, 0, -1, -1, -1}
var headingDY = [8]int32{-1, -1, 0, 1, 1, 1, 0, -1}

// HeadingDelta returns the tile step for a heading 0-7.
func HeadingDelta(heading int16) (int32, int32) {
	h := heading & 7
	return headingDX[h], headingDY[h]
}

// CalcHeading returns the heading from (sx,sy) towards (tx,ty).
func CalcHeading(sx, sy, tx, ty int32) int16 {
	ddx := sign32(tx - sx)
	ddy := sign32(ty - sy)
	for i := int16(0); i < 8; i++ {
		if headingDX[i] == ddx && headingDY[i] == ddy {
			return i
		}
	}
	return 0
}

func sign32(v int32) int32 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}

// Chebyshev returns the king-move distance between two tiles.
func Chebyshev(x1, y1, x2, y2 int32) int32 {
	dx := x1 - x2
	dy := y1 - y2
	if dx < 0 {
		dx = -dx
	}
	if dy < 0 {
		dy = -dy
	}
	if dy > dx {
		return dy
	}
	return dx
}
