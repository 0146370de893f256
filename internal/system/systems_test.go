package system

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/l1jgo/gridnav/internal/core/event"
	coresys "github.com/l1jgo/gridnav/internal/core/system"
	"github.com/l1jgo/gridnav/internal/data"
	"github.com/l1jgo/gridnav/internal/mapgen"
	"github.com/l1jgo/gridnav/internal/pathfind"
	"github.com/l1jgo/gridnav/internal/scripting"
	"github.com/l1jgo/gridnav/internal/world"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// gridFromRows builds a map from '.' floor and '#' wall rows.
func gridFromRows(rows ...string) *data.GridMap {
	m := data.NewGridMap("test", int32(len(rows[0])), int32(len(rows)))
	for y, row := range rows {
		for x, c := range row {
			k := data.TileWall
			if c == '.' {
				k = data.TileFloor
			}
			m.Set(int32(x), int32(y), k)
		}
	}
	return m
}

func openRoom() *data.GridMap {
	return gridFromRows(
		"##########",
		"#........#",
		"#........#",
		"#........#",
		"#........#",
		"##########",
	)
}

func addActor(t *testing.T, ws *world.State, x, y int32, speed float64) *world.Actor {
	t.Helper()
	a := &world.Actor{ID: world.NextActorID(), X: x, Y: y, HomeX: x, HomeY: y, Speed: speed}
	require.True(t, ws.AddActor(a))
	return a
}

// collect subscribes to T and returns a pointer to the delivered events.
func collect[T any](bus *event.Bus) *[]T {
	var got []T
	event.Subscribe(bus, func(ev T) { got = append(got, ev) })
	return &got
}

func deliver(bus *event.Bus) {
	bus.SwapBuffers()
	bus.DispatchAll()
}

func TestMovementOrthogonalLeg(t *testing.T) {
	ws := world.NewState(openRoom())
	bus := event.NewBus()
	done := collect[event.PathCompleted](bus)
	mv := NewMovementSystem(ws, bus, zaptest.NewLogger(t))

	a := addActor(t, ws, 1, 1, 1)
	a.SetPath([]pathfind.Point{{X: 2, Y: 1}})

	mv.Update(500 * time.Millisecond)
	assert.InDelta(t, 0.5, a.Progress, 1e-9)
	assert.Equal(t, int32(1), a.X)
	assert.True(t, ws.Occupancy().IsOccupied(1, 1))
	assert.False(t, ws.Occupancy().IsOccupied(2, 1), "not committed mid-leg")

	fx, _ := a.Position()
	assert.InDelta(t, 1.5, fx, 1e-9)

	mv.Update(500 * time.Millisecond)
	assert.Equal(t, int32(2), a.X)
	assert.Equal(t, int16(2), a.Heading, "east")
	assert.False(t, a.HasPath())
	assert.Equal(t, 1, a.Arrivals)
	assert.False(t, ws.Occupancy().IsOccupied(1, 1))
	assert.True(t, ws.Occupancy().IsOccupied(2, 1))

	deliver(bus)
	assert.Equal(t, []event.PathCompleted{{ActorID: a.ID, X: 2, Y: 1, Steps: 1}}, *done)
}

func TestMovementDiagonalIsSlower(t *testing.T) {
	ws := world.NewState(openRoom())
	mv := NewMovementSystem(ws, event.NewBus(), zaptest.NewLogger(t))

	a := addActor(t, ws, 1, 1, 1)
	a.SetPath([]pathfind.Point{{X: 2, Y: 2}})

	mv.Update(time.Second)
	assert.InDelta(t, 1/math.Sqrt2, a.Progress, 1e-9)
	assert.True(t, a.HasPath())

	mv.Update(time.Second)
	assert.Equal(t, int32(2), a.X)
	assert.Equal(t, int32(2), a.Y)
	assert.Equal(t, int16(3), a.Heading, "south-east")
}

func TestMovementCarriesBudgetAcrossWaypoints(t *testing.T) {
	ws := world.NewState(openRoom())
	mv := NewMovementSystem(ws, event.NewBus(), zaptest.NewLogger(t))

	a := addActor(t, ws, 1, 1, 10)
	a.SetPath([]pathfind.Point{{X: 2, Y: 1}, {X: 3, Y: 1}, {X: 4, Y: 1}})

	mv.Update(time.Second)
	assert.Equal(t, int32(4), a.X)
	assert.False(t, a.HasPath())
	assert.Equal(t, 1, ws.Occupancy().Len())
	assert.True(t, ws.Occupancy().IsOccupied(4, 1))
}

func TestMovementBlockedWaypoint(t *testing.T) {
	ws := world.NewState(openRoom())
	bus := event.NewBus()
	blocked := collect[event.PathBlocked](bus)
	mv := NewMovementSystem(ws, bus, zaptest.NewLogger(t))

	a := addActor(t, ws, 1, 1, 1)
	a.SetPath([]pathfind.Point{{X: 2, Y: 1}, {X: 3, Y: 1}})
	addActor(t, ws, 2, 1, 0)

	mv.Update(500 * time.Millisecond)
	assert.False(t, a.HasPath())
	assert.Equal(t, 1, a.Blocked)
	assert.Equal(t, int32(1), a.X)

	deliver(bus)
	assert.Equal(t, []event.PathBlocked{{ActorID: a.ID, X: 2, Y: 1}}, *blocked)
}

func TestMovementWalledWaypoint(t *testing.T) {
	ws := world.NewState(openRoom())
	bus := event.NewBus()
	blocked := collect[event.PathBlocked](bus)
	mv := NewMovementSystem(ws, bus, zaptest.NewLogger(t))

	a := addActor(t, ws, 1, 1, 1)
	a.SetPath([]pathfind.Point{{X: 2, Y: 1}, {X: 3, Y: 1}})
	mv.Update(500 * time.Millisecond)
	require.True(t, a.HasPath())

	ws.SetTile(2, 1, data.TileWall)
	mv.Update(500 * time.Millisecond)
	assert.False(t, a.HasPath())
	assert.Equal(t, 1, a.Blocked)
	assert.Equal(t, int32(1), a.X, "never commits onto a wall")
	assert.True(t, ws.Occupancy().IsOccupied(1, 1))
	assert.False(t, ws.Occupancy().IsOccupied(2, 1))

	deliver(bus)
	assert.Equal(t, []event.PathBlocked{{ActorID: a.ID, X: 2, Y: 1}}, *blocked)
}

func TestMovementZeroSpeed(t *testing.T) {
	ws := world.NewState(openRoom())
	mv := NewMovementSystem(ws, event.NewBus(), zaptest.NewLogger(t))

	a := addActor(t, ws, 1, 1, 0)
	a.SetPath([]pathfind.Point{{X: 2, Y: 1}})
	mv.Update(time.Second)
	assert.Zero(t, a.Progress)
	assert.True(t, a.HasPath())
}

func TestWanderPlansRouteHome(t *testing.T) {
	ws := world.NewState(openRoom())
	bus := event.NewBus()
	w := NewWanderSystem(ws, nil, bus, rand.New(rand.NewSource(1)), 2, zaptest.NewLogger(t))

	a := addActor(t, ws, 1, 1, 1)
	a.HomeX, a.HomeY = 8, 4

	w.Update(0)
	require.True(t, a.HasPath())
	last := a.Path[len(a.Path)-1]
	assert.Equal(t, pathfind.Point{X: 8, Y: 4}, last)
	assert.Len(t, a.Path, 7, "octile route: 3 diagonal + 4 straight")
}

func TestWanderPathNotFound(t *testing.T) {
	ws := world.NewState(gridFromRows(
		"#######",
		"#..#..#",
		"#..#..#",
		"#######",
	))
	bus := event.NewBus()
	missed := collect[event.PathNotFound](bus)
	w := NewWanderSystem(ws, nil, bus, rand.New(rand.NewSource(1)), 1, zaptest.NewLogger(t))

	a := addActor(t, ws, 1, 1, 1)
	a.HomeX, a.HomeY = 5, 2

	w.Update(0)
	assert.False(t, a.HasPath())
	assert.Equal(t, idleTicks, a.MoveTimer)

	deliver(bus)
	assert.Equal(t, []event.PathNotFound{{ActorID: a.ID, FromX: 1, FromY: 1, ToX: 5, ToY: 2}}, *missed)

	w.Update(0)
	assert.Equal(t, idleTicks-1, a.MoveTimer, "idle actors count down")
}

func TestWanderUsesLuaCommands(t *testing.T) {
	src := `
function actor_ai(ctx)
  if ctx.open[3] then
    return { { type = "wander", dir = 2, dist = 4 } }
  end
  return { { type = "move_to", x = 1, y = 4 } }
end
`
	eng, err := scripting.NewEngineFromString(src, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer eng.Close()

	ws := world.NewState(openRoom())
	w := NewWanderSystem(ws, eng, event.NewBus(), rand.New(rand.NewSource(1)), 20, zaptest.NewLogger(t))

	a := addActor(t, ws, 1, 1, 1)
	w.Update(0)
	require.True(t, a.HasPath())
	assert.Equal(t, []pathfind.Point{{X: 2, Y: 1}}, a.Path)
	assert.Equal(t, int16(2), a.WanderDir)
	assert.Equal(t, 3, a.WanderDist)

	// East is closed: the script falls back to a planned trip.
	b := addActor(t, ws, 8, 1, 1)
	w.Update(0)
	require.True(t, b.HasPath())
	assert.Equal(t, pathfind.Point{X: 1, Y: 4}, b.Path[len(b.Path)-1])
}

func TestWanderDoesNotStepIntoOccupiedTile(t *testing.T) {
	ws := world.NewState(gridFromRows(
		"#####",
		"#...#",
		"#####",
	))
	w := NewWanderSystem(ws, nil, event.NewBus(), rand.New(rand.NewSource(3)), 5, zaptest.NewLogger(t))

	a := addActor(t, ws, 1, 1, 1)
	addActor(t, ws, 2, 1, 0)
	a.WanderDir, a.WanderDist = 2, 3

	for i := 0; i < 20; i++ {
		w.Update(0)
		assert.False(t, a.HasPath(), "every neighbour is blocked")
	}
}

func TestSimulationKeepsOneActorPerTile(t *testing.T) {
	cfg := mapgen.DefaultConfig()
	cfg.Width, cfg.Height, cfg.Seed = 40, 30, 11
	ws := world.NewState(mapgen.Generate(cfg))

	bus := event.NewBus()
	log := zaptest.NewLogger(t)
	rng := rand.New(rand.NewSource(5))
	stats := NewStatsSystem(bus, log, 50)

	runner := coresys.NewRunner()
	runner.Register(stats)
	runner.Register(NewMovementSystem(ws, bus, log))
	runner.Register(NewWanderSystem(ws, nil, bus, rng, 6, log))
	runner.Register(NewEventDispatchSystem(bus))

	for i := 0; i < 24; i++ {
		x, y, ok := ws.FindFreeTile(int32(rng.Intn(40)), int32(rng.Intn(30)), 40)
		require.True(t, ok)
		addActor(t, ws, x, y, 3)
	}

	for tick := 0; tick < 300; tick++ {
		runner.Tick(200 * time.Millisecond)

		require.Equal(t, ws.ActorCount(), ws.Occupancy().Len())
		for _, a := range ws.ActorList() {
			require.True(t, ws.Occupancy().IsOccupied(a.X, a.Y))
			require.Equal(t, data.TileFloor, ws.Grid().Get(a.X, a.Y))
		}
	}
	assert.Equal(t, uint64(300), runner.Ticks())
	assert.Positive(t, stats.Totals().Completed)
}

func TestStatsCountsEvents(t *testing.T) {
	bus := event.NewBus()
	s := NewStatsSystem(bus, zaptest.NewLogger(t), 2)

	event.Emit(bus, event.PathCompleted{ActorID: 1, Steps: 4})
	event.Emit(bus, event.PathCompleted{ActorID: 2, Steps: 3})
	event.Emit(bus, event.PathBlocked{ActorID: 1})
	event.Emit(bus, event.PathNotFound{ActorID: 3})
	event.Emit(bus, event.MapSaved{Name: "m"})
	NewEventDispatchSystem(bus).Update(0)

	assert.Equal(t, Totals{Completed: 2, Blocked: 1, NotFound: 1, Steps: 7, Saves: 1}, s.Totals())

	s.Update(0)
	s.Update(0) // flushes the window, totals stay
	assert.Equal(t, 2, s.Totals().Completed)
	assert.Equal(t, Totals{}, s.window)
}

type fakeSaver struct {
	calls int
	err   error
}

func (f *fakeSaver) Save(_ context.Context, _ *data.GridMap, _ int64) (int64, error) {
	f.calls++
	return int64(f.calls), f.err
}

func TestSnapshotSavesOnlyWhenDirty(t *testing.T) {
	ws := world.NewState(openRoom())
	bus := event.NewBus()
	saved := collect[event.MapSaved](bus)
	saver := &fakeSaver{}
	s := NewSnapshotSystem(ws, saver, bus, 9, zaptest.NewLogger(t), 2)

	s.Update(0)
	assert.Zero(t, saver.calls, "interval not reached")
	s.Update(0)
	assert.Equal(t, 1, saver.calls)
	assert.False(t, ws.Dirty())

	deliver(bus)
	require.Len(t, *saved, 1)
	assert.Equal(t, "test", (*saved)[0].Name)
	assert.Equal(t, data.ChecksumHex(ws.Grid()), (*saved)[0].Checksum)

	s.Update(0)
	s.Update(0)
	assert.Equal(t, 1, saver.calls, "clean map is not saved again")

	ws.SetTile(1, 1, data.TileWater)
	assert.True(t, s.SaveIfDirty())
	assert.Equal(t, 2, saver.calls)
}

func TestSnapshotKeepsDirtyOnError(t *testing.T) {
	ws := world.NewState(openRoom())
	saver := &fakeSaver{err: errors.New("db down")}
	s := NewSnapshotSystem(ws, saver, event.NewBus(), 0, zaptest.NewLogger(t), 1)

	assert.False(t, s.SaveIfDirty())
	assert.True(t, ws.Dirty())
}
