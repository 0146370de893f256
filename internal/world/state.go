package world

import (
	"github.com/l1jgo/gridnav/internal/data"
	"github.com/l1jgo/gridnav/internal/pathfind"
)

// State tracks the active map, its actors and their tile occupancy.
// Single-goroutine access only (game loop).
type State struct {
	grid *data.GridMap
	occ  *OccupancyMap

	actors    map[int32]*Actor
	actorList []*Actor // iteration order for systems

	dirty bool // grid changed since last snapshot
}

// NewState creates world state over grid.
func NewState(grid *data.GridMap) *State {
	return &State{
		grid:   grid,
		occ:    NewOccupancyMap(),
		actors: make(map[int32]*Actor),
		dirty:  true,
	}
}

// Grid returns the active map.
func (s *State) Grid() *data.GridMap {
	return s.grid
}

// Occupancy returns the tile occupancy index.
func (s *State) Occupancy() *OccupancyMap {
	return s.occ
}

// LoadLevel swaps in a new map: every actor is removed and occupancy reset.
func (s *State) LoadLevel(grid *data.GridMap) {
	s.grid = grid
	clear(s.actors)
	s.actorList = s.actorList[:0]
	s.occ.Clear()
	s.dirty = true
}

// SetTile edits one cell of the active map between queries (level tools).
func (s *State) SetTile(x, y int32, kind data.TileKind) {
	if !s.grid.InBounds(x, y) || s.grid.GetUnchecked(x, y) == kind {
		return
	}
	s.grid.Set(x, y, kind)
	s.dirty = true
}

// Dirty reports whether the map changed since MarkSaved.
func (s *State) Dirty() bool {
	return s.dirty
}

// MarkSaved clears the dirty flag after a snapshot.
func (s *State) MarkSaved() {
	s.dirty = false
}

// IsWalkable reports whether an actor could step onto (x,y) right now:
// open terrain and not occupied.
func (s *State) IsWalkable(x, y int32) bool {
	return pathfind.IsTileWalkable(s.grid, x, y) && !s.occ.IsOccupied(x, y)
}

// AddActor places an actor on its tile. Returns false if the tile is not
// walkable or already occupied.
func (s *State) AddActor(a *Actor) bool {
	if _, exists := s.actors[a.ID]; exists {
		return false
	}
	if !s.IsWalkable(a.X, a.Y) {
		return false
	}
	s.actors[a.ID] = a
	s.actorList = append(s.actorList, a)
	s.occ.SetOccupied(a.X, a.Y)
	return true
}

// ActorList returns all actors in insertion order (swap-removes reorder).
func (s *State) ActorList() []*Actor {
	return s.actorList
}

// ActorCount returns the number of actors.
func (s *State) ActorCount() int {
	return len(s.actors)
}

// RemoveActor deletes an actor and frees its tile.
func (s *State) RemoveActor(id int32) *Actor {
	a, ok := s.actors[id]
	if !ok {
		return nil
	}
	s.occ.SetUnoccupied(a.X, a.Y)
	delete(s.actors, id)
	// Remove from actorList (swap-delete for O(1))
	for i, other := range s.actorList {
		if other.ID == id {
			s.actorList[i] = s.actorList[len(s.actorList)-1]
			s.actorList = s.actorList[:len(s.actorList)-1]
			break
		}
	}
	return a
}

// MoveActor commits an actor to a new tile and updates occupancy.
func (s *State) MoveActor(id int32, newX, newY int32, heading int16) {
	a := s.actors[id]
	if a == nil {
		return
	}
	oldX, oldY := a.X, a.Y
	a.X = newX
	a.Y = newY
	a.Heading = heading
	if oldX != newX || oldY != newY {
		s.occ.Move(oldX, oldY, newX, newY)
	}
}

// FindFreeTile returns (x,y) if free, else the nearest walkable,
// unoccupied tile within radius in a square spiral.
func (s *State) FindFreeTile(x, y, radius int32) (int32, int32, bool) {
	if s.IsWalkable(x, y) {
		return x, y, true
	}
	for r := int32(1); r <= radius; r++ {
		for dx := -r; dx <= r; dx++ {
			for dy := -r; dy <= r; dy++ {
				if Chebyshev(0, 0, dx, dy) != r {
					continue // inner rings already tried
				}
				tx, ty := x+dx, y+dy
				if s.IsWalkable(tx, ty) {
					return tx, ty, true
				}
			}
		}
	}
	return 0, 0, false
}
