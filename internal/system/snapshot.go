package system

import (
	"context"
	"time"

	"github.com/l1jgo/gridnav/internal/core/event"
	coresys "github.com/l1jgo/gridnav/internal/core/system"
	"github.com/l1jgo/gridnav/internal/data"
	"github.com/l1jgo/gridnav/internal/world"
	"go.uber.org/zap"
)

// MapSaver stores map snapshots. *persist.MapRepo satisfies it.
type MapSaver interface {
	Save(ctx context.Context, m *data.GridMap, seed int64) (int64, error)
}

// SnapshotSystem periodically saves the active map when it changed.
// Phase 4 (Persist).
type SnapshotSystem struct {
	world     *world.State
	saver     MapSaver
	bus       *event.Bus
	seed      int64
	log       *zap.Logger
	tickCount int
	interval  int // check every N ticks
}

func NewSnapshotSystem(ws *world.State, saver MapSaver, bus *event.Bus, seed int64, log *zap.Logger, intervalTicks int) *SnapshotSystem {
	return &SnapshotSystem{
		world:    ws,
		saver:    saver,
		bus:      bus,
		seed:     seed,
		log:      log,
		interval: intervalTicks,
	}
}

func (s *SnapshotSystem) Phase() coresys.Phase { return coresys.PhasePersist }

func (s *SnapshotSystem) Update(_ time.Duration) {
	s.tickCount++
	if s.tickCount < s.interval {
		return
	}
	s.tickCount = 0
	s.SaveIfDirty()
}

// SaveIfDirty writes a snapshot when the map changed since the last one.
// Also called on shutdown.
func (s *SnapshotSystem) SaveIfDirty() bool {
	if !s.world.Dirty() {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	m := s.world.Grid()
	id, err := s.saver.Save(ctx, m, s.seed)
	if err != nil {
		s.log.Error("map snapshot failed", zap.String("map", m.Name), zap.Error(err))
		return false
	}
	s.world.MarkSaved()
	sum := data.ChecksumHex(m)
	event.Emit(s.bus, event.MapSaved{Name: m.Name, Checksum: sum})
	s.log.Info("map snapshot saved", zap.String("map", m.Name), zap.Int64("id", id), zap.String("checksum", sum))
	return true
}
