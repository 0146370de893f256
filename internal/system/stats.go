package system

import (
	"time"

	"github.com/l1jgo/gridnav/internal/core/event"
	coresys "github.com/l1jgo/gridnav/internal/core/system"
	"go.uber.org/zap"
)

// Totals are cumulative route outcomes since startup.
type Totals struct {
	Completed int
	Blocked   int
	NotFound  int
	Steps     int
	Saves     int
}

// StatsSystem counts route events and logs a summary every interval ticks.
// Phase 3 (PostUpdate).
type StatsSystem struct {
	log       *zap.Logger
	totals    Totals
	window    Totals // since the last summary
	tickCount int
	interval  int
}

func NewStatsSystem(bus *event.Bus, log *zap.Logger, intervalTicks int) *StatsSystem {
	s := &StatsSystem{log: log, interval: intervalTicks}
	event.Subscribe(bus, func(ev event.PathCompleted) {
		s.totals.Completed++
		s.window.Completed++
		s.totals.Steps += ev.Steps
		s.window.Steps += ev.Steps
	})
	event.Subscribe(bus, func(event.PathBlocked) {
		s.totals.Blocked++
		s.window.Blocked++
	})
	event.Subscribe(bus, func(event.PathNotFound) {
		s.totals.NotFound++
		s.window.NotFound++
	})
	event.Subscribe(bus, func(event.MapSaved) {
		s.totals.Saves++
		s.window.Saves++
	})
	return s
}

func (s *StatsSystem) Phase() coresys.Phase { return coresys.PhasePostUpdate }

func (s *StatsSystem) Update(_ time.Duration) {
	if s.interval <= 0 {
		return
	}
	s.tickCount++
	if s.tickCount < s.interval {
		return
	}
	s.tickCount = 0
	s.Flush()
}

// Flush logs the current window and starts a new one.
func (s *StatsSystem) Flush() {
	s.log.Info("route stats",
		zap.Int("completed", s.window.Completed),
		zap.Int("blocked", s.window.Blocked),
		zap.Int("not_found", s.window.NotFound),
		zap.Int("steps", s.window.Steps),
		zap.Int("total_completed", s.totals.Completed),
	)
	s.window = Totals{}
}

// Totals returns the cumulative counters.
func (s *StatsSystem) Totals() Totals {
	return s.totals
}
