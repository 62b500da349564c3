package viz

import (
	"sync"
	"time"

	"github.com/go-logr/logr"

	"github.com/san-kum/marsvis/internal/scheduler"
)

const DefaultLogInterval = time.Second

// LogRenderer is the renderer used without a terminal. It logs a one-line
// summary of the latest frame at most once per interval.
type LogRenderer struct {
	log      logr.Logger
	interval time.Duration

	mu      sync.Mutex
	last    time.Time
	waiting bool
	now     func() time.Time
}

func NewLogRenderer(log logr.Logger, interval time.Duration) *LogRenderer {
	if interval <= 0 {
		interval = DefaultLogInterval
	}
	return &LogRenderer{log: log, interval: interval, now: time.Now}
}

func (r *LogRenderer) Render(f scheduler.Frame) {
	if !r.due(false) {
		return
	}
	p := f.Snapshot.Progress
	r.log.Info("frame",
		"tick", p.CurrentTick,
		"maxTicks", p.MaxTicks,
		"entities", f.Snapshot.EntityCount(),
		"geometries", f.Snapshot.Geometries.Len(),
		"cells", f.Snapshot.CellCount(),
		"fps", int(f.Stats.MeasuredFPS+0.5),
		"desiredFps", f.Stats.DesiredFPS,
		"pacingMs", f.Stats.PacingMs,
		"messages", f.Stats.Messages)
}

func (r *LogRenderer) Wait(s scheduler.Stats) {
	if !r.due(true) {
		return
	}
	r.log.Info(waitingText, "connected", s.Connected)
}

// due reports whether a line should be written now. Switching between
// waiting and rendering always logs.
func (r *LogRenderer) due(waiting bool) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	if waiting == r.waiting && !r.last.IsZero() && now.Sub(r.last) < r.interval {
		return false
	}
	r.last = now
	r.waiting = waiting
	return true
}
