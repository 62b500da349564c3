package viz

import (
	"strings"
	"testing"
	"time"

	"github.com/go-logr/logr/funcr"

	"github.com/san-kum/marsvis/internal/scheduler"
	"github.com/san-kum/marsvis/internal/state"
)

func TestLogRendererThrottles(t *testing.T) {
	var lines []string
	log := funcr.New(func(prefix, args string) { lines = append(lines, args) }, funcr.Options{})

	now := time.Unix(0, 0)
	r := NewLogRenderer(log, time.Second)
	r.now = func() time.Time { return now }

	frame := scheduler.Frame{
		Snapshot: state.Snapshot{Progress: state.Progress{HasData: true, CurrentTick: 7, MaxTicks: 100}},
		Stats:    scheduler.Stats{DesiredFPS: 60, MeasuredFPS: 59.6},
	}

	r.Wait(scheduler.Stats{})
	r.Wait(scheduler.Stats{})
	if len(lines) != 1 || !strings.Contains(lines[0], waitingText) {
		t.Fatalf("expected one waiting line, got %q", lines)
	}

	// switching state logs immediately
	r.Render(frame)
	r.Render(frame)
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if !strings.Contains(lines[1], `"tick"=7`) || !strings.Contains(lines[1], `"fps"=60`) {
		t.Errorf("unexpected frame line: %s", lines[1])
	}

	now = now.Add(1500 * time.Millisecond)
	r.Render(frame)
	if len(lines) != 3 {
		t.Errorf("expected a new line after the interval, got %d lines", len(lines))
	}
}
