package pacing

import (
	"sync"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	c := New(0, 0)
	if c.RenderRate() != DefaultRenderRate {
		t.Errorf("expected render rate %d, got %d", DefaultRenderRate, c.RenderRate())
	}
	if c.CurrentIngestPacing() != DefaultIngestPacing {
		t.Errorf("expected pacing %d, got %d", DefaultIngestPacing, c.CurrentIngestPacing())
	}
}

func TestNewClampsInitialValues(t *testing.T) {
	tests := []struct {
		name               string
		render, pacing     int
		wantRender, wantMs int
	}{
		{"in range", 30, 20, 30, 20},
		{"render too high", 5000, 20, MaxRenderRate, 20},
		{"render too low", 2, 20, MinRenderRate, 20},
		{"pacing too low", 30, 1, 30, MinIngestPacing},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(tt.render, tt.pacing)
			if c.RenderRate() != tt.wantRender {
				t.Errorf("expected render %d, got %d", tt.wantRender, c.RenderRate())
			}
			if c.CurrentIngestPacing() != tt.wantMs {
				t.Errorf("expected pacing %d, got %d", tt.wantMs, c.CurrentIngestPacing())
			}
		})
	}
}

func TestAdjustRenderRateStep(t *testing.T) {
	c := New(60, 10)
	if got := c.AdjustRenderRate(Increase); got != 63 {
		t.Errorf("expected 63, got %d", got)
	}
	if got := c.AdjustRenderRate(Decrease); got != 60 {
		t.Errorf("expected 60, got %d", got)
	}
}

func TestAdjustRenderRateSaturates(t *testing.T) {
	c := New(60, 10)
	for i := 0; i < 1000; i++ {
		if got := c.AdjustRenderRate(Decrease); got < MinRenderRate {
			t.Fatalf("render rate dropped below %d: %d", MinRenderRate, got)
		}
	}
	if c.RenderRate() != MinRenderRate {
		t.Errorf("expected %d, got %d", MinRenderRate, c.RenderRate())
	}

	for i := 0; i < 1000; i++ {
		if got := c.AdjustRenderRate(Increase); got > MaxRenderRate {
			t.Fatalf("render rate exceeded %d: %d", MaxRenderRate, got)
		}
	}
	if c.RenderRate() != MaxRenderRate {
		t.Errorf("expected %d, got %d", MaxRenderRate, c.RenderRate())
	}
}

func TestAdjustIngestPacingAsymmetric(t *testing.T) {
	c := New(60, 10)
	if got := c.AdjustIngestPacing(Increase); got != 20 {
		t.Errorf("expected 20, got %d", got)
	}
	if got := c.AdjustIngestPacing(Decrease); got != 17 {
		t.Errorf("expected 17, got %d", got)
	}
}

func TestAdjustIngestPacingFloor(t *testing.T) {
	c := New(60, 5)
	if got := c.AdjustIngestPacing(Decrease); got != 3 {
		t.Errorf("expected 3 after decreasing from 5, got %d", got)
	}
	for i := 0; i < 100; i++ {
		if got := c.AdjustIngestPacing(Decrease); got < MinIngestPacing {
			t.Fatalf("pacing dropped below %d: %d", MinIngestPacing, got)
		}
	}
}

func TestAdjustIngestPacingHasNoCeiling(t *testing.T) {
	c := New(60, 10)
	for i := 0; i < 1000; i++ {
		c.AdjustIngestPacing(Increase)
	}
	if got := c.CurrentIngestPacing(); got != 10+1000*PacingIncreaseStep {
		t.Errorf("expected %d, got %d", 10+1000*PacingIncreaseStep, got)
	}
}

func TestFrameBudget(t *testing.T) {
	c := New(50, 10)
	if got := c.FrameBudget(); got != 20*time.Millisecond {
		t.Errorf("expected 20ms, got %v", got)
	}
}

func TestConcurrentAdjust(t *testing.T) {
	c := New(500, 10)
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			c.AdjustRenderRate(Increase)
		}()
		go func() {
			defer wg.Done()
			_ = c.FrameBudget()
		}()
	}
	wg.Wait()
	if got := c.RenderRate(); got != 530 {
		t.Errorf("expected 530, got %d", got)
	}
}
