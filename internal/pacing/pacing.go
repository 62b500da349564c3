// Package pacing turns user rate requests into the render loop's frame
// budget and the pacing value the simulation is asked to honour.
package pacing

import (
	"sync"
	"time"
)

const (
	DefaultRenderRate = 60
	MinRenderRate     = 5
	MaxRenderRate     = 1000
	RenderRateStep    = 3

	DefaultIngestPacing = 10 // ms
	MinIngestPacing     = 3  // ms
	PacingDecreaseStep  = 3  // ms
	PacingIncreaseStep  = 10 // ms
)

type Direction int

const (
	Decrease Direction = -1
	Increase Direction = 1
)

// Controller holds both rates. It does no I/O; the mutex only exists
// because input and the render loop live on different goroutines.
type Controller struct {
	mu         sync.Mutex
	renderRate int
	pacingMs   int
}

// New clamps the initial values the same way adjustments are clamped.
// Non-positive values select the defaults.
func New(renderRate, pacingMs int) *Controller {
	if renderRate <= 0 {
		renderRate = DefaultRenderRate
	}
	if pacingMs <= 0 {
		pacingMs = DefaultIngestPacing
	}
	return &Controller{
		renderRate: clampRender(renderRate),
		pacingMs:   clampPacing(pacingMs),
	}
}

// AdjustRenderRate moves the render target one step and returns the new
// value. Exceeding either bound snaps to the bound.
func (c *Controller) AdjustRenderRate(dir Direction) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.renderRate = clampRender(c.renderRate + int(dir)*RenderRateStep)
	return c.renderRate
}

// AdjustIngestPacing moves the pacing value by the asymmetric step for dir
// and returns the new value. There is a floor but no ceiling.
func (c *Controller) AdjustIngestPacing(dir Direction) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case dir < 0:
		c.pacingMs -= PacingDecreaseStep
	case dir > 0:
		c.pacingMs += PacingIncreaseStep
	}
	c.pacingMs = clampPacing(c.pacingMs)
	return c.pacingMs
}

func (c *Controller) CurrentIngestPacing() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pacingMs
}

func (c *Controller) RenderRate() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.renderRate
}

// FrameBudget is the time allotted to one render iteration.
func (c *Controller) FrameBudget() time.Duration {
	return time.Second / time.Duration(c.RenderRate())
}

func clampRender(v int) int {
	if v < MinRenderRate {
		return MinRenderRate
	}
	if v > MaxRenderRate {
		return MaxRenderRate
	}
	return v
}

func clampPacing(v int) int {
	if v < MinIngestPacing {
		return MinIngestPacing
	}
	return v
}
