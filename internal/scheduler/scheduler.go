// Package scheduler runs the ingest loop and the render loop side by side.
// The two loops share only the store and the pacing controller.
package scheduler

import (
	"context"
	"errors"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-logr/logr"
	"golang.org/x/sync/errgroup"

	"github.com/san-kum/marsvis/internal/ingest"
	"github.com/san-kum/marsvis/internal/pacing"
	"github.com/san-kum/marsvis/internal/state"
)

var ErrAlreadyRunning = errors.New("scheduler: already running")

// DefaultSmoothing weights the newest frame in the measured FPS average.
const DefaultSmoothing = 0.1

// Ingester is the slice of ingest.Client the scheduler drives.
type Ingester interface {
	Connect(ctx context.Context) error
	ReceiveAndMerge() (ingest.Status, error)
	SendPacing(ms int) error
	Connected() bool
	Close() error
	Stats() ingest.Stats
}

// Stats describes the loops at the moment a frame was produced.
type Stats struct {
	DesiredFPS  int
	MeasuredFPS float64
	PacingMs    int
	Connected   bool
	Messages    uint64
}

type Frame struct {
	Snapshot state.Snapshot
	Stats    Stats
}

// Renderer draws one frame. It is called from the render goroutine with
// no lock held.
type Renderer interface {
	Render(Frame)
}

// Waiter is implemented by renderers that draw something while the store
// has no data.
type Waiter interface {
	Wait(Stats)
}

type Options struct {
	Log       logr.Logger
	Smoothing float64
}

type Scheduler struct {
	store    *state.Store
	client   Ingester
	pacing   *pacing.Controller
	renderer Renderer
	log      logr.Logger
	alpha    float64

	running atomic.Bool
	fpsBits atomic.Uint64

	mu     sync.Mutex
	cancel context.CancelFunc
}

func New(store *state.Store, client Ingester, pc *pacing.Controller, r Renderer, opts Options) *Scheduler {
	alpha := opts.Smoothing
	if alpha <= 0 || alpha > 1 {
		alpha = DefaultSmoothing
	}
	return &Scheduler{
		store:    store,
		client:   client,
		pacing:   pc,
		renderer: r,
		log:      opts.Log,
		alpha:    alpha,
	}
}

// Run starts both loops and blocks until they have exited, either because
// ctx was cancelled, Stop was called or the ingest loop hit an error no
// reconnect can fix. The connection is closed before Run returns.
func (s *Scheduler) Run(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer s.running.Store(false)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		<-ctx.Done()
		s.running.Store(false)
		// unblocks a pending receive
		_ = s.client.Close()
		return nil
	})
	g.Go(func() error {
		defer cancel()
		return s.ingestLoop(ctx)
	})
	g.Go(func() error {
		defer cancel()
		return s.renderLoop(ctx)
	})

	err := g.Wait()
	s.log.Info("scheduler stopped", "messages", s.client.Stats().Merged)
	return err
}

// Stop asks both loops to exit. They observe it within one iteration.
func (s *Scheduler) Stop() {
	s.running.Store(false)
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (s *Scheduler) Running() bool { return s.running.Load() }

func (s *Scheduler) ingestLoop(ctx context.Context) error {
	for s.running.Load() {
		if !s.client.Connected() {
			if err := s.client.Connect(ctx); err != nil {
				if ctx.Err() != nil || errors.Is(err, ingest.ErrClosed) {
					return nil
				}
				s.log.Error(err, "giving up on simulation")
				return err
			}
			s.syncPacing()
		}

		status, err := s.client.ReceiveAndMerge()
		if status == ingest.Disconnected && s.running.Load() {
			s.log.V(1).Info("receive ended", "err", errString(err))
		}
	}
	return nil
}

func (s *Scheduler) renderLoop(ctx context.Context) error {
	budget := s.pacing.FrameBudget()
	timer := time.NewTimer(budget)
	defer timer.Stop()

	last := time.Now()
	for s.running.Load() {
		select {
		case <-ctx.Done():
			return nil
		case <-timer.C:
		}
		if !s.running.Load() {
			return nil
		}

		now := time.Now()
		s.observeFrame(now.Sub(last))
		last = now
		s.renderOnce()

		// rate changes made during the frame apply from the next one
		budget = s.pacing.FrameBudget()
		timer.Reset(budget)
	}
	return nil
}

func (s *Scheduler) renderOnce() {
	snap, ok := s.store.Snapshot()
	stats := s.Stats()
	if !ok {
		if w, isWaiter := s.renderer.(Waiter); isWaiter {
			w.Wait(stats)
		}
		return
	}
	s.renderer.Render(Frame{Snapshot: snap, Stats: stats})
}

func (s *Scheduler) observeFrame(dt time.Duration) {
	if dt <= 0 {
		return
	}
	inst := float64(time.Second) / float64(dt)
	prev := math.Float64frombits(s.fpsBits.Load())
	next := inst
	if prev > 0 {
		next = prev + s.alpha*(inst-prev)
	}
	s.fpsBits.Store(math.Float64bits(next))
}

// Stats reports the current loop figures.
func (s *Scheduler) Stats() Stats {
	return Stats{
		DesiredFPS:  s.pacing.RenderRate(),
		MeasuredFPS: math.Float64frombits(s.fpsBits.Load()),
		PacingMs:    s.pacing.CurrentIngestPacing(),
		Connected:   s.client.Connected(),
		Messages:    s.client.Stats().Merged,
	}
}

func (s *Scheduler) IncreaseRenderRate() int {
	return s.pacing.AdjustRenderRate(pacing.Increase)
}

func (s *Scheduler) DecreaseRenderRate() int {
	return s.pacing.AdjustRenderRate(pacing.Decrease)
}

func (s *Scheduler) IncreaseIngestPacing() int {
	return s.adjustPacing(pacing.Increase)
}

func (s *Scheduler) DecreaseIngestPacing() int {
	return s.adjustPacing(pacing.Decrease)
}

// syncPacing sends the current pacing on a fresh connection, including
// any change made while disconnected.
func (s *Scheduler) syncPacing() {
	ms := s.pacing.CurrentIngestPacing()
	if err := s.client.SendPacing(ms); err != nil {
		s.log.V(1).Info("pacing sync failed", "ms", ms, "err", err.Error())
	}
}

// adjustPacing changes the pacing value and tells the simulation. Without a
// live connection the new value is kept locally and sent on the next
// connect.
func (s *Scheduler) adjustPacing(dir pacing.Direction) int {
	ms := s.pacing.AdjustIngestPacing(dir)
	if !s.client.Connected() {
		return ms
	}
	if err := s.client.SendPacing(ms); err != nil {
		s.log.V(1).Info("pacing update dropped", "ms", ms, "err", err.Error())
	}
	return ms
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
