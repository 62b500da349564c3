package scheduler_test

import (
	"context"
	"io"
	"net"
	"sync"

	"github.com/san-kum/marsvis/internal/ingest"
	"github.com/san-kum/marsvis/internal/scheduler"
	"github.com/san-kum/marsvis/internal/state"
	"github.com/san-kum/marsvis/internal/wire"
)

// fakeIngester merges messages pushed on msgs. A nil message behaves like
// a reset: the store is cleared and the connection dropped.
type fakeIngester struct {
	store *state.Store
	msgs  chan *wire.Message

	mu         sync.Mutex
	connected  bool
	closed     bool
	done       chan struct{}
	connects   int
	connectErr error
	sent       []int
	merged     uint64
}

func newFakeIngester(store *state.Store) *fakeIngester {
	return &fakeIngester{
		store: store,
		msgs:  make(chan *wire.Message, 16),
		done:  make(chan struct{}),
	}
}

func (f *fakeIngester) Connect(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ingest.ErrClosed
	}
	if f.connectErr != nil {
		return f.connectErr
	}
	f.connected = true
	f.connects++
	return nil
}

func (f *fakeIngester) ReceiveAndMerge() (ingest.Status, error) {
	select {
	case m := <-f.msgs:
		if m == nil {
			f.setConnected(false)
			f.store.Clear()
			return ingest.Disconnected, io.EOF
		}
		f.store.Merge(m)
		f.mu.Lock()
		f.merged++
		f.mu.Unlock()
		return ingest.Merged, nil
	case <-f.done:
		f.setConnected(false)
		return ingest.Disconnected, net.ErrClosed
	}
}

func (f *fakeIngester) SendPacing(ms int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.connected {
		return ingest.ErrNotConnected
	}
	f.sent = append(f.sent, ms)
	return nil
}

func (f *fakeIngester) Connected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *fakeIngester) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.closed {
		f.closed = true
		close(f.done)
	}
	f.connected = false
	return nil
}

func (f *fakeIngester) Stats() ingest.Stats {
	f.mu.Lock()
	defer f.mu.Unlock()
	return ingest.Stats{Merged: f.merged, Connects: uint64(f.connects)}
}

func (f *fakeIngester) setConnected(v bool) {
	f.mu.Lock()
	f.connected = v
	f.mu.Unlock()
}

func (f *fakeIngester) connectCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connects
}

func (f *fakeIngester) sentPacing() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int(nil), f.sent...)
}

type recordingRenderer struct {
	mu     sync.Mutex
	frames []scheduler.Frame
	waits  int
}

func (r *recordingRenderer) Render(f scheduler.Frame) {
	r.mu.Lock()
	r.frames = append(r.frames, f)
	r.mu.Unlock()
}

func (r *recordingRenderer) Wait(scheduler.Stats) {
	r.mu.Lock()
	r.waits++
	r.mu.Unlock()
}

func (r *recordingRenderer) frameCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.frames)
}

func (r *recordingRenderer) waitCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.waits
}

func (r *recordingRenderer) lastFrame() scheduler.Frame {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.frames) == 0 {
		return scheduler.Frame{}
	}
	return r.frames[len(r.frames)-1]
}

// renderOnly has no Wait method.
type renderOnly struct {
	mu    sync.Mutex
	count int
}

func (r *renderOnly) Render(scheduler.Frame) {
	r.mu.Lock()
	r.count++
	r.mu.Unlock()
}

func (r *renderOnly) renders() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}
