package ingest

import (
	"context"
	"io"
	"sync"
)

type readResult struct {
	data []byte
	err  error
}

// fakeConn replays scripted reads, then reports EOF. Once closed every
// read fails with io.ErrClosedPipe.
type fakeConn struct {
	mu      sync.Mutex
	reads   []readResult
	written [][]byte
	closed  bool
	block   chan struct{}
}

func newFakeConn(reads ...readResult) *fakeConn {
	return &fakeConn{reads: reads}
}

func (f *fakeConn) ReadMessage() ([]byte, error) {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return nil, io.ErrClosedPipe
	}
	if len(f.reads) == 0 {
		block := f.block
		f.mu.Unlock()
		if block != nil {
			<-block
			return nil, io.ErrClosedPipe
		}
		return nil, io.EOF
	}
	r := f.reads[0]
	f.reads = f.reads[1:]
	f.mu.Unlock()
	return r.data, r.err
}

func (f *fakeConn) WriteMessage(data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return io.ErrClosedPipe
	}
	f.written = append(f.written, append([]byte(nil), data...))
	return nil
}

func (f *fakeConn) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.closed && f.block != nil {
		close(f.block)
	}
	f.closed = true
	return nil
}

func (f *fakeConn) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *fakeConn) writes() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]byte(nil), f.written...)
}

// fakeDialer fails with errs in order, then hands out conns in order.
type fakeDialer struct {
	mu    sync.Mutex
	errs  []error
	conns []Conn
	dials int
}

func (d *fakeDialer) Dial(ctx context.Context, addr string) (Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dials++
	if len(d.errs) > 0 {
		err := d.errs[0]
		d.errs = d.errs[1:]
		return nil, err
	}
	if len(d.conns) == 0 {
		return nil, io.EOF
	}
	c := d.conns[0]
	d.conns = d.conns[1:]
	return c, nil
}

func (d *fakeDialer) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dials
}
