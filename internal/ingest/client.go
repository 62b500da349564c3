// Package ingest owns the streaming connection to the simulation. It
// reconnects on transport failure and merges every received snapshot into
// the shared store.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-logr/logr"

	"github.com/san-kum/marsvis/internal/state"
	"github.com/san-kum/marsvis/internal/wire"
)

const (
	DefaultAddress = "ws://127.0.0.1:4567/vis"
	DefaultBackoff = 2 * time.Second
)

var (
	ErrNotConnected = errors.New("ingest: not connected")
	ErrClosed       = errors.New("ingest: client closed")
)

// Status is the outcome of one receive cycle.
type Status int

const (
	Merged Status = iota
	Disconnected
	Discarded
)

func (s Status) String() string {
	switch s {
	case Merged:
		return "merged"
	case Disconnected:
		return "disconnected"
	case Discarded:
		return "discarded"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

type Options struct {
	Address string
	Backoff time.Duration
	Dialer  Dialer
	Log     logr.Logger
}

type Stats struct {
	Merged      uint64
	Discarded   uint64
	Bytes       uint64
	Connects    uint64
	Disconnects uint64
}

type Client struct {
	addr    string
	backoff time.Duration
	dialer  Dialer
	log     logr.Logger
	store   *state.Store

	mu     sync.Mutex
	conn   Conn
	closed bool

	merged      atomic.Uint64
	discarded   atomic.Uint64
	bytes       atomic.Uint64
	connects    atomic.Uint64
	disconnects atomic.Uint64
}

func New(store *state.Store, opts Options) (*Client, error) {
	if opts.Address == "" {
		opts.Address = DefaultAddress
	}
	if err := ValidateAddress(opts.Address); err != nil {
		return nil, err
	}
	if opts.Backoff <= 0 {
		opts.Backoff = DefaultBackoff
	}
	if opts.Dialer == nil {
		opts.Dialer = WebSocketDialer{}
	}
	return &Client{
		addr:    opts.Address,
		backoff: opts.Backoff,
		dialer:  opts.Dialer,
		log:     opts.Log,
		store:   store,
	}, nil
}

func (c *Client) Address() string { return c.addr }

// Connect blocks until a connection is open, sleeping the fixed backoff
// after every transient failure. It returns early only on a permanent
// dial error, context cancellation or Close.
func (c *Client) Connect(ctx context.Context) error {
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if c.isClosed() {
			return ErrClosed
		}

		conn, err := c.dialer.Dial(ctx, c.addr)
		if err == nil {
			return c.install(conn, attempt)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !IsTransient(err) {
			return fmt.Errorf("connect %s: %w", c.addr, err)
		}

		c.log.Info("waiting for running simulation", "addr", c.addr, "attempt", attempt, "retryIn", c.backoff, "err", err.Error())
		t := time.NewTimer(c.backoff)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
}

func (c *Client) install(conn Conn, attempt int) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		_ = conn.Close()
		return ErrClosed
	}
	old := c.conn
	c.conn = conn
	c.mu.Unlock()

	if old != nil {
		_ = old.Close()
	}
	c.connects.Add(1)
	c.log.Info("connected to simulation", "addr", c.addr, "attempt", attempt)
	return nil
}

// ReceiveAndMerge blocks for the next payload and merges it into the
// store. An empty payload invalidates the connection without touching the
// store; a transport error also clears the store. A payload that fails to
// decode is dropped whole and the connection stays up.
func (c *Client) ReceiveAndMerge() (Status, error) {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return Disconnected, ErrNotConnected
	}

	data, err := conn.ReadMessage()
	if err != nil {
		c.drop(conn)
		c.store.Clear()
		c.log.Info("lost connection to simulation", "addr", c.addr, "err", err.Error())
		return Disconnected, err
	}
	if len(data) == 0 {
		c.drop(conn)
		c.log.Info("could not receive data, is the simulation still running?", "addr", c.addr)
		return Disconnected, wire.ErrEmptyPayload
	}

	msg, err := wire.Decode(data)
	if err != nil {
		c.discarded.Add(1)
		c.log.V(1).Info("discarding malformed message", "bytes", len(data), "err", err.Error())
		return Discarded, err
	}

	c.store.Merge(msg)
	c.merged.Add(1)
	c.bytes.Add(uint64(len(data)))
	return Merged, nil
}

func (c *Client) drop(conn Conn) {
	c.mu.Lock()
	if c.conn == conn {
		c.conn = nil
	}
	c.mu.Unlock()
	_ = conn.Close()
	c.disconnects.Add(1)
}

// SendPacing asks the simulation to wait ms milliseconds between
// snapshots. Without a live connection nothing is sent or queued.
func (c *Client) SendPacing(ms int) error {
	data, err := wire.EncodePacing(ms)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return ErrNotConnected
	}
	if err := c.conn.WriteMessage(data); err != nil {
		return fmt.Errorf("send pacing: %w", err)
	}
	return nil
}

func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

// Close releases the connection, which unblocks a pending receive, and
// makes further Connect calls fail with ErrClosed.
func (c *Client) Close() error {
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.closed = true
	c.mu.Unlock()

	if conn == nil {
		return nil
	}
	return conn.Close()
}

func (c *Client) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *Client) Stats() Stats {
	return Stats{
		Merged:      c.merged.Load(),
		Discarded:   c.discarded.Load(),
		Bytes:       c.bytes.Load(),
		Connects:    c.connects.Load(),
		Disconnects: c.disconnects.Load(),
	}
}
