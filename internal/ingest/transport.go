package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
)

var ErrInvalidAddress = errors.New("ingest: invalid address")

// Conn is one live streaming connection. ReadMessage blocks for the next
// payload. WriteMessage may be called concurrently with ReadMessage but
// not with itself.
type Conn interface {
	ReadMessage() ([]byte, error)
	WriteMessage(data []byte) error
	Close() error
}

type Dialer interface {
	Dial(ctx context.Context, addr string) (Conn, error)
}

// WebSocketDialer dials ws:// and wss:// addresses with gorilla/websocket.
type WebSocketDialer struct {
	Dialer       *websocket.Dialer
	WriteTimeout time.Duration
}

func (d WebSocketDialer) Dial(ctx context.Context, addr string) (Conn, error) {
	wd := d.Dialer
	if wd == nil {
		wd = websocket.DefaultDialer
	}
	// the response body on a failed handshake does not need closing
	c, _, err := wd.DialContext(ctx, addr, nil)
	if err != nil {
		return nil, err
	}
	timeout := d.WriteTimeout
	if timeout <= 0 {
		timeout = time.Second
	}
	return &wsConn{c: c, writeTimeout: timeout}, nil
}

type wsConn struct {
	c            *websocket.Conn
	writeTimeout time.Duration
}

func (w *wsConn) ReadMessage() ([]byte, error) {
	_, data, err := w.c.ReadMessage()
	return data, err
}

func (w *wsConn) WriteMessage(data []byte) error {
	if err := w.c.SetWriteDeadline(time.Now().Add(w.writeTimeout)); err != nil {
		return err
	}
	return w.c.WriteMessage(websocket.TextMessage, data)
}

func (w *wsConn) Close() error {
	// best effort; the peer may already be gone
	_ = w.c.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(w.writeTimeout))
	return w.c.Close()
}

// ValidateAddress rejects addresses no amount of retrying can fix.
func ValidateAddress(addr string) error {
	u, err := url.Parse(addr)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("%w: scheme must be ws or wss, got %q", ErrInvalidAddress, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: missing host in %q", ErrInvalidAddress, addr)
	}
	return nil
}

// IsTransient reports whether err is a connection problem that waiting
// and reconnecting can resolve: refused, reset, timed out or closed.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	switch {
	case errors.Is(err, syscall.ECONNREFUSED),
		errors.Is(err, syscall.ECONNRESET),
		errors.Is(err, syscall.ECONNABORTED),
		errors.Is(err, syscall.EPIPE),
		errors.Is(err, io.EOF),
		errors.Is(err, io.ErrUnexpectedEOF),
		errors.Is(err, net.ErrClosed),
		errors.Is(err, websocket.ErrBadHandshake):
		return true
	}
	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
