// Package wsconn is the websocket transport to a rosbridge gateway. It owns
// one connection at a time, delivers frames in arrival order and reconnects
// with backoff when the gateway drops.
package wsconn

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/teris-io/shortid"
)

const logPrefix = "wsconn:conn"

const maxBackoff = 15 * time.Second

var (
	// ErrNotConnected is returned by Send while no gateway connection is up.
	ErrNotConnected = errors.New("not connected to gateway")
	// ErrAlreadyStarted is returned by a second call to Connect.
	ErrAlreadyStarted = errors.New("connection already started")
)

// Options configures a Conn.
type Options struct {
	URL              string
	HandshakeTimeout time.Duration
	WriteTimeout     time.Duration
	// ReconnectWait is the first backoff step; each failed attempt adds
	// another step up to 15 seconds.
	ReconnectWait time.Duration
	// MaxReconnects bounds consecutive reconnect attempts. 0 retries forever
	// and a negative value disables reconnecting.
	MaxReconnects int

	// OnFrame receives every text frame from the gateway, one at a time.
	OnFrame func(data []byte)
	// OnConnect is called after every successful (re)connect with
	// connected=true, and after every drop with connected=false.
	OnConnect func(connected bool, err error)
}

// Conn is a websocket connection to the gateway.
type Conn struct {
	opts Options

	// mu guards ws and serializes writes; gorilla allows one writer at a time.
	mu     sync.Mutex
	ws     *websocket.Conn
	connID string
	cancel context.CancelFunc
	done   chan struct{}

	connected atomic.Bool
	closed    atomic.Bool
}

// New creates a Conn. Call Connect to dial.
func New(opts Options) *Conn {
	if opts.HandshakeTimeout <= 0 {
		opts.HandshakeTimeout = 10 * time.Second
	}
	if opts.ReconnectWait <= 0 {
		opts.ReconnectWait = time.Second
	}
	return &Conn{opts: opts}
}

// Connect dials the gateway and starts the read loop. The first dial is
// not retried; later drops are.
func (c *Conn) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.done != nil {
		c.mu.Unlock()
		return ErrAlreadyStarted
	}
	c.done = make(chan struct{})
	runCtx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.mu.Unlock()

	ws, err := c.dial(ctx)
	if err != nil {
		cancel()
		close(c.done)
		return err
	}
	c.attach(ws)
	go c.run(runCtx, ws)
	return nil
}

// Send writes one text frame.
func (c *Conn) Send(data []byte) error {
	if !c.connected.Load() {
		return ErrNotConnected
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ws == nil {
		return ErrNotConnected
	}
	if c.opts.WriteTimeout > 0 {
		_ = c.ws.SetWriteDeadline(time.Now().Add(c.opts.WriteTimeout))
	}
	if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("%s - write: %w", logPrefix, err)
	}
	return nil
}

// IsConnected reports whether a gateway connection is up.
func (c *Conn) IsConnected() bool {
	return c.connected.Load()
}

// ConnectionID identifies the current connection in logs.
func (c *Conn) ConnectionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connID
}

// Close stops reconnecting, closes the socket and waits for the read loop
// to exit.
func (c *Conn) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	c.mu.Lock()
	cancel, ws, done := c.cancel, c.ws, c.done
	if ws != nil {
		_ = ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
	}
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
	slog.Info(fmt.Sprintf("%s - Closed connection to %s", logPrefix, c.opts.URL))
	return nil
}

func (c *Conn) dial(ctx context.Context) (*websocket.Conn, error) {
	dialer := *websocket.DefaultDialer
	dialer.HandshakeTimeout = c.opts.HandshakeTimeout

	ws, resp, err := dialer.DialContext(ctx, c.opts.URL, nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("%s - dial %s: status %d: %w", logPrefix, c.opts.URL, resp.StatusCode, err)
		}
		return nil, fmt.Errorf("%s - dial %s: %w", logPrefix, c.opts.URL, err)
	}
	return ws, nil
}

func (c *Conn) attach(ws *websocket.Conn) {
	connID := "ws-" + shortid.MustGenerate()
	c.mu.Lock()
	c.ws = ws
	c.connID = connID
	c.mu.Unlock()
	c.connected.Store(true)

	slog.Info(fmt.Sprintf("%s - Connected to gateway %s cid=%s", logPrefix, c.opts.URL, connID))
	if c.opts.OnConnect != nil {
		c.opts.OnConnect(true, nil)
	}
}

func (c *Conn) detach(err error) {
	c.connected.Store(false)
	c.mu.Lock()
	c.ws = nil
	c.mu.Unlock()

	if c.closed.Load() {
		err = nil
	} else {
		slog.Warn(fmt.Sprintf("%s - Gateway connection lost: %v", logPrefix, err))
	}
	if c.opts.OnConnect != nil {
		c.opts.OnConnect(false, err)
	}
}

// run reads until the connection drops, then reconnects until ctx ends or
// the attempts are exhausted.
func (c *Conn) run(ctx context.Context, ws *websocket.Conn) {
	defer close(c.done)
	for {
		err := c.readLoop(ctx, ws)
		c.detach(err)
		if ctx.Err() != nil || c.opts.MaxReconnects < 0 {
			return
		}
		ws = c.reconnect(ctx)
		if ws == nil {
			return
		}
		c.attach(ws)
	}
}

func (c *Conn) readLoop(ctx context.Context, ws *websocket.Conn) error {
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = ws.Close()
		case <-stop:
		}
	}()
	defer ws.Close()

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			return err
		}
		if c.opts.OnFrame != nil {
			c.opts.OnFrame(data)
		}
	}
}

func (c *Conn) reconnect(ctx context.Context) *websocket.Conn {
	step := c.opts.ReconnectWait
	wait := step
	for i := 0; c.opts.MaxReconnects == 0 || i < c.opts.MaxReconnects; i++ {
		jitter := time.Duration(rand.Int63n(int64(step)))
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(wait + jitter):
		}

		slog.Info(fmt.Sprintf("%s - Reconnecting to %s attempt=%d", logPrefix, c.opts.URL, i+1))
		ws, err := c.dial(ctx)
		if err == nil {
			return ws
		}
		slog.Warn(fmt.Sprintf("%s - Reconnect failed: %v", logPrefix, err))
		if wait < maxBackoff {
			wait += step
		}
	}
	slog.Error(fmt.Sprintf("%s - Giving up on %s after %d attempts", logPrefix, c.opts.URL, c.opts.MaxReconnects))
	return nil
}
