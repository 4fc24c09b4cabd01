package overlay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/LISSConsulting/LISSTech.Spellbook/internal/logging"
)

// ErrClosed is reported by Err after Close was called.
var ErrClosed = errors.New("overlay: client closed")

const writeWait = 5 * time.Second

// Client is a websocket connection to OverlayPlugin. Decoded events are
// delivered on Events in arrival order; the channel closes when the socket
// does. There is no reconnect.
type Client struct {
	conn   *websocket.Conn
	logger *slog.Logger
	events chan Event

	writeMu sync.Mutex

	mu     sync.Mutex
	err    error
	closed bool
	stop   chan struct{}
	done   chan struct{}
}

// eventBuffer is the capacity of the Events channel.
const eventBuffer = 256

// Option configures a Client.
type Option func(*dialOptions)

type dialOptions struct {
	handshakeTimeout time.Duration
	logger           *slog.Logger
}

// WithHandshakeTimeout bounds the websocket handshake.
func WithHandshakeTimeout(d time.Duration) Option {
	return func(o *dialOptions) {
		if d > 0 {
			o.handshakeTimeout = d
		}
	}
}

// WithLogger sets the logger used for dropped messages and disconnects.
func WithLogger(logger *slog.Logger) Option {
	return func(o *dialOptions) {
		o.logger = logger
	}
}

// Dial connects to url, sends the subscribe call for SubscribedEvents and
// starts reading.
func Dial(ctx context.Context, url string, opts ...Option) (*Client, error) {
	o := dialOptions{handshakeTimeout: 10 * time.Second}
	for _, opt := range opts {
		opt(&o)
	}

	dialer := websocket.Dialer{HandshakeTimeout: o.handshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("overlay: dial %s: %w", url, err)
	}

	c := &Client{
		conn:   conn,
		logger: logging.NewComponentLogger(o.logger, "overlay"),
		events: make(chan Event, eventBuffer),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}

	if err := c.writeJSON(subscribeCall{Call: "subscribe", Events: SubscribedEvents}); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("overlay: subscribe: %w", err)
	}
	c.logger.Info("connected", slog.String("url", url))

	go c.readLoop()
	return c, nil
}

// Events returns the channel of decoded events.
func (c *Client) Events() <-chan Event {
	return c.events
}

// Err returns why the event channel closed, or nil while it is open.
func (c *Client) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Close sends a close frame and tears down the connection. It is safe to
// call more than once.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()
	close(c.stop)

	c.writeMu.Lock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	c.writeMu.Unlock()

	err := c.conn.Close()
	<-c.done
	return err
}

func (c *Client) writeJSON(v any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.conn.WriteJSON(v)
}

func (c *Client) readLoop() {
	defer close(c.done)
	defer close(c.events)

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			c.finish(err)
			return
		}

		ev, ok, decodeErr := Decode(data)
		if decodeErr != nil {
			c.logger.Debug("dropping malformed message", logging.Error(decodeErr))
			continue
		}
		if !ok {
			continue
		}
		select {
		case c.events <- ev:
		case <-c.stop:
			c.finish(ErrClosed)
			return
		}
	}
}

func (c *Client) finish(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case c.closed:
		c.err = ErrClosed
	case websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway):
		c.err = fmt.Errorf("overlay: server closed connection: %w", err)
		c.logger.Info("disconnected", logging.Error(err))
	default:
		c.err = fmt.Errorf("overlay: read: %w", err)
		c.logger.Warn("connection lost", logging.Error(err))
	}
}
