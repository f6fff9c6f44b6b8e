package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/judgegodwins/chess-server/obslog"
	"go.uber.org/zap"
)

var (
	pongWait       = 10 * time.Second
	pingInterval   = (pongWait * 9) / 10
	writeWait      = 5 * time.Second
	maxMessageSize = int64(1024)
)

// ErrClosed is returned once the underlying connection is gone.
var ErrClosed = errors.New("websocket connection closed")

type FrameKind int

const (
	TextFrame FrameKind = iota
	BinaryFrame
	CloseFrame
)

func (k FrameKind) String() string {
	switch k {
	case TextFrame:
		return "text"
	case BinaryFrame:
		return "binary"
	case CloseFrame:
		return "close"
	default:
		return fmt.Sprintf("frame(%d)", int(k))
	}
}

// Frame is one inbound message.
type Frame struct {
	Kind FrameKind
	Data []byte
}

// Transport is a player's duplex message channel. Send and Receive may be
// called from different goroutines; concurrent calls on the same half are
// serialized.
type Transport interface {
	ID() string
	Receive(ctx context.Context) (Frame, error)
	Send(ctx context.Context, evt Event) error
	Close() error
}

// Conn is a Transport over a gorilla websocket connection.
type Conn struct {
	id         string
	connection *websocket.Conn

	ingress chan Frame
	readErr error
	readEnd chan struct{}

	sendLock chan struct{}
	recvLock chan struct{}

	closeOnce sync.Once
	closed    chan struct{}
}

func NewConn(connection *websocket.Conn) *Conn {
	c := &Conn{
		id:         uuid.NewString(),
		connection: connection,
		ingress:    make(chan Frame),
		readEnd:    make(chan struct{}),
		sendLock:   make(chan struct{}, 1),
		recvLock:   make(chan struct{}, 1),
		closed:     make(chan struct{}),
	}

	go c.readMessages()
	go c.pingLoop()

	return c
}

func (c *Conn) ID() string {
	return c.id
}

// Receive returns the next inbound frame. A close handshake from the peer is
// delivered as a CloseFrame; after that Receive returns ErrClosed.
func (c *Conn) Receive(ctx context.Context) (Frame, error) {
	select {
	case c.recvLock <- struct{}{}:
	case <-ctx.Done():
		return Frame{}, ctx.Err()
	}
	defer func() { <-c.recvLock }()

	select {
	case f := <-c.ingress:
		return f, nil
	case <-c.readEnd:
		return Frame{}, c.readErr
	case <-ctx.Done():
		return Frame{}, ctx.Err()
	}
}

func (c *Conn) Send(ctx context.Context, evt Event) error {
	data, err := json.Marshal(evt)

	if err != nil {
		return err
	}

	select {
	case c.sendLock <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-c.sendLock }()

	if err := ctx.Err(); err != nil {
		return err
	}

	select {
	case <-c.closed:
		return ErrClosed
	default:
	}

	if err := c.connection.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return fmt.Errorf("%w: %v", ErrClosed, err)
	}

	if err := c.connection.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("%w: %v", ErrClosed, err)
	}

	return nil
}

// Close sends a normal closure to the peer and releases the connection. It is
// safe to call more than once.
func (c *Conn) Close() error {
	var err error

	c.closeOnce.Do(func() {
		close(c.closed)

		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		werr := c.connection.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))

		if werr != nil && !errors.Is(werr, websocket.ErrCloseSent) {
			obslog.L().Debug("ws_close_message_failed", zap.String("conn_id", c.id), zap.Error(werr))
		}

		err = c.connection.Close()
	})

	return err
}

// readMessages pumps frames from the connection into ingress until the
// connection fails or is closed.
func (c *Conn) readMessages() {
	defer close(c.readEnd)

	c.connection.SetReadLimit(maxMessageSize)

	if err := c.connection.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.readErr = fmt.Errorf("%w: %v", ErrClosed, err)
		return
	}

	c.connection.SetPongHandler(c.pongHandler)

	for {
		kind, payload, err := c.connection.ReadMessage()

		if err != nil {
			var closeErr *websocket.CloseError

			if errors.As(err, &closeErr) {
				c.deliver(Frame{Kind: CloseFrame, Data: []byte(closeErr.Text)})
			}

			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				obslog.L().Info("ws_read_failed", zap.String("conn_id", c.id), zap.Error(err))
			}

			c.readErr = fmt.Errorf("%w: %v", ErrClosed, err)
			return
		}

		frame := Frame{Kind: TextFrame, Data: payload}
		if kind == websocket.BinaryMessage {
			frame.Kind = BinaryFrame
		}

		if !c.deliver(frame) {
			c.readErr = ErrClosed
			return
		}

		// Pongs queue up unread while deliver waits for a receiver.
		if err := c.connection.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
			c.readErr = fmt.Errorf("%w: %v", ErrClosed, err)
			return
		}
	}
}

func (c *Conn) deliver(f Frame) bool {
	select {
	case c.ingress <- f:
		return true
	case <-c.closed:
		return false
	}
}

func (c *Conn) pingLoop() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.closed:
			return
		case <-c.readEnd:
			return
		case <-ticker.C:
			if err := c.connection.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				obslog.L().Debug("ws_ping_failed", zap.String("conn_id", c.id), zap.Error(err))
				return
			}
		}
	}
}

// Sets a new read deadline when a pong is received for a ping message.
func (c *Conn) pongHandler(string) error {
	return c.connection.SetReadDeadline(time.Now().Add(pongWait))
}
