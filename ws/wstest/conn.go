// Package wstest provides an in-memory ws.Transport for tests.
package wstest

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/judgegodwins/chess-server/ws"
	"github.com/stretchr/testify/require"
)

const waitTimeout = 2 * time.Second

// Conn plays the client side of a transport. Frames pushed by the test are
// received by the server code; events sent by the server code are read back
// with Next or Expect.
type Conn struct {
	id  string
	in  chan ws.Frame
	out chan ws.Event

	closeOnce sync.Once
	closed    chan struct{}
}

func New() *Conn {
	return &Conn{
		id:     uuid.NewString(),
		in:     make(chan ws.Frame, 16),
		out:    make(chan ws.Event, 64),
		closed: make(chan struct{}),
	}
}

func (c *Conn) ID() string {
	return c.id
}

func (c *Conn) Receive(ctx context.Context) (ws.Frame, error) {
	select {
	case f := <-c.in:
		return f, nil
	case <-c.closed:
		return ws.Frame{}, ws.ErrClosed
	case <-ctx.Done():
		return ws.Frame{}, ctx.Err()
	}
}

func (c *Conn) Send(ctx context.Context, evt ws.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	select {
	case <-c.closed:
		return ws.ErrClosed
	default:
	}

	select {
	case c.out <- evt:
		return nil
	case <-c.closed:
		return ws.ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Conn) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	return nil
}

func (c *Conn) IsClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

// Push queues a raw inbound frame.
func (c *Conn) Push(f ws.Frame) {
	c.in <- f
}

func (c *Conn) PushText(data string) {
	c.Push(ws.Frame{Kind: ws.TextFrame, Data: []byte(data)})
}

func (c *Conn) PushClose() {
	c.Push(ws.Frame{Kind: ws.CloseFrame})
}

// PushEvent queues an inbound event of the given type and payload.
func (c *Conn) PushEvent(t testing.TB, evtType string, payload any) {
	t.Helper()

	evt, err := ws.NewEvent(evtType, payload)
	require.NoError(t, err)

	data, err := json.Marshal(evt)
	require.NoError(t, err)

	c.Push(ws.Frame{Kind: ws.TextFrame, Data: data})
}

// Next returns the next event sent to this connection.
func (c *Conn) Next(t testing.TB) ws.Event {
	t.Helper()

	select {
	case evt := <-c.out:
		return evt
	case <-time.After(waitTimeout):
		t.Fatalf("connection %s received no event within %v", c.id, waitTimeout)
		return ws.Event{}
	}
}

// Expect reads the next event, requires its type and decodes its payload into
// dst when dst is not nil.
func (c *Conn) Expect(t testing.TB, evtType string, dst any) ws.Event {
	t.Helper()

	evt := c.Next(t)
	require.Equal(t, evtType, evt.Type, "payload: %s", evt.Payload)

	if dst != nil {
		require.NoError(t, json.Unmarshal(evt.Payload, dst))
	}

	return evt
}

// ExpectNothing requires that no event arrives within d.
func (c *Conn) ExpectNothing(t testing.TB, d time.Duration) {
	t.Helper()

	select {
	case evt := <-c.out:
		t.Fatalf("connection %s received unexpected %s event: %s", c.id, evt.Type, evt.Payload)
	case <-time.After(d):
	}
}

func (c *Conn) WaitClosed(t testing.TB) {
	t.Helper()

	select {
	case <-c.closed:
	case <-time.After(waitTimeout):
		t.Fatalf("connection %s was not closed within %v", c.id, waitTimeout)
	}
}
