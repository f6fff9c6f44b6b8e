package ws

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

// newConnPair starts a server that wraps every accepted connection into a Conn
// and returns it together with the raw client side.
func newConnPair(t *testing.T) (*Conn, *websocket.Conn) {
	t.Helper()

	accepted := make(chan *Conn, 1)
	upgrader := NewUpgrader([]string{"http://allowed.test"})

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := Accept(upgrader, w, r)
		if err != nil {
			return
		}
		accepted <- conn
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	client, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	select {
	case conn := <-accepted:
		t.Cleanup(func() { conn.Close() })
		return conn, client
	case <-time.After(2 * time.Second):
		t.Fatal("server never accepted the connection")
		return nil, nil
	}
}

func TestConnReceive(t *testing.T) {
	conn, client := newConnPair(t)
	ctx := context.Background()

	require.NoError(t, client.WriteMessage(websocket.TextMessage, []byte(`{"type":"ack"}`)))
	require.NoError(t, client.WriteMessage(websocket.BinaryMessage, []byte{1, 2}))

	f, err := conn.Receive(ctx)
	require.NoError(t, err)
	require.Equal(t, TextFrame, f.Kind)

	evt, err := ParseEvent(f.Data)
	require.NoError(t, err)
	require.Equal(t, EventAck, evt.Type)

	f, err = conn.Receive(ctx)
	require.NoError(t, err)
	require.Equal(t, BinaryFrame, f.Kind)

	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye")
	require.NoError(t, client.WriteMessage(websocket.CloseMessage, msg))

	f, err = conn.Receive(ctx)
	require.NoError(t, err)
	require.Equal(t, CloseFrame, f.Kind)

	_, err = conn.Receive(ctx)
	require.ErrorIs(t, err, ErrClosed)
}

func TestConnReceiveHonoursContext(t *testing.T) {
	conn, _ := newConnPair(t)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := conn.Receive(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestConnSend(t *testing.T) {
	conn, client := newConnPair(t)

	evt, err := NewEvent(EventNewTurn, map[string]bool{"is_yours": true})
	require.NoError(t, err)
	require.NoError(t, conn.Send(context.Background(), evt))

	_, data, err := client.ReadMessage()
	require.NoError(t, err)
	require.JSONEq(t, `{"type":"new_turn","payload":{"is_yours":true}}`, string(data))

	searching, err := NewEvent(EventSearching, nil)
	require.NoError(t, err)
	require.NoError(t, conn.Send(context.Background(), searching))

	_, data, err = client.ReadMessage()
	require.NoError(t, err)
	require.JSONEq(t, `{"type":"searching"}`, string(data))
}

func TestConnSendAfterCancel(t *testing.T) {
	conn, client := newConnPair(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	searching, err := NewEvent(EventSearching, nil)
	require.NoError(t, err)

	for i := 0; i < 20; i++ {
		require.ErrorIs(t, conn.Send(ctx, searching), context.Canceled)
	}

	turn, err := NewEvent(EventNewTurn, map[string]bool{"is_yours": false})
	require.NoError(t, err)
	require.NoError(t, conn.Send(context.Background(), turn))

	_, data, err := client.ReadMessage()
	require.NoError(t, err)
	require.JSONEq(t, `{"type":"new_turn","payload":{"is_yours":false}}`, string(data))
}

func TestConnStaysAliveWhileFramesWait(t *testing.T) {
	wait, interval := pongWait, pingInterval
	t.Cleanup(func() { pongWait, pingInterval = wait, interval })

	pongWait, pingInterval = 300*time.Millisecond, 200*time.Millisecond

	conn, client := newConnPair(t)

	// reading lets the client answer pings
	go func() {
		for {
			if _, _, err := client.ReadMessage(); err != nil {
				return
			}
		}
	}()

	require.NoError(t, client.WriteMessage(websocket.TextMessage, []byte(`{"type":"ack"}`)))

	time.Sleep(5 * pongWait)

	require.NoError(t, client.WriteMessage(websocket.TextMessage, []byte(`{"type":"turn_end"}`)))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	f, err := conn.Receive(ctx)
	require.NoError(t, err)
	require.Equal(t, `{"type":"ack"}`, string(f.Data))

	f, err = conn.Receive(ctx)
	require.NoError(t, err)
	require.Equal(t, TextFrame, f.Kind)
	require.Equal(t, `{"type":"turn_end"}`, string(f.Data))
}

func TestConnClose(t *testing.T) {
	conn, client := newConnPair(t)

	require.NoError(t, conn.Close())
	require.NoError(t, conn.Close())

	_, _, err := client.ReadMessage()
	require.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure))

	err = conn.Send(context.Background(), NewErrorEvent("late"))
	require.ErrorIs(t, err, ErrClosed)
}

func TestCheckOrigin(t *testing.T) {
	check := checkOrigin([]string{"http://allowed.test"})

	newReq := func(origin string) *http.Request {
		r := httptest.NewRequest(http.MethodGet, "/game", nil)
		if origin != "" {
			r.Header.Set("Origin", origin)
		}
		return r
	}

	require.True(t, check(newReq("")))
	require.True(t, check(newReq("http://allowed.test")))
	require.False(t, check(newReq("http://evil.test")))

	require.True(t, checkOrigin([]string{"*"})(newReq("http://evil.test")))
}
