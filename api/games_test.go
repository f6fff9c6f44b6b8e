package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/judgegodwins/chess-server/chess"
	"github.com/judgegodwins/chess-server/gameplay"
	"github.com/judgegodwins/chess-server/http_utils"
	"github.com/judgegodwins/chess-server/livegame"
	"github.com/judgegodwins/chess-server/matchmaking"
	"github.com/judgegodwins/chess-server/ws"
	"github.com/stretchr/testify/require"
)

func bearer(t *testing.T, playerID int64, username string) string {
	t.Helper()

	token, _, err := testMaker.CreateToken(playerID, username, time.Minute)
	require.NoError(t, err)

	return token
}

func TestGetLiveGame(t *testing.T) {
	ctx := context.Background()
	started := time.Date(2026, 10, 16, 8, 0, 0, 0, time.UTC)

	require.NoError(t, testLive.Register(ctx, livegame.State{
		GameID:    501,
		White:     1,
		Black:     2,
		Turn:      4,
		Active:    chess.White,
		StartedAt: started,
	}))
	t.Cleanup(func() { testLive.Remove(ctx, 501) })

	get := func(path string, auth bool) *httptest.ResponseRecorder {
		request, response := newRequest(t, http.MethodGet, path, nil)
		if auth {
			request.Header.Set("Authorization", "Bearer "+bearer(t, 1, "judge"))
		}
		serve(request, response)
		return response
	}

	response := get("/games/501", true)
	require.Equal(t, http.StatusOK, response.Code)

	body := requireBodyMatches[http_utils.DataResponse[livegame.State]](t, response.Body)
	require.Equal(t, livegame.State{GameID: 501, White: 1, Black: 2, Turn: 4, Active: chess.White, StartedAt: started}, body.Data)

	require.Equal(t, http.StatusNotFound, get("/games/502", true).Code)
	require.Equal(t, http.StatusUnprocessableEntity, get("/games/abc", true).Code)
	require.Equal(t, http.StatusUnauthorized, get("/games/501", false).Code)
}

func dial(t *testing.T, srv *httptest.Server, header http.Header) (*websocket.Conn, *http.Response, error) {
	t.Helper()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/game"
	conn, resp, err := websocket.DefaultDialer.Dial(url, header)
	if err == nil {
		t.Cleanup(func() { conn.Close() })
	}

	return conn, resp, err
}

func readEvent(t *testing.T, conn *websocket.Conn, evtType string, dst any) {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))

	var evt ws.Event
	require.NoError(t, conn.ReadJSON(&evt))
	require.Equal(t, evtType, evt.Type, "payload: %s", evt.Payload)

	if dst != nil {
		require.NoError(t, json.Unmarshal(evt.Payload, dst))
	}
}

func writeEvent(t *testing.T, conn *websocket.Conn, evtType string, payload any) {
	t.Helper()

	evt, err := ws.NewEvent(evtType, payload)
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(evt))
}

func TestMatchmakingOverWebsocket(t *testing.T) {
	srv := httptest.NewServer(testServer.Handler())
	t.Cleanup(srv.Close)

	const whiteID, blackID = 901, 902

	white, _, err := dial(t, srv, nil)
	require.NoError(t, err)
	require.NoError(t, white.WriteMessage(websocket.TextMessage, []byte(bearer(t, whiteID, "white"))))
	readEvent(t, white, ws.EventSearching, nil)

	black, _, err := dial(t, srv, http.Header{"Origin": []string{"http://localhost:3000"}})
	require.NoError(t, err)
	require.NoError(t, black.WriteMessage(websocket.TextMessage, []byte(bearer(t, blackID, "black"))))

	var success matchmaking.PayloadSuccess
	readEvent(t, white, ws.EventSuccess, &success)
	require.Equal(t, chess.White, success.Color)
	readEvent(t, black, ws.EventSuccess, &success)
	require.Equal(t, chess.Black, success.Color)

	writeEvent(t, white, ws.EventAck, nil)
	writeEvent(t, black, ws.EventAck, nil)

	var turn gameplay.PayloadNewTurn
	readEvent(t, white, ws.EventNewTurn, &turn)
	require.True(t, turn.IsYours)
	readEvent(t, black, ws.EventNewTurn, &turn)
	require.False(t, turn.IsYours)

	writeEvent(t, white, ws.EventTurnEnd, gameplay.Move{
		From: chess.Position{Column: 4, Row: 1},
		To:   chess.Position{Column: 4, Row: 3},
	})

	readEvent(t, white, ws.EventMovedCorrectly, nil)

	var seen gameplay.PayloadPawnMove
	readEvent(t, black, ws.EventPawnMove, &seen)
	require.Equal(t, chess.Position{Column: 3, Row: 6}, seen.Move.From)
	require.Equal(t, chess.Position{Column: 3, Row: 4}, seen.Move.To)

	readEvent(t, black, ws.EventNewTurn, &turn)
	require.True(t, turn.IsYours)

	gameID := findGame(t, whiteID, blackID)

	state, err := testLive.Get(context.Background(), gameID)
	require.NoError(t, err)
	require.Equal(t, 1, state.Turn)
	require.Equal(t, chess.Black, state.Active)

	// black leaves mid game, which drops it
	require.NoError(t, black.Close())
	readEvent(t, white, ws.EventNewTurn, nil)
	readEvent(t, white, ws.EventGameDropped, nil)

	testMatches.Wait()

	_, err = testLive.Get(context.Background(), gameID)
	require.ErrorIs(t, err, livegame.ErrNotFound)

	testStore.mu.Lock()
	_, ok := testStore.games[gameID]
	testStore.mu.Unlock()
	require.False(t, ok, "dropped game is rolled back")
}

func TestMatchmakingRejectsForeignOrigin(t *testing.T) {
	srv := httptest.NewServer(testServer.Handler())
	t.Cleanup(srv.Close)

	_, resp, err := dial(t, srv, http.Header{"Origin": []string{"http://evil.test"}})
	require.ErrorIs(t, err, websocket.ErrBadHandshake)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestMatchmakingClosesOnBadToken(t *testing.T) {
	srv := httptest.NewServer(testServer.Handler())
	t.Cleanup(srv.Close)

	conn, _, err := dial(t, srv, nil)
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not a token")))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err = conn.ReadMessage()
	require.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), fmt.Sprint(err))
}

func findGame(t *testing.T, whiteID, blackID int64) int64 {
	t.Helper()

	testStore.mu.Lock()
	defer testStore.mu.Unlock()

	for id, g := range testStore.games {
		if g.PlayerWhite == whiteID && g.PlayerBlack == blackID {
			return id
		}
	}

	t.Fatalf("no game between %d and %d", whiteID, blackID)
	return 0
}
