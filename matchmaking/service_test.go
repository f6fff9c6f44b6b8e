package matchmaking

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/judgegodwins/chess-server/chess"
	"github.com/judgegodwins/chess-server/store"
	"github.com/judgegodwins/chess-server/tokens"
	"github.com/judgegodwins/chess-server/ws"
	"github.com/judgegodwins/chess-server/ws/wstest"
	"github.com/stretchr/testify/require"
)

type fakeAuth map[string]int64

func (a fakeAuth) VerifyToken(token string) (*tokens.Payload, error) {
	id, ok := a[token]
	if !ok {
		return nil, tokens.ErrInvalidToken
	}
	return &tokens.Payload{PlayerID: id, Username: token}, nil
}

type createdGame struct {
	black, white int64
}

type fakeStore struct {
	mu        sync.Mutex
	created   []createdGame
	deleted   []int64
	createErr error
}

func (f *fakeStore) CreateGame(_ context.Context, blackID, whiteID int64) (store.Game, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return store.Game{}, f.createErr
	}
	f.created = append(f.created, createdGame{black: blackID, white: whiteID})
	return store.Game{ID: int64(len(f.created)), PlayerBlack: blackID, PlayerWhite: whiteID, StartedAt: time.Now()}, nil
}

func (f *fakeStore) RecordTurn(context.Context, store.Turn) error { return nil }

func (f *fakeStore) FinishGame(_ context.Context, id int64) (store.Game, error) {
	return store.Game{ID: id}, nil
}

func (f *fakeStore) IncrementScore(context.Context, int64) error { return nil }

func (f *fakeStore) DeleteGame(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)
	return nil
}

// failingSuccess refuses to deliver the pairing notice.
type failingSuccess struct {
	*wstest.Conn
}

func (c failingSuccess) Send(ctx context.Context, evt ws.Event) error {
	if evt.Type == ws.EventSuccess {
		return ws.ErrClosed
	}
	return c.Conn.Send(ctx, evt)
}

var auth = fakeAuth{"alice": 1, "bob": 2, "carol": 3}

func newService() (*Service, *fakeStore) {
	st := &fakeStore{}
	return NewService(auth, st, nil), st
}

// connect opens a connection for the player and hands it to the service.
func connect(t *testing.T, s *Service, token string) *wstest.Conn {
	t.Helper()

	conn := wstest.New()
	t.Cleanup(func() { conn.Close() })

	conn.PushText(token)
	s.Handle(context.Background(), conn)

	return conn
}

func TestQueuedPlayerIsSearching(t *testing.T) {
	s, _ := newService()

	alice := connect(t, s, "alice")
	alice.Expect(t, ws.EventSearching, nil)

	require.True(t, s.Queue().Contains(1))
	require.Equal(t, []int64{1}, s.Queue().PlayerIDs())

	alice.PushText("still there?")
	alice.Expect(t, ws.EventSearching, nil)
	require.Equal(t, 1, s.Queue().Len())
}

func TestPairingAssignsColours(t *testing.T) {
	s, st := newService()

	alice := connect(t, s, "alice")
	alice.Expect(t, ws.EventSearching, nil)

	bob := connect(t, s, "bob")

	var aliceColor, bobColor PayloadSuccess
	alice.Expect(t, ws.EventSuccess, &aliceColor)
	bob.Expect(t, ws.EventSuccess, &bobColor)

	require.Equal(t, chess.White, aliceColor.Color)
	require.Equal(t, chess.Black, bobColor.Color)
	require.Zero(t, s.Queue().Len())

	st.mu.Lock()
	require.Equal(t, []createdGame{{black: 2, white: 1}}, st.created)
	st.mu.Unlock()

	// the game is running and waits for both acknowledgements
	alice.PushEvent(t, ws.EventAck, nil)
	bob.PushEvent(t, ws.EventAck, nil)

	alice.Expect(t, ws.EventNewTurn, nil)
	bob.Expect(t, ws.EventNewTurn, nil)

	alice.Close()
	bob.Close()
	s.Wait()
}

func TestPairingIsFIFO(t *testing.T) {
	s, st := newService()

	connect(t, s, "alice").Expect(t, ws.EventSearching, nil)
	connect(t, s, "bob").Expect(t, ws.EventSuccess, nil)
	connect(t, s, "carol").Expect(t, ws.EventSearching, nil)

	require.Equal(t, []int64{3}, s.Queue().PlayerIDs())

	st.mu.Lock()
	require.Len(t, st.created, 1)
	st.mu.Unlock()
}

func TestDuplicateQueueEntryIsRejected(t *testing.T) {
	s, _ := newService()

	first := connect(t, s, "alice")
	first.Expect(t, ws.EventSearching, nil)

	second := connect(t, s, "alice")

	var payload ws.PayloadError
	second.Expect(t, ws.EventError, &payload)
	require.Equal(t, "User already in the queue", payload.Message)
	second.WaitClosed(t)

	require.False(t, first.IsClosed())
	require.Equal(t, []int64{1}, s.Queue().PlayerIDs())
}

func TestCloseWhileQueuedLeavesQueue(t *testing.T) {
	s, _ := newService()

	alice := connect(t, s, "alice")
	alice.Expect(t, ws.EventSearching, nil)

	alice.PushClose()
	alice.WaitClosed(t)

	require.Eventually(t, func() bool { return s.Queue().Len() == 0 }, time.Second, 10*time.Millisecond)

	bob := connect(t, s, "bob")
	bob.Expect(t, ws.EventSearching, nil)
	require.Equal(t, []int64{2}, s.Queue().PlayerIDs())
}

func TestInvalidTokenClosesSilently(t *testing.T) {
	s, _ := newService()

	conn := connect(t, s, "mallory")
	conn.WaitClosed(t)
	conn.ExpectNothing(t, 50*time.Millisecond)

	binary := wstest.New()
	binary.Push(ws.Frame{Kind: ws.BinaryFrame, Data: []byte("alice")})
	s.Handle(context.Background(), binary)
	binary.WaitClosed(t)

	require.Zero(t, s.Queue().Len())
}

func TestGameCreationFailureDropsBoth(t *testing.T) {
	s, st := newService()
	st.createErr = errors.New("database is down")

	alice := connect(t, s, "alice")
	alice.Expect(t, ws.EventSearching, nil)

	bob := connect(t, s, "bob")

	alice.Expect(t, ws.EventGameDropped, nil)
	bob.Expect(t, ws.EventGameDropped, nil)
	alice.WaitClosed(t)
	bob.WaitClosed(t)

	require.Empty(t, st.deleted)
}

func TestUndeliveredPairingRollsBack(t *testing.T) {
	s, st := newService()

	alice := connect(t, s, "alice")
	alice.Expect(t, ws.EventSearching, nil)

	bob := wstest.New()
	bob.PushText("bob")
	s.Handle(context.Background(), failingSuccess{bob})

	alice.Expect(t, ws.EventSuccess, nil)
	alice.Expect(t, ws.EventGameDropped, nil)
	bob.Expect(t, ws.EventGameDropped, nil)

	alice.WaitClosed(t)
	bob.WaitClosed(t)

	st.mu.Lock()
	defer st.mu.Unlock()
	require.Equal(t, []int64{1}, st.deleted)
}
