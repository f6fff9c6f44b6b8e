package livegame

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/judgegodwins/chess-server/chess"
	"github.com/judgegodwins/chess-server/util"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newRegistry(t *testing.T) (*Registry, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	return NewRegistry(rdb, time.Hour), mr
}

func TestRegistry(t *testing.T) {
	r, mr := newRegistry(t)
	ctx := context.Background()
	started := time.Date(2026, 10, 16, 9, 30, 0, 0, time.UTC)

	_, err := r.Get(ctx, 5)
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, r.Register(ctx, State{
		GameID:    5,
		White:     1,
		Black:     2,
		Turn:      1,
		Active:    chess.White,
		StartedAt: started,
	}))

	key := util.GetLiveGameKey(5)
	require.True(t, mr.Exists(key))
	require.Equal(t, time.Hour, mr.TTL(key))
	require.Equal(t, "White", mr.HGet(key, util.LiveGameActiveKey))

	mr.FastForward(30 * time.Minute)
	require.NoError(t, r.Advance(ctx, 5, 2, chess.Black))
	require.Equal(t, time.Hour, mr.TTL(key))

	s, err := r.Get(ctx, 5)
	require.NoError(t, err)
	require.Equal(t, State{
		GameID:    5,
		White:     1,
		Black:     2,
		Turn:      2,
		Active:    chess.Black,
		StartedAt: started,
	}, s)

	require.NoError(t, r.Remove(ctx, 5))
	require.False(t, mr.Exists(key))

	_, err = r.Get(ctx, 5)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRegistryEntriesExpire(t *testing.T) {
	r, mr := newRegistry(t)
	ctx := context.Background()

	require.NoError(t, r.Register(ctx, State{GameID: 9, White: 3, Black: 4, Turn: 1, Active: chess.White, StartedAt: time.Now()}))

	mr.FastForward(2 * time.Hour)

	_, err := r.Get(ctx, 9)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRegistryRejectsCorruptEntry(t *testing.T) {
	r, mr := newRegistry(t)

	mr.HSet(util.GetLiveGameKey(3), util.LiveGameIDKey, "three")

	_, err := r.Get(context.Background(), 3)
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrNotFound)
}
