package livegame

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/judgegodwins/chess-server/chess"
	"github.com/judgegodwins/chess-server/util"
	"github.com/redis/go-redis/v9"
)

var ErrNotFound = errors.New("live game not found")

// State is the snapshot of an in-progress game kept in redis.
type State struct {
	GameID    int64       `json:"id"`
	White     int64       `json:"white"`
	Black     int64       `json:"black"`
	Turn      int         `json:"turn"`
	Active    chess.Color `json:"active_color"`
	StartedAt time.Time   `json:"started_at"`
}

// Registry tracks games that are currently being played. Entries expire after
// ttl so a crashed server does not leave them behind forever.
type Registry struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRegistry(rdb *redis.Client, ttl time.Duration) *Registry {
	return &Registry{rdb: rdb, ttl: ttl}
}

func (r *Registry) Register(ctx context.Context, s State) error {
	key := util.GetLiveGameKey(s.GameID)

	_, err := r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, map[string]interface{}{
			util.LiveGameIDKey:        s.GameID,
			util.LiveGameWhiteKey:     s.White,
			util.LiveGameBlackKey:     s.Black,
			util.LiveGameTurnKey:      s.Turn,
			util.LiveGameActiveKey:    string(s.Active),
			util.LiveGameStartedAtKey: s.StartedAt.UTC().Format(time.RFC3339),
		})
		pipe.Expire(ctx, key, r.ttl)
		return nil
	})

	return err
}

// Advance records the turn number and the colour now expected to move.
func (r *Registry) Advance(ctx context.Context, gameID int64, turn int, active chess.Color) error {
	key := util.GetLiveGameKey(gameID)

	_, err := r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, util.LiveGameTurnKey, turn, util.LiveGameActiveKey, string(active))
		pipe.Expire(ctx, key, r.ttl)
		return nil
	})

	return err
}

func (r *Registry) Remove(ctx context.Context, gameID int64) error {
	return r.rdb.Del(ctx, util.GetLiveGameKey(gameID)).Err()
}

func (r *Registry) Get(ctx context.Context, gameID int64) (State, error) {
	fields, err := r.rdb.HGetAll(ctx, util.GetLiveGameKey(gameID)).Result()
	if err != nil {
		return State{}, err
	}

	if len(fields) == 0 {
		return State{}, ErrNotFound
	}

	return parseState(fields)
}

func parseState(fields map[string]string) (State, error) {
	var (
		s   State
		err error
	)

	if s.GameID, err = strconv.ParseInt(fields[util.LiveGameIDKey], 10, 64); err != nil {
		return State{}, fmt.Errorf("live game id: %w", err)
	}
	if s.White, err = strconv.ParseInt(fields[util.LiveGameWhiteKey], 10, 64); err != nil {
		return State{}, fmt.Errorf("live game white: %w", err)
	}
	if s.Black, err = strconv.ParseInt(fields[util.LiveGameBlackKey], 10, 64); err != nil {
		return State{}, fmt.Errorf("live game black: %w", err)
	}
	if s.Turn, err = strconv.Atoi(fields[util.LiveGameTurnKey]); err != nil {
		return State{}, fmt.Errorf("live game turn: %w", err)
	}
	if s.StartedAt, err = time.Parse(time.RFC3339, fields[util.LiveGameStartedAtKey]); err != nil {
		return State{}, fmt.Errorf("live game start: %w", err)
	}

	s.Active = chess.Color(fields[util.LiveGameActiveKey])
	if !s.Active.Valid() {
		return State{}, fmt.Errorf("live game active colour %q", s.Active)
	}

	return s, nil
}
