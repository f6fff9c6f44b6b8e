package matchmaking

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/judgegodwins/chess-server/chess"
	"github.com/judgegodwins/chess-server/gameplay"
	"github.com/judgegodwins/chess-server/obslog"
	"github.com/judgegodwins/chess-server/store"
	"github.com/judgegodwins/chess-server/tokens"
	"github.com/judgegodwins/chess-server/ws"
	"go.uber.org/zap"
)

const rollbackTimeout = 5 * time.Second

type Authenticator interface {
	VerifyToken(token string) (*tokens.Payload, error)
}

// Store creates game records on top of what a running game writes.
type Store interface {
	gameplay.Store
	CreateGame(ctx context.Context, blackID, whiteID int64) (store.Game, error)
}

// Service pairs connecting players and starts their games.
type Service struct {
	queue *Queue
	auth  Authenticator
	store Store
	live  gameplay.LiveRegistry

	sessions sync.WaitGroup
}

// NewService wires the matchmaking handler. live may be nil.
func NewService(auth Authenticator, st Store, live gameplay.LiveRegistry) *Service {
	return &Service{
		queue: NewQueue(),
		auth:  auth,
		store: st,
		live:  live,
	}
}

func (s *Service) Queue() *Queue {
	return s.queue
}

// Wait blocks until every game started by the service has ended.
func (s *Service) Wait() {
	s.sessions.Wait()
}

// Handle takes over a freshly opened connection. The first text frame must
// carry the player's token. Handle returns once the player is queued, paired
// or rejected; a paired game keeps running after ctx is done.
func (s *Service) Handle(ctx context.Context, conn ws.Transport) {
	log := obslog.L().With(zap.String("conn_id", conn.ID()))

	payload, err := s.authenticate(ctx, conn)
	if err != nil {
		log.Info("matchmaking_auth_failed", zap.Error(err))
		conn.Close()
		return
	}

	log = log.With(zap.Int64("player_id", payload.PlayerID))

	w := NewWaiter(payload.PlayerID, conn)

	opponent, err := s.queue.Enter(ctx, w)

	if errors.Is(err, ErrAlreadyQueued) {
		log.Info("matchmaking_duplicate")
		if err := conn.Send(ctx, ws.NewErrorEvent(alreadyQueuedMessage)); err != nil {
			log.Debug("matchmaking_notify_failed", zap.Error(err))
		}
		conn.Close()
		return
	}

	if opponent == nil {
		log.Info("matchmaking_queued")
		return
	}

	// The waiter's notifier must be gone before anything else is sent on
	// its connection.
	opponent.stop()

	s.pair(ctx, opponent, w)
}

func (s *Service) authenticate(ctx context.Context, conn ws.Transport) (*tokens.Payload, error) {
	frame, err := conn.Receive(ctx)
	if err != nil {
		return nil, err
	}

	if frame.Kind != ws.TextFrame {
		return nil, tokens.ErrInvalidToken
	}

	return s.auth.VerifyToken(strings.TrimSpace(string(frame.Data)))
}

// pair creates the game between the longest waiting player, who plays White,
// and the newcomer, who plays Black, then starts the game.
func (s *Service) pair(ctx context.Context, white, black *Waiter) {
	log := obslog.L().With(zap.Int64("white_id", white.PlayerID), zap.Int64("black_id", black.PlayerID))

	game, err := s.store.CreateGame(ctx, black.PlayerID, white.PlayerID)
	if err != nil {
		log.Error("create_game_failed", zap.Error(err))
		s.abort(ctx, nil, white, black)
		return
	}

	log = log.With(zap.Int64("game_id", game.ID))

	if err := white.Conn.Send(ctx, successEvent(chess.White)); err != nil {
		log.Info("pairing_not_delivered", zap.String("color", string(chess.White)), zap.Error(err))
		s.abort(ctx, &game, white, black)
		return
	}

	if err := black.Conn.Send(ctx, successEvent(chess.Black)); err != nil {
		log.Info("pairing_not_delivered", zap.String("color", string(chess.Black)), zap.Error(err))
		s.abort(ctx, &game, white, black)
		return
	}

	log.Info("matchmaking_paired")

	session := gameplay.NewSession(
		game,
		gameplay.Player{ID: white.PlayerID, Conn: white.Conn},
		gameplay.Player{ID: black.PlayerID, Conn: black.Conn},
		s.store,
		s.live,
	)

	s.sessions.Add(1)

	go func() {
		defer s.sessions.Done()

		if err := session.Run(context.WithoutCancel(ctx)); err != nil {
			log.Info("game_ended_with_error", zap.Error(err))
		}
	}()
}

// abort tells both players the pairing failed, removes the game record if
// one was created and closes both connections.
func (s *Service) abort(ctx context.Context, game *store.Game, players ...*Waiter) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), rollbackTimeout)
	defer cancel()

	for _, p := range players {
		if err := p.Conn.Send(ctx, gameplay.GameDroppedEvent("The game could not be started")); err != nil {
			obslog.L().Debug("game_dropped_not_delivered", zap.Int64("player_id", p.PlayerID), zap.Error(err))
		}
		p.Conn.Close()
	}

	if game == nil {
		return
	}

	if err := s.store.DeleteGame(ctx, game.ID); err != nil {
		obslog.L().Error("game_rollback_failed", zap.Int64("game_id", game.ID), zap.Error(err))
	}
}
