package gameplay

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/judgegodwins/chess-server/chess"
	"github.com/judgegodwins/chess-server/livegame"
	"github.com/judgegodwins/chess-server/obslog"
	"github.com/judgegodwins/chess-server/store"
	"github.com/judgegodwins/chess-server/ws"
	"go.uber.org/zap"
)

// notifyTimeout bounds best-effort messages sent while a session is ending.
const notifyTimeout = 5 * time.Second

// Store is the persistence a session writes to.
type Store interface {
	RecordTurn(ctx context.Context, t store.Turn) error
	FinishGame(ctx context.Context, gameID int64) (store.Game, error)
	IncrementScore(ctx context.Context, playerID int64) error
	DeleteGame(ctx context.Context, gameID int64) error
}

// LiveRegistry mirrors in-progress games for lookups. Failures are logged
// and never end a game.
type LiveRegistry interface {
	Register(ctx context.Context, s livegame.State) error
	Advance(ctx context.Context, gameID int64, turn int, active chess.Color) error
	Remove(ctx context.Context, gameID int64) error
}

// Session runs one game from the players' acknowledgements to its end. The
// board is owned by the goroutine calling Run.
type Session struct {
	game  store.Game
	board *chess.Board
	pair  *OpponentPair
	turn  int
	store Store
	live  LiveRegistry
	log   *zap.Logger
}

// NewSession prepares a game between white and black. live may be nil.
func NewSession(game store.Game, white, black Player, st Store, live LiveRegistry) *Session {
	return &Session{
		game:  game,
		board: chess.NewBoard(),
		pair:  NewOpponentPair(white, black),
		store: st,
		live:  live,
		log: obslog.L().With(
			zap.Int64("game_id", game.ID),
			zap.Int64("white_id", white.ID),
			zap.Int64("black_id", black.ID),
		),
	}
}

// Run plays the game to completion. A nil error means a winner was decided.
// Any other outcome drops the game: both players are told, the game record is
// deleted, and the error is returned. Both connections are closed on return.
func (s *Session) Run(ctx context.Context) error {
	defer s.closeConnections()

	s.register(ctx)
	defer s.unregister(ctx)

	s.log.Info("game_started")

	err := s.play(ctx)

	if err != nil {
		s.drop(ctx, err)
		return err
	}

	return nil
}

func (s *Session) play(ctx context.Context) error {
	for _, p := range s.pair.Both() {
		if err := s.awaitAck(ctx, p); err != nil {
			return err
		}
	}

	if err := s.announceTurn(ctx); err != nil {
		return err
	}

	for {
		finished, err := s.playTurn(ctx)
		if err != nil {
			return err
		}
		if finished {
			return nil
		}
	}
}

func (s *Session) awaitAck(ctx context.Context, p *Player) error {
	msg, err := s.receive(ctx, p)
	if err != nil {
		return fmt.Errorf("%w from %v: %v", ErrMissingAck, p.Color, err)
	}

	if _, ok := msg.(Ack); !ok {
		return fmt.Errorf("%w from %v: got %T", ErrMissingAck, p.Color, msg)
	}

	return nil
}

func (s *Session) announceTurn(ctx context.Context) error {
	if err := s.pair.Active().Conn.Send(ctx, newTurnEvent(true)); err != nil {
		return err
	}
	return s.pair.Passive().Conn.Send(ctx, newTurnEvent(false))
}

// playTurn waits for one message from the active player and handles it. It
// reports whether the game has been won.
func (s *Session) playTurn(ctx context.Context) (bool, error) {
	active, passive := s.pair.Active(), s.pair.Passive()

	msg, err := s.receive(ctx, active)
	if err != nil {
		return false, err
	}

	var move TurnEnd

	switch m := msg.(type) {
	case Ack:
		return false, nil
	case TurnEnd:
		move = m
	default:
		return false, fmt.Errorf("%w: unhandled message %T", ErrProtocol, msg)
	}

	from := relativeTo(active.Color, move.From)
	to := relativeTo(active.Color, move.To)

	result, err := s.board.Move(active.Color, from, to)

	if errors.Is(err, chess.ErrRuleViolation) {
		s.log.Debug("move_rejected", zap.String("color", string(active.Color)), zap.Error(err))
		return false, active.Conn.Send(ctx, ws.NewErrorEvent(err.Error()))
	}
	if err != nil {
		return false, err
	}

	s.turn++

	if err := active.Conn.Send(ctx, movedCorrectlyEvent(captureFor(active.Color, result.Captured))); err != nil {
		return false, err
	}

	passiveMove := Move{From: relativeTo(passive.Color, from), To: relativeTo(passive.Color, to)}

	if err := passive.Conn.Send(ctx, pawnMoveEvent(passiveMove, captureFor(passive.Color, result.Captured))); err != nil {
		return false, err
	}

	err = s.store.RecordTurn(ctx, store.Turn{
		GameID: s.game.ID,
		Number: s.turn,
		Color:  string(active.Color),
		From:   from.String(),
		To:     to.String(),
		Piece:  string(result.Piece),
	})
	if err != nil {
		return false, err
	}

	s.log.Debug("move_accepted",
		zap.Int("turn", s.turn),
		zap.String("color", string(active.Color)),
		zap.Stringer("from", from),
		zap.Stringer("to", to),
		zap.Bool("captured", result.Captured != nil),
		zap.Bool("promoted", result.Promoted),
	)

	winner, won, err := s.board.Winner()
	if err != nil {
		s.log.Error("board_without_kings", zap.Int("turn", s.turn), zap.Error(err))
		return false, err
	}

	if won {
		return true, s.finish(ctx, winner)
	}

	s.pair.SwitchTurn()
	s.advance(ctx)

	return false, s.announceTurn(ctx)
}

// finish tells both players the result and records it. The result messages
// are best effort; persisting the result is not.
func (s *Session) finish(ctx context.Context, winner chess.Color) error {
	for _, p := range s.pair.Both() {
		if err := s.sendBestEffort(ctx, p, gameEndEvent(p.Color == winner)); err != nil {
			s.log.Info("game_end_not_delivered", zap.String("color", string(p.Color)), zap.Error(err))
		}
	}

	if _, err := s.store.FinishGame(ctx, s.game.ID); err != nil {
		return err
	}

	winnerID := s.pair.ByColor(winner).ID

	if err := s.store.IncrementScore(ctx, winnerID); err != nil {
		return err
	}

	s.log.Info("game_won", zap.String("winner", string(winner)), zap.Int64("player_id", winnerID), zap.Int("turns", s.turn))

	return nil
}

// drop ends a failed game: both players are told and the game record is rolled back.
func (s *Session) drop(ctx context.Context, cause error) {
	s.log.Warn("game_dropped", zap.Int("turn", s.turn), zap.Error(cause))

	for _, p := range s.pair.Both() {
		if err := s.sendBestEffort(ctx, p, GameDroppedEvent("The game was dropped")); err != nil {
			s.log.Debug("game_dropped_not_delivered", zap.String("color", string(p.Color)), zap.Error(err))
		}
	}

	deleteCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()

	if err := s.store.DeleteGame(deleteCtx, s.game.ID); err != nil {
		s.log.Error("game_rollback_failed", zap.Error(err))
	}
}

func (s *Session) sendBestEffort(ctx context.Context, p *Player, evt ws.Event) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()

	return p.Conn.Send(ctx, evt)
}

func (s *Session) receive(ctx context.Context, p *Player) (ClientMessage, error) {
	frame, err := p.Conn.Receive(ctx)
	if err != nil {
		return nil, err
	}
	return DecodeClientMessage(frame)
}

func (s *Session) register(ctx context.Context) {
	if s.live == nil {
		return
	}

	err := s.live.Register(ctx, livegame.State{
		GameID:    s.game.ID,
		White:     s.pair.ByColor(chess.White).ID,
		Black:     s.pair.ByColor(chess.Black).ID,
		Turn:      s.turn,
		Active:    s.pair.Active().Color,
		StartedAt: s.game.StartedAt,
	})
	if err != nil {
		s.log.Warn("live_game_register_failed", zap.Error(err))
	}
}

func (s *Session) advance(ctx context.Context) {
	if s.live == nil {
		return
	}

	if err := s.live.Advance(ctx, s.game.ID, s.turn, s.pair.Active().Color); err != nil {
		s.log.Warn("live_game_advance_failed", zap.Error(err))
	}
}

func (s *Session) unregister(ctx context.Context) {
	if s.live == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()

	if err := s.live.Remove(ctx, s.game.ID); err != nil {
		s.log.Warn("live_game_remove_failed", zap.Error(err))
	}
}

func (s *Session) closeConnections() {
	for _, p := range s.pair.Both() {
		if err := p.Conn.Close(); err != nil {
			s.log.Debug("close_connection_failed", zap.String("color", string(p.Color)), zap.Error(err))
		}
	}
}
