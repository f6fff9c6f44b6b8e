package matchmaking

import (
	"context"
	"errors"
	"sync"

	"github.com/judgegodwins/chess-server/obslog"
	"github.com/judgegodwins/chess-server/ws"
	"github.com/samber/lo"
	"go.uber.org/zap"
	"golang.org/x/exp/slices"
)

var ErrAlreadyQueued = errors.New("player is already in the queue")

// Waiter is a queued player. While queued a notifier goroutine owns the
// receiving side of Conn.
type Waiter struct {
	PlayerID int64
	Conn     ws.Transport

	cancel context.CancelFunc
	done   chan struct{}
}

func NewWaiter(playerID int64, conn ws.Transport) *Waiter {
	return &Waiter{PlayerID: playerID, Conn: conn}
}

// stop cancels the notifier and waits for it to let go of the connection.
func (w *Waiter) stop() {
	if w.cancel == nil {
		return
	}
	w.cancel()
	<-w.done
}

// Queue holds waiting players in arrival order.
type Queue struct {
	mu      sync.Mutex
	waiters []*Waiter
}

func NewQueue() *Queue {
	return &Queue{}
}

// Enter pairs w with the oldest waiter, which is removed and returned. When
// nobody is waiting w is queued instead, its notifier is started and Enter
// returns nil. A player already in the queue gets ErrAlreadyQueued.
func (q *Queue) Enter(ctx context.Context, w *Waiter) (*Waiter, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.indexOf(w.PlayerID) >= 0 {
		return nil, ErrAlreadyQueued
	}

	if oldest, ok := q.popOldest(); ok {
		return oldest, nil
	}

	notifyCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	w.cancel = cancel
	w.done = make(chan struct{})

	q.waiters = append(q.waiters, w)

	go q.notify(notifyCtx, w)

	return nil, nil
}

func (q *Queue) PopOldest() (*Waiter, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	return q.popOldest()
}

// popOldest expects q.mu to be held.
func (q *Queue) popOldest() (*Waiter, bool) {
	if len(q.waiters) == 0 {
		return nil, false
	}

	oldest := q.waiters[0]
	q.waiters = slices.Delete(q.waiters, 0, 1)

	return oldest, true
}

// Remove takes the player out of the queue if it is still waiting on the
// given connection. It reports whether anything was removed.
func (q *Queue) Remove(playerID int64, connID string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	i := q.indexOf(playerID)
	if i < 0 || q.waiters[i].Conn.ID() != connID {
		return false
	}

	q.waiters = slices.Delete(q.waiters, i, i+1)
	return true
}

func (q *Queue) Contains(playerID int64) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	return q.indexOf(playerID) >= 0
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return len(q.waiters)
}

// PlayerIDs lists the waiting players, oldest first.
func (q *Queue) PlayerIDs() []int64 {
	q.mu.Lock()
	defer q.mu.Unlock()

	return lo.Map(q.waiters, func(w *Waiter, _ int) int64 {
		return w.PlayerID
	})
}

func (q *Queue) indexOf(playerID int64) int {
	return slices.IndexFunc(q.waiters, func(w *Waiter) bool {
		return w.PlayerID == playerID
	})
}

// notify sends a searching notice to a newly queued player and again for
// every message it sends while waiting. It leaves the queue when the player
// disconnects and returns without touching the connection once ctx is
// cancelled by a pairing.
func (q *Queue) notify(ctx context.Context, w *Waiter) {
	defer close(w.done)

	err := w.Conn.Send(ctx, searchingEvent())

	for err == nil {
		var frame ws.Frame

		frame, err = w.Conn.Receive(ctx)
		if err != nil {
			break
		}

		if frame.Kind == ws.CloseFrame {
			err = ws.ErrClosed
			break
		}

		if err = ctx.Err(); err != nil {
			break
		}

		err = w.Conn.Send(ctx, searchingEvent())
	}

	if ctx.Err() != nil {
		return
	}

	if q.Remove(w.PlayerID, w.Conn.ID()) {
		obslog.L().Info("left_queue",
			zap.Int64("player_id", w.PlayerID),
			zap.String("conn_id", w.Conn.ID()),
			zap.Error(err),
		)
		w.Conn.Close()
	}
}
