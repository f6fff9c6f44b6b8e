package gameplay

import (
	"github.com/judgegodwins/chess-server/chess"
	"github.com/judgegodwins/chess-server/ws"
)

// Player is one side of a game: who plays, which colour, and their connection.
type Player struct {
	ID    int64
	Color chess.Color
	Conn  ws.Transport
}

// OpponentPair tracks which player is expected to move.
type OpponentPair struct {
	active  *Player
	passive *Player
}

// NewOpponentPair starts with White active.
func NewOpponentPair(white, black Player) *OpponentPair {
	white.Color, black.Color = chess.White, chess.Black
	return &OpponentPair{active: &white, passive: &black}
}

func (p *OpponentPair) Active() *Player {
	return p.active
}

func (p *OpponentPair) Passive() *Player {
	return p.passive
}

func (p *OpponentPair) SwitchTurn() {
	p.active, p.passive = p.passive, p.active
}

func (p *OpponentPair) ByColor(c chess.Color) *Player {
	if p.active.Color == c {
		return p.active
	}
	return p.passive
}

func (p *OpponentPair) Both() [2]*Player {
	return [2]*Player{p.ByColor(chess.White), p.ByColor(chess.Black)}
}
