package chess

import (
	"fmt"

	nchess "github.com/corentings/chess/v2"
)

const BoardSize = 8

// Position is a square in the canonical frame: White's home rank is row 0.
type Position struct {
	Column int `json:"column"`
	Row    int `json:"row"`
}

func NewPosition(column, row int) (Position, error) {
	p := Position{Column: column, Row: row}
	if !p.Valid() {
		return Position{}, fmt.Errorf("%w: position (%d, %d) is off the board", ErrRuleViolation, column, row)
	}
	return p, nil
}

func (p Position) Valid() bool {
	return p.Column >= 0 && p.Column < BoardSize && p.Row >= 0 && p.Row < BoardSize
}

// Sub returns the absolute row and column distance between p and o.
func (p Position) Sub(o Position) (int, int) {
	return abs(p.Row - o.Row), abs(p.Column - o.Column)
}

// Invert maps p to its point-symmetric square, which is how the board looks from Black's side.
func (p Position) Invert() Position {
	return Position{
		Column: BoardSize - 1 - p.Column,
		Row:    BoardSize - 1 - p.Row,
	}
}

// String returns the algebraic name of the square, e.g. "c2".
func (p Position) String() string {
	if !p.Valid() {
		return fmt.Sprintf("(%d,%d)", p.Column, p.Row)
	}
	return nchess.NewSquare(nchess.File(p.Column), nchess.Rank(p.Row)).String()
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

func sign(n int) int {
	switch {
	case n > 0:
		return 1
	case n < 0:
		return -1
	default:
		return 0
	}
}
