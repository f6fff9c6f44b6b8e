package chess

import (
	"fmt"
	"sort"
)

var backRank = [BoardSize]PieceType{Rook, Knight, Bishop, Queen, King, Bishop, Knight, Rook}

// Board holds at most one piece per square. It is not safe for concurrent use;
// a game session owns its board.
type Board struct {
	squares map[Position]*Piece
}

// MoveResult describes an accepted move.
type MoveResult struct {
	// Piece is the type that moved, before any promotion.
	Piece    PieceType
	Captured *Piece
	Promoted bool
}

// NewBoard returns a board with the standard 32 piece starting layout.
func NewBoard() *Board {
	b := NewEmptyBoard()

	for _, color := range []Color{White, Black} {
		home, pawns := 0, 1
		if color == Black {
			home, pawns = BoardSize-1, BoardSize-2
		}

		for column := 0; column < BoardSize; column++ {
			b.squares[Position{Column: column, Row: pawns}] = &Piece{
				Type:     Pawn,
				Color:    color,
				Position: Position{Column: column, Row: pawns},
			}
			b.squares[Position{Column: column, Row: home}] = &Piece{
				Type:     backRank[column],
				Color:    color,
				Position: Position{Column: column, Row: home},
			}
		}
	}

	return b
}

func NewEmptyBoard() *Board {
	return &Board{squares: make(map[Position]*Piece)}
}

// Place puts a piece on an empty square.
func (b *Board) Place(p Piece) error {
	if !p.Position.Valid() {
		return fmt.Errorf("cannot place %v off the board at %v", p.Type, p.Position)
	}
	if _, ok := b.squares[p.Position]; ok {
		return fmt.Errorf("square %v is already occupied", p.Position)
	}

	b.squares[p.Position] = &p
	return nil
}

func (b *Board) PieceAt(pos Position) (Piece, bool) {
	p, ok := b.squares[pos]
	if !ok {
		return Piece{}, false
	}
	return *p, true
}

func (b *Board) Remove(pos Position) (Piece, bool) {
	p, ok := b.squares[pos]
	if !ok {
		return Piece{}, false
	}
	delete(b.squares, pos)
	return *p, true
}

// Pieces returns a copy of every piece, ordered by row then column.
func (b *Board) Pieces() []Piece {
	pieces := make([]Piece, 0, len(b.squares))
	for _, p := range b.squares {
		pieces = append(pieces, *p)
	}

	sort.Slice(pieces, func(i, j int) bool {
		if pieces[i].Position.Row != pieces[j].Position.Row {
			return pieces[i].Position.Row < pieces[j].Position.Row
		}
		return pieces[i].Position.Column < pieces[j].Position.Column
	})

	return pieces
}

func (b *Board) KingCount(color Color) int {
	n := 0
	for _, p := range b.squares {
		if p.Type == King && p.Color == color {
			n++
		}
	}
	return n
}

// IsPathClear reports whether every square strictly between from and to is empty.
// Squares that do not share a row, column or diagonal have nothing in between.
func (b *Board) IsPathClear(from, to Position) bool {
	dRow, dCol := to.Row-from.Row, to.Column-from.Column

	if !isStraight(abs(dRow), abs(dCol)) && !isDiagonal(abs(dRow), abs(dCol)) {
		return true
	}

	stepRow, stepCol := sign(dRow), sign(dCol)

	pos := Position{Column: from.Column + stepCol, Row: from.Row + stepRow}
	for pos != to {
		if _, ok := b.squares[pos]; ok {
			return false
		}
		pos.Column += stepCol
		pos.Row += stepRow
	}

	return true
}

// Move moves color's piece from one square to another, capturing an opposing
// piece on the destination. On error the board is left untouched.
func (b *Board) Move(color Color, from, to Position) (MoveResult, error) {
	if !from.Valid() || !to.Valid() {
		return MoveResult{}, violation("the move leaves the board")
	}
	if from == to {
		return MoveResult{}, violation("a piece has to leave its square")
	}
	if !b.IsPathClear(from, to) {
		return MoveResult{}, violation("the path is occupied")
	}

	piece, ok := b.squares[from]
	if !ok || piece.Color != color {
		return MoveResult{}, violation(fmt.Sprintf("you don't have a piece at %v", from))
	}

	target := b.squares[to]
	if target != nil && target.Color == color {
		return MoveResult{}, violation("you cannot capture your own piece")
	}

	if err := piece.checkMove(to, target); err != nil {
		return MoveResult{}, err
	}

	result := MoveResult{Piece: piece.Type}

	if target != nil {
		captured := *target
		result.Captured = &captured
	}

	delete(b.squares, from)
	result.Promoted = piece.moveTo(to)
	b.squares[to] = piece

	return result, nil
}

// Winner reports the colour that still has a king when the other has none.
func (b *Board) Winner() (Color, bool, error) {
	white, black := b.KingCount(White) > 0, b.KingCount(Black) > 0

	switch {
	case white && black:
		return "", false, nil
	case white:
		return White, true, nil
	case black:
		return Black, true, nil
	default:
		return "", false, ErrNoKings
	}
}
