package chess

import "fmt"

type PieceType string

const (
	Pawn   PieceType = "Pawn"
	Knight PieceType = "Knight"
	Bishop PieceType = "Bishop"
	Rook   PieceType = "Rook"
	Queen  PieceType = "Queen"
	King   PieceType = "King"
)

type Piece struct {
	Type       PieceType `json:"type"`
	Color      Color     `json:"color"`
	Position   Position  `json:"position"`
	TimesMoved int       `json:"times_moved"`
}

// checkMove validates the shape of a move to the given square. target is the
// piece currently standing there, nil when the square is empty.
func (p *Piece) checkMove(to Position, target *Piece) error {
	dRow, dCol := to.Sub(p.Position)

	switch p.Type {
	case Knight:
		if !((dRow == 1 && dCol == 2) || (dRow == 2 && dCol == 1)) {
			return violation("a knight moves two squares one way and one square the other")
		}
	case King:
		if dRow > 1 || dCol > 1 {
			return violation("a king moves a single square")
		}
	case Rook:
		if !isStraight(dRow, dCol) {
			return violation("a rook moves along a row or a column")
		}
	case Bishop:
		if !isDiagonal(dRow, dCol) {
			return violation("a bishop moves along a diagonal")
		}
	case Queen:
		if !isStraight(dRow, dCol) && !isDiagonal(dRow, dCol) {
			return violation("a queen moves along a row, a column or a diagonal")
		}
	case Pawn:
		return p.checkPawnMove(to, target)
	default:
		return fmt.Errorf("unknown piece type %q", p.Type)
	}

	return nil
}

func (p *Piece) checkPawnMove(to Position, target *Piece) error {
	advance := (to.Row - p.Position.Row) * p.Color.forward()
	_, dCol := to.Sub(p.Position)

	switch dCol {
	case 0:
		if target != nil {
			return violation("a pawn cannot capture straight ahead")
		}
		switch {
		case advance == 1:
			return nil
		case advance == 2 && p.TimesMoved == 0:
			return nil
		case advance == 2:
			return violation("a pawn may only advance two squares on its first move")
		default:
			return violation("a pawn advances one square forward")
		}
	case 1:
		if advance != 1 {
			return violation("a pawn captures one square diagonally forward")
		}
		if target == nil || target.Color == p.Color {
			return violation("a pawn may only move diagonally to capture")
		}
		return nil
	default:
		return violation("a pawn cannot move that far sideways")
	}
}

// moveTo relocates the piece and reports whether it was promoted.
func (p *Piece) moveTo(to Position) bool {
	p.Position = to
	p.TimesMoved++

	if p.Type == Pawn && to.Row == p.Color.lastRow() {
		p.Type = Queen
		return true
	}

	return false
}

func isStraight(dRow, dCol int) bool {
	return (dRow == 0) != (dCol == 0)
}

func isDiagonal(dRow, dCol int) bool {
	return dRow == dCol && dRow != 0
}
