package chess

// Color identifies a side.
type Color string

const (
	White Color = "White"
	Black Color = "Black"
)

func (c Color) Opponent() Color {
	if c == White {
		return Black
	}
	return White
}

func (c Color) Valid() bool {
	return c == White || c == Black
}

// lastRow is the far rank a pawn of this colour promotes on.
func (c Color) lastRow() int {
	if c == White {
		return BoardSize - 1
	}
	return 0
}

// forward is the row direction pawns of this colour advance in.
func (c Color) forward() int {
	if c == White {
		return 1
	}
	return -1
}
