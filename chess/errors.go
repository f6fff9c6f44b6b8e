package chess

import (
	"errors"
	"fmt"
)

var (
	// ErrRuleViolation is wrapped by every rejected move. The board is unchanged when it is returned.
	ErrRuleViolation = errors.New("illegal move")

	// ErrNoKings means both kings left the board, which no legal sequence of moves can produce.
	ErrNoKings = errors.New("there is no king on the board")
)

func violation(reason string) error {
	return fmt.Errorf("%w: %s", ErrRuleViolation, reason)
}
