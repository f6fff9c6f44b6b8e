package gameplay

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/judgegodwins/chess-server/chess"
	"github.com/judgegodwins/chess-server/ws"
)

var (
	// ErrProtocol is returned for frames that are not a well formed client message.
	ErrProtocol   = errors.New("protocol error")
	ErrMissingAck = errors.New("player did not acknowledge the game")
)

// Move is a move as the client sees it, in that client's own frame.
type Move struct {
	From chess.Position `json:"position_from"`
	To   chess.Position `json:"position_to"`
}

// Capture describes a piece taken by a move.
type Capture struct {
	Type     chess.PieceType `json:"type"`
	Color    chess.Color     `json:"color"`
	Position chess.Position  `json:"position"`
}

type PayloadNewTurn struct {
	IsYours bool `json:"is_yours"`
}

type PayloadMovedCorrectly struct {
	Captured *Capture `json:"captured,omitempty"`
}

type PayloadPawnMove struct {
	Move     Move     `json:"move"`
	Captured *Capture `json:"captured,omitempty"`
}

type PayloadGameEnd struct {
	Won bool `json:"won"`
}

// ClientMessage is one of Ack or TurnEnd.
type ClientMessage interface {
	clientMessage()
}

type Ack struct{}

type TurnEnd struct {
	Move
}

func (Ack) clientMessage()     {}
func (TurnEnd) clientMessage() {}

// DecodeClientMessage parses an inbound frame. Anything other than a text
// frame holding a known event fails with ErrProtocol.
func DecodeClientMessage(f ws.Frame) (ClientMessage, error) {
	if f.Kind != ws.TextFrame {
		return nil, fmt.Errorf("%w: unexpected %v frame", ErrProtocol, f.Kind)
	}

	evt, err := ws.ParseEvent(f.Data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProtocol, err)
	}

	switch evt.Type {
	case ws.EventAck:
		return Ack{}, nil
	case ws.EventTurnEnd:
		var move Move
		if err := json.Unmarshal(evt.Payload, &move); err != nil {
			return nil, fmt.Errorf("%w: turn_end payload: %v", ErrProtocol, err)
		}
		return TurnEnd{Move: move}, nil
	default:
		return nil, fmt.Errorf("%w: unknown event type %q", ErrProtocol, evt.Type)
	}
}

// relativeTo converts a position between the canonical frame and color's
// frame. Black sees the board rotated by 180 degrees, so the same inversion
// works in both directions.
func relativeTo(color chess.Color, p chess.Position) chess.Position {
	if color == chess.Black {
		return p.Invert()
	}
	return p
}

func captureFor(viewer chess.Color, captured *chess.Piece) *Capture {
	if captured == nil {
		return nil
	}
	return &Capture{
		Type:     captured.Type,
		Color:    captured.Color,
		Position: relativeTo(viewer, captured.Position),
	}
}

func newTurnEvent(isYours bool) ws.Event {
	return ws.MustEvent(ws.EventNewTurn, PayloadNewTurn{IsYours: isYours})
}

func movedCorrectlyEvent(c *Capture) ws.Event {
	return ws.MustEvent(ws.EventMovedCorrectly, PayloadMovedCorrectly{Captured: c})
}

func pawnMoveEvent(m Move, c *Capture) ws.Event {
	return ws.MustEvent(ws.EventPawnMove, PayloadPawnMove{Move: m, Captured: c})
}

func gameEndEvent(won bool) ws.Event {
	return ws.MustEvent(ws.EventGameEnd, PayloadGameEnd{Won: won})
}

func GameDroppedEvent(reason string) ws.Event {
	return ws.MustEvent(ws.EventGameDropped, ws.PayloadError{Message: reason})
}
