package ws

import (
	"encoding/json"
	"fmt"
)

type Event struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

const (
	// matchmaking
	EventSearching   = "searching"
	EventSuccess     = "success"
	EventGameDropped = "game_dropped"

	// gameplay, server to client
	EventNewTurn        = "new_turn"
	EventMovedCorrectly = "moved_correctly"
	EventPawnMove       = "pawn_move"
	EventGameEnd        = "game_end"

	// gameplay, client to server
	EventAck     = "ack"
	EventTurnEnd = "turn_end"

	EventError = "error"
)

type PayloadError struct {
	Message string `json:"message"`
}

// NewEvent marshals payload into an event of the given type. A nil payload
// produces an event without a payload field.
func NewEvent(evtType string, payload any) (Event, error) {
	if payload == nil {
		return Event{Type: evtType}, nil
	}

	b, err := json.Marshal(payload)

	if err != nil {
		return Event{}, err
	}

	return Event{Type: evtType, Payload: b}, nil
}

// MustEvent is NewEvent for payloads that always marshal, such as plain
// structs. It panics otherwise.
func MustEvent(evtType string, payload any) Event {
	evt, err := NewEvent(evtType, payload)
	if err != nil {
		panic(fmt.Sprintf("ws: marshal %s payload: %v", evtType, err))
	}
	return evt
}

func NewErrorEvent(message string) Event {
	return MustEvent(EventError, PayloadError{Message: message})
}

// ParseEvent decodes a text frame into an event envelope.
func ParseEvent(data []byte) (Event, error) {
	var evt Event

	if err := json.Unmarshal(data, &evt); err != nil {
		return Event{}, err
	}

	return evt, nil
}
