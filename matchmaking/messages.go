package matchmaking

import (
	"github.com/judgegodwins/chess-server/chess"
	"github.com/judgegodwins/chess-server/ws"
)

const alreadyQueuedMessage = "User already in the queue"

type PayloadSuccess struct {
	Color chess.Color `json:"color"`
}

func searchingEvent() ws.Event {
	return ws.Event{Type: ws.EventSearching}
}

func successEvent(c chess.Color) ws.Event {
	return ws.MustEvent(ws.EventSuccess, PayloadSuccess{Color: c})
}
