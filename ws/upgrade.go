package ws

import (
	"net/http"

	"github.com/gorilla/websocket"
	"golang.org/x/exp/slices"
)

// NewUpgrader returns an upgrader that accepts requests from the given
// origins. "*" allows any origin. Requests without an Origin header are not
// browsers and are always accepted.
func NewUpgrader(allowedOrigins []string) *websocket.Upgrader {
	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     checkOrigin(allowedOrigins),
	}
}

// Accept upgrades the request and wraps the connection into a Conn.
func Accept(upgrader *websocket.Upgrader, w http.ResponseWriter, r *http.Request) (*Conn, error) {
	connection, err := upgrader.Upgrade(w, r, nil)

	if err != nil {
		return nil, err
	}

	return NewConn(connection), nil
}

func checkOrigin(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")

		if origin == "" {
			return true
		}

		return slices.Contains(allowed, "*") || slices.Contains(allowed, origin)
	}
}
