package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/judgegodwins/chess-server/livegame"
	"github.com/judgegodwins/chess-server/obslog"
	"github.com/judgegodwins/chess-server/ws"
	"go.uber.org/zap"
)

type liveGameRequest struct {
	GameID int64 `uri:"id" binding:"required,min=1"`
}

func (s *Server) GetLiveGame(c *gin.Context) {
	var data liveGameRequest

	if err := c.ShouldBindUri(&data); err != nil {
		c.JSON(http.StatusUnprocessableEntity, errorResponse(err.Error()))
		return
	}

	state, err := s.liveGames.Get(c.Request.Context(), data.GameID)

	if errors.Is(err, livegame.ErrNotFound) {
		c.JSON(http.StatusNotFound, errorResponse("game not found"))
		return
	}
	if err != nil {
		obslog.L().Error("live_game_lookup_failed", zap.Int64("game_id", data.GameID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, errorResponse(ErrorMessage500))
		return
	}

	c.JSON(http.StatusOK, successResponse("game data", state))
}

// ServeMatchmaking upgrades the request to a websocket and hands it to
// matchmaking. The token is expected as the first message.
func (s *Server) ServeMatchmaking(c *gin.Context) {
	conn, err := ws.Accept(s.upgrader, c.Writer, c.Request)

	if err != nil {
		// the upgrader has already written the error response
		obslog.L().Info("websocket_upgrade_failed", zap.Error(err))
		return
	}

	s.matchmaking.Handle(c.Request.Context(), conn)
}
