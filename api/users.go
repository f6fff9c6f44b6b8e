package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/judgegodwins/chess-server/http_utils"
	"github.com/judgegodwins/chess-server/obslog"
	"github.com/judgegodwins/chess-server/store"
	"github.com/judgegodwins/chess-server/util"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type credentialsRequest struct {
	Username string `json:"username" validate:"required,alphanum,min=3,max=32"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type authResponse struct {
	Token  string       `json:"token"`
	Player store.Player `json:"player"`
}

// bindCredentials decodes and validates the request body, writing the error
// response itself when the body is unusable.
func bindCredentials(c *gin.Context) (credentialsRequest, bool) {
	var data credentialsRequest

	if err := c.ShouldBindJSON(&data); err != nil {
		c.JSON(http.StatusUnprocessableEntity, errorResponse(err.Error()))
		return data, false
	}

	if response, ok := http_utils.ValidateStruct(util.Validate, data); !ok {
		c.JSON(http.StatusUnprocessableEntity, response)
		return data, false
	}

	return data, true
}

func (s *Server) Register(c *gin.Context) {
	data, ok := bindCredentials(c)
	if !ok {
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(data.Password), bcrypt.DefaultCost)
	if err != nil {
		obslog.L().Error("hash_password_failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, errorResponse(ErrorMessage500))
		return
	}

	player, err := s.players.CreatePlayer(c.Request.Context(), data.Username, string(hash))

	if errors.Is(err, store.ErrUsernameTaken) {
		c.JSON(http.StatusConflict, errorResponse("username is already taken"))
		return
	}
	if err != nil {
		obslog.L().Error("create_player_failed", zap.String("username", data.Username), zap.Error(err))
		c.JSON(http.StatusInternalServerError, errorResponse(ErrorMessage500))
		return
	}

	s.respondWithToken(c, http.StatusCreated, "Player registered", player)
}

func (s *Server) Login(c *gin.Context) {
	data, ok := bindCredentials(c)
	if !ok {
		return
	}

	player, err := s.players.PlayerByUsername(c.Request.Context(), data.Username)

	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusUnauthorized, errorResponse("invalid username or password"))
		return
	}
	if err != nil {
		obslog.L().Error("load_player_failed", zap.String("username", data.Username), zap.Error(err))
		c.JSON(http.StatusInternalServerError, errorResponse(ErrorMessage500))
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(player.PasswordHash), []byte(data.Password)); err != nil {
		c.JSON(http.StatusUnauthorized, errorResponse("invalid username or password"))
		return
	}

	s.respondWithToken(c, http.StatusOK, "Logged in", player)
}

func (s *Server) respondWithToken(c *gin.Context, code int, msg string, player store.Player) {
	token, _, err := s.tokenMaker.CreateToken(player.ID, player.Username, s.config.TokenTTL)

	if err != nil {
		obslog.L().Error("create_token_failed", zap.Int64("player_id", player.ID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, errorResponse(ErrorMessage500))
		return
	}

	c.JSON(code, successResponse(msg, authResponse{Token: token, Player: player}))
}

func (s *Server) GetTokenData(c *gin.Context) {
	payload, ok := GetPayload(c)

	if !ok {
		obslog.L().Error("auth_payload_missing")
		c.JSON(http.StatusInternalServerError, errorResponse(ErrorMessage500))
		return
	}

	c.JSON(http.StatusOK, successResponse("success", payload))
}
