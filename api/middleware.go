package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/judgegodwins/chess-server/tokens"
)

type contextkey string

const authContextKey contextkey = "auth_payload"

func (s *Server) AuthMiddleware(c *gin.Context) {
	header := c.Request.Header.Get("authorization")

	if header == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse("unauthorized"))
		return
	}

	sArr := strings.Fields(header)

	if len(sArr) != 2 || !strings.EqualFold(sArr[0], "bearer") {
		c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse("unauthorized"))
		return
	}

	payload, err := s.tokenMaker.VerifyToken(sArr[1])

	if err != nil {
		msg := "invalid bearer token"
		if errors.Is(err, tokens.ErrExpiredToken) {
			msg = "bearer token has expired"
		}
		c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse(msg))
		return
	}

	c.Set(string(authContextKey), payload)

	c.Next()
}
