package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/judgegodwins/chess-server/livegame"
	"github.com/judgegodwins/chess-server/matchmaking"
	"github.com/judgegodwins/chess-server/store"
	"github.com/judgegodwins/chess-server/tokens"
	"github.com/judgegodwins/chess-server/util"
	"github.com/judgegodwins/chess-server/ws"
	"github.com/rs/cors"
)

type PlayerStore interface {
	CreatePlayer(ctx context.Context, username, passwordHash string) (store.Player, error)
	PlayerByUsername(ctx context.Context, username string) (store.Player, error)
}

type LiveGames interface {
	Get(ctx context.Context, gameID int64) (livegame.State, error)
}

type Server struct {
	config      *util.Config
	router      *gin.Engine
	tokenMaker  tokens.Maker
	players     PlayerStore
	liveGames   LiveGames
	matchmaking *matchmaking.Service
	upgrader    *websocket.Upgrader
}

func NewServer(config *util.Config, maker tokens.Maker, players PlayerStore, liveGames LiveGames, mm *matchmaking.Service) *Server {
	router := gin.Default()

	server := &Server{
		config:      config,
		router:      router,
		tokenMaker:  maker,
		players:     players,
		liveGames:   liveGames,
		matchmaking: mm,
		upgrader:    ws.NewUpgrader(config.AllowedOrigins),
	}

	router.POST("/user/register", server.Register)
	router.POST("/user/login", server.Login)
	router.GET("/user/token", server.AuthMiddleware, server.GetTokenData)
	router.GET("/game", server.ServeMatchmaking)
	router.GET("/games/:id", server.AuthMiddleware, server.GetLiveGame)

	return server
}

// Handler returns the router wrapped with CORS for the configured origins.
func (s *Server) Handler() http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins:   s.config.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	})

	return c.Handler(s.router)
}

func (s *Server) Start() error {
	return http.ListenAndServe(fmt.Sprintf(":%v", s.config.Port), s.Handler())
}
