package main

import (
	"context"
	"log"

	"github.com/judgegodwins/chess-server/api"
	"github.com/judgegodwins/chess-server/livegame"
	"github.com/judgegodwins/chess-server/matchmaking"
	"github.com/judgegodwins/chess-server/obslog"
	"github.com/judgegodwins/chess-server/store"
	"github.com/judgegodwins/chess-server/tokens"
	"github.com/judgegodwins/chess-server/util"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	util.InitValidator()

	config, err := util.LoadConfig()

	if err != nil {
		log.Fatal(err)
	}

	obslog.Init(config.LogLevel, config.LogFormat)
	logger := obslog.L()
	defer logger.Sync()

	ctx := context.Background()

	rdb := redis.NewClient(&redis.Options{
		Addr:     config.RedisAddress,
		Password: config.RedisPassword,
		DB:       0,
	})

	// check redis connection status
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Fatal("redis_unreachable", zap.String("addr", config.RedisAddress), zap.Error(err))
	}

	db, err := store.NewPostgres(ctx, config.DatabaseURL)
	if err != nil {
		logger.Fatal("postgres_unreachable", zap.Error(err))
	}
	defer db.Close()

	if err := db.Migrate(ctx); err != nil {
		logger.Fatal("postgres_migrate_failed", zap.Error(err))
	}

	maker, err := tokens.NewMaker(config.TokenKind, config.TokenSecret)
	if err != nil {
		logger.Fatal("token_maker_failed", zap.String("kind", config.TokenKind), zap.Error(err))
	}

	live := livegame.NewRegistry(rdb, config.LiveGameTTL)
	matches := matchmaking.NewService(maker, db, live)

	server := api.NewServer(config, maker, db, live, matches)

	logger.Info("server_starting", zap.String("port", config.Port), zap.String("token_kind", config.TokenKind))

	logger.Fatal("server_stopped", zap.Error(server.Start()))
}
