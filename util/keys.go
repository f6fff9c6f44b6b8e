package util

import "fmt"

const (
	LiveGameIDKey        = "id"
	LiveGameWhiteKey     = "white"
	LiveGameBlackKey     = "black"
	LiveGameTurnKey      = "turn"
	LiveGameActiveKey    = "active_color"
	LiveGameStartedAtKey = "started_at"
)

func GetLiveGameKey(gameID int64) string {
	return fmt.Sprintf("game:%v", gameID)
}
