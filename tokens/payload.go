package tokens

import (
	"time"
)

type Payload struct {
	PlayerID  int64     `json:"player_id"`
	Username  string    `json:"username"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiredAt time.Time `json:"expired_at"`
}

func NewPayload(playerID int64, username string, duration time.Duration) *Payload {
	now := time.Now()

	return &Payload{
		PlayerID:  playerID,
		Username:  username,
		IssuedAt:  now,
		ExpiredAt: now.Add(duration),
	}
}

func (p *Payload) Valid() error {
	if p.PlayerID <= 0 || p.Username == "" {
		return ErrInvalidToken
	}
	if time.Now().After(p.ExpiredAt) {
		return ErrExpiredToken
	}
	return nil
}
