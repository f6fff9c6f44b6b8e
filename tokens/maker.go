package tokens

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrInvalidToken = errors.New("token is invalid")
	ErrExpiredToken = errors.New("token has expired")
)

// Maker issues and verifies player credentials.
type Maker interface {
	CreateToken(playerID int64, username string, duration time.Duration) (string, *Payload, error)
	VerifyToken(token string) (*Payload, error)
}

// NewMaker returns the maker for kind, which is "jwt" or "paseto".
func NewMaker(kind, secret string) (Maker, error) {
	switch kind {
	case "jwt":
		return NewJWTMaker(secret)
	case "paseto":
		return NewPasetoMaker(secret)
	default:
		return nil, fmt.Errorf("unknown token kind %q", kind)
	}
}
