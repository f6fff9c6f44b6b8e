package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
)

//go:embed schema.sql
var schema string

var (
	ErrNotFound      = errors.New("record not found")
	ErrUsernameTaken = errors.New("username is already taken")
)

// unique_violation
const pqUniqueViolation = "23505"

type Player struct {
	ID           int64  `json:"id"`
	Username     string `json:"username"`
	PasswordHash string `json:"-"`
	Score        int    `json:"score"`
}

type Game struct {
	ID          int64      `json:"id"`
	StartedAt   time.Time  `json:"started_at"`
	EndedAt     *time.Time `json:"ended_at,omitempty"`
	PlayerBlack int64      `json:"player_black"`
	PlayerWhite int64      `json:"player_white"`
}

// Turn is one accepted move. Squares are algebraic names in the canonical
// frame and Color and Piece are the names used on the wire.
type Turn struct {
	GameID int64
	Number int
	Color  string
	From   string
	To     string
	Piece  string
}

type Postgres struct {
	db *sql.DB
}

func NewPostgres(ctx context.Context, databaseURL string) (*Postgres, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(16)
	db.SetMaxIdleConns(8)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}

	return NewPostgresFromDB(db), nil
}

func NewPostgresFromDB(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (p *Postgres) Close() error {
	if p == nil || p.db == nil {
		return nil
	}
	return p.db.Close()
}

// Migrate creates the tables if they do not exist yet.
func (p *Postgres) Migrate(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	return nil
}

func (p *Postgres) CreatePlayer(ctx context.Context, username, passwordHash string) (Player, error) {
	q := `INSERT INTO player (username, password_hash) VALUES ($1, $2)
        RETURNING id, username, password_hash, score`

	var player Player

	err := p.db.QueryRowContext(ctx, q, username, passwordHash).
		Scan(&player.ID, &player.Username, &player.PasswordHash, &player.Score)

	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
			return Player{}, ErrUsernameTaken
		}
		return Player{}, fmt.Errorf("create player: %w", err)
	}

	return player, nil
}

func (p *Postgres) PlayerByUsername(ctx context.Context, username string) (Player, error) {
	q := `SELECT id, username, password_hash, score FROM player WHERE username = $1`

	var player Player

	err := p.db.QueryRowContext(ctx, q, username).
		Scan(&player.ID, &player.Username, &player.PasswordHash, &player.Score)

	if errors.Is(err, sql.ErrNoRows) {
		return Player{}, ErrNotFound
	}
	if err != nil {
		return Player{}, fmt.Errorf("player by username: %w", err)
	}

	return player, nil
}

func (p *Postgres) CreateGame(ctx context.Context, blackID, whiteID int64) (Game, error) {
	q := `INSERT INTO game (player_black, player_white) VALUES ($1, $2)
        RETURNING id, started_at, ended_at, player_black, player_white`

	game, err := scanGame(p.db.QueryRowContext(ctx, q, blackID, whiteID))
	if err != nil {
		return Game{}, fmt.Errorf("create game: %w", err)
	}

	return game, nil
}

func (p *Postgres) RecordTurn(ctx context.Context, t Turn) error {
	q := `INSERT INTO game_turn (game, turn_nr, player_color, tile_from, tile_to, pawn_moved)
        VALUES ($1, $2, $3, $4, $5, $6)`

	if _, err := p.db.ExecContext(ctx, q, t.GameID, t.Number, t.Color, t.From, t.To, t.Piece); err != nil {
		return fmt.Errorf("record turn %d of game %d: %w", t.Number, t.GameID, err)
	}

	return nil
}

// FinishGame stamps the end time of a game and returns the updated record.
func (p *Postgres) FinishGame(ctx context.Context, gameID int64) (Game, error) {
	q := `UPDATE game SET ended_at = now() WHERE id = $1
        RETURNING id, started_at, ended_at, player_black, player_white`

	game, err := scanGame(p.db.QueryRowContext(ctx, q, gameID))
	if errors.Is(err, sql.ErrNoRows) {
		return Game{}, ErrNotFound
	}
	if err != nil {
		return Game{}, fmt.Errorf("finish game %d: %w", gameID, err)
	}

	return game, nil
}

func (p *Postgres) IncrementScore(ctx context.Context, playerID int64) error {
	res, err := p.db.ExecContext(ctx, `UPDATE player SET score = score + 1 WHERE id = $1`, playerID)
	if err != nil {
		return fmt.Errorf("increment score of player %d: %w", playerID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}

	return nil
}

// DeleteGame removes a game and, through the foreign key cascade, its turns.
func (p *Postgres) DeleteGame(ctx context.Context, gameID int64) error {
	if _, err := p.db.ExecContext(ctx, `DELETE FROM game WHERE id = $1`, gameID); err != nil {
		return fmt.Errorf("delete game %d: %w", gameID, err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanGame(row rowScanner) (Game, error) {
	var (
		game    Game
		endedAt sql.NullTime
	)

	if err := row.Scan(&game.ID, &game.StartedAt, &endedAt, &game.PlayerBlack, &game.PlayerWhite); err != nil {
		return Game{}, err
	}

	if endedAt.Valid {
		game.EndedAt = &endedAt.Time
	}

	return game, nil
}
