package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
)

// Repository persists finished games.
type Repository interface {
	SaveResult(ctx context.Context, r Result) error
	Close() error
}

const schema = `CREATE TABLE IF NOT EXISTS relay_games (
    room_id      TEXT PRIMARY KEY,
    room_name    TEXT NOT NULL DEFAULT '',
    white_id     TEXT NOT NULL,
    white_name   TEXT NOT NULL DEFAULT '',
    black_id     TEXT NOT NULL,
    black_name   TEXT NOT NULL DEFAULT '',
    result       TEXT NOT NULL DEFAULT '',
    result_method TEXT NOT NULL DEFAULT '',
    moves_uci    JSONB NOT NULL,
    moves_san    JSONB NOT NULL,
    replayed     BOOLEAN NOT NULL DEFAULT FALSE,
    eco_code     TEXT NOT NULL DEFAULT '',
    opening_name TEXT NOT NULL DEFAULT '',
    pgn          TEXT NOT NULL,
    started_at   TIMESTAMPTZ NOT NULL,
    ended_at     TIMESTAMPTZ NOT NULL,
    duration_ms  BIGINT NOT NULL DEFAULT 0
)`

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository opens DATABASE_URL, pings it and creates the
// relay_games table when missing.
func NewPostgresRepository(ctx context.Context, databaseURL string) (*PostgresRepository, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(8)
	db.SetMaxIdleConns(4)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return &PostgresRepository{db: db}, nil
}

func (r *PostgresRepository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

// SaveResult upserts by room id.
func (r *PostgresRepository) SaveResult(ctx context.Context, res Result) error {
	if r == nil || r.db == nil {
		return nil
	}
	movesUCIRaw, err := json.Marshal(res.MovesUCI)
	if err != nil {
		return err
	}
	movesSANRaw, err := json.Marshal(res.MovesSAN)
	if err != nil {
		return err
	}
	duration := res.EndedAt.Sub(res.StartedAt).Milliseconds()
	if duration < 0 {
		duration = 0
	}

	q := `INSERT INTO relay_games (
        room_id, room_name, white_id, white_name, black_id, black_name,
        result, result_method, moves_uci, moves_san, replayed,
        eco_code, opening_name, pgn, started_at, ended_at, duration_ms
      ) VALUES (
        $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17
      ) ON CONFLICT (room_id) DO UPDATE SET
        room_name=EXCLUDED.room_name,
        white_id=EXCLUDED.white_id,
        white_name=EXCLUDED.white_name,
        black_id=EXCLUDED.black_id,
        black_name=EXCLUDED.black_name,
        result=EXCLUDED.result,
        result_method=EXCLUDED.result_method,
        moves_uci=EXCLUDED.moves_uci,
        moves_san=EXCLUDED.moves_san,
        replayed=EXCLUDED.replayed,
        eco_code=EXCLUDED.eco_code,
        opening_name=EXCLUDED.opening_name,
        pgn=EXCLUDED.pgn,
        started_at=EXCLUDED.started_at,
        ended_at=EXCLUDED.ended_at,
        duration_ms=EXCLUDED.duration_ms`

	_, err = r.db.ExecContext(ctx, q,
		res.RoomID, res.RoomName,
		res.WhiteID, res.WhiteName,
		res.BlackID, res.BlackName,
		res.Outcome, res.Method, string(movesUCIRaw), string(movesSANRaw), res.Replayed,
		res.ECOCode, res.OpeningName, res.PGN,
		res.StartedAt, res.EndedAt, duration,
	)
	return err
}
