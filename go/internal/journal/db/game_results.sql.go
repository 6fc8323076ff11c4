// source: game_results.sql

package db

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/sqlc-dev/pqtype"
)

const insertGameResult = `-- name: InsertGameResult :exec
INSERT INTO game_results (id, game_id, game_name, session_id, recorded_by, self_rank, roster, finished_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
`

type InsertGameResultParams struct {
	ID         uuid.UUID             `json:"id"`
	GameID     int64                 `json:"game_id"`
	GameName   string                `json:"game_name"`
	SessionID  string                `json:"session_id"`
	RecordedBy int64                 `json:"recorded_by"`
	SelfRank   sql.NullInt32         `json:"self_rank"`
	Roster     pqtype.NullRawMessage `json:"roster"`
	FinishedAt time.Time             `json:"finished_at"`
}

func (q *Queries) InsertGameResult(ctx context.Context, arg InsertGameResultParams) error {
	_, err := q.db.ExecContext(ctx, insertGameResult,
		arg.ID,
		arg.GameID,
		arg.GameName,
		arg.SessionID,
		arg.RecordedBy,
		arg.SelfRank,
		arg.Roster,
		arg.FinishedAt,
	)
	return err
}

const insertPlayerResult = `-- name: InsertPlayerResult :exec
INSERT INTO game_result_players (result_id, player_id, user_id, display_name, role, status, rank, found_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
`

type InsertPlayerResultParams struct {
	ResultID    uuid.UUID     `json:"result_id"`
	PlayerID    int64         `json:"player_id"`
	UserID      int64         `json:"user_id"`
	DisplayName string        `json:"display_name"`
	Role        string        `json:"role"`
	Status      string        `json:"status"`
	Rank        sql.NullInt32 `json:"rank"`
	FoundAt     sql.NullTime  `json:"found_at"`
}

func (q *Queries) InsertPlayerResult(ctx context.Context, arg InsertPlayerResultParams) error {
	_, err := q.db.ExecContext(ctx, insertPlayerResult,
		arg.ResultID,
		arg.PlayerID,
		arg.UserID,
		arg.DisplayName,
		arg.Role,
		arg.Status,
		arg.Rank,
		arg.FoundAt,
	)
	return err
}

const gameResultExists = `-- name: GameResultExists :one
SELECT EXISTS (
    SELECT 1 FROM game_results WHERE game_id = $1 AND recorded_by = $2
)
`

type GameResultExistsParams struct {
	GameID     int64 `json:"game_id"`
	RecordedBy int64 `json:"recorded_by"`
}

func (q *Queries) GameResultExists(ctx context.Context, arg GameResultExistsParams) (bool, error) {
	row := q.db.QueryRowContext(ctx, gameResultExists, arg.GameID, arg.RecordedBy)
	var exists bool
	err := row.Scan(&exists)
	return exists, err
}
