package journal

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/sqlc-dev/pqtype"

	"github.com/mcdev12/hideandseek/go/internal/journal/db"
	"github.com/mcdev12/hideandseek/go/internal/sqlutil"
)

type Querier interface {
	InsertGameResult(ctx context.Context, arg db.InsertGameResultParams) error
	InsertPlayerResult(ctx context.Context, arg db.InsertPlayerResultParams) error
	GameResultExists(ctx context.Context, arg db.GameResultExistsParams) (bool, error)
}

type Repository struct {
	queries Querier
}

func NewRepository(querier Querier) *Repository {
	return &Repository{
		queries: querier,
	}
}

// Exists reports whether the user already recorded this game.
func (r *Repository) Exists(ctx context.Context, gameID, userID int64) (bool, error) {
	exists, err := r.queries.GameResultExists(ctx, db.GameResultExistsParams{GameID: gameID, RecordedBy: userID})
	if err != nil {
		return false, fmt.Errorf("failed to check journal for game %d: %w", gameID, err)
	}
	return exists, nil
}

// Insert writes the result row and one row per player.
func (r *Repository) Insert(ctx context.Context, res Result) (uuid.UUID, error) {
	roster, err := json.Marshal(res.Players)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to marshal roster: %w", err)
	}

	id := uuid.New()
	err = r.queries.InsertGameResult(ctx, db.InsertGameResultParams{
		ID:         id,
		GameID:     res.GameID,
		GameName:   res.GameName,
		SessionID:  res.SessionID,
		RecordedBy: res.RecordedBy,
		SelfRank:   sqlutil.ToSqlInt32(res.SelfRank),
		Roster:     pqtype.NullRawMessage{RawMessage: roster, Valid: len(res.Players) > 0},
		FinishedAt: res.FinishedAt,
	})
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to insert result for game %d: %w", res.GameID, err)
	}

	for _, p := range res.Players {
		err := r.queries.InsertPlayerResult(ctx, db.InsertPlayerResultParams{
			ResultID:    id,
			PlayerID:    p.PlayerID,
			UserID:      p.UserID,
			DisplayName: p.DisplayName,
			Role:        string(p.Role),
			Status:      string(p.Status),
			Rank:        sqlutil.ToSqlInt32(p.Rank),
			FoundAt:     sqlutil.ToNullTime(p.FoundAt),
		})
		if err != nil {
			return uuid.Nil, fmt.Errorf("failed to insert player %d for game %d: %w", p.PlayerID, res.GameID, err)
		}
	}
	return id, nil
}
