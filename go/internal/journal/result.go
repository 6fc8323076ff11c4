// Package journal keeps a local record of finished games.
package journal

import (
	"time"

	"github.com/mcdev12/hideandseek/go/internal/models"
)

// PlayerResult is one roster line of a finished game.
type PlayerResult struct {
	PlayerID    int64               `json:"playerId"`
	UserID      int64               `json:"userId"`
	DisplayName string              `json:"displayName"`
	Role        models.Role         `json:"role"`
	Status      models.PlayerStatus `json:"status"`
	Rank        *int                `json:"rank,omitempty"`
	FoundAt     *time.Time          `json:"foundAt,omitempty"`
}

// Result is what gets recorded once per finished game and user.
type Result struct {
	GameID     int64          `json:"gameId"`
	GameName   string         `json:"gameName"`
	SessionID  string         `json:"sessionId"`
	RecordedBy int64          `json:"recordedBy"`
	SelfRank   *int           `json:"selfRank,omitempty"`
	FinishedAt time.Time      `json:"finishedAt"`
	Players    []PlayerResult `json:"players"`
}

// BuildResult turns a finished snapshot into a Result with the roster in rank order.
func BuildResult(game *models.Game, userID int64, sessionID string, finishedAt time.Time) Result {
	res := Result{
		GameID:     game.ID,
		GameName:   game.Name,
		SessionID:  sessionID,
		RecordedBy: userID,
		FinishedAt: finishedAt.UTC(),
	}

	for _, p := range models.RankedPlayers(game.Players) {
		pr := PlayerResult{
			PlayerID:    p.ID,
			UserID:      p.UserID,
			DisplayName: p.DisplayName,
			Role:        p.Role,
			Status:      p.Status,
		}
		if p.Rank != nil {
			rank := *p.Rank
			pr.Rank = &rank
		}
		if p.FoundTime != nil && !p.FoundTime.IsZero() {
			at := p.FoundTime.Time.UTC()
			pr.FoundAt = &at
		}
		if p.UserID == userID {
			res.SelfRank = pr.Rank
		}
		res.Players = append(res.Players, pr)
	}
	return res
}
