package session

import (
	"time"

	"github.com/mcdev12/hideandseek/go/internal/geofence"
	"github.com/mcdev12/hideandseek/go/internal/journal"
	"github.com/mcdev12/hideandseek/go/internal/models"
	"github.com/mcdev12/hideandseek/go/internal/navigation"
)

// View is the derived, render-ready state of one session. A new value is published after
// every handled input; it never aliases the snapshot it was built from.
type View struct {
	SessionID string          `json:"sessionId"`
	GameID    int64           `json:"gameId"`
	Screen    navigation.View `json:"screen"`
	GameName  string          `json:"gameName,omitempty"`
	Phase     models.Phase    `json:"phase,omitempty"`
	Seq       uint64          `json:"seq"`

	Remaining int    `json:"remainingSeconds"`
	Clock     string `json:"clock"`

	Grace          geofence.State `json:"grace"`
	GraceRemaining int            `json:"graceRemainingSeconds,omitempty"`

	Self     *models.Player     `json:"self,omitempty"`
	Players  []models.Player    `json:"players,omitempty"`
	Geofence *models.Geofence   `json:"geofence,omitempty"`
	Revealed bool               `json:"revealed"`
	Location *models.Coordinate `json:"location,omitempty"`
	InArea   *bool              `json:"inArea,omitempty"`

	WaitingForLocation bool   `json:"waitingForLocation"`
	LocationError      string `json:"locationError,omitempty"`
	Notice             string `json:"notice,omitempty"`
	Failures           int    `json:"failures"`

	Results []journal.PlayerResult `json:"results,omitempty"`
	Next    navigation.Target      `json:"next"`

	UpdatedAt time.Time `json:"updatedAt"`
}

// visiblePlayers copies the roster. Other players' positions are hidden unless revealed.
func visiblePlayers(players []models.Player, selfID int64, revealed bool) []models.Player {
	out := make([]models.Player, len(players))
	copy(out, players)
	if revealed {
		return out
	}
	for i := range out {
		if out[i].ID != selfID {
			out[i].LocationLat = nil
			out[i].LocationLong = nil
		}
	}
	return out
}
