// Package navigation names the client's views and maps game phases onto them.
package navigation

import "github.com/mcdev12/hideandseek/go/internal/models"

// View is a screen the client can be on.
type View string

const (
	ViewNone    View = ""
	ViewLogin   View = "login"
	ViewBrowse  View = "browse"
	ViewLobby   View = "lobby"
	ViewGame    View = "game"
	ViewResults View = "results"
)

// ForPhase returns the view that renders a game in the given phase.
func ForPhase(p models.Phase) View {
	switch p {
	case models.PhaseLobby:
		return ViewLobby
	case models.PhasePreparing, models.PhaseActive:
		return ViewGame
	case models.PhaseFinished:
		return ViewResults
	default:
		return ViewBrowse
	}
}

// Target is a navigation request: which view, for which game.
type Target struct {
	View   View
	GameID int64
	Reason string
}
