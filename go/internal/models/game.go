package models

import "time"

// Phase is the lifecycle stage of a game. Phases only move forward.
type Phase string

const (
	PhaseLobby     Phase = "IN_LOBBY"
	PhasePreparing Phase = "IN_GAME_PREPARATION"
	PhaseActive    Phase = "IN_GAME"
	PhaseFinished  Phase = "FINISHED"
)

// Order returns the position of the phase in the game lifecycle, or -1 for unknown phases.
func (p Phase) Order() int {
	switch p {
	case PhaseLobby:
		return 0
	case PhasePreparing:
		return 1
	case PhaseActive:
		return 2
	case PhaseFinished:
		return 3
	default:
		return -1
	}
}

// Before reports whether p comes strictly earlier than other.
func (p Phase) Before(other Phase) bool {
	return p.Order() < other.Order()
}

// Timed reports whether the phase runs against a countdown.
func (p Phase) Timed() bool {
	return p == PhasePreparing || p == PhaseActive
}

// Geofence is the circular playable area of a game.
type Geofence struct {
	Center Coordinate `json:"center"`
	Radius float64    `json:"radius"`
}

// Game is one server-authoritative snapshot of a game and its roster.
// A Game is replaced wholesale on every poll; callers must treat it as read-only.
type Game struct {
	ID                       int64      `json:"gameId"`
	Name                     string     `json:"gamename"`
	Phase                    Phase      `json:"status"`
	CenterLatitude           *float64   `json:"centerLatitude"`
	CenterLongitude          *float64   `json:"centerLongitude"`
	Radius                   *float64   `json:"radius"`
	PhaseStart               *Timestamp `json:"timer"`
	CreatorID                int64      `json:"creatorId"`
	PreparationTimeInSeconds int        `json:"preparationTimeInSeconds"`
	GameTimeInSeconds        int        `json:"gameTimeInSeconds"`
	Players                  []Player   `json:"players"`
}

// Geofence returns the declared playable area, or false when the server has not set one yet.
func (g *Game) Geofence() (Geofence, bool) {
	if g == nil || g.CenterLatitude == nil || g.CenterLongitude == nil || g.Radius == nil {
		return Geofence{}, false
	}
	return Geofence{
		Center: Coordinate{Latitude: *g.CenterLatitude, Longitude: *g.CenterLongitude},
		Radius: *g.Radius,
	}, true
}

// PhaseDuration returns the configured length of the current phase in seconds.
// Untimed phases return 0.
func (g *Game) PhaseDuration() int {
	switch g.Phase {
	case PhasePreparing:
		return g.PreparationTimeInSeconds
	case PhaseActive:
		return g.GameTimeInSeconds
	default:
		return 0
	}
}

// PhaseStartTime returns the instant the current phase began, if the server reported one.
func (g *Game) PhaseStartTime() (time.Time, bool) {
	if g == nil || g.PhaseStart == nil || g.PhaseStart.IsZero() {
		return time.Time{}, false
	}
	return g.PhaseStart.Time, true
}

// PlayerByUser finds the roster entry owned by the given user.
func (g *Game) PlayerByUser(userID int64) (*Player, bool) {
	if g == nil {
		return nil, false
	}
	for i := range g.Players {
		if g.Players[i].UserID == userID {
			return &g.Players[i], true
		}
	}
	return nil, false
}

// PlayerByID finds the roster entry with the given player id.
func (g *Game) PlayerByID(playerID int64) (*Player, bool) {
	if g == nil {
		return nil, false
	}
	for i := range g.Players {
		if g.Players[i].ID == playerID {
			return &g.Players[i], true
		}
	}
	return nil, false
}
