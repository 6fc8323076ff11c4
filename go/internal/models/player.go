package models

import "sort"

// Role is assigned once per game and never changes.
type Role string

const (
	RoleHunter Role = "HUNTER"
	RoleHider  Role = "HIDER"
)

// PlayerStatus is monotonic for hiders (HIDING -> FOUND) and advisory for hunters.
type PlayerStatus string

const (
	PlayerStatusHiding  PlayerStatus = "HIDING"
	PlayerStatusHunting PlayerStatus = "HUNTING"
	PlayerStatusFound   PlayerStatus = "FOUND"
)

// Player is a roster entry embedded in a Game snapshot.
type Player struct {
	ID             int64        `json:"playerId"`
	UserID         int64        `json:"userId"`
	DisplayName    string       `json:"displayName"`
	DisplayPicture string       `json:"displayPicture,omitempty"`
	Role           Role         `json:"role"`
	Status         PlayerStatus `json:"status"`
	OutOfArea      bool         `json:"outOfArea"`
	FoundTime      *Timestamp   `json:"foundTime"`
	LocationLat    *float64     `json:"locationLat"`
	LocationLong   *float64     `json:"locationLong"`
	Rank           *int         `json:"rank"`
}

// Location returns the player's last reported coordinate, if any.
func (p *Player) Location() (Coordinate, bool) {
	if p.LocationLat == nil || p.LocationLong == nil {
		return Coordinate{}, false
	}
	return Coordinate{Latitude: *p.LocationLat, Longitude: *p.LocationLong}, true
}

// IsHunter reports whether the player hunts.
func (p *Player) IsHunter() bool {
	return p.Role == RoleHunter
}

// IsHiding reports whether the player is a hider that has not been found yet.
func (p *Player) IsHiding() bool {
	return p.Role == RoleHider && p.Status == PlayerStatusHiding
}

// IsFound reports whether the player has been caught.
func (p *Player) IsFound() bool {
	return p.Status == PlayerStatusFound
}

// RankedPlayers returns a copy of the roster ordered by final rank, 1 first.
// Unranked players keep their roster order after the ranked ones.
func RankedPlayers(players []Player) []Player {
	out := make([]Player, len(players))
	copy(out, players)
	sort.SliceStable(out, func(i, j int) bool {
		ri, rj := out[i].Rank, out[j].Rank
		switch {
		case ri == nil:
			return false
		case rj == nil:
			return true
		default:
			return *ri < *rj
		}
	})
	return out
}
