package models

// User is the identity returned by GET /me.
type User struct {
	ID             int64     `json:"userId"`
	Username       string    `json:"username"`
	ProfilePicture string    `json:"profilePicture,omitempty"`
	Stats          UserStats `json:"stats"`
}

// UserStats holds the aggregate numbers the backend keeps per user.
type UserStats struct {
	GamesPlayed  int    `json:"gamesPlayed"`
	Wins         int    `json:"wins"`
	Points       int    `json:"points"`
	CreationDate string `json:"creation_date,omitempty"`
}
