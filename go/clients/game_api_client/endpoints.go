package game_api_client

import "fmt"

const (
	// Base URL
	DefaultBaseURL = "http://localhost:8080"

	// API Endpoints
	GamesEndpoint   = "/games"
	MeEndpoint      = "/me"
	MapsKeyEndpoint = "/api/maps/key"
)

func gameEndpoint(gameID int64) string {
	return fmt.Sprintf("%s/%d", GamesEndpoint, gameID)
}

func playerEndpoint(gameID, playerID int64) string {
	return fmt.Sprintf("%s/%d/players/%d", GamesEndpoint, gameID, playerID)
}

func centerEndpoint(gameID int64) string {
	return fmt.Sprintf("%s/%d/center", GamesEndpoint, gameID)
}
