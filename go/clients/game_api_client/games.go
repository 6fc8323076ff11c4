package game_api_client

import (
	"context"
	"fmt"

	"github.com/mcdev12/hideandseek/go/internal/models"
)

// GameUpdateRequest is the body of the combined report-location (and optionally start) call.
type GameUpdateRequest struct {
	LocationLat  float64 `json:"locationLat"`
	LocationLong float64 `json:"locationLong"`
	StartGame    bool    `json:"startGame"`
}

// CenterUpdateRequest moves the geofence center.
type CenterUpdateRequest struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// GamePostRequest creates a new game.
type GamePostRequest struct {
	GameName                 string  `json:"gamename"`
	LocationLat              float64 `json:"locationLat"`
	LocationLong             float64 `json:"locationLong"`
	Radius                   float64 `json:"radius"`
	PreparationTimeInSeconds int     `json:"preparationTimeInSeconds"`
	GameTimeInSeconds        int     `json:"gameTimeInSeconds"`
}

// ListGames returns every game visible to the caller, for lobby browsing.
func (c *GameApiClient) ListGames(ctx context.Context) ([]models.Game, error) {
	var games []models.Game
	if err := c.Get(ctx, GamesEndpoint, &games); err != nil {
		return nil, fmt.Errorf("failed to list games: %w", err)
	}
	return games, nil
}

// GetGame fetches one snapshot without reporting a location.
func (c *GameApiClient) GetGame(ctx context.Context, gameID int64) (*models.Game, error) {
	var game models.Game
	if err := c.Get(ctx, gameEndpoint(gameID), &game); err != nil {
		return nil, fmt.Errorf("failed to get game %d: %w", gameID, err)
	}
	return &game, nil
}

// UpdateGame reports the caller's coordinate and returns the fresh snapshot in one round trip.
// With start set it also asks the server to leave the lobby.
func (c *GameApiClient) UpdateGame(ctx context.Context, gameID int64, at models.Coordinate, start bool) (*models.Game, error) {
	req := GameUpdateRequest{
		LocationLat:  at.Latitude,
		LocationLong: at.Longitude,
		StartGame:    start,
	}
	var game models.Game
	if err := c.Put(ctx, gameEndpoint(gameID), req, &game); err != nil {
		return nil, fmt.Errorf("failed to update game %d: %w", gameID, err)
	}
	return &game, nil
}

// MarkPlayer marks a player as caught. Hunters target hiders; hiders target themselves.
func (c *GameApiClient) MarkPlayer(ctx context.Context, gameID, playerID int64) (*models.Game, error) {
	var game models.Game
	if err := c.Put(ctx, playerEndpoint(gameID, playerID), struct{}{}, &game); err != nil {
		return nil, fmt.Errorf("failed to mark player %d in game %d: %w", playerID, gameID, err)
	}
	return &game, nil
}

// RecenterArea moves the geofence center to the given coordinate.
func (c *GameApiClient) RecenterArea(ctx context.Context, gameID int64, center models.Coordinate) (*models.Game, error) {
	req := CenterUpdateRequest{Latitude: center.Latitude, Longitude: center.Longitude}
	var game models.Game
	if err := c.Put(ctx, centerEndpoint(gameID), req, &game); err != nil {
		return nil, fmt.Errorf("failed to recenter game %d: %w", gameID, err)
	}
	return &game, nil
}

// LeaveGame removes a player from the roster.
func (c *GameApiClient) LeaveGame(ctx context.Context, gameID, playerID int64) error {
	if err := c.Delete(ctx, playerEndpoint(gameID, playerID)); err != nil {
		return fmt.Errorf("failed to remove player %d from game %d: %w", playerID, gameID, err)
	}
	return nil
}

// CreateGame opens a new lobby centered on the caller.
func (c *GameApiClient) CreateGame(ctx context.Context, req GamePostRequest) (*models.Game, error) {
	var game models.Game
	if err := c.Post(ctx, GamesEndpoint, req, &game); err != nil {
		return nil, fmt.Errorf("failed to create game %q: %w", req.GameName, err)
	}
	return &game, nil
}
