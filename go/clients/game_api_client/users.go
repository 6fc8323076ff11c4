package game_api_client

import (
	"context"
	"fmt"

	"github.com/mcdev12/hideandseek/go/internal/models"
)

// Me returns the identity that owns the installed credential.
func (c *GameApiClient) Me(ctx context.Context) (*models.User, error) {
	var user models.User
	if err := c.Get(ctx, MeEndpoint, &user); err != nil {
		return nil, fmt.Errorf("failed to get current user: %w", err)
	}
	return &user, nil
}

type mapsKeyResponse struct {
	APIKey string `json:"apiKey"`
}

// MapsKey fetches the maps API key the backend hands out to clients.
func (c *GameApiClient) MapsKey(ctx context.Context) (string, error) {
	var resp mapsKeyResponse
	if err := c.Get(ctx, MapsKeyEndpoint, &resp); err != nil {
		return "", fmt.Errorf("failed to get maps key: %w", err)
	}
	if resp.APIKey == "" {
		return "", fmt.Errorf("failed to get maps key: empty key")
	}
	return resp.APIKey, nil
}
