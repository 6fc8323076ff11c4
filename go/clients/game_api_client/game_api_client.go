package game_api_client

import (
	"github.com/mcdev12/hideandseek/go/clients"
)

// GameApiClient talks to the hide-and-seek backend.
type GameApiClient struct {
	*clients.BaseClient
}

func NewGameApiClient(baseURL, token string) *GameApiClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	client := &GameApiClient{
		BaseClient: clients.NewBaseClient(baseURL),
	}
	client.SetToken(token)

	return client
}
