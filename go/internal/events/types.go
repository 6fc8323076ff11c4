// Package events publishes session lifecycle events for spectators and companion tools.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Type names one lifecycle event. It becomes the last subject token.
type Type string

const (
	TypeJoined         Type = "joined"
	TypePhaseChanged   Type = "phase_changed"
	TypeGraceStarted   Type = "grace_started"
	TypeGraceCancelled Type = "grace_cancelled"
	TypeEliminated     Type = "eliminated"
	TypePlayerFound    Type = "player_found"
	TypePowerUpUsed    Type = "power_up_used"
	TypeFinished       Type = "finished"
	TypeLeft           Type = "left"
)

// Event is one message on the bus.
type Event struct {
	ID        uuid.UUID       `json:"eventId"`
	Type      Type            `json:"eventType"`
	GameID    int64           `json:"gameId"`
	SessionID string          `json:"sessionId"`
	PlayerID  int64           `json:"playerId,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// New builds an event with a fresh id. payload may be nil.
func New(typ Type, gameID int64, sessionID string, playerID int64, payload any) (Event, error) {
	ev := Event{
		ID:        uuid.New(),
		Type:      typ,
		GameID:    gameID,
		SessionID: sessionID,
		PlayerID:  playerID,
		Timestamp: time.Now().UTC(),
	}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return Event{}, fmt.Errorf("marshal %s payload: %w", typ, err)
		}
		ev.Payload = data
	}
	return ev, nil
}

// Subject is where ev is published under prefix.
func Subject(prefix string, ev Event) string {
	return fmt.Sprintf("%s.game.%d.%s", prefix, ev.GameID, ev.Type)
}

// Publisher sends events. Implementations must be safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
	Close() error
}

// NoOpPublisher drops everything; used when no NATS URL is configured.
type NoOpPublisher struct{}

func (NoOpPublisher) Publish(context.Context, Event) error { return nil }

func (NoOpPublisher) Close() error { return nil }
