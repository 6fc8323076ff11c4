package gamestate

import (
	"github.com/mcdev12/hideandseek/go/internal/models"
	"github.com/mcdev12/hideandseek/go/internal/navigation"
)

// EventType identifies what a GameStateClient is reporting.
type EventType string

const (
	// EventSnapshot carries every snapshot that was applied.
	EventSnapshot EventType = "Snapshot"
	// EventPhaseChanged fires when an applied snapshot is in a different phase than the last one.
	EventPhaseChanged EventType = "PhaseChanged"
	// EventRedirect asks the consumer to move to another view.
	EventRedirect EventType = "Redirect"
	// EventFinished fires once when the game ends; polling has stopped.
	EventFinished EventType = "Finished"
	// EventMembershipLost fires once when the roster no longer contains this user.
	EventMembershipLost EventType = "MembershipLost"
	// EventPollFailed reports a transient failure; the next tick retries.
	EventPollFailed EventType = "PollFailed"
	// EventGameGone is the visible notice for a deleted game; the Redirect follows after a delay.
	EventGameGone EventType = "GameGone"
	// EventUnauthorized fires once when the credential is rejected; polling has stopped.
	EventUnauthorized EventType = "Unauthorized"
)

// Event is delivered on Client.Events.
type Event struct {
	Type   EventType
	Seq    uint64
	Game   *models.Game
	Self   *models.Player
	From   models.Phase
	To     models.Phase
	Target navigation.View
	// Failures is the number of consecutive failed polls.
	Failures int
	Err      error
}

// Terminal reports whether the event ends this client's polling.
func (e Event) Terminal() bool {
	switch e.Type {
	case EventFinished, EventMembershipLost, EventUnauthorized:
		return true
	default:
		return false
	}
}
