package session

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/hideandseek/go/internal/navigation"
)

// Factory builds the session for a lobby or game target.
type Factory func(target navigation.Target) *Session

// Router mounts one session at a time and follows its navigation requests. Lobby and game
// views are driven here; browse, login and results end the walk and are returned to the caller.
type Router struct {
	factory Factory
	current atomic.Pointer[Session]
	// maxHops bounds view changes per Run.
	maxHops int
}

func NewRouter(factory Factory) *Router {
	return &Router{factory: factory, maxHops: 32}
}

// Current returns the mounted session, or the last one after Run returns.
func (r *Router) Current() *Session {
	return r.current.Load()
}

// Run starts at target and follows redirects until a view outside the router is requested.
func (r *Router) Run(ctx context.Context, target navigation.Target) (navigation.Target, error) {
	for hop := 0; ; hop++ {
		if hop >= r.maxHops {
			return target, fmt.Errorf("too many view changes, last target %s", target.View)
		}

		switch target.View {
		case navigation.ViewLobby, navigation.ViewGame:
		default:
			return target, nil
		}

		s := r.factory(target)
		r.current.Store(s)
		log.Info().
			Int64("game_id", target.GameID).
			Str("view", string(target.View)).
			Str("session_id", s.ID()).
			Msg("mounting view")

		next, err := s.Run(ctx)
		if err != nil {
			return target, err
		}
		if next.GameID == 0 {
			next.GameID = target.GameID
		}
		target = next
	}
}
