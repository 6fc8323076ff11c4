// Package geofence runs the out-of-area grace timer for the local player.
package geofence

import (
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/hideandseek/go/internal/geo"
	"github.com/mcdev12/hideandseek/go/internal/models"
)

const DefaultGracePeriod = 10 * time.Second

// State of the grace timer.
type State string

const (
	StateInactive State = "inactive"
	StateCounting State = "counting"
	StateExpired  State = "expired"
)

// Transition is what one evaluation changed.
type Transition string

const (
	TransitionNone      Transition = ""
	TransitionStarted   Transition = "started"
	TransitionTicked    Transition = "ticked"
	TransitionCancelled Transition = "cancelled"
	// TransitionExpired is returned exactly once per out-of-area stretch. The caller must issue
	// the elimination request and then call Resolve.
	TransitionExpired Transition = "expired"
)

type Config struct {
	GracePeriod time.Duration
	// HidersOnly restricts the timer to hiders. When false any participant not yet found counts.
	HidersOnly bool
	// LocalCheck also treats a local coordinate outside the fence as out of area,
	// in addition to the server-reported flag.
	LocalCheck bool
}

// Input is everything one evaluation looks at. Self and Geofence come from the latest snapshot.
type Input struct {
	Phase    models.Phase
	Self     *models.Player
	Geofence *models.Geofence
	Local    *models.Coordinate
}

// Result of an evaluation.
type Result struct {
	Transition Transition
	State      State
	// Remaining is the whole number of seconds left while counting.
	Remaining int
}

// Monitor is not safe for concurrent use; the owning session goroutine drives it.
type Monitor struct {
	cfg Config

	state     State
	startedAt time.Time
	remaining int
	// latched is set after an elimination until a favorable observation re-arms the timer.
	latched bool
}

func NewMonitor(cfg Config) *Monitor {
	if cfg.GracePeriod <= 0 {
		cfg.GracePeriod = DefaultGracePeriod
	}
	return &Monitor{cfg: cfg, state: StateInactive}
}

func (m *Monitor) State() State {
	return m.state
}

// Remaining returns the seconds left on a running timer, 0 otherwise.
func (m *Monitor) Remaining() int {
	if m.state != StateCounting {
		return 0
	}
	return m.remaining
}

// Eligible reports whether the grace timer applies to in at all.
func (m *Monitor) Eligible(in Input) bool {
	if in.Phase != models.PhaseActive || in.Self == nil || in.Self.IsFound() {
		return false
	}
	if m.cfg.HidersOnly && in.Self.Role != models.RoleHider {
		return false
	}
	return true
}

// OutOfArea combines the server flag with the optional local distance check.
func (m *Monitor) OutOfArea(in Input) bool {
	if in.Self != nil && in.Self.OutOfArea {
		return true
	}
	if m.cfg.LocalCheck && in.Local != nil && in.Geofence != nil {
		return !geo.InFence(*in.Local, *in.Geofence)
	}
	return false
}

// Evaluate advances the state machine to now. Remaining time is derived from the start
// instant on every call, never decremented.
func (m *Monitor) Evaluate(now time.Time, in Input) Result {
	eligible := m.Eligible(in)
	out := eligible && m.OutOfArea(in)

	switch m.state {
	case StateInactive:
		if !out {
			m.latched = false
			return m.result(TransitionNone)
		}
		if m.latched {
			return m.result(TransitionNone)
		}
		m.state = StateCounting
		m.startedAt = now
		m.remaining = m.secondsLeft(now)
		log.Info().
			Int64("player_id", in.Self.ID).
			Int("remaining_sec", m.remaining).
			Msg("left the game area, grace period started")
		return m.result(TransitionStarted)

	case StateCounting:
		if !eligible {
			return m.cancel(eligible)
		}
		// A full grace period out of area expires even if this sample is back inside.
		left := m.secondsLeft(now)
		if left <= 0 {
			m.state = StateExpired
			m.remaining = 0
			log.Warn().Int64("player_id", in.Self.ID).Msg("grace period expired")
			return m.result(TransitionExpired)
		}
		if !out {
			return m.cancel(eligible)
		}
		if left != m.remaining {
			m.remaining = left
			log.Debug().Int("remaining_sec", left).Msg("grace period tick")
			return m.result(TransitionTicked)
		}
		return m.result(TransitionNone)

	default:
		// Waiting for Resolve.
		return m.result(TransitionNone)
	}
}

// Resolve ends an expired grace period once the elimination request has completed,
// whether or not it succeeded. The timer stays disarmed until the player is seen back
// in the area or no longer eligible.
func (m *Monitor) Resolve(err error) {
	if m.state != StateExpired {
		return
	}
	if err != nil {
		log.Error().Err(err).Msg("elimination request failed")
	}
	m.state = StateInactive
	m.latched = true
}

// Reset drops any running timer, used when the owning view is torn down.
func (m *Monitor) Reset() {
	m.state = StateInactive
	m.remaining = 0
	m.latched = false
}

func (m *Monitor) cancel(eligible bool) Result {
	m.state = StateInactive
	m.remaining = 0
	log.Info().Bool("eligible", eligible).Msg("grace period cancelled")
	return m.result(TransitionCancelled)
}

func (m *Monitor) secondsLeft(now time.Time) int {
	elapsed := now.Sub(m.startedAt)
	if elapsed < 0 {
		elapsed = 0
	}
	return int((m.cfg.GracePeriod - elapsed.Truncate(time.Second)) / time.Second)
}

func (m *Monitor) result(t Transition) Result {
	return Result{Transition: t, State: m.state, Remaining: m.Remaining()}
}
