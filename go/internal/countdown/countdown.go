// Package countdown derives the remaining time of a timed phase from the snapshot anchor.
package countdown

import (
	"fmt"
	"time"

	"github.com/mcdev12/hideandseek/go/internal/models"
)

// Anchor is the (start, duration) pair the countdown is computed from.
type Anchor struct {
	Phase    models.Phase
	Start    time.Time
	Duration int
	Valid    bool
}

// Remaining returns whole seconds left at now: max(0, duration - floor(elapsed)).
// A start in the future reads as the full duration.
func (a Anchor) Remaining(now time.Time) int {
	if !a.Valid {
		return 0
	}
	elapsed := now.Sub(a.Start)
	if elapsed < 0 {
		return a.Duration
	}
	left := a.Duration - int(elapsed/time.Second)
	if left < 0 {
		return 0
	}
	return left
}

// Countdown keeps one anchor per phase.
type Countdown struct {
	anchor Anchor
	// estimated is set while the anchor falls back to the local clock for lack of a server timer.
	estimated bool
}

func New() *Countdown {
	return &Countdown{}
}

// Anchor returns the current anchor.
func (c *Countdown) Anchor() Anchor {
	return c.anchor
}

// Observe feeds a snapshot. The anchor is replaced only when the phase or the phase duration
// differs from the one already held, so repeated polls in the same phase keep the displayed
// value steady. An anchor taken from the local clock is replaced once by the first server
// timer seen in the same phase. It reports whether the anchor moved.
func (c *Countdown) Observe(game *models.Game, now time.Time) bool {
	if game == nil {
		return false
	}
	duration := game.PhaseDuration()
	start, ok := game.PhaseStartTime()
	if c.anchor.Valid && c.anchor.Phase == game.Phase && c.anchor.Duration == duration {
		if !c.estimated || !ok {
			return false
		}
		c.anchor.Start = start
		c.estimated = false
		return true
	}
	if !game.Phase.Timed() {
		moved := c.anchor.Valid
		c.anchor = Anchor{Phase: game.Phase}
		c.estimated = false
		return moved
	}

	c.estimated = !ok
	if !ok {
		start = now
	}
	c.anchor = Anchor{Phase: game.Phase, Start: start, Duration: duration, Valid: true}
	return true
}

// Remaining is the anchor's remaining seconds at now.
func (c *Countdown) Remaining(now time.Time) int {
	return c.anchor.Remaining(now)
}

// Ticking reports whether the local display should still be refreshed. Reaching zero stops
// the local tick; the phase change itself arrives with the next snapshot.
func (c *Countdown) Ticking(now time.Time) bool {
	return c.anchor.Valid && c.anchor.Remaining(now) > 0
}

// Reset forgets the anchor.
func (c *Countdown) Reset() {
	c.anchor = Anchor{}
	c.estimated = false
}

// Format renders seconds as mm:ss.
func Format(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}
