package geofence

import (
	"errors"
	"testing"
	"time"

	"github.com/mcdev12/hideandseek/go/internal/geo"
	"github.com/mcdev12/hideandseek/go/internal/models"
)

var (
	center = models.Coordinate{Latitude: 47.3769, Longitude: 8.5417}
	fence  = models.Geofence{Center: center, Radius: 25}
	t0     = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
)

func hider(outOfArea bool) *models.Player {
	return &models.Player{ID: 1, UserID: 42, Role: models.RoleHider, Status: models.PlayerStatusHiding, OutOfArea: outOfArea}
}

func active(self *models.Player) Input {
	return Input{Phase: models.PhaseActive, Self: self, Geofence: &fence}
}

// run feeds one sample per second and returns the evaluation index (1-based) of every expiry.
func run(m *Monitor, samples []bool) []int {
	var fired []int
	for i, inArea := range samples {
		res := m.Evaluate(t0.Add(time.Duration(i)*time.Second), active(hider(!inArea)))
		if res.Transition == TransitionExpired {
			fired = append(fired, i+1)
			m.Resolve(nil)
		}
	}
	return fired
}

func repeat(v bool, n int) []bool {
	out := make([]bool, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func TestGraceTimerExactlyOnce(t *testing.T) {
	tests := []struct {
		name    string
		samples []bool
		want    []int
	}{
		{
			name:    "ten ticks out of area after the first observation",
			samples: repeat(false, 11),
			want:    []int{11},
		},
		{
			name:    "expires on the tick after ten out-of-area samples even when back inside",
			samples: append(repeat(false, 10), true),
			want:    []int{11},
		},
		{
			name:    "nine out-of-area samples then back inside",
			samples: append(repeat(false, 9), true),
			want:    nil,
		},
		{
			name:    "staying out does not fire twice",
			samples: repeat(false, 40),
			want:    []int{11},
		},
		{
			name:    "back in area at evaluation 7 resets",
			samples: append(append(repeat(false, 6), true), repeat(false, 8)...),
			want:    nil,
		},
		{
			name:    "fresh count after reset",
			samples: append(append(repeat(false, 6), true), repeat(false, 11)...),
			want:    []int{18},
		},
		{
			name:    "re-arms after returning to the area",
			samples: append(append(repeat(false, 11), true), repeat(false, 11)...),
			want:    []int{11, 23},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMonitor(Config{GracePeriod: 10 * time.Second, HidersOnly: true})
			got := run(m, tt.samples)
			if len(got) != len(tt.want) {
				t.Fatalf("fired at %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("fired at %v, want %v", got, tt.want)
				}
			}
		})
	}
}

func TestCountingDisplaysWholeSeconds(t *testing.T) {
	m := NewMonitor(Config{GracePeriod: 10 * time.Second})
	in := active(hider(true))

	if res := m.Evaluate(t0, in); res.Transition != TransitionStarted || res.Remaining != 10 {
		t.Fatalf("start = %+v", res)
	}
	if res := m.Evaluate(t0.Add(500*time.Millisecond), in); res.Transition != TransitionNone || res.Remaining != 10 {
		t.Fatalf("half second = %+v", res)
	}
	if res := m.Evaluate(t0.Add(3200*time.Millisecond), in); res.Transition != TransitionTicked || res.Remaining != 7 {
		t.Fatalf("3.2s = %+v", res)
	}
	// A suspended process catching up jumps straight to expiry.
	if res := m.Evaluate(t0.Add(time.Minute), in); res.Transition != TransitionExpired {
		t.Fatalf("after a minute = %+v", res)
	}
}

func TestEligibilityLossCancels(t *testing.T) {
	found := hider(true)
	found.Status = models.PlayerStatusFound

	tests := []struct {
		name string
		in   Input
	}{
		{"found", active(found)},
		{"phase ended", Input{Phase: models.PhaseFinished, Self: hider(true)}},
		{"no self", Input{Phase: models.PhaseActive}},
		{"back in area", active(hider(false))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMonitor(Config{HidersOnly: true})
			m.Evaluate(t0, active(hider(true)))
			if m.State() != StateCounting {
				t.Fatalf("state = %s", m.State())
			}
			res := m.Evaluate(t0.Add(4*time.Second), tt.in)
			if res.Transition != TransitionCancelled || res.State != StateInactive {
				t.Fatalf("result = %+v", res)
			}
		})
	}
}

func TestHidersOnly(t *testing.T) {
	hunter := &models.Player{ID: 2, Role: models.RoleHunter, Status: models.PlayerStatusHunting, OutOfArea: true}

	strict := NewMonitor(Config{HidersOnly: true})
	if res := strict.Evaluate(t0, active(hunter)); res.Transition != TransitionNone {
		t.Fatalf("hunter started a timer: %+v", res)
	}

	loose := NewMonitor(Config{HidersOnly: false})
	if res := loose.Evaluate(t0, active(hunter)); res.Transition != TransitionStarted {
		t.Fatalf("hunter should be eligible: %+v", res)
	}
}

func TestLocalCheck(t *testing.T) {
	outside := geo.Offset(center, 40, 0)
	inside := geo.Offset(center, 10, 0)

	tests := []struct {
		name       string
		localCheck bool
		local      models.Coordinate
		want       Transition
	}{
		{"outside counts when enabled", true, outside, TransitionStarted},
		{"outside ignored when disabled", false, outside, TransitionNone},
		{"inside never counts", true, inside, TransitionNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMonitor(Config{LocalCheck: tt.localCheck})
			in := active(hider(false))
			loc := tt.local
			in.Local = &loc
			if res := m.Evaluate(t0, in); res.Transition != tt.want {
				t.Fatalf("transition = %q, want %q", res.Transition, tt.want)
			}
		})
	}
}

func TestFailedEliminationDoesNotRetry(t *testing.T) {
	m := NewMonitor(Config{GracePeriod: 2 * time.Second})
	in := active(hider(true))

	m.Evaluate(t0, in)
	if res := m.Evaluate(t0.Add(2*time.Second), in); res.Transition != TransitionExpired {
		t.Fatalf("result = %+v", res)
	}
	// Still expired until resolved.
	if res := m.Evaluate(t0.Add(3*time.Second), in); res.Transition != TransitionNone || res.State != StateExpired {
		t.Fatalf("before resolve = %+v", res)
	}
	m.Resolve(errors.New("network down"))
	if m.State() != StateInactive {
		t.Fatalf("state = %s", m.State())
	}
	for i := 4; i < 20; i++ {
		if res := m.Evaluate(t0.Add(time.Duration(i)*time.Second), in); res.Transition != TransitionNone {
			t.Fatalf("timer re-armed at %ds: %+v", i, res)
		}
	}
}
