// Package location turns a device's push-based position stream into a normalized feed.
//
// A Sensor allows one active Subscription at a time. Any positioning failure ends the
// subscription: the channel closes and Err reports why. Nothing is retried; the owner
// decides when to subscribe again.
package location

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/hideandseek/go/internal/models"
)

var (
	// ErrAlreadySubscribed is returned when a view subscribes while another subscription is live.
	ErrAlreadySubscribed = errors.New("location sensor already has an active subscription")
	// ErrPermissionDenied means the device refused to share its position.
	ErrPermissionDenied = errors.New("location permission denied")
	// ErrPositionUnavailable means the device could not produce a fix.
	ErrPositionUnavailable = errors.New("position unavailable")
)

// Source is a device positioning capability. Watch pushes fixes to emit until ctx is
// cancelled (returning ctx.Err()) or positioning fails (returning the failure).
type Source interface {
	Watch(ctx context.Context, emit func(models.Coordinate)) error
}

// Fix is one normalized position sample.
type Fix struct {
	Coordinate models.Coordinate
	At         time.Time
}

// Sensor guards a Source so that only one subscription is active.
type Sensor struct {
	source Source
	clock  clockwork.Clock

	mu     sync.Mutex
	active *Subscription
}

func NewSensor(source Source, clock clockwork.Clock) *Sensor {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Sensor{source: source, clock: clock}
}

// Subscribe starts watching the source. The subscription ends when ctx is cancelled,
// Close is called, or the source fails.
func (s *Sensor) Subscribe(ctx context.Context) (*Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active != nil {
		return nil, ErrAlreadySubscribed
	}

	watchCtx, cancel := context.WithCancel(ctx)
	sub := &Subscription{
		ch:     make(chan Fix, 1),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	s.active = sub

	go s.run(watchCtx, sub)
	return sub, nil
}

func (s *Sensor) run(ctx context.Context, sub *Subscription) {
	defer func() {
		s.mu.Lock()
		if s.active == sub {
			s.active = nil
		}
		s.mu.Unlock()
		// done first so Err is settled by the time a reader sees C closed
		close(sub.done)
		close(sub.ch)
	}()

	err := s.source.Watch(ctx, func(c models.Coordinate) {
		if verr := c.Validate(); verr != nil {
			log.Warn().Err(verr).Msg("dropping invalid position fix")
			return
		}
		sub.push(Fix{Coordinate: c, At: s.clock.Now()})
	})

	if err != nil && !errors.Is(err, context.Canceled) && ctx.Err() == nil {
		sub.err = fmt.Errorf("location watch failed: %w", err)
		log.Error().Err(err).Msg("location subscription ended")
	}
}

// Subscription is one live watch on a Sensor.
type Subscription struct {
	ch     chan Fix
	cancel context.CancelFunc
	done   chan struct{}
	err    error
}

// push keeps only the latest fix when the consumer lags behind.
func (sub *Subscription) push(f Fix) {
	for {
		select {
		case sub.ch <- f:
			return
		default:
		}
		select {
		case <-sub.ch:
		default:
		}
	}
}

// C delivers fixes. It is closed when the subscription ends.
func (sub *Subscription) C() <-chan Fix {
	return sub.ch
}

// Err reports the terminal positioning failure once C is closed. It is nil after a
// normal cancellation.
func (sub *Subscription) Err() error {
	select {
	case <-sub.done:
		return sub.err
	default:
		return nil
	}
}

// Close cancels the watch and waits until the device resource is released.
func (sub *Subscription) Close() {
	sub.cancel()
	<-sub.done
}
