// Package session runs one mounted view: a single event loop that owns the grace timer and
// the phase countdown and reacts to location fixes, snapshots, heartbeats and action results.
package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/hideandseek/go/clients"
	"github.com/mcdev12/hideandseek/go/internal/actions"
	"github.com/mcdev12/hideandseek/go/internal/countdown"
	"github.com/mcdev12/hideandseek/go/internal/events"
	"github.com/mcdev12/hideandseek/go/internal/gamestate"
	"github.com/mcdev12/hideandseek/go/internal/geo"
	"github.com/mcdev12/hideandseek/go/internal/geofence"
	"github.com/mcdev12/hideandseek/go/internal/journal"
	"github.com/mcdev12/hideandseek/go/internal/location"
	"github.com/mcdev12/hideandseek/go/internal/models"
	"github.com/mcdev12/hideandseek/go/internal/navigation"
)

const (
	defaultHeartbeat  = time.Second
	sideEffectTimeout = 5 * time.Second
)

// API is everything a session sends to the backend.
type API interface {
	gamestate.API
	actions.API
}

type Config struct {
	GameID int64
	UserID int64
	// Screen is ViewLobby or ViewGame.
	Screen    navigation.View
	Poll      gamestate.Config
	Grace     geofence.Config
	Actions   actions.Config
	Heartbeat time.Duration
}

type Deps struct {
	API       API
	Creds     gamestate.CredentialSource
	Sensor    *location.Sensor
	Publisher events.Publisher
	Recorder  journal.Recorder
	Clock     clockwork.Clock
}

type CommandKind string

const (
	CommandCatch      CommandKind = "catch"
	CommandCaughtSelf CommandKind = "caught"
	CommandPowerUp    CommandKind = "powerup"
	CommandRecenter   CommandKind = "recenter"
	CommandStart      CommandKind = "start"
	CommandExit       CommandKind = "exit"

	commandEliminate CommandKind = "eliminate"
)

// Command is a user-triggered action.
type Command struct {
	Kind     CommandKind
	PlayerID int64
	PowerUp  actions.PowerUp
}

type actionResult struct {
	cmd Command
	err error
}

type Session struct {
	id    string
	cfg   Config
	deps  Deps
	clock clockwork.Clock

	state     *gamestate.Client
	actions   *actions.Dispatcher
	monitor   *geofence.Monitor
	countdown *countdown.Countdown

	commands chan Command
	results  chan actionResult
	wg       sync.WaitGroup

	// Fields below are owned by the loop goroutine.
	location  *models.Coordinate
	locErr    error
	notice    string
	failures  int
	standings []journal.PlayerResult
	next      navigation.Target

	view atomic.Pointer[View]
}

func New(cfg Config, deps Deps) *Session {
	if deps.Clock == nil {
		deps.Clock = clockwork.NewRealClock()
	}
	if deps.Publisher == nil {
		deps.Publisher = events.NoOpPublisher{}
	}
	if deps.Recorder == nil {
		deps.Recorder = journal.NoOpRecorder{}
	}
	if cfg.Heartbeat <= 0 {
		cfg.Heartbeat = defaultHeartbeat
	}
	if cfg.Screen == navigation.ViewNone {
		cfg.Screen = navigation.ViewGame
	}
	switch cfg.Screen {
	case navigation.ViewLobby:
		cfg.Poll.ExpectedPhase = models.PhaseLobby
	default:
		cfg.Poll.ExpectedPhase = models.PhaseActive
	}

	state := gamestate.New(deps.API, deps.Creds, cfg.GameID, cfg.Poll, deps.Clock)
	state.SetUser(cfg.UserID)

	s := &Session{
		id:        uuid.NewString(),
		cfg:       cfg,
		deps:      deps,
		clock:     deps.Clock,
		state:     state,
		actions:   actions.NewDispatcher(deps.API, state, cfg.Actions, deps.Clock),
		monitor:   geofence.NewMonitor(cfg.Grace),
		countdown: countdown.New(),
		commands:  make(chan Command, 8),
		results:   make(chan actionResult, 8),
	}
	s.publishView()
	return s
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) State() *gamestate.Client {
	return s.state
}

// View returns the latest published view.
func (s *Session) View() View {
	return *s.view.Load()
}

// Submit queues a user command for the loop.
func (s *Session) Submit(ctx context.Context, cmd Command) error {
	select {
	case s.commands <- cmd:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run drives the view until it navigates away or ctx is cancelled. Every timer, the poll
// loop and the sensor subscription are released before it returns.
func (s *Session) Run(ctx context.Context) (navigation.Target, error) {
	defer s.wg.Wait()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer s.monitor.Reset()

	logger := log.With().
		Str("session_id", s.id).
		Int64("game_id", s.cfg.GameID).
		Str("screen", string(s.cfg.Screen)).
		Logger()

	var sub *location.Subscription
	var fixes <-chan location.Fix
	if s.deps.Sensor != nil {
		var err error
		sub, err = s.deps.Sensor.Subscribe(ctx)
		if err != nil {
			s.HandleSensorError(err)
			return navigation.Target{}, err
		}
		defer sub.Close()
		fixes = sub.C()
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.state.Run(ctx); err != nil {
			logger.Error().Err(err).Msg("game state poller failed")
		}
	}()
	defer s.state.Stop()

	ticker := s.clock.NewTicker(s.cfg.Heartbeat)
	defer ticker.Stop()

	s.publish(events.TypeJoined, 0, nil)
	logger.Info().Msg("session started")

	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("session cancelled")
			return navigation.Target{}, ctx.Err()
		case fix, ok := <-fixes:
			if !ok {
				fixes = nil
				if err := sub.Err(); err != nil {
					s.HandleSensorError(err)
				}
				continue
			}
			s.HandleFix(ctx, fix)
		case ev := <-s.state.Events():
			s.HandleEvent(ctx, ev)
		case <-ticker.Chan():
			s.HandleTick(ctx)
		case cmd := <-s.commands:
			s.HandleCommand(ctx, cmd)
		case res := <-s.results:
			s.handleActionResult(ctx, res)
		}

		if s.next.View != navigation.ViewNone {
			logger.Info().Str("target", string(s.next.View)).Str("reason", s.next.Reason).Msg("leaving view")
			return s.next, nil
		}
	}
}

// HandleFix forwards a device fix to the poller and re-evaluates the grace timer.
func (s *Session) HandleFix(ctx context.Context, fix location.Fix) {
	c := fix.Coordinate
	s.location = &c
	s.locErr = nil
	s.state.UpdateLocation(c)
	s.evaluate(ctx, s.clock.Now())
	s.publishView()
}

// HandleSensorError surfaces a positioning failure. The view keeps waiting for a fix.
func (s *Session) HandleSensorError(err error) {
	s.locErr = err
	switch {
	case errors.Is(err, location.ErrPermissionDenied):
		s.notice = "Location access was denied. Allow location access to play."
	default:
		s.notice = "Your location is unavailable."
	}
	log.Error().Err(err).Str("session_id", s.id).Msg("location unavailable")
	s.publishView()
}

// HandleEvent applies one game state event.
func (s *Session) HandleEvent(ctx context.Context, ev gamestate.Event) {
	now := s.clock.Now()

	switch ev.Type {
	case gamestate.EventSnapshot:
		s.failures = 0
		if s.notice == noticeConnection {
			s.notice = ""
		}
		if s.countdown.Observe(ev.Game, now) {
			a := s.countdown.Anchor()
			log.Debug().
				Str("phase", string(a.Phase)).
				Int("duration_sec", a.Duration).
				Int("remaining_sec", a.Remaining(now)).
				Msg("countdown anchored")
		}
		s.evaluate(ctx, now)

	case gamestate.EventPhaseChanged:
		s.publish(events.TypePhaseChanged, 0, map[string]models.Phase{"from": ev.From, "to": ev.To})

	case gamestate.EventRedirect:
		reason := "phase " + string(ev.To)
		if ev.Err != nil {
			reason = "game no longer exists"
		}
		s.navigate(ev.Target, reason)

	case gamestate.EventFinished:
		res := journal.BuildResult(ev.Game, s.cfg.UserID, s.id, now)
		s.standings = res.Players
		s.countdown.Reset()
		s.monitor.Reset()
		s.publish(events.TypeFinished, 0, map[string]any{"selfRank": res.SelfRank})
		s.record(res)
		s.navigate(navigation.ViewResults, "game finished")

	case gamestate.EventMembershipLost:
		s.notice = "You are no longer part of this game."
		s.navigate(navigation.ViewBrowse, "removed from game")

	case gamestate.EventPollFailed:
		s.failures = ev.Failures
		s.notice = noticeConnection

	case gamestate.EventGameGone:
		s.notice = "This game no longer exists."

	case gamestate.EventUnauthorized:
		s.notice = "Your session has expired. Please log in again."
		s.navigate(navigation.ViewLogin, "unauthorized")
	}

	s.publishView()
}

const noticeConnection = "Connection problem, retrying."

// HandleTick is the once-per-second heartbeat.
func (s *Session) HandleTick(ctx context.Context) {
	s.evaluate(ctx, s.clock.Now())
	s.publishView()
}

// HandleCommand starts a user action in the background.
func (s *Session) HandleCommand(ctx context.Context, cmd Command) {
	s.spawn(ctx, cmd, func(ctx context.Context) error {
		switch cmd.Kind {
		case CommandCatch:
			_, err := s.actions.MarkOtherFound(ctx, cmd.PlayerID)
			return err
		case CommandCaughtSelf:
			_, err := s.actions.MarkSelfCaught(ctx)
			return err
		case CommandPowerUp:
			_, err := s.actions.UsePowerUp(ctx, cmd.PowerUp)
			return err
		case CommandRecenter:
			_, err := s.actions.RecenterArea(ctx)
			return err
		case CommandStart:
			_, err := s.actions.StartGame(ctx)
			return err
		case CommandExit:
			return s.actions.ExitGame(ctx)
		default:
			return errors.New("unknown command " + string(cmd.Kind))
		}
	})
}

// handleActionResult applies the outcome of a background action.
func (s *Session) handleActionResult(ctx context.Context, res actionResult) {
	if res.err != nil && res.cmd.Kind != commandEliminate {
		s.notice = userMessage(res.err)
	}

	switch res.cmd.Kind {
	case commandEliminate:
		s.monitor.Resolve(res.err)
		if res.err != nil {
			s.notice = "Could not report leaving the area: " + userMessage(res.err)
			break
		}
		s.notice = "You stayed outside the game area and were caught."
		s.publish(events.TypeEliminated, s.selfID(), nil)
	case CommandCatch:
		if res.err == nil {
			s.publish(events.TypePlayerFound, res.cmd.PlayerID, nil)
		}
	case CommandCaughtSelf:
		if res.err == nil {
			s.notice = "You reported yourself as caught."
			s.publish(events.TypePlayerFound, s.selfID(), nil)
		}
	case CommandPowerUp:
		if res.err == nil {
			s.publish(events.TypePowerUpUsed, s.selfID(), map[string]actions.PowerUp{"kind": res.cmd.PowerUp})
		}
	case CommandExit:
		if res.err == nil {
			s.publish(events.TypeLeft, s.selfID(), nil)
			s.navigate(navigation.ViewBrowse, "left game")
		}
	}
	s.publishView()
}

// evaluate runs the grace timer against the latest snapshot.
func (s *Session) evaluate(ctx context.Context, now time.Time) {
	st := s.state.Snapshot()
	if st == nil || st.Game == nil {
		return
	}
	in := geofence.Input{Phase: st.Game.Phase, Self: st.Self, Local: s.location}
	if fence, ok := st.Game.Geofence(); ok {
		in.Geofence = &fence
	}

	res := s.monitor.Evaluate(now, in)
	switch res.Transition {
	case geofence.TransitionStarted:
		s.publish(events.TypeGraceStarted, s.selfID(), map[string]int{"remaining": res.Remaining})
	case geofence.TransitionCancelled:
		s.publish(events.TypeGraceCancelled, s.selfID(), nil)
	case geofence.TransitionExpired:
		s.spawn(ctx, Command{Kind: commandEliminate}, func(ctx context.Context) error {
			_, err := s.actions.MarkSelfCaught(ctx)
			return err
		})
	}
}

// spawn runs fn off the loop and posts its result back.
func (s *Session) spawn(ctx context.Context, cmd Command, fn func(ctx context.Context) error) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		err := fn(ctx)
		select {
		case s.results <- actionResult{cmd: cmd, err: err}:
		case <-ctx.Done():
		}
	}()
}

// publish sends a lifecycle event without blocking the loop.
func (s *Session) publish(typ events.Type, playerID int64, payload any) {
	ev, err := events.New(typ, s.cfg.GameID, s.id, playerID, payload)
	if err != nil {
		log.Error().Err(err).Msg("failed to build event")
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), sideEffectTimeout)
		defer cancel()
		if err := s.deps.Publisher.Publish(ctx, ev); err != nil {
			log.Warn().Err(err).Str("event_type", string(typ)).Msg("failed to publish event")
		}
	}()
}

// record stores a finished game. It outlives the view's context so leaving the results
// screen does not abort the write.
func (s *Session) record(res journal.Result) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), sideEffectTimeout)
		defer cancel()
		if err := s.deps.Recorder.Record(ctx, res); err != nil {
			log.Error().Err(err).Int64("game_id", res.GameID).Msg("failed to record game result")
		}
	}()
}

func (s *Session) navigate(view navigation.View, reason string) {
	if s.next.View != navigation.ViewNone {
		return
	}
	s.next = navigation.Target{View: view, GameID: s.cfg.GameID, Reason: reason}
}

func (s *Session) selfID() int64 {
	if st := s.state.Snapshot(); st != nil && st.Self != nil {
		return st.Self.ID
	}
	return 0
}

func (s *Session) publishView() {
	now := s.clock.Now()
	v := View{
		SessionID:          s.id,
		GameID:             s.cfg.GameID,
		Screen:             s.cfg.Screen,
		Grace:              s.monitor.State(),
		GraceRemaining:     s.monitor.Remaining(),
		Notice:             s.notice,
		Failures:           s.failures,
		WaitingForLocation: s.location == nil,
		Results:            s.standings,
		Next:               s.next,
		Revealed:           s.actions.Revealed(now),
		UpdatedAt:          now,
	}
	if s.locErr != nil {
		v.LocationError = s.locErr.Error()
	}
	if s.location != nil {
		loc := *s.location
		v.Location = &loc
	}

	if st := s.state.Snapshot(); st != nil && st.Game != nil {
		v.GameName = st.Game.Name
		v.Phase = st.Game.Phase
		v.Seq = st.Seq
		v.Remaining = s.countdown.Remaining(now)
		v.Clock = countdown.Format(v.Remaining)

		var selfID int64
		if st.Self != nil {
			self := *st.Self
			v.Self = &self
			selfID = self.ID
		}
		v.Players = visiblePlayers(st.Game.Players, selfID, v.Revealed)
		if fence, ok := st.Game.Geofence(); ok {
			v.Geofence = &fence
			if v.Location != nil {
				inside := geo.InFence(*v.Location, fence)
				v.InArea = &inside
			}
		}
	}
	s.view.Store(&v)
}

func userMessage(err error) string {
	if _, ok := clients.AsAPIError(err); ok {
		return clients.UserMessage(err)
	}
	return err.Error()
}
