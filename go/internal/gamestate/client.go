// Package gamestate keeps the client's copy of the server-authoritative game snapshot.
//
// Every poll cycle is one request that reports the device coordinate and returns the full
// snapshot. Responses are applied in sequence order: a response issued before the last
// applied one is discarded, so a slow early poll can never overwrite a faster later one.
package gamestate

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/hideandseek/go/clients"
	"github.com/mcdev12/hideandseek/go/internal/models"
	"github.com/mcdev12/hideandseek/go/internal/navigation"
)

const (
	defaultInterval      = 3 * time.Second
	defaultMaxBackoff    = 30 * time.Second
	defaultNotFoundDelay = 3 * time.Second
	eventBufferSize      = 64
)

// API is the poll primitive: report a location and read the snapshot back.
type API interface {
	UpdateGame(ctx context.Context, gameID int64, at models.Coordinate, start bool) (*models.Game, error)
}

// CredentialSource reports whether a session credential is available.
type CredentialSource interface {
	HasCredential() bool
}

// Config tunes one client instance.
type Config struct {
	Interval      time.Duration
	MaxBackoff    time.Duration
	NotFoundDelay time.Duration
	// ExpectedPhase is the phase the owning view renders. Snapshots whose phase maps to a
	// different view produce a Redirect. Empty disables redirects.
	ExpectedPhase models.Phase
}

func (c Config) withDefaults() Config {
	if c.Interval <= 0 {
		c.Interval = defaultInterval
	}
	if c.MaxBackoff < c.Interval {
		c.MaxBackoff = defaultMaxBackoff
		if c.MaxBackoff < c.Interval {
			c.MaxBackoff = c.Interval
		}
	}
	if c.NotFoundDelay <= 0 {
		c.NotFoundDelay = defaultNotFoundDelay
	}
	return c
}

// State is the latest applied snapshot plus the derived self record.
// Game and Self are shared read-only values.
type State struct {
	Game       *models.Game
	Self       *models.Player
	Seq        uint64
	ReceivedAt time.Time
}

// Client polls one game.
type Client struct {
	api    API
	creds  CredentialSource
	gameID int64
	cfg    Config
	clock  clockwork.Clock

	events chan Event

	inputMu  sync.Mutex
	userID   int64
	hasUser  bool
	location *models.Coordinate

	seq   atomic.Uint64
	state atomic.Pointer[State]

	mergeMu     sync.Mutex
	lastApplied uint64
	phase       models.Phase
	redirected  navigation.View
	terminal    bool
	failures    int
	skipTicks   int
	goneGen     int
	goneNotice  bool
	goneTimer   clockwork.Timer

	stopOnce sync.Once
	stopCh   chan struct{}
}

// New creates a client for gameID. A nil clock means wall-clock time.
func New(api API, creds CredentialSource, gameID int64, cfg Config, clock clockwork.Clock) *Client {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Client{
		api:    api,
		creds:  creds,
		gameID: gameID,
		cfg:    cfg.withDefaults(),
		clock:  clock,
		events: make(chan Event, eventBufferSize),
		stopCh: make(chan struct{}),
	}
}

// Events delivers snapshots, phase changes, navigation requests and failures.
func (c *Client) Events() <-chan Event {
	return c.events
}

// GameID returns the polled game.
func (c *Client) GameID() int64 {
	return c.gameID
}

// SetUser records the identity used to find self in the roster.
func (c *Client) SetUser(userID int64) {
	c.inputMu.Lock()
	defer c.inputMu.Unlock()
	c.userID = userID
	c.hasUser = true
}

// UpdateLocation records the latest device coordinate; the next poll reports it.
func (c *Client) UpdateLocation(at models.Coordinate) {
	c.inputMu.Lock()
	defer c.inputMu.Unlock()
	loc := at
	c.location = &loc
}

// Location returns the last device coordinate handed to the client.
func (c *Client) Location() (models.Coordinate, bool) {
	c.inputMu.Lock()
	defer c.inputMu.Unlock()
	if c.location == nil {
		return models.Coordinate{}, false
	}
	return *c.location, true
}

func (c *Client) inputs() (userID int64, at models.Coordinate, ready bool) {
	c.inputMu.Lock()
	defer c.inputMu.Unlock()
	if !c.hasUser || c.location == nil || c.creds == nil || !c.creds.HasCredential() {
		return 0, models.Coordinate{}, false
	}
	return c.userID, *c.location, true
}

// Ready reports whether credential, identity and location are all present.
func (c *Client) Ready() bool {
	_, _, ready := c.inputs()
	return ready
}

// Snapshot returns the latest applied state, or nil before the first successful poll.
func (c *Client) Snapshot() *State {
	return c.state.Load()
}

// NextSeq reserves a sequence number for an out-of-band request whose response will be
// handed to Merge.
func (c *Client) NextSeq() uint64 {
	return c.seq.Add(1)
}

// Stop ends the poll loop. It is safe to call more than once.
func (c *Client) Stop() {
	c.stopOnce.Do(func() {
		close(c.stopCh)
	})
}

type pollResult struct {
	seq  uint64
	game *models.Game
	err  error
}

// Run polls on the configured interval until ctx is cancelled, Stop is called, or a
// terminal condition (finished, membership lost, unauthorized) is reached.
func (c *Client) Run(ctx context.Context) error {
	ticker := c.clock.NewTicker(c.cfg.Interval)
	defer ticker.Stop()
	defer c.cancelGoneTimer()

	results := make(chan pollResult, 4)

	log.Info().
		Int64("game_id", c.gameID).
		Dur("interval", c.cfg.Interval).
		Str("expected_phase", string(c.cfg.ExpectedPhase)).
		Msg("game state poller started")

	c.tick(ctx, results)

	for {
		select {
		case <-ctx.Done():
			log.Info().Int64("game_id", c.gameID).Msg("game state poller stopped")
			return nil
		case <-c.stopCh:
			log.Info().Int64("game_id", c.gameID).Msg("game state poller stopped")
			return nil
		case <-ticker.Chan():
			c.tick(ctx, results)
		case res := <-results:
			c.handle(ctx, res)
			if c.isTerminal() {
				log.Info().Int64("game_id", c.gameID).Msg("game state poller finished")
				return nil
			}
		}
	}
}

// tick issues one asynchronous poll when the inputs are ready and no backoff is pending.
// An unready client is a no-op, not an error.
func (c *Client) tick(ctx context.Context, results chan<- pollResult) {
	_, at, ready := c.inputs()
	if !ready {
		log.Debug().Int64("game_id", c.gameID).Msg("waiting for credential, identity and location")
		return
	}
	if c.consumeSkip() {
		return
	}

	seq := c.NextSeq()
	go func() {
		game, err := c.api.UpdateGame(ctx, c.gameID, at, false)
		select {
		case results <- pollResult{seq: seq, game: game, err: err}:
		case <-ctx.Done():
		case <-c.stopCh:
		}
	}()
}

// PollOnce runs one synchronous poll cycle. It returns false when the inputs are not ready.
func (c *Client) PollOnce(ctx context.Context) (bool, error) {
	_, at, ready := c.inputs()
	if !ready {
		return false, nil
	}
	seq := c.NextSeq()
	game, err := c.api.UpdateGame(ctx, c.gameID, at, false)
	c.handle(ctx, pollResult{seq: seq, game: game, err: err})
	return true, err
}

// Merge applies a snapshot returned by an out-of-band action through the same path as a poll.
func (c *Client) Merge(ctx context.Context, seq uint64, game *models.Game) {
	c.handle(ctx, pollResult{seq: seq, game: game})
}

// ReportFailure routes an out-of-band request failure through the poll error path, so a
// deleted game or an expired credential is handled the same way.
func (c *Client) ReportFailure(ctx context.Context, seq uint64, err error) {
	if err == nil {
		return
	}
	c.handle(ctx, pollResult{seq: seq, err: err})
}

func (c *Client) handle(ctx context.Context, res pollResult) {
	var out []Event
	if res.err != nil {
		if ctx.Err() != nil {
			return
		}
		out = c.applyFailure(ctx, res.seq, res.err)
	} else if res.game != nil {
		out = c.applySnapshot(res.seq, res.game)
	}
	c.emit(ctx, out...)
}

func (c *Client) applySnapshot(seq uint64, game *models.Game) []Event {
	c.mergeMu.Lock()
	defer c.mergeMu.Unlock()

	if c.terminal {
		return nil
	}
	if seq <= c.lastApplied {
		log.Debug().
			Int64("game_id", c.gameID).
			Uint64("seq", seq).
			Uint64("last_applied", c.lastApplied).
			Msg("discarding out-of-order snapshot")
		return nil
	}
	c.lastApplied = seq
	c.resetFailuresLocked()

	c.inputMu.Lock()
	userID := c.userID
	c.inputMu.Unlock()

	self, found := game.PlayerByUser(userID)
	if !found {
		self = nil
	}
	c.state.Store(&State{Game: game, Self: self, Seq: seq, ReceivedAt: c.clock.Now()})

	events := []Event{{Type: EventSnapshot, Seq: seq, Game: game, Self: self}}

	prev := c.phase
	c.phase = game.Phase
	if prev != game.Phase {
		log.Info().
			Int64("game_id", c.gameID).
			Str("from", string(prev)).
			Str("to", string(game.Phase)).
			Msg("game phase changed")
		events = append(events, Event{Type: EventPhaseChanged, Seq: seq, Game: game, Self: self, From: prev, To: game.Phase})
	}

	if !found {
		c.terminal = true
		log.Warn().Int64("game_id", c.gameID).Int64("user_id", userID).Msg("user is no longer in the roster")
		return append(events, Event{Type: EventMembershipLost, Seq: seq, Game: game, Target: navigation.ViewBrowse})
	}

	if game.Phase == models.PhaseFinished {
		c.terminal = true
		return append(events, Event{Type: EventFinished, Seq: seq, Game: game, Self: self, Target: navigation.ViewResults})
	}

	if c.cfg.ExpectedPhase != "" {
		want := navigation.ForPhase(c.cfg.ExpectedPhase)
		have := navigation.ForPhase(game.Phase)
		if have != want && have != c.redirected {
			c.redirected = have
			log.Info().
				Int64("game_id", c.gameID).
				Str("phase", string(game.Phase)).
				Str("target", string(have)).
				Bool("backward", game.Phase.Before(c.cfg.ExpectedPhase)).
				Msg("snapshot belongs to another view")
			events = append(events, Event{Type: EventRedirect, Seq: seq, Game: game, Self: self, To: game.Phase, Target: have})
		}
	}

	return events
}

func (c *Client) applyFailure(ctx context.Context, seq uint64, err error) []Event {
	c.mergeMu.Lock()
	defer c.mergeMu.Unlock()

	if c.terminal || seq <= c.lastApplied {
		return nil
	}

	switch {
	case clients.IsUnauthorized(err):
		c.terminal = true
		log.Warn().Err(err).Int64("game_id", c.gameID).Msg("credential rejected")
		return []Event{{Type: EventUnauthorized, Seq: seq, Err: err, Target: navigation.ViewLogin}}

	case clients.IsNotFound(err):
		c.failures++
		if c.goneNotice {
			log.Debug().Err(err).Int64("game_id", c.gameID).Msg("game still gone")
			return nil
		}
		c.goneNotice = true
		c.goneGen++
		gen := c.goneGen
		c.goneTimer = c.clock.AfterFunc(c.cfg.NotFoundDelay, func() {
			c.navigateGone(ctx, gen, err)
		})
		log.Warn().Err(err).Int64("game_id", c.gameID).Dur("delay", c.cfg.NotFoundDelay).Msg("game no longer exists")
		return []Event{{Type: EventGameGone, Seq: seq, Err: err, Failures: c.failures}}

	default:
		c.failures++
		c.skipTicks = c.backoffTicksLocked()
		log.Warn().
			Err(err).
			Int64("game_id", c.gameID).
			Uint64("seq", seq).
			Int("failures", c.failures).
			Int("skip_ticks", c.skipTicks).
			Msg("game state poll failed")
		return []Event{{Type: EventPollFailed, Seq: seq, Err: err, Failures: c.failures}}
	}
}

func (c *Client) navigateGone(ctx context.Context, gen int, err error) {
	c.mergeMu.Lock()
	if gen != c.goneGen || !c.goneNotice || c.terminal {
		c.mergeMu.Unlock()
		return
	}
	c.mergeMu.Unlock()

	c.emit(ctx, Event{Type: EventRedirect, Err: err, Target: navigation.ViewBrowse})
}

// backoffTicksLocked doubles the number of skipped ticks per consecutive failure,
// bounded by MaxBackoff.
func (c *Client) backoffTicksLocked() int {
	maxSkip := int(c.cfg.MaxBackoff/c.cfg.Interval) - 1
	skip := 0
	for i := 1; i < c.failures && skip < maxSkip; i++ {
		skip = skip*2 + 1
	}
	if skip > maxSkip {
		skip = maxSkip
	}
	return skip
}

func (c *Client) resetFailuresLocked() {
	c.failures = 0
	c.skipTicks = 0
	if c.goneNotice {
		c.goneNotice = false
		c.goneGen++
		if c.goneTimer != nil {
			c.goneTimer.Stop()
			c.goneTimer = nil
		}
	}
}

func (c *Client) consumeSkip() bool {
	c.mergeMu.Lock()
	defer c.mergeMu.Unlock()
	if c.skipTicks > 0 {
		c.skipTicks--
		return true
	}
	return false
}

func (c *Client) cancelGoneTimer() {
	c.mergeMu.Lock()
	defer c.mergeMu.Unlock()
	c.goneGen++
	if c.goneTimer != nil {
		c.goneTimer.Stop()
		c.goneTimer = nil
	}
}

func (c *Client) isTerminal() bool {
	c.mergeMu.Lock()
	defer c.mergeMu.Unlock()
	return c.terminal
}

// Failures returns the number of consecutive failed polls.
func (c *Client) Failures() int {
	c.mergeMu.Lock()
	defer c.mergeMu.Unlock()
	return c.failures
}

func (c *Client) emit(ctx context.Context, events ...Event) {
	for _, ev := range events {
		select {
		case c.events <- ev:
		case <-ctx.Done():
			return
		}
	}
}
