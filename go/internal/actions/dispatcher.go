// Package actions issues the player's game actions and merges each returned snapshot into the
// game state the same way a poll would.
package actions

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/hideandseek/go/clients"
	"github.com/mcdev12/hideandseek/go/clients/game_api_client"
	"github.com/mcdev12/hideandseek/go/internal/gamestate"
	"github.com/mcdev12/hideandseek/go/internal/models"
)

const DefaultRevealDuration = 10 * time.Second

var (
	ErrNoSnapshot      = errors.New("no game snapshot yet")
	ErrNoLocation      = errors.New("current location unknown")
	ErrNotEligible     = errors.New("player is not eligible for this action")
	ErrNotHunter       = errors.New("only hunters can do this")
	ErrUnknownPlayer   = errors.New("player is not in this game")
	ErrTargetNotHiding = errors.New("target is not a hiding hider")
	ErrPowerUpUsed     = errors.New("power-up already used in this game")
	ErrUnknownPowerUp  = errors.New("unknown power-up")
	ErrNotCreator      = errors.New("only the game creator can start the game")
	ErrWrongPhase      = errors.New("action not available in the current phase")
)

// PowerUp kinds. Each may be used once per game.
type PowerUp string

const (
	// PowerUpReveal shows every roster position for a short window. The effect is local.
	PowerUpReveal PowerUp = "reveal"
	// PowerUpRecenter moves the geofence center onto the hunter.
	PowerUpRecenter PowerUp = "recenter"
)

// API is the subset of the backend the dispatcher calls.
type API interface {
	UpdateGame(ctx context.Context, gameID int64, at models.Coordinate, start bool) (*models.Game, error)
	MarkPlayer(ctx context.Context, gameID, playerID int64) (*models.Game, error)
	RecenterArea(ctx context.Context, gameID int64, center models.Coordinate) (*models.Game, error)
	LeaveGame(ctx context.Context, gameID, playerID int64) error
}

// Store is where snapshots are read from and merged into. *gamestate.Client satisfies it.
type Store interface {
	GameID() int64
	Snapshot() *gamestate.State
	Location() (models.Coordinate, bool)
	NextSeq() uint64
	Merge(ctx context.Context, seq uint64, game *models.Game)
	ReportFailure(ctx context.Context, seq uint64, err error)
}

type Config struct {
	// HidersOnly mirrors the grace timer setting: only hiders may report themselves caught.
	HidersOnly     bool
	RevealDuration time.Duration
}

type Dispatcher struct {
	api   API
	store Store
	cfg   Config
	clock clockwork.Clock

	mu          sync.Mutex
	used        map[PowerUp]bool
	revealUntil time.Time
}

func NewDispatcher(api API, store Store, cfg Config, clock clockwork.Clock) *Dispatcher {
	if cfg.RevealDuration <= 0 {
		cfg.RevealDuration = DefaultRevealDuration
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Dispatcher{
		api:   api,
		store: store,
		cfg:   cfg,
		clock: clock,
		used:  make(map[PowerUp]bool),
	}
}

func (d *Dispatcher) current() (*gamestate.State, error) {
	st := d.store.Snapshot()
	if st == nil || st.Game == nil || st.Self == nil {
		return nil, ErrNoSnapshot
	}
	return st, nil
}

// merge applies a returned snapshot, or routes a failure that ends the view through the
// poll error path. Validation failures leave the state alone.
func (d *Dispatcher) merge(ctx context.Context, action string, seq uint64, game *models.Game, err error) (*models.Game, error) {
	if err != nil {
		if clients.IsNotFound(err) || clients.IsUnauthorized(err) {
			d.store.ReportFailure(ctx, seq, err)
		}
		log.Warn().
			Err(err).
			Str("action", action).
			Int64("game_id", d.store.GameID()).
			Msg("action rejected")
		return nil, err
	}
	if game != nil {
		d.store.Merge(ctx, seq, game)
	}
	log.Info().Str("action", action).Int64("game_id", d.store.GameID()).Uint64("seq", seq).Msg("action applied")
	return game, nil
}

// MarkSelfCaught reports the local player as caught. Used by the grace timer on expiry.
func (d *Dispatcher) MarkSelfCaught(ctx context.Context) (*models.Game, error) {
	st, err := d.current()
	if err != nil {
		return nil, err
	}
	self := st.Self
	if st.Game.Phase != models.PhaseActive || self.IsFound() {
		return nil, ErrNotEligible
	}
	if d.cfg.HidersOnly && self.Role != models.RoleHider {
		return nil, ErrNotEligible
	}

	seq := d.store.NextSeq()
	game, err := d.api.MarkPlayer(ctx, d.store.GameID(), self.ID)
	return d.merge(ctx, "mark_self_caught", seq, game, err)
}

// MarkOtherFound is the hunter catching a hider.
func (d *Dispatcher) MarkOtherFound(ctx context.Context, playerID int64) (*models.Game, error) {
	st, err := d.current()
	if err != nil {
		return nil, err
	}
	if !st.Self.IsHunter() {
		return nil, ErrNotHunter
	}
	target, ok := st.Game.PlayerByID(playerID)
	if !ok {
		return nil, fmt.Errorf("player %d: %w", playerID, ErrUnknownPlayer)
	}
	if !target.IsHiding() {
		return nil, fmt.Errorf("player %d: %w", playerID, ErrTargetNotHiding)
	}

	seq := d.store.NextSeq()
	game, err := d.api.MarkPlayer(ctx, d.store.GameID(), playerID)
	return d.merge(ctx, "mark_other_found", seq, game, err)
}

// RecenterArea moves the geofence center to the hunter's current coordinate and merges the
// result right away.
func (d *Dispatcher) RecenterArea(ctx context.Context) (*models.Game, error) {
	st, err := d.current()
	if err != nil {
		return nil, err
	}
	if !st.Self.IsHunter() {
		return nil, ErrNotHunter
	}
	at, ok := d.store.Location()
	if !ok {
		return nil, ErrNoLocation
	}

	seq := d.store.NextSeq()
	game, err := d.api.RecenterArea(ctx, d.store.GameID(), at)
	return d.merge(ctx, "recenter_area", seq, game, err)
}

// PowerUpUsed reports whether kind was already spent in this game.
func (d *Dispatcher) PowerUpUsed(kind PowerUp) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.used[kind]
}

// Revealed reports whether the reveal window is open at now.
func (d *Dispatcher) Revealed(now time.Time) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return now.Before(d.revealUntil)
}

// UsePowerUp spends a power-up. The local one-use check only disables the control early;
// the server may still reject a duplicate.
func (d *Dispatcher) UsePowerUp(ctx context.Context, kind PowerUp) (*models.Game, error) {
	st, err := d.current()
	if err != nil {
		return nil, err
	}
	if !st.Self.IsHunter() {
		return nil, ErrNotHunter
	}
	if kind != PowerUpReveal && kind != PowerUpRecenter {
		return nil, fmt.Errorf("%q: %w", kind, ErrUnknownPowerUp)
	}

	d.mu.Lock()
	if d.used[kind] {
		d.mu.Unlock()
		return nil, ErrPowerUpUsed
	}
	d.used[kind] = true
	if kind == PowerUpReveal {
		d.revealUntil = d.clock.Now().Add(d.cfg.RevealDuration)
		d.mu.Unlock()
		log.Info().Int64("game_id", d.store.GameID()).Dur("duration", d.cfg.RevealDuration).Msg("players revealed")
		return st.Game, nil
	}
	d.mu.Unlock()

	game, err := d.RecenterArea(ctx)
	if err != nil && !clients.IsValidation(err) {
		// Nothing was spent server side; let the player try again.
		d.mu.Lock()
		d.used[kind] = false
		d.mu.Unlock()
	}
	return game, err
}

// StartGame asks the server to leave the lobby. The server decides the minimum roster; its
// rejection message comes back verbatim through clients.UserMessage.
func (d *Dispatcher) StartGame(ctx context.Context) (*models.Game, error) {
	st, err := d.current()
	if err != nil {
		return nil, err
	}
	if st.Game.Phase != models.PhaseLobby {
		return nil, ErrWrongPhase
	}
	if st.Game.CreatorID != st.Self.UserID {
		return nil, ErrNotCreator
	}
	at, ok := d.store.Location()
	if !ok {
		return nil, ErrNoLocation
	}

	seq := d.store.NextSeq()
	game, err := d.api.UpdateGame(ctx, d.store.GameID(), at, true)
	return d.merge(ctx, "start_game", seq, game, err)
}

// ExitGame removes the local player from the lobby roster.
func (d *Dispatcher) ExitGame(ctx context.Context) error {
	st, err := d.current()
	if err != nil {
		return err
	}
	if st.Game.Phase != models.PhaseLobby {
		return ErrWrongPhase
	}
	if err := d.api.LeaveGame(ctx, d.store.GameID(), st.Self.ID); err != nil {
		log.Warn().Err(err).Int64("game_id", d.store.GameID()).Msg("failed to leave game")
		return err
	}
	log.Info().Int64("game_id", d.store.GameID()).Int64("player_id", st.Self.ID).Msg("left game")
	return nil
}

// Creator opens new games.
type Creator interface {
	CreateGame(ctx context.Context, req game_api_client.GamePostRequest) (*models.Game, error)
}

// CreateGame validates and submits a new lobby centered on at.
func CreateGame(ctx context.Context, api Creator, req game_api_client.GamePostRequest) (*models.Game, error) {
	switch {
	case req.GameName == "":
		return nil, errors.New("game name is required")
	case req.Radius <= 0:
		return nil, errors.New("radius must be positive")
	case req.PreparationTimeInSeconds <= 0 || req.GameTimeInSeconds <= 0:
		return nil, errors.New("phase durations must be positive")
	}
	center := models.Coordinate{Latitude: req.LocationLat, Longitude: req.LocationLong}
	if err := center.Validate(); err != nil {
		return nil, fmt.Errorf("invalid center: %w", err)
	}

	game, err := api.CreateGame(ctx, req)
	if err != nil {
		return nil, err
	}
	log.Info().
		Int64("game_id", game.ID).
		Str("name", game.Name).
		Float64("radius", req.Radius).
		Msg("game created")
	return game, nil
}
