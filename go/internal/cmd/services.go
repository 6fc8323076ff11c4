package main

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/hideandseek/go/clients/game_api_client"
	"github.com/mcdev12/hideandseek/go/internal/config"
	"github.com/mcdev12/hideandseek/go/internal/dbconfig"
	"github.com/mcdev12/hideandseek/go/internal/events"
	"github.com/mcdev12/hideandseek/go/internal/journal"
	"github.com/mcdev12/hideandseek/go/internal/location"
	"github.com/mcdev12/hideandseek/go/internal/models"
	"github.com/mcdev12/hideandseek/go/internal/navigation"
	"github.com/mcdev12/hideandseek/go/internal/session"
)

type Services struct {
	Config    *config.Config
	Clock     clockwork.Clock
	API       *game_api_client.GameApiClient
	Sensor    *location.Sensor
	Publisher events.Publisher
	Recorder  journal.Recorder
	Router    *session.Router

	db     *sql.DB
	userID int64
}

func setupServices(ctx context.Context, cfg *config.Config) (*Services, error) {
	// Wire up dependency injection chain
	// Transport → Sensor → Side effects (events, journal) → Session router
	clock := clockwork.NewRealClock()

	api := game_api_client.NewGameApiClient(cfg.APIBaseURL, cfg.Token)
	api.SetTimeout(cfg.RequestTimeout.Std())

	source, err := newLocationSource(cfg.Location, clock)
	if err != nil {
		return nil, err
	}

	s := &Services{
		Config:    cfg,
		Clock:     clock,
		API:       api,
		Sensor:    location.NewSensor(source, clock),
		Publisher: events.NoOpPublisher{},
		Recorder:  journal.NoOpRecorder{},
		userID:    cfg.UserID,
	}

	if cfg.NATSURL != "" {
		jsCfg := events.DefaultJetStreamConfig()
		jsCfg.URL = cfg.NATSURL
		jsCfg.SubjectPrefix = cfg.EventSubjectPrefix
		pub, err := events.NewJetStreamPublisher(ctx, jsCfg)
		if err != nil {
			log.Warn().Err(err).Str("url", cfg.NATSURL).Msg("event publishing disabled")
		} else {
			s.Publisher = pub
		}
	}

	dbCfg := dbconfig.NewConfigFromEnv()
	if dbCfg.Enabled {
		database, err := setupDatabase(ctx, dbCfg)
		if err != nil {
			log.Warn().Err(err).Msg("results journal disabled")
		} else {
			s.db = database
			s.Recorder = journal.NewPostgresRecorder(database)
		}
	}

	s.Router = session.NewRouter(s.newSession)
	return s, nil
}

func (s *Services) newSession(target navigation.Target) *session.Session {
	return session.New(sessionConfig(s.Config, s.userID, target), session.Deps{
		API:       s.API,
		Creds:     s.API,
		Sensor:    s.Sensor,
		Publisher: s.Publisher,
		Recorder:  s.Recorder,
		Clock:     s.Clock,
	})
}

// resolveUser fills in the caller's id from /me when it was not configured.
func (s *Services) resolveUser(ctx context.Context) (int64, error) {
	if s.userID != 0 {
		return s.userID, nil
	}
	me, err := s.API.Me(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to resolve current user: %w", err)
	}
	s.userID = me.ID
	log.Info().Int64("user_id", me.ID).Str("username", me.Username).Msg("resolved current user")
	return me.ID, nil
}

// currentLocation waits for one fix. The subscription is released before returning so a
// session can take it over.
func (s *Services) currentLocation(ctx context.Context) (models.Coordinate, error) {
	sub, err := s.Sensor.Subscribe(ctx)
	if err != nil {
		return models.Coordinate{}, err
	}
	defer sub.Close()

	select {
	case fix, ok := <-sub.C():
		if !ok {
			if err := sub.Err(); err != nil {
				return models.Coordinate{}, err
			}
			return models.Coordinate{}, location.ErrPositionUnavailable
		}
		return fix.Coordinate, nil
	case <-ctx.Done():
		return models.Coordinate{}, ctx.Err()
	}
}

func (s *Services) Close() {
	if err := s.Publisher.Close(); err != nil {
		log.Warn().Err(err).Msg("failed to close event publisher")
	}
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close journal database")
		}
	}
}

func newLocationSource(cfg config.LocationConfig, clock clockwork.Clock) (location.Source, error) {
	switch cfg.Source {
	case "static":
		c := models.Coordinate{Latitude: cfg.Latitude, Longitude: cfg.Longitude}
		if err := c.Validate(); err != nil {
			return nil, fmt.Errorf("invalid static location: %w", err)
		}
		return location.StaticSource{Coordinate: c}, nil
	case "track":
		track, err := location.LoadTrack(cfg.TrackFile)
		if err != nil {
			return nil, err
		}
		return location.TrackSource{Track: track, Clock: clock}, nil
	case "websocket":
		return location.WebSocketSource{Config: location.DefaultWebSocketConfig(cfg.URL)}, nil
	default:
		return nil, fmt.Errorf("unknown location source %q", cfg.Source)
	}
}
