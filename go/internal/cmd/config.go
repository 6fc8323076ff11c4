package main

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/hideandseek/go/internal/actions"
	"github.com/mcdev12/hideandseek/go/internal/config"
	"github.com/mcdev12/hideandseek/go/internal/gamestate"
	"github.com/mcdev12/hideandseek/go/internal/geofence"
	"github.com/mcdev12/hideandseek/go/internal/navigation"
	"github.com/mcdev12/hideandseek/go/internal/session"
)

func loadConfig() (*config.Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}
	return config.Load(config.PathFromEnv())
}

func setupLogging(level string) {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly})

	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		log.Warn().Str("log_level", level).Msg("unknown log level, using info")
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
}

func sessionConfig(cfg *config.Config, userID int64, target navigation.Target) session.Config {
	interval := cfg.PollInterval.Std()
	if target.View == navigation.ViewLobby {
		interval = cfg.LobbyPollInterval.Std()
	}
	return session.Config{
		GameID: target.GameID,
		UserID: userID,
		Screen: target.View,
		Poll: gamestate.Config{
			Interval:      interval,
			MaxBackoff:    cfg.MaxBackoff.Std(),
			NotFoundDelay: cfg.NotFoundDelay.Std(),
		},
		Grace: geofence.Config{
			GracePeriod: cfg.GracePeriod.Std(),
			HidersOnly:  cfg.GraceHidersOnly,
			LocalCheck:  cfg.LocalGeofenceCheck,
		},
		Actions: actions.Config{
			HidersOnly:     cfg.GraceHidersOnly,
			RevealDuration: cfg.RevealDuration.Std(),
		},
	}
}
