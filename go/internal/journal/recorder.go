package journal

import (
	"context"
	"database/sql"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/hideandseek/go/internal/journal/db"
	"github.com/mcdev12/hideandseek/go/internal/sqlutil"
)

// Recorder stores finished games.
type Recorder interface {
	Record(ctx context.Context, res Result) error
}

// NoOpRecorder is used when the journal is disabled.
type NoOpRecorder struct{}

func (NoOpRecorder) Record(context.Context, Result) error { return nil }

// PostgresRecorder writes each result in one transaction. Recording the same game twice for
// the same user is a no-op.
type PostgresRecorder struct {
	db *sql.DB
}

func NewPostgresRecorder(database *sql.DB) *PostgresRecorder {
	return &PostgresRecorder{db: database}
}

func (r *PostgresRecorder) Record(ctx context.Context, res Result) error {
	return sqlutil.Run(ctx, r.db, func(tx *sql.Tx) *Repository {
		return NewRepository(db.New(tx))
	}, func(repo *Repository) error {
		exists, err := repo.Exists(ctx, res.GameID, res.RecordedBy)
		if err != nil {
			return err
		}
		if exists {
			log.Debug().Int64("game_id", res.GameID).Msg("game already in journal")
			return nil
		}
		id, err := repo.Insert(ctx, res)
		if err != nil {
			return err
		}
		log.Info().
			Int64("game_id", res.GameID).
			Str("result_id", id.String()).
			Int("players", len(res.Players)).
			Msg("game recorded in journal")
		return nil
	})
}
