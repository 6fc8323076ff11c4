package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mcdev12/hideandseek/go/internal/dbconfig"
	"github.com/mcdev12/hideandseek/go/internal/journal"
	"github.com/mcdev12/hideandseek/go/internal/sqlutil"
)

// userStats is one line of the report.
type userStats struct {
	UserID      int64
	DisplayName string
	Games       int
	Wins        int
	BestRank    *int
	TimesFound  int
	LastPlayed  *time.Time
}

const reportQuery = `
    SELECT p.user_id,
           max(p.display_name)                      AS display_name,
           count(DISTINCT r.game_id)                AS games,
           count(DISTINCT r.game_id) FILTER (WHERE p.rank = 1) AS wins,
           min(p.rank)                              AS best_rank,
           count(DISTINCT r.game_id) FILTER (WHERE p.status = 'FOUND') AS times_found,
           max(r.finished_at)                       AS last_played
      FROM game_result_players p
      JOIN game_results r ON r.id = p.result_id
     GROUP BY p.user_id
     ORDER BY wins DESC, best_rank ASC NULLS LAST, games DESC, p.user_id
`

func main() {
	importPath := flag.String("import", "", "JSON file of exported results to load before reporting")
	flag.Parse()

	ctx := context.Background()

	// 1) Connect using shared dbconfig
	cfg := dbconfig.NewConfigFromEnv()
	pool, err := pgxpool.New(ctx, cfg.DSN())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to connect: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	// 2) Optionally load exported results
	if *importPath != "" {
		if err := importResults(ctx, pool, *importPath); err != nil {
			fmt.Fprintf(os.Stderr, "import: %v\n", err)
			os.Exit(1)
		}
	}

	// 3) Aggregate per user
	rows, err := pool.Query(ctx, reportQuery)
	if err != nil {
		fmt.Fprintf(os.Stderr, "query report: %v\n", err)
		os.Exit(1)
	}
	defer rows.Close()

	var stats []userStats
	for rows.Next() {
		var (
			s          userStats
			bestRank   sql.NullInt32
			lastPlayed sql.NullTime
		)
		if err := rows.Scan(&s.UserID, &s.DisplayName, &s.Games, &s.Wins, &bestRank, &s.TimesFound, &lastPlayed); err != nil {
			fmt.Fprintf(os.Stderr, "scan row: %v\n", err)
			os.Exit(1)
		}
		s.BestRank = sqlutil.FromSqlInt32(bestRank)
		s.LastPlayed = sqlutil.FromNullTime(lastPlayed)
		stats = append(stats, s)
	}
	if err := rows.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "read report: %v\n", err)
		os.Exit(1)
	}

	// 4) Print summary
	if err := render(os.Stdout, stats); err != nil {
		fmt.Fprintf(os.Stderr, "render: %v\n", err)
		os.Exit(1)
	}
}

func importResults(ctx context.Context, pool *pgxpool.Pool, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read JSON: %w", err)
	}
	var results []journal.Result
	if err := json.Unmarshal(data, &results); err != nil {
		return fmt.Errorf("unmarshal JSON: %w", err)
	}

	var inserted, skipped, errs int
	for _, res := range results {
		ok, err := insertResult(ctx, pool, res)
		switch {
		case err != nil:
			fmt.Fprintf(os.Stderr, "error inserting game %d: %v\n", res.GameID, err)
			errs++
		case ok:
			inserted++
		default:
			skipped++
		}
	}
	fmt.Printf("Journal import complete: %d total, %d inserted, %d skipped, %d errors\n",
		len(results), inserted, skipped, errs)
	return nil
}

// insertResult writes one result and its roster in a transaction. It reports false when the
// game was already recorded for that user.
func insertResult(ctx context.Context, pool *pgxpool.Pool, res journal.Result) (bool, error) {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer tx.Rollback(ctx)

	roster, err := json.Marshal(res.Players)
	if err != nil {
		return false, err
	}

	id := uuid.New()
	tag, err := tx.Exec(ctx, `
            INSERT INTO game_results (
              id, game_id, game_name, session_id, recorded_by, self_rank, roster, finished_at
            ) VALUES (
              $1,$2,$3,$4,$5,$6,$7,$8
            )
            ON CONFLICT (game_id, recorded_by) DO NOTHING
        `,
		id, res.GameID, res.GameName, res.SessionID, res.RecordedBy, sqlutil.ToSqlInt32(res.SelfRank), roster, res.FinishedAt,
	)
	if err != nil {
		return false, err
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}

	for _, p := range res.Players {
		if _, err := tx.Exec(ctx, `
            INSERT INTO game_result_players (
              result_id, player_id, user_id, display_name, role, status, rank, found_at
            ) VALUES (
              $1,$2,$3,$4,$5,$6,$7,$8
            )
        `,
			id, p.PlayerID, p.UserID, p.DisplayName, string(p.Role), string(p.Status),
			sqlutil.ToSqlInt32(p.Rank), sqlutil.ToNullTime(p.FoundAt),
		); err != nil {
			return false, fmt.Errorf("player %d: %w", p.PlayerID, err)
		}
	}
	return true, tx.Commit(ctx)
}

func render(w io.Writer, stats []userStats) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "USER\tNAME\tGAMES\tWINS\tBEST\tFOUND\tLAST PLAYED")
	for _, s := range stats {
		best := "-"
		if s.BestRank != nil {
			best = fmt.Sprint(*s.BestRank)
		}
		last := "-"
		if s.LastPlayed != nil {
			last = s.LastPlayed.UTC().Format(time.DateOnly)
		}
		fmt.Fprintf(tw, "%d\t%s\t%d\t%d\t%s\t%d\t%s\n", s.UserID, s.DisplayName, s.Games, s.Wins, best, s.TimesFound, last)
	}
	return tw.Flush()
}
