package journal

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/mcdev12/hideandseek/go/internal/journal/db"
	"github.com/mcdev12/hideandseek/go/internal/models"
)

func intPtr(v int) *int { return &v }

var finished = time.Date(2026, 5, 1, 12, 30, 0, 0, time.UTC)

func finishedGame() *models.Game {
	found := models.Timestamp{Time: time.Date(2026, 5, 1, 12, 20, 0, 0, time.UTC)}
	return &models.Game{
		ID:    7,
		Name:  "park",
		Phase: models.PhaseFinished,
		Players: []models.Player{
			{ID: 1, UserID: 42, DisplayName: "me", Role: models.RoleHider, Status: models.PlayerStatusFound, FoundTime: &found, Rank: intPtr(3)},
			{ID: 2, UserID: 43, DisplayName: "hunter", Role: models.RoleHunter, Status: models.PlayerStatusHunting, Rank: intPtr(1)},
			{ID: 3, UserID: 44, DisplayName: "late", Role: models.RoleHider, Status: models.PlayerStatusHiding},
			{ID: 4, UserID: 45, DisplayName: "sneaky", Role: models.RoleHider, Status: models.PlayerStatusHiding, Rank: intPtr(2)},
		},
	}
}

func TestBuildResultOrdersByRank(t *testing.T) {
	res := BuildResult(finishedGame(), 42, "sess", finished)

	var order []int64
	for _, p := range res.Players {
		order = append(order, p.PlayerID)
	}
	if diff := cmp.Diff([]int64{2, 4, 1, 3}, order); diff != "" {
		t.Fatalf("order mismatch (-want +got):\n%s", diff)
	}
	if res.SelfRank == nil || *res.SelfRank != 3 {
		t.Fatalf("self rank = %v", res.SelfRank)
	}
	if res.Players[2].FoundAt == nil {
		t.Fatal("found time dropped")
	}
	if res.Players[3].Rank != nil {
		t.Fatal("unranked player got a rank")
	}
}

type fakeQueries struct {
	exists  bool
	results []db.InsertGameResultParams
	players []db.InsertPlayerResultParams
	failOn  int64
}

func (f *fakeQueries) InsertGameResult(ctx context.Context, arg db.InsertGameResultParams) error {
	f.results = append(f.results, arg)
	return nil
}

func (f *fakeQueries) InsertPlayerResult(ctx context.Context, arg db.InsertPlayerResultParams) error {
	if arg.PlayerID == f.failOn {
		return errors.New("constraint violation")
	}
	f.players = append(f.players, arg)
	return nil
}

func (f *fakeQueries) GameResultExists(ctx context.Context, arg db.GameResultExistsParams) (bool, error) {
	return f.exists, nil
}

func TestRepositoryInsert(t *testing.T) {
	q := &fakeQueries{}
	repo := NewRepository(q)
	res := BuildResult(finishedGame(), 42, "sess", finished)

	id, err := repo.Insert(context.Background(), res)
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if len(q.results) != 1 || q.results[0].ID != id {
		t.Fatalf("results = %+v", q.results)
	}
	row := q.results[0]
	if !row.SelfRank.Valid || row.SelfRank.Int32 != 3 {
		t.Fatalf("self rank = %+v", row.SelfRank)
	}
	var roster []PlayerResult
	if err := json.Unmarshal(row.Roster.RawMessage, &roster); err != nil || len(roster) != 4 {
		t.Fatalf("roster = %s (%v)", row.Roster.RawMessage, err)
	}
	if len(q.players) != 4 {
		t.Fatalf("inserted %d players", len(q.players))
	}
	for _, p := range q.players {
		if p.ResultID != id {
			t.Fatalf("player %d linked to %s", p.PlayerID, p.ResultID)
		}
	}
	if q.players[3].Rank.Valid {
		t.Fatal("unranked player stored with a rank")
	}
}

func TestRepositoryInsertError(t *testing.T) {
	q := &fakeQueries{failOn: 4}
	repo := NewRepository(q)
	if _, err := repo.Insert(context.Background(), BuildResult(finishedGame(), 42, "sess", finished)); err == nil {
		t.Fatal("expected error")
	}
}

func TestNoOpRecorder(t *testing.T) {
	var r Recorder = NoOpRecorder{}
	if err := r.Record(context.Background(), Result{}); err != nil {
		t.Fatal(err)
	}
}
