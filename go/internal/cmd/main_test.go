package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/mcdev12/hideandseek/go/internal/actions"
	"github.com/mcdev12/hideandseek/go/internal/config"
	"github.com/mcdev12/hideandseek/go/internal/navigation"
	"github.com/mcdev12/hideandseek/go/internal/session"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		input   []string
		want    session.Command
		wantErr bool
	}{
		{input: []string{"start"}, want: session.Command{Kind: session.CommandStart}},
		{input: []string{"exit"}, want: session.Command{Kind: session.CommandExit}},
		{input: []string{"recenter"}, want: session.Command{Kind: session.CommandRecenter}},
		{input: []string{"caught"}, want: session.Command{Kind: session.CommandCaughtSelf}},
		{input: []string{"reveal"}, want: session.Command{Kind: session.CommandPowerUp, PowerUp: actions.PowerUpReveal}},
		{input: []string{"catch", "104"}, want: session.Command{Kind: session.CommandCatch, PlayerID: 104}},
		{input: []string{"catch"}, wantErr: true},
		{input: []string{"catch", "bob"}, wantErr: true},
		{input: []string{"dance"}, wantErr: true},
	}

	for _, tt := range tests {
		got, err := parseCommand(tt.input)
		if (err != nil) != tt.wantErr {
			t.Fatalf("parseCommand(%v) error = %v, wantErr %v", tt.input, err, tt.wantErr)
		}
		if diff := cmp.Diff(tt.want, got); diff != "" {
			t.Errorf("parseCommand(%v) mismatch (-want +got):\n%s", tt.input, diff)
		}
	}
}

func TestSessionConfigUsesLobbyInterval(t *testing.T) {
	cfg := config.Default()

	lobby := sessionConfig(&cfg, 4, navigation.Target{View: navigation.ViewLobby, GameID: 9})
	if lobby.Poll.Interval != 10*time.Second {
		t.Errorf("lobby interval = %s", lobby.Poll.Interval)
	}
	game := sessionConfig(&cfg, 4, navigation.Target{View: navigation.ViewGame, GameID: 9})
	if game.Poll.Interval != 3*time.Second {
		t.Errorf("game interval = %s", game.Poll.Interval)
	}
	if game.GameID != 9 || game.UserID != 4 || game.Screen != navigation.ViewGame {
		t.Errorf("identity = %+v", game)
	}
	if game.Grace.GracePeriod != 10*time.Second || !game.Grace.HidersOnly || !game.Grace.LocalCheck {
		t.Errorf("grace = %+v", game.Grace)
	}
}

func TestStatusServer(t *testing.T) {
	cfg := config.Default()
	services := &Services{
		Config: &cfg,
		Router: session.NewRouter(func(navigation.Target) *session.Session { return nil }),
	}
	srv := httptest.NewServer(setupServer(services).Handler)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("health: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("health status = %d", resp.StatusCode)
	}

	resp, err = http.Get(srv.URL + "/state")
	if err != nil {
		t.Fatalf("state: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("state before mount = %d, want 404", resp.StatusCode)
	}

	resp, err = http.Get(srv.URL + "/config")
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	defer resp.Body.Close()
	var got statusConfig
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode config: %v", err)
	}
	if got.APIBaseURL != cfg.APIBaseURL || got.GracePeriod != 10*time.Second || got.JournalEnabled {
		t.Errorf("config = %+v", got)
	}
}
